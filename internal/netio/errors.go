package netio

import (
	"errors"
	"fmt"
)

// LoadErrorCode categorizes loader failures.
type LoadErrorCode string

const (
	// LoadRead indicates the file could not be read at all.
	LoadRead LoadErrorCode = "LOAD_READ"

	// LoadParse indicates the file is not valid JSON.
	LoadParse LoadErrorCode = "LOAD_PARSE"

	// LoadSchema indicates valid JSON that violates the schema or
	// references elements/varieties that do not exist.
	LoadSchema LoadErrorCode = "LOAD_SCHEMA"
)

// LoadError reports an unreadable or malformed equipment/topology
// reference. It is fatal to the job that referenced the file, never to
// the batch.
type LoadError struct {
	Code    LoadErrorCode
	Path    string
	Message string
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Code, e.Path, e.Message)
}

// NewLoadError creates a LoadError.
func NewLoadError(code LoadErrorCode, path, message string) *LoadError {
	return &LoadError{Code: code, Path: path, Message: message}
}

// IsLoadError reports whether err is (or wraps) a LoadError.
func IsLoadError(err error) bool {
	var le *LoadError
	return errors.As(err, &le)
}
