package engine

import (
	"errors"
	"fmt"
)

// SimulationErrorCode categorizes engine failures.
type SimulationErrorCode string

const (
	// ErrCodeBadEndpoint indicates the source or destination is missing
	// or is not a transceiver.
	ErrCodeBadEndpoint SimulationErrorCode = "SIM_BAD_ENDPOINT"

	// ErrCodeNoPath indicates no route exists between the endpoints.
	ErrCodeNoPath SimulationErrorCode = "SIM_NO_PATH"

	// ErrCodeNoConvergence indicates the physical model could not
	// produce a finite result (saturated amplifier, unamplified path).
	ErrCodeNoConvergence SimulationErrorCode = "SIM_NO_CONVERGENCE"
)

// SimulationError reports that the engine could not produce a result
// for one request. It is fatal to that request only.
type SimulationError struct {
	Code    SimulationErrorCode
	Message string
	Source  string
	Dest    string
}

// Error implements the error interface.
func (e *SimulationError) Error() string {
	if e.Source != "" || e.Dest != "" {
		return fmt.Sprintf("%s: %s (source=%q, dest=%q)", e.Code, e.Message, e.Source, e.Dest)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsSimulationError reports whether err is (or wraps) a SimulationError.
func IsSimulationError(err error) bool {
	var se *SimulationError
	return errors.As(err, &se)
}

func newSimError(code SimulationErrorCode, src, dst, message string) *SimulationError {
	return &SimulationError{Code: code, Message: message, Source: src, Dest: dst}
}
