// Package simparams holds the process-wide simulation parameter store.
//
// The store is the single piece of shared mutable state the engine reads
// as a side channel instead of an explicit argument. It mirrors the
// "set once, read everywhere" pattern of classic simulation codebases
// and exists precisely so the harness can measure what happens when
// concurrent workers mutate it.
//
// Every accessor locks just long enough to keep the underlying map
// structurally sound under concurrent use. The lock deliberately does
// NOT span a caller's reset-then-read sequence: two workers interleaving
// Reset/Get calls is the logical race the harness is built to detect,
// and hiding it behind a wider critical section would defeat the test.
//
// Known limitation: when two workers' Restore calls race, the store
// keeps whichever snapshot was written last (last-writer-wins). The
// harness documents this rather than resolving it.
package simparams

import (
	"reflect"
	"sync"
)

// Settings is a deep-copyable snapshot of the parameter store.
//
// Values are restricted to what YAML/JSON round-trips cleanly: scalars,
// []any, and nested map[string]any. Clone copies all nesting levels, so
// mutating a clone never affects the original or any other clone.
type Settings map[string]any

var (
	mu     sync.RWMutex
	shared = Settings{}
)

// Reset replaces the store wholesale with a deep copy of s.
// Passing nil or an empty map establishes the known-empty baseline.
func Reset(s Settings) {
	clone := s.Clone()
	mu.Lock()
	shared = clone
	mu.Unlock()
}

// Restore is Reset under a name that reads correctly at worker exit.
func Restore(s Settings) {
	Reset(s)
}

// Set stores a single parameter value.
func Set(key string, value any) {
	mu.Lock()
	shared[key] = value
	mu.Unlock()
}

// Get returns a parameter value and whether it was present.
func Get(key string) (any, bool) {
	mu.RLock()
	v, ok := shared[key]
	mu.RUnlock()
	return v, ok
}

// Float returns a numeric parameter. Integer values are widened to
// float64 so YAML-sourced settings behave like literals.
func Float(key string) (float64, bool) {
	v, ok := Get(key)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// Current returns a deep copy of the store as it is right now.
// The copy is private to the caller: later mutations of the store do
// not show through, and mutating the copy never touches the store.
func Current() Settings {
	mu.RLock()
	defer mu.RUnlock()
	return shared.Clone()
}

// Clone returns a deep copy of s. A nil receiver clones to an empty,
// non-nil Settings so callers can Reset with the result directly.
func (s Settings) Clone() Settings {
	out := make(Settings, len(s))
	for k, v := range s {
		out[k] = cloneValue(v)
	}
	return out
}

// Equal reports structural equality of two snapshots.
// Used by the round-trip assertions in the harness.
func Equal(a, b Settings) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	return reflect.DeepEqual(a, b)
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = cloneValue(e)
		}
		return out
	case Settings:
		return map[string]any(t.Clone())
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return t
	}
}
