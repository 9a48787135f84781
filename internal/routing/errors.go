package routing

import (
	"fmt"
	"strings"

	"foreman/pkg/errors"
)

// AttemptError records one failed attempt against one model within a single
// completion call.
type AttemptError struct {
	Model   string `json:"model"`
	Attempt int    `json:"attempt"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e AttemptError) Error() string {
	return fmt.Sprintf("attempt %d against %s: %v", e.Attempt, e.Model, e.Err)
}

// Unwrap returns the underlying error
func (e AttemptError) Unwrap() error {
	return e.Err
}

// ExhaustedFallbackError is the only hard failure a completion call
// surfaces: every candidate was skipped or failed. It carries the ordered
// per-model failures for diagnostics.
type ExhaustedFallbackError struct {
	Attempts []AttemptError
}

// Error implements the error interface
func (e *ExhaustedFallbackError) Error() string {
	if len(e.Attempts) == 0 {
		return "all candidate models skipped"
	}

	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, a.Error())
	}
	return fmt.Sprintf("all %d attempts failed: %s", len(e.Attempts), strings.Join(parts, "; "))
}

// Unwrap marks exhaustion as model unavailability.
func (e *ExhaustedFallbackError) Unwrap() error {
	return errors.ErrModelUnavailable
}
