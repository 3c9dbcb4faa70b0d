package cluster

import (
	"fmt"
	"strings"
)

// ValidationError reports why a request must not be transmitted.
// Recoverable: fix the request and resubmit.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Errors, "; ")
}

func addValidationError(err *ValidationError, msg string) *ValidationError {
	if err == nil {
		err = &ValidationError{}
	}
	err.Errors = append(err.Errors, msg)
	return err
}

// DecodeError marks a wire read failure. Whatever was decoded before the
// failure is discarded; callers must reject the whole message.
type DecodeError struct {
	Field string
	Cause error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Field, e.Cause)
}

func (e *DecodeError) Unwrap() error {
	return e.Cause
}
