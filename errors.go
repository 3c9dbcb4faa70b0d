package confwire

import "fmt"

// GenerationError reports a failure to turn caller-supplied input (a raw
// settings map or source document) into the wire-level document form. The
// underlying cause is always preserved.
type GenerationError struct {
	Source string // short description of the offending input
	Cause  error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("failed to generate settings from %s: %v", e.Source, e.Cause)
}

func (e *GenerationError) Unwrap() error {
	return e.Cause
}
