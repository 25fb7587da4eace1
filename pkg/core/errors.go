package core

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when an edit/delete target no longer exists.
var ErrNotFound = errors.New("marker not found")

// ValidationError reports a missing or invalid required field. It is
// user-correctable and surfaced inline on the offending wizard step.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// UploadError is a media transport failure: network error, non-2xx response,
// or a success-shaped response with no URL. Retry is the caller's decision.
type UploadError struct {
	Kind  string // "image" or "audio"
	Cause string
	Err   error
}

func (e *UploadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s upload failed: %s: %v", e.Kind, e.Cause, e.Err)
	}
	return fmt.Sprintf("%s upload failed: %s", e.Kind, e.Cause)
}

func (e *UploadError) Unwrap() error { return e.Err }

// PersistenceError is a repository write failure. No partial marker is ever
// reported as saved when one of these is returned.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failed during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
