package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSessionNotFound is returned when a user key has no session in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrStaleSession is returned when a commit was computed against an older session version.
var ErrStaleSession = errors.New("session changed concurrently")

// ErrNotFound is returned by collaborators when a lookup has no result.
var ErrNotFound = errors.New("not found")

// ValidationError reports input rejected for the current step. The user may retry.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Invalid is a shorthand for building a ValidationError.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// DuplicateRecordError reports a uniqueness violation raised by the Case Store.
type DuplicateRecordError struct {
	Field string
}

func (e *DuplicateRecordError) Error() string {
	return fmt.Sprintf("duplicate record: %s already registered", e.Field)
}

// ExternalLookupError reports a failing collaborator call (address lookup,
// identity verification, transcription, ...).
type ExternalLookupError struct {
	Collaborator string
	Err          error
}

func (e *ExternalLookupError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s unavailable", e.Collaborator)
	}
	return fmt.Sprintf("%s unavailable: %v", e.Collaborator, e.Err)
}

func (e *ExternalLookupError) Unwrap() error { return e.Err }

// SessionNotFoundError is the keyed form of ErrSessionNotFound.
type SessionNotFoundError struct {
	Key string
}

func (e *SessionNotFoundError) Error() string {
	return fmt.Sprintf("session %q not found", e.Key)
}

func (e *SessionNotFoundError) Unwrap() error { return ErrSessionNotFound }

// ModalityMismatchError reports a message whose medium the current step does not accept.
type ModalityMismatchError struct {
	Expected []Modality
	Got      Modality
}

func (e *ModalityMismatchError) Error() string {
	names := make([]string, len(e.Expected))
	for i, m := range e.Expected {
		names[i] = string(m)
	}
	return fmt.Sprintf("expected %s, got %s", strings.Join(names, " or "), e.Got)
}
