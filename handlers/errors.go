package handlers

import (
	"errors"
	"fmt"
)

// ErrKind classifies a service failure so HTTP handlers can map it to the
// right status code without parsing message text.
type ErrKind int

const (
	ErrKindInternal ErrKind = iota
	ErrKindValidation
	ErrKindConflict
	ErrKindNotFound
)

// ServiceError wraps a failure with its classification.
type ServiceError struct {
	Kind ErrKind
	Err  error
}

func (e *ServiceError) Error() string {
	return e.Err.Error()
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func validationErr(format string, args ...interface{}) error {
	return &ServiceError{Kind: ErrKindValidation, Err: fmt.Errorf(format, args...)}
}

func conflictErr(format string, args ...interface{}) error {
	return &ServiceError{Kind: ErrKindConflict, Err: fmt.Errorf(format, args...)}
}

func notFoundErr(format string, args ...interface{}) error {
	return &ServiceError{Kind: ErrKindNotFound, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the classification from an error chain, defaulting to
// internal for unclassified failures.
func KindOf(err error) ErrKind {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ErrKindInternal
}
