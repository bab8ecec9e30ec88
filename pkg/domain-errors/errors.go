// Package domainerrors provides coded errors for the registry services.
//
// Stores return sentinel errors (pkg/platform/sentinel) describing facts about
// resources; services translate those into coded domain errors that carry
// enough classification for the orchestrator and the HTTP layer to act on:
// validation failures are surfaced immediately, transient store failures are
// retryable at the unit-of-work level, extraction gaps are "no new
// information" and never fatal.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error.
type Code string

const (
	// CodeValidation marks a missing or malformed required input, e.g. an
	// empty booking number. Never retried.
	CodeValidation Code = "validation_error"
	// CodeNotFound marks a lookup of an id that should exist but does not.
	CodeNotFound Code = "not_found"
	// CodeConflict marks a uniqueness or state conflict.
	CodeConflict Code = "conflict"
	// CodeTransient marks a store timeout or connection failure. The whole
	// unit of work is safe to retry because every write is idempotent.
	CodeTransient Code = "transient_store_error"
	// CodeExtractionUnavailable marks absent or malformed extractor output.
	// Treated as "no new information", never fatal.
	CodeExtractionUnavailable Code = "extraction_unavailable"
	// CodeBadRequest marks a malformed API request.
	CodeBadRequest Code = "bad_request"
	// CodeInternal is the fallback for unexpected failures.
	CodeInternal Code = "internal_error"
)

// Error is a coded domain error.
type Error struct {
	Code    Code
	Message string
	wrapped error
}

func (e *Error) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.wrapped }

// New creates a coded error with a message.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap annotates err with a code and message, preserving the chain.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, wrapped: err}
}

// HasCode reports whether any error in the chain carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	for errors.As(err, &de) {
		if de.Code == code {
			return true
		}
		err = de.wrapped
		if err == nil {
			return false
		}
	}
	return false
}

// CodeOf returns the outermost code in the chain, or CodeInternal if none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
