// Package errors provides error handling for ontomap.
//
// It re-exports github.com/cockroachdb/errors (stack traces, wrapping, hints,
// details) and declares the sentinel errors the pipeline branches on.
//
// Resolution misses are not failures. They are returned as sentinels so the
// caller can pick a fallback with errors.Is:
//
//	class, err := resolver.Resolve(ctx, text, lang)
//	if errors.Is(err, errors.ErrNoClass) {
//	    // keep the tail as a literal
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
	Join         = crdb.Join
)

// User-facing messages and details
var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
)

// Error inspection
var (
	Is             = crdb.Is
	IsAny          = crdb.IsAny
	As             = crdb.As
	Unwrap         = crdb.Unwrap
	UnwrapAll      = crdb.UnwrapAll
	GetAllHints    = crdb.GetAllHints
	FlattenHints   = crdb.FlattenHints
	FlattenDetails = crdb.FlattenDetails
)

// Sentinel errors. Wrap them with errors.Wrap to add context while keeping
// errors.Is working.
var (
	// ErrNotFound indicates the requested resource does not exist
	ErrNotFound = New("not found")

	// ErrInvalidInput indicates malformed input (bad matrix shape, empty text)
	ErrInvalidInput = New("invalid input")

	// ErrServiceUnavailable indicates a model or storage collaborator failed
	ErrServiceUnavailable = New("service unavailable")

	// ErrNoClass indicates no ontology class matched a text span
	ErrNoClass = New("no ontology class found")

	// ErrNoProperty indicates no property could be matched or minted
	ErrNoProperty = New("no ontology property found")

	// ErrForeignOntology indicates neither side of a triplet belongs to the
	// ontology being populated
	ErrForeignOntology = New("triplet outside main ontology")

	// ErrRejected indicates a triplet failed lexical validation
	ErrRejected = New("triplet rejected")

	// ErrUnsupportedLanguage indicates a sentence in a language with no models
	ErrUnsupportedLanguage = New("unsupported language")
)

// IsNotFoundError checks if an error is or wraps ErrNotFound.
func IsNotFoundError(err error) bool {
	return err != nil && Is(err, ErrNotFound)
}

// IsResolutionMiss reports whether err is one of the negative branches of the
// map stage rather than a collaborator failure.
func IsResolutionMiss(err error) bool {
	return err != nil && IsAny(err, ErrNoClass, ErrNoProperty, ErrForeignOntology, ErrRejected)
}

// NewNotFoundError creates a not-found error with a formatted message
func NewNotFoundError(format string, args ...interface{}) error {
	return Wrap(ErrNotFound, Newf(format, args...).Error())
}

// NewInvalidInputError creates an invalid-input error with a formatted message
func NewInvalidInputError(format string, args ...interface{}) error {
	return Wrap(ErrInvalidInput, Newf(format, args...).Error())
}

// WrapUnavailable marks a collaborator failure, keeping the original cause.
func WrapUnavailable(err error, service string) error {
	if err == nil {
		return nil
	}
	return Wrapf(Join(ErrServiceUnavailable, err), "%s", service)
}
