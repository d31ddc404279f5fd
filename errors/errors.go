// Package errors provides error handling for reflow.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - Hints and details for user-facing messages
//
// Usage:
//
//	// Create new error
//	err := errors.New("something went wrong")
//
//	// Wrap with context
//	if err := doSomething(); err != nil {
//	    return errors.Wrap(err, "failed to do something")
//	}
//
//	// Check errors
//	if errors.Is(err, errors.ErrCyclicDependency) {
//	    // handle cycle
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
	Is     = crdb.Is
	IsAny  = crdb.IsAny
	As     = crdb.As
	Unwrap = crdb.Unwrap
)

// Assertions
var (
	AssertionFailedf = crdb.AssertionFailedf
)

// Sentinel errors for the expression engine. Use these with errors.Is()
// for type-safe error checking, and wrap them with errors.Wrap() to add
// context while preserving the kind.
var (
	// ErrInvalidTarget indicates a path does not resolve to an existing,
	// writable property on the owning object
	ErrInvalidTarget = New("invalid target")

	// ErrCyclicDependency indicates a binding would create a dependency cycle
	ErrCyclicDependency = New("cyclic dependency")

	// ErrValidation indicates an external validator hook rejected a binding
	ErrValidation = New("validation failed")

	// ErrEvaluation indicates a formula failed to produce a value
	ErrEvaluation = New("evaluation failed")

	// ErrInvalidOwner indicates a resolved path belongs to a different
	// container than expected; this is a caller or data-model bug
	ErrInvalidOwner = New("invalid property owner")

	// ErrParse indicates formula source text could not be parsed
	ErrParse = New("parse error")
)

// IsInvalidTarget checks if an error is or wraps ErrInvalidTarget
func IsInvalidTarget(err error) bool {
	return err != nil && Is(err, ErrInvalidTarget)
}

// IsCyclicDependency checks if an error is or wraps ErrCyclicDependency
func IsCyclicDependency(err error) bool {
	return err != nil && Is(err, ErrCyclicDependency)
}

// IsValidation checks if an error is or wraps ErrValidation
func IsValidation(err error) bool {
	return err != nil && Is(err, ErrValidation)
}

// IsEvaluation checks if an error is or wraps ErrEvaluation
func IsEvaluation(err error) bool {
	return err != nil && Is(err, ErrEvaluation)
}

// IsParse checks if an error is or wraps ErrParse
func IsParse(err error) bool {
	return err != nil && Is(err, ErrParse)
}

// NewInvalidTarget creates an invalid-target error with a formatted message
func NewInvalidTarget(format string, args ...interface{}) error {
	return Wrap(ErrInvalidTarget, Newf(format, args...).Error())
}

// NewCyclicDependency creates a cyclic-dependency error with a formatted message
func NewCyclicDependency(format string, args ...interface{}) error {
	return Wrap(ErrCyclicDependency, Newf(format, args...).Error())
}

// NewEvaluation creates an evaluation error with a formatted message
func NewEvaluation(format string, args ...interface{}) error {
	return Wrap(ErrEvaluation, Newf(format, args...).Error())
}

// NewParse creates a parse error with a formatted message
func NewParse(format string, args ...interface{}) error {
	return Wrap(ErrParse, Newf(format, args...).Error())
}
