// Package bookerr defines the error taxonomy shared by the bookkeeping core.
//
// Every failure returned by a mutating operation is one of four kinds. Callers
// test the kind with errors.Is against the sentinels below and read the
// machine code from *Error with errors.As.
package bookerr

import (
	"errors"
	"fmt"
)

// Sentinel kinds.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrState      = errors.New("invalid state")
)

// Code identifies a specific failure within a kind.
type Code string

const (
	CodeDuplicateCode     Code = "DuplicateCode"
	CodeInvalidCode       Code = "InvalidCode"
	CodeCyclicHierarchy   Code = "CyclicHierarchy"
	CodeUnknownParent     Code = "UnknownParent"
	CodeUnbalanced        Code = "Unbalanced"
	CodeNonPositiveAmount Code = "NonPositiveAmount"
	CodePrecision         Code = "Precision"
	CodeMissingSide       Code = "MissingSide"
	CodeUnknownAccount    Code = "UnknownAccount"
	CodeInvalidInput      Code = "InvalidInput"
	CodeNotFound          Code = "NotFound"
	CodeAccountLocked     Code = "AccountLocked"
	CodeAccountInactive   Code = "AccountInactive"
	CodeAccountInUse      Code = "AccountInUse"
	CodePeriodClosed      Code = "PeriodClosed"
	CodeDuplicateNumber   Code = "DuplicateNumber"
	CodeInvalidTransition Code = "InvalidTransition"
)

// Error is a classified bookkeeping failure.
type Error struct {
	Kind    error
	Code    Code
	Field   string
	Message string
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s [%s]: %s", e.Kind, e.Code, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Code, e.Message)
}

// Unwrap exposes the kind sentinel to errors.Is.
func (e *Error) Unwrap() error { return e.Kind }

// Validation returns an ErrValidation error.
func Validation(code Code, field, format string, args ...any) *Error {
	return &Error{Kind: ErrValidation, Code: code, Field: field, Message: fmt.Sprintf(format, args...)}
}

// NotFound returns an ErrNotFound error for an entity and id.
func NotFound(entity, id string) *Error {
	return &Error{Kind: ErrNotFound, Code: CodeNotFound, Field: entity, Message: fmt.Sprintf("%s %q not found", entity, id)}
}

// Conflict returns an ErrConflict error.
func Conflict(code Code, field, format string, args ...any) *Error {
	return &Error{Kind: ErrConflict, Code: code, Field: field, Message: fmt.Sprintf(format, args...)}
}

// State returns an ErrState error.
func State(format string, args ...any) *Error {
	return &Error{Kind: ErrState, Code: CodeInvalidTransition, Message: fmt.Sprintf(format, args...)}
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsNotFound reports whether err is a not-found failure.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

// IsConflict reports whether err is a conflict failure.
func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }

// IsState reports whether err is an invalid state transition.
func IsState(err error) bool { return errors.Is(err, ErrState) }

// Violations collects several validation failures found in one pass.
type Violations []*Error

func (v Violations) Error() string {
	switch len(v) {
	case 0:
		return "no violations"
	case 1:
		return v[0].Error()
	}
	msg := fmt.Sprintf("%d violations: ", len(v))
	for i, e := range v {
		if i > 0 {
			msg += "; "
		}
		msg += e.Error()
	}
	return msg
}

// Unwrap exposes each violation to errors.Is and errors.As.
func (v Violations) Unwrap() []error {
	errs := make([]error, len(v))
	for i, e := range v {
		errs[i] = e
	}
	return errs
}

// Err returns nil when there are no violations.
func (v Violations) Err() error {
	if len(v) == 0 {
		return nil
	}
	return v
}
