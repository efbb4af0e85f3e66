package ir

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode categorizes runtime errors.
type ErrorCode string

const (
	// ErrCodeTypeMismatch indicates a value, arity or discriminant outside its domain.
	ErrCodeTypeMismatch ErrorCode = "TYPE_MISMATCH"

	// ErrCodePath indicates descent into an absent or wrong-kind node.
	ErrCodePath ErrorCode = "PATH_ERROR"

	// ErrCodeRange indicates a numeric value exceeding a declared bound
	// during a narrowing cast.
	ErrCodeRange ErrorCode = "RANGE_ERROR"

	// ErrCodeTranscriptInvariant indicates the read events of a query do not
	// line up with its popeq operations. This is a programming error.
	ErrCodeTranscriptInvariant ErrorCode = "TRANSCRIPT_INVARIANT_VIOLATION"

	// ErrCodeVersionMismatch indicates compiled code and runtime disagree.
	ErrCodeVersionMismatch ErrorCode = "VERSION_MISMATCH"
)

// Error is the single error type raised by the runtime core.
//
// Every Error is fatal to the enclosing call: pending writes are discarded
// and no partial result is returned. The structured fields exist for
// diagnosis only; callers branch on Code.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Op names the operation, circuit or witness that failed.
	Op string

	// Arg names the argument position, e.g. "argument 1 (argument 2 as invoked from Go)".
	Arg string

	// Expected and Actual describe the expected type or bound and the
	// offending value.
	Expected string
	Actual   string

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	if e.Op != "" {
		b.WriteString(": ")
		b.WriteString(e.Op)
	}
	if e.Arg != "" {
		b.WriteString(": ")
		b.WriteString(e.Arg)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Expected != "" || e.Actual != "" {
		fmt.Fprintf(&b, " (expected %s, got %s)", e.Expected, e.Actual)
	}
	return b.String()
}

// NewTypeMismatch creates a TYPE_MISMATCH error. actual is rendered with fmt.
func NewTypeMismatch(expected string, actual any) *Error {
	return &Error{
		Code:     ErrCodeTypeMismatch,
		Expected: expected,
		Actual:   render(actual),
	}
}

// NewPathError creates a PATH_ERROR for op.
func NewPathError(op, message string) *Error {
	return &Error{Code: ErrCodePath, Op: op, Message: message}
}

// NewRangeError creates a RANGE_ERROR for a failed narrowing cast.
func NewRangeError(op string, value, bound any) *Error {
	return &Error{
		Code:     ErrCodeRange,
		Op:       op,
		Expected: "<= " + render(bound),
		Actual:   render(value),
		Message:  fmt.Sprintf("cast failed: %s is greater than %s", render(value), render(bound)),
	}
}

// NewTranscriptViolation creates a TRANSCRIPT_INVARIANT_VIOLATION error.
func NewTranscriptViolation(op, message string) *Error {
	return &Error{Code: ErrCodeTranscriptInvariant, Op: op, Message: message}
}

// NewVersionMismatch creates a VERSION_MISMATCH error.
func NewVersionMismatch(expected, actual string) *Error {
	return &Error{
		Code:     ErrCodeVersionMismatch,
		Op:       "runtime_version",
		Expected: expected,
		Actual:   actual,
		Message:  fmt.Sprintf("compiled code expects %s, runtime is %s", expected, actual),
	}
}

// Annotate fills in the operation and argument position of a runtime error
// that was raised without them. Non-runtime errors are returned unchanged.
func Annotate(err error, op, arg string) error {
	var re *Error
	if !errors.As(err, &re) {
		return err
	}
	annotated := *re
	if annotated.Op == "" {
		annotated.Op = op
	}
	if annotated.Arg == "" {
		annotated.Arg = arg
	}
	return &annotated
}

// CodeOf returns the ErrorCode of err, or "" if err is not a runtime error.
// Uses errors.As to handle wrapped errors.
func CodeOf(err error) ErrorCode {
	var re *Error
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

// IsTypeMismatch returns true if err is a TYPE_MISMATCH error.
func IsTypeMismatch(err error) bool { return CodeOf(err) == ErrCodeTypeMismatch }

// IsPathError returns true if err is a PATH_ERROR.
func IsPathError(err error) bool { return CodeOf(err) == ErrCodePath }

// IsRangeError returns true if err is a RANGE_ERROR.
func IsRangeError(err error) bool { return CodeOf(err) == ErrCodeRange }

// IsTranscriptViolation returns true if err is a TRANSCRIPT_INVARIANT_VIOLATION.
func IsTranscriptViolation(err error) bool { return CodeOf(err) == ErrCodeTranscriptInvariant }

// IsVersionMismatch returns true if err is a VERSION_MISMATCH.
func IsVersionMismatch(err error) bool { return CodeOf(err) == ErrCodeVersionMismatch }

func render(v any) string {
	switch val := v.(type) {
	case nil:
		return "undefined"
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprintf("%v", val)
	}
}
