package engine

import (
	"errors"
	"fmt"
)

// RuntimeError is an error raised by the engine itself, as opposed to the
// *ir.Error a failing circuit call returns.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Instance is the address of the affected instance.
	Instance string

	// CallID identifies the affected call, when there is one.
	CallID string

	// Details contains additional context.
	Details map[string]string
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeSpecMismatch: the stored instance was deployed from a
	// different contract descriptor.
	ErrCodeSpecMismatch RuntimeErrorCode = "SPEC_MISMATCH"

	// ErrCodeCorruptSnapshot: a stored state does not hash to its root.
	ErrCodeCorruptSnapshot RuntimeErrorCode = "CORRUPT_SNAPSHOT"

	// ErrCodeGasExceeded: a call cost more than the configured budget.
	ErrCodeGasExceeded RuntimeErrorCode = "GAS_EXCEEDED"

	// ErrCodeNoStore: the operation needs a call log.
	ErrCodeNoStore RuntimeErrorCode = "NO_STORE"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.CallID != "" {
		return fmt.Sprintf("%s: %s (instance=%s, call=%s)", e.Code, e.Message, e.Instance, e.CallID)
	}
	if e.Instance != "" {
		return fmt.Sprintf("%s: %s (instance=%s)", e.Code, e.Message, e.Instance)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func hasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// IsSpecMismatch reports whether err is a SPEC_MISMATCH error.
func IsSpecMismatch(err error) bool { return hasCode(err, ErrCodeSpecMismatch) }

// IsCorruptSnapshot reports whether err is a CORRUPT_SNAPSHOT error.
func IsCorruptSnapshot(err error) bool { return hasCode(err, ErrCodeCorruptSnapshot) }

// IsGasExceeded reports whether err is a GAS_EXCEEDED error.
func IsGasExceeded(err error) bool { return hasCode(err, ErrCodeGasExceeded) }

// NewSpecMismatchError reports that the stored descriptor hash differs.
func NewSpecMismatchError(instance, stored, current string) *RuntimeError {
	return &RuntimeError{
		Code:     ErrCodeSpecMismatch,
		Message:  "instance was deployed from a different contract descriptor",
		Instance: instance,
		Details: map[string]string{
			"stored":  stored,
			"current": current,
		},
	}
}

// NewCorruptSnapshotError reports a stored state that does not match its root.
func NewCorruptSnapshotError(instance, callID, want, got string) *RuntimeError {
	return &RuntimeError{
		Code:     ErrCodeCorruptSnapshot,
		Message:  fmt.Sprintf("stored state hashes to %s, recorded root is %s", got, want),
		Instance: instance,
		CallID:   callID,
	}
}
