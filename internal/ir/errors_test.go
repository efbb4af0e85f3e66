package ir

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Message(t *testing.T) {
	err := &Error{
		Code:     ErrCodeTypeMismatch,
		Op:       "verify_and_record_nationality",
		Arg:      "argument 2",
		Expected: "Field",
		Actual:   "-1",
	}
	assert.Equal(t,
		"TYPE_MISMATCH: verify_and_record_nationality: argument 2 (expected Field, got -1)",
		err.Error())
}

func TestAnnotate_FillsBlankFields(t *testing.T) {
	base := NewTypeMismatch("Field", -1)
	wrapped := fmt.Errorf("decode: %w", base)

	err := Annotate(wrapped, "member", "argument 1")
	var re *Error
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "member", re.Op)
	assert.Equal(t, "argument 1", re.Arg)
	assert.Empty(t, base.Op, "original must not be mutated")
}

func TestAnnotate_KeepsExistingOp(t *testing.T) {
	err := Annotate(NewPathError("idx", "absent key"), "lookup", "")
	var re *Error
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "idx", re.Op)
}

func TestAnnotate_PassesThroughForeignErrors(t *testing.T) {
	plain := fmt.Errorf("boom")
	assert.Same(t, plain, Annotate(plain, "op", "arg"))
}

func TestIsHelpers(t *testing.T) {
	assert.True(t, IsPathError(fmt.Errorf("x: %w", NewPathError("idx", "absent"))))
	assert.True(t, IsRangeError(NewRangeError("cast", 5, 4)))
	assert.True(t, IsTranscriptViolation(NewTranscriptViolation("query", "count")))
	assert.True(t, IsVersionMismatch(NewVersionMismatch("0.7.0", "0.8.0")))
	assert.False(t, IsTypeMismatch(fmt.Errorf("plain")))
	assert.Equal(t, ErrorCode(""), CodeOf(nil))
}
