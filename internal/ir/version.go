package ir

import (
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/mod/semver"
)

// Version constants for the runtime and its persisted formats.
const (
	// RuntimeVersion is the version of the query runtime. Compiled contracts
	// declare the runtime version they were built against.
	RuntimeVersion = "0.7.0"

	// SchemaVersion is the version of the canonical transcript and call-log
	// format.
	SchemaVersion = "1"
)

// maxFieldDecimal is the largest value representable by a field element.
const maxFieldDecimal = "102211695604070082112571065507755096754575920209623522239390234855480569854275933742834077002685857629445612735086326265689167708028928"

var maxField = func() *big.Int {
	v, ok := new(big.Int).SetString(maxFieldDecimal, 10)
	if !ok {
		panic("ir: invalid MAX_FIELD constant")
	}
	return v
}()

// MaxField returns MAX_FIELD. The result is a fresh copy the caller may modify.
func MaxField() *big.Int {
	return new(big.Int).Set(maxField)
}

// InFieldRange reports whether 0 <= v <= MAX_FIELD.
func InFieldRange(v *big.Int) bool {
	return v != nil && v.Sign() >= 0 && v.Cmp(maxField) <= 0
}

// CheckRuntimeVersion reports a VersionMismatch if code compiled against
// expected cannot run on a runtime at actual.
//
// Pre-release suffixes are ignored. The rules are:
//   - major versions must match
//   - below 1.0 the minor versions must match as well
//   - the runtime must not be older than what the code expects
func CheckRuntimeVersion(expected, actual string) error {
	exp := "v" + strings.SplitN(expected, "-", 2)[0]
	act := "v" + strings.SplitN(actual, "-", 2)[0]

	if !semver.IsValid(exp) || !semver.IsValid(act) {
		return NewVersionMismatch(expected, actual)
	}

	mismatch := semver.Major(exp) != semver.Major(act) ||
		(semver.Major(act) == "v0" && semver.MajorMinor(exp) != semver.MajorMinor(act)) ||
		semver.Compare(exp, act) > 0
	if mismatch {
		return NewVersionMismatch(expected, actual)
	}
	return nil
}

// CheckMaxField reports a VersionMismatch if the field bound a contract was
// compiled with disagrees with this runtime's MAX_FIELD.
func CheckMaxField(compiled *big.Int) error {
	if compiled == nil || compiled.Cmp(maxField) != 0 {
		return &Error{
			Code:     ErrCodeVersionMismatch,
			Op:       "max_field",
			Expected: fmt.Sprint(compiled),
			Actual:   maxField.String(),
			Message:  "compiled maximum field value disagrees with runtime",
		}
	}
	return nil
}
