// Package nationality is an example contract: it verifies nationality
// credentials and records the outcome per subject in the public ledger.
package nationality

import (
	_ "embed"
	"fmt"

	"github.com/roach88/ledgerq/internal/codec"
	"github.com/roach88/ledgerq/internal/compiler"
	"github.com/roach88/ledgerq/internal/contract"
	"github.com/roach88/ledgerq/internal/ir"
	"github.com/roach88/ledgerq/internal/witness"
)

//go:embed contract.cue
var source []byte

// Names used by the contract descriptor.
const (
	ContractName   = "EthiopianNationalityVerification"
	CredentialType = "EthiopianNationalityCredential"

	VerificationsField = "nationalityVerifications"
	ReservedField      = "reserved"

	VerifyAndRecord  = "verify_and_record_nationality"
	TestVerification = "test_verification"

	CreateTestCredential = "create_test_credential"
)

// TestTimestamp is the time test_verification checks expiry against.
const TestTimestamp = 1677609600

var (
	// AuthorizedIssuer is the only issuer whose credentials verify.
	AuthorizedIssuer = codec.MustField("123456789012345678901234567890")

	// EthiopianCode is the nationality code credentials must carry.
	EthiopianCode = codec.MustField("987654321098765432109876543210")
)

// Spec compiles the embedded contract descriptor.
func Spec() (*ir.ContractSpec, error) {
	specs, err := compiler.CompileSource("nationality.cue", source)
	if err != nil {
		return nil, err
	}
	for _, spec := range specs {
		if spec.Name == ContractName {
			return spec, nil
		}
	}
	return nil, fmt.Errorf("descriptor does not declare %s", ContractName)
}

// New builds the contract. witnesses must implement create_test_credential;
// DefaultWitnesses supplies a valid one.
func New(witnesses witness.Set, opts ...contract.Option) (*contract.Contract, error) {
	spec, err := Spec()
	if err != nil {
		return nil, err
	}
	return contract.New(spec, Circuits(), witnesses, opts...)
}

// Circuits returns the circuit implementations.
func Circuits() map[string]contract.CircuitFunc {
	return map[string]contract.CircuitFunc{
		VerifyAndRecord: func(call *contract.Call, args []codec.Value) (codec.Value, error) {
			return nil, verifyAndRecord(call, args[0].(codec.Struct), args[1].(codec.Field))
		},
		TestVerification: testVerification,
	}
}

// Credential assembles a credential value.
func Credential(id, issuer, issuedAt, expiresAt, subject, nationality codec.Field, signature [2]codec.Field) codec.Struct {
	return codec.Struct{
		"id":          id,
		"issuer":      issuer,
		"issuedAt":    issuedAt,
		"expiresAt":   expiresAt,
		"subject":     subject,
		"nationality": nationality,
		"signature":   codec.Vector{signature[0], signature[1]},
	}
}

// TestCredential is the credential the default witness returns: issued by
// the authorized issuer to subject 555555, Ethiopian, expiring after
// TestTimestamp.
func TestCredential() codec.Struct {
	return Credential(
		codec.FieldFromUint64(1),
		AuthorizedIssuer,
		codec.FieldFromUint64(TestTimestamp-86400),
		codec.FieldFromUint64(TestTimestamp+365*86400),
		codec.FieldFromUint64(555555),
		EthiopianCode,
		[2]codec.Field{codec.FieldFromUint64(11), codec.FieldFromUint64(22)},
	)
}

// DefaultWitnesses returns a witness set whose create_test_credential yields
// TestCredential and leaves the private state unchanged.
func DefaultWitnesses() witness.Set {
	return witness.Set{
		CreateTestCredential: func(ctx witness.Context) (any, codec.Value, error) {
			return ctx.PrivateState, TestCredential(), nil
		},
	}
}

// isValid checks the issuer, the expiry and the nationality. Both times are
// range-checked into Uint<64> first; a larger value is a RANGE_ERROR.
func isValid(cred codec.Struct, currentTime codec.Field) (bool, error) {
	u64 := codec.UintBits(64)
	expiresAt, err := codec.CastFieldToUint(cred["expiresAt"].(codec.Field), u64)
	if err != nil {
		return false, ir.Annotate(err, VerifyAndRecord, "credential.expiresAt")
	}
	now, err := codec.CastFieldToUint(currentTime, u64)
	if err != nil {
		return false, ir.Annotate(err, VerifyAndRecord, "current_time")
	}

	issuerValid := cred["issuer"].(codec.Field).Cmp(AuthorizedIssuer) == 0
	notExpired := !expiresAt.Lt(now)
	isEthiopian := cred["nationality"].(codec.Field).Cmp(EthiopianCode) == 0
	return issuerValid && notExpired && isEthiopian, nil
}

// verifyAndRecord records the verification outcome for the credential's
// subject, whether or not it verified.
func verifyAndRecord(call *contract.Call, cred codec.Struct, currentTime codec.Field) error {
	valid, err := isValid(cred, currentTime)
	if err != nil {
		return err
	}
	key := codec.MustEncode(codec.FieldType{}, cred["subject"])
	value := codec.MustEncode(codec.BooleanType{}, codec.Bool(valid))
	_, err = call.Query(contract.InsertProgram(call.Field(VerificationsField), key, value))
	return err
}

func testVerification(call *contract.Call, _ []codec.Value) (codec.Value, error) {
	v, err := call.Witness(CreateTestCredential)
	if err != nil {
		return nil, err
	}
	cred := v.(codec.Struct)
	if err := verifyAndRecord(call, cred, codec.FieldFromUint64(TestTimestamp)); err != nil {
		return nil, err
	}

	key := codec.MustEncode(codec.FieldType{}, cred["subject"])
	if _, err := call.Read(contract.LookupProgram(call.Field(VerificationsField), key), codec.BooleanType{}); err != nil {
		return nil, err
	}
	return nil, nil
}
