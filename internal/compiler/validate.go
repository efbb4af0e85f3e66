package compiler

import (
	"fmt"
	"math/big"
	"regexp"

	"github.com/roach88/ledgerq/internal/codec"
	"github.com/roach88/ledgerq/internal/ir"
)

// Validation error codes (E100-E199)
const (
	// General validation errors (E100)
	ErrUnsupportedIRType = "E100" // unsupported IR type for validation

	// ContractSpec errors (E101-E109)
	ErrContractNameInvalid = "E101" // name must be an identifier
	ErrContractNoCircuits  = "E102" // at least one circuit required
	ErrInvalidVersion      = "E103" // runtime version or max field unparsable
	ErrInvalidFieldType    = "E104" // type expression does not resolve
	ErrDuplicateName       = "E105" // duplicate struct/field/circuit/witness name
	ErrInvalidInitial      = "E106" // initial value outside the field's type
	ErrInvalidMapKey       = "E107" // map key type missing or invalid
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate validates a compiled contract against schema rules.
// Returns all errors found (does not fail-fast).
func Validate(v any) []ValidationError {
	switch spec := v.(type) {
	case *ir.ContractSpec:
		return validateContractSpec(spec)
	case ir.ContractSpec:
		return validateContractSpec(&spec)
	default:
		return []ValidationError{{
			Field:   "type",
			Message: fmt.Sprintf("unsupported IR type: %T", v),
			Code:    ErrUnsupportedIRType,
		}}
	}
}

// identPattern matches contract, circuit, witness and field names.
var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func validateContractSpec(spec *ir.ContractSpec) []ValidationError {
	var errs []ValidationError

	// E101: contract name
	if !identPattern.MatchString(spec.Name) {
		errs = append(errs, ValidationError{
			Field:   "name",
			Message: fmt.Sprintf("invalid contract name %q", spec.Name),
			Code:    ErrContractNameInvalid,
		})
	}

	// E102: at least one circuit
	if len(spec.Circuits) == 0 {
		errs = append(errs, ValidationError{
			Field:   "circuits",
			Message: "at least one circuit is required",
			Code:    ErrContractNoCircuits,
		})
	}

	// E103: runtime version and field bound must parse. Agreement with the
	// running runtime is checked at construction, not here.
	if err := ir.CheckRuntimeVersion(spec.RuntimeVersion, spec.RuntimeVersion); err != nil {
		errs = append(errs, ValidationError{
			Field:   "runtime_version",
			Message: fmt.Sprintf("invalid runtime version %q", spec.RuntimeVersion),
			Code:    ErrInvalidVersion,
		})
	}
	if _, ok := new(big.Int).SetString(spec.MaxField, 10); !ok {
		errs = append(errs, ValidationError{
			Field:   "max_field",
			Message: fmt.Sprintf("invalid max field %q", spec.MaxField),
			Code:    ErrInvalidVersion,
		})
	}

	reg, regErrs := buildRegistry(spec)
	errs = append(errs, regErrs...)

	ledgerNames := make(map[string]bool)
	for i, field := range spec.Ledger {
		path := fmt.Sprintf("ledger[%d]", i)
		errs = append(errs, checkDuplicate(ledgerNames, field.Name, path)...)

		if field.Kind == ir.LedgerMap {
			if _, err := codec.ParseType(field.KeyType, reg); err != nil {
				errs = append(errs, ValidationError{
					Field:   path + ".key_type",
					Message: err.Error(),
					Code:    ErrInvalidMapKey,
				})
			}
		}

		typ, err := codec.ParseType(field.Type, reg)
		if err != nil {
			errs = append(errs, typeError(path+".type", err))
			continue
		}
		if field.Initial != "" {
			if field.Kind == ir.LedgerMap {
				errs = append(errs, ValidationError{
					Field:   path + ".initial",
					Message: "map fields cannot declare an initial value",
					Code:    ErrInvalidInitial,
				})
			} else if _, err := codec.FromNative(typ, field.Initial); err != nil {
				errs = append(errs, ValidationError{
					Field:   path + ".initial",
					Message: err.Error(),
					Code:    ErrInvalidInitial,
				})
			}
		}
	}

	circuitNames := make(map[string]bool)
	for i, circuit := range spec.Circuits {
		path := fmt.Sprintf("circuits[%d]", i)
		errs = append(errs, checkDuplicate(circuitNames, circuit.Name, path)...)
		for j, param := range circuit.Params {
			if _, err := codec.ParseType(param.Type, reg); err != nil {
				errs = append(errs, typeError(fmt.Sprintf("%s.params[%d].type", path, j), err))
			}
		}
		if circuit.Result != "" {
			if _, err := codec.ParseType(circuit.Result, reg); err != nil {
				errs = append(errs, typeError(path+".result", err))
			}
		}
	}

	witnessNames := make(map[string]bool)
	for i, w := range spec.Witnesses {
		path := fmt.Sprintf("witnesses[%d]", i)
		errs = append(errs, checkDuplicate(witnessNames, w.Name, path)...)
		if _, err := codec.ParseType(w.Result, reg); err != nil {
			errs = append(errs, typeError(path+".result", err))
		}
	}

	return errs
}

// BuildRegistry resolves the struct declarations of spec into a codec
// registry. Structs may refer to structs declared before them.
func BuildRegistry(spec *ir.ContractSpec) (*codec.Registry, error) {
	reg, errs := buildRegistry(spec)
	if len(errs) > 0 {
		return nil, errs[0]
	}
	return reg, nil
}

func buildRegistry(spec *ir.ContractSpec) (*codec.Registry, []ValidationError) {
	var errs []ValidationError
	reg := codec.NewRegistry()
	for i, st := range spec.Structs {
		path := fmt.Sprintf("structs[%d]", i)
		typ := &codec.StructType{Name: st.Name}
		names := make(map[string]bool)
		for j, f := range st.Fields {
			errs = append(errs, checkDuplicate(names, f.Name, fmt.Sprintf("%s.fields[%d]", path, j))...)
			ft, err := codec.ParseType(f.Type, reg)
			if err != nil {
				errs = append(errs, typeError(fmt.Sprintf("%s.fields[%d].type", path, j), err))
				continue
			}
			typ.Fields = append(typ.Fields, codec.StructField{Name: f.Name, Type: ft})
		}
		if err := reg.Register(typ); err != nil {
			errs = append(errs, ValidationError{
				Field:   path + ".name",
				Message: err.Error(),
				Code:    ErrDuplicateName,
			})
		}
	}
	return reg, errs
}

func checkDuplicate(seen map[string]bool, name, path string) []ValidationError {
	if seen[name] {
		return []ValidationError{{
			Field:   path + ".name",
			Message: fmt.Sprintf("duplicate name: %q", name),
			Code:    ErrDuplicateName,
		}}
	}
	seen[name] = true
	return nil
}

func typeError(path string, err error) ValidationError {
	return ValidationError{
		Field:   path,
		Message: err.Error(),
		Code:    ErrInvalidFieldType,
	}
}
