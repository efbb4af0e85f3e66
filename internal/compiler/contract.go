package compiler

import (
	_ "embed"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/ledgerq/internal/ir"
)

//go:embed schema.cue
var schemaSource string

// CompileSource compiles every contract declared under the top-level
// "contract" field of a CUE source file. Each contract is checked against
// the #Contract schema before it is converted.
//
//	contract: NationalityVerification: {
//		runtime_version: "0.7.0"
//		...
//	}
func CompileSource(filename string, src []byte) ([]*ir.ContractSpec, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	def := schema.LookupPath(cue.ParsePath("#Contract"))

	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	contracts := v.LookupPath(cue.ParsePath("contract"))
	if !contracts.Exists() {
		return nil, &CompileError{
			Field:   "contract",
			Message: "no contract declared",
			Pos:     v.Pos(),
		}
	}

	iter, err := contracts.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var specs []*ir.ContractSpec
	for iter.Next() {
		unified := def.Unify(iter.Value())
		if err := unified.Validate(cue.Concrete(true)); err != nil {
			return nil, formatCUEError(err)
		}
		spec, err := CompileContract(unified)
		if err != nil {
			return nil, err
		}
		spec.Name = iter.Label()
		specs = append(specs, spec)
	}
	return specs, nil
}

// CompileContract converts a CUE contract value into a ContractSpec.
// Uses CUE SDK's Go API directly.
//
// The value should be the contract struct itself, e.g.:
//
//	v := ctx.CompileString(`contract: Counter: { ... }`)
//	spec, err := CompileContract(v.LookupPath(cue.ParsePath("contract.Counter")))
func CompileContract(v cue.Value) (*ir.ContractSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &ir.ContractSpec{}
	if labels := v.Path().Selectors(); len(labels) > 0 {
		spec.Name = labels[len(labels)-1].String()
	}

	var err error
	if spec.RuntimeVersion, err = requiredString(v, "runtime_version"); err != nil {
		return nil, err
	}
	if spec.MaxField, err = requiredString(v, "max_field"); err != nil {
		return nil, err
	}
	if spec.Structs, err = parseStructs(v); err != nil {
		return nil, err
	}
	if spec.Ledger, err = parseLedger(v); err != nil {
		return nil, err
	}
	if spec.Circuits, err = parseCircuits(v); err != nil {
		return nil, err
	}
	if len(spec.Circuits) == 0 {
		return nil, &CompileError{
			Field:   "circuits",
			Message: "at least one circuit is required",
			Pos:     v.Pos(),
		}
	}
	if spec.Witnesses, err = parseWitnesses(v); err != nil {
		return nil, err
	}
	return spec, nil
}

func requiredString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", &CompileError{
			Field:   field,
			Message: field + " is required",
			Pos:     v.Pos(),
		}
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

// namedTypes reads a struct of name: "Type" pairs in declaration order.
func namedTypes(v cue.Value) ([]ir.NamedArg, error) {
	var out []ir.NamedArg
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		typ, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, ir.NamedArg{Name: iter.Label(), Type: typ})
	}
	return out, nil
}

func parseStructs(v cue.Value) ([]ir.StructSpec, error) {
	structsVal := v.LookupPath(cue.ParsePath("structs"))
	if !structsVal.Exists() {
		return nil, nil
	}
	iter, err := structsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var structs []ir.StructSpec
	for iter.Next() {
		fields, err := namedTypes(iter.Value())
		if err != nil {
			return nil, err
		}
		structs = append(structs, ir.StructSpec{Name: iter.Label(), Fields: fields})
	}
	return structs, nil
}

func parseLedger(v cue.Value) ([]ir.LedgerField, error) {
	ledgerVal := v.LookupPath(cue.ParsePath("ledger"))
	if !ledgerVal.Exists() {
		return nil, nil
	}
	iter, err := ledgerVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var fields []ir.LedgerField
	for iter.Next() {
		field := ir.LedgerField{Name: iter.Label(), Index: len(fields)}
		fv := iter.Value()

		// Either a bare type string or {type, initial}.
		if typ, err := fv.String(); err == nil {
			field.Type = typ
		} else {
			if field.Type, err = requiredString(fv, "type"); err != nil {
				return nil, err
			}
			if iv := fv.LookupPath(cue.ParsePath("initial")); iv.Exists() {
				if field.Initial, err = iv.String(); err != nil {
					return nil, formatCUEError(err)
				}
			}
		}

		field.Kind = ir.LedgerCell
		if key, val, ok := splitMapType(field.Type); ok {
			field.Kind = ir.LedgerMap
			field.KeyType = key
			field.Type = val
		}
		fields = append(fields, field)
	}
	return fields, nil
}

func parseCircuits(v cue.Value) ([]ir.CircuitSpec, error) {
	circuitsVal := v.LookupPath(cue.ParsePath("circuits"))
	if !circuitsVal.Exists() {
		return nil, nil
	}
	iter, err := circuitsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var circuits []ir.CircuitSpec
	for iter.Next() {
		cv := iter.Value()
		circuit := ir.CircuitSpec{Name: iter.Label()}

		if pv := cv.LookupPath(cue.ParsePath("params")); pv.Exists() {
			if circuit.Params, err = namedTypes(pv); err != nil {
				return nil, err
			}
		}
		if rv := cv.LookupPath(cue.ParsePath("result")); rv.Exists() {
			if circuit.Result, err = rv.String(); err != nil {
				return nil, formatCUEError(err)
			}
		}
		if pv := cv.LookupPath(cue.ParsePath("pure")); pv.Exists() {
			if circuit.Pure, err = pv.Bool(); err != nil {
				return nil, formatCUEError(err)
			}
		}
		circuits = append(circuits, circuit)
	}
	return circuits, nil
}

func parseWitnesses(v cue.Value) ([]ir.WitnessSpec, error) {
	witnessesVal := v.LookupPath(cue.ParsePath("witnesses"))
	if !witnessesVal.Exists() {
		return nil, nil
	}
	named, err := namedTypes(witnessesVal)
	if err != nil {
		return nil, err
	}
	out := make([]ir.WitnessSpec, len(named))
	for i, n := range named {
		out[i] = ir.WitnessSpec{Name: n.Name, Result: n.Type}
	}
	return out, nil
}

// splitMapType splits "Map<K, V>" into its key and value type expressions.
func splitMapType(typ string) (key, value string, ok bool) {
	const prefix = "Map<"
	if !strings.HasPrefix(typ, prefix) || !strings.HasSuffix(typ, ">") {
		return "", "", false
	}
	inner := typ[len(prefix) : len(typ)-1]
	depth := 0
	for i, r := range inner {
		switch r {
		case '<':
			depth++
		case '>':
			depth--
		case ',':
			if depth == 0 {
				return strings.TrimSpace(inner[:i]), strings.TrimSpace(inner[i+1:]), true
			}
		}
	}
	return "", "", false
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
