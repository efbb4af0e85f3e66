package codec

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/roach88/ledgerq/internal/ir"
)

// FromNative converts a loosely typed value, as produced by decoding JSON or
// YAML, into a Value of type t. Integers may be given as numbers or as
// decimal or 0x-prefixed strings; byte blocks as 0x-prefixed hex strings.
func FromNative(t Type, raw any) (Value, error) {
	v, err := fromNative(t, raw)
	if err != nil {
		return nil, err
	}
	if err := Check(t, v); err != nil {
		return nil, err
	}
	return v, nil
}

func fromNative(t Type, raw any) (Value, error) {
	switch tt := t.(type) {
	case FieldType:
		n, err := nativeInt(raw)
		if err != nil {
			return nil, ir.NewTypeMismatch(t.String(), raw)
		}
		return NewField(n), nil
	case UintType:
		n, err := nativeInt(raw)
		if err != nil {
			return nil, ir.NewTypeMismatch(t.String(), raw)
		}
		u, err := UintFromBig(n)
		if err != nil {
			return nil, ir.NewTypeMismatch(t.String(), raw)
		}
		return u, nil
	case BooleanType:
		b, ok := raw.(bool)
		if !ok {
			return nil, ir.NewTypeMismatch(t.String(), raw)
		}
		return Bool(b), nil
	case BytesType:
		s, ok := raw.(string)
		if !ok {
			return nil, ir.NewTypeMismatch(t.String(), raw)
		}
		b, err := hexutil.Decode(s)
		if err != nil {
			return nil, ir.NewTypeMismatch(t.String(), raw)
		}
		return Bytes(b), nil
	case VectorType:
		items, ok := raw.([]any)
		if !ok || len(items) != tt.Length {
			return nil, ir.NewTypeMismatch(t.String(), raw)
		}
		out := make(Vector, len(items))
		for i, item := range items {
			elem, err := fromNative(tt.Elem, item)
			if err != nil {
				return nil, err
			}
			out[i] = elem
		}
		return out, nil
	case *StructType:
		obj, ok := raw.(map[string]any)
		if !ok {
			return nil, ir.NewTypeMismatch(t.String(), raw)
		}
		out := make(Struct, len(tt.Fields))
		for _, f := range tt.Fields {
			item, present := obj[f.Name]
			if !present {
				return nil, ir.NewTypeMismatch(t.String(), fmt.Sprintf("missing field %s", f.Name))
			}
			fv, err := fromNative(f.Type, item)
			if err != nil {
				return nil, err
			}
			out[f.Name] = fv
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported type %s", t)
	}
}

func nativeInt(raw any) (*big.Int, error) {
	switch n := raw.(type) {
	case int:
		return big.NewInt(int64(n)), nil
	case int64:
		return big.NewInt(n), nil
	case uint64:
		return new(big.Int).SetUint64(n), nil
	case float64:
		// YAML resolves unquoted integers beyond int64 to floats.
		if math.IsInf(n, 0) || math.IsNaN(n) || n != math.Trunc(n) {
			return nil, fmt.Errorf("not an integer: %v", n)
		}
		v, _ := new(big.Float).SetFloat64(n).Int(nil)
		return v, nil
	case json.Number:
		return parseInt(n.String())
	case string:
		return parseInt(n)
	case *big.Int:
		return new(big.Int).Set(n), nil
	default:
		return nil, fmt.Errorf("not an integer: %v", raw)
	}
}

func parseInt(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 0)
	if !ok {
		return nil, fmt.Errorf("not an integer: %q", s)
	}
	return v, nil
}

// ToNative converts v to plain Go data suitable for canonical JSON:
// integers become decimal strings, byte blocks 0x-prefixed hex, vectors
// []any and structs map[string]any.
func ToNative(v Value) any {
	switch val := v.(type) {
	case Field:
		return val.String()
	case Uint:
		return val.String()
	case Bool:
		return bool(val)
	case Bytes:
		return hexutil.Encode(val)
	case Vector:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = ToNative(e)
		}
		return out
	case Struct:
		out := make(map[string]any, len(val))
		for name, e := range val {
			out[name] = ToNative(e)
		}
		return out
	default:
		return nil
	}
}
