package codec

import (
	"github.com/roach88/ledgerq/internal/ir"
)

// CastFieldToUint narrows a field element to t, failing with RANGE_ERROR if
// it exceeds t's bound.
func CastFieldToUint(f Field, t UintType) (Uint, error) {
	v := f.Int()
	if v.Sign() < 0 || v.Cmp(t.MaxBig()) > 0 {
		return Uint{}, ir.NewRangeError("cast "+FieldType{}.String()+" to "+t.String(), v, t.MaxBig())
	}
	u, err := UintFromBig(v)
	if err != nil {
		return Uint{}, ir.NewRangeError("cast", v, t.MaxBig())
	}
	return u, nil
}

// UintToField widens a bounded unsigned integer to a field element.
func UintToField(u Uint) Field {
	return NewField(u.Big())
}
