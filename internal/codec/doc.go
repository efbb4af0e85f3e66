// Package codec converts native runtime values to and from their aligned
// segment encoding.
//
// Every Type has a value-independent Alignment. Encoding validates the value
// against the type's domain and fails with an ir TYPE_MISMATCH error naming
// the expected type and the offending value. Decoding consumes exactly the
// segments implied by the alignment, so composite types decode by running
// their children's decoders in declared order.
//
// The round-trip law holds for every valid value:
//
//	Decode(t, Encode(t, v)) == v
package codec
