package ir

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAtom_Accepts(t *testing.T) {
	tests := []struct {
		name string
		atom Atom
		seg  []byte
		want bool
	}{
		{"field zero", FieldAtom(), nil, true},
		{"field small", FieldAtom(), []byte{0x2a}, true},
		{"field untrimmed", FieldAtom(), []byte{0x2a, 0x00}, false},
		{"bit false", BitAtom(), nil, true},
		{"bit true", BitAtom(), []byte{1}, true},
		{"bit two", BitAtom(), []byte{2}, false},
		{"bytes fits", BytesAtom(4), []byte{1, 2, 3, 4}, true},
		{"bytes trimmed", BytesAtom(4), []byte{1}, true},
		{"bytes too long", BytesAtom(2), []byte{1, 2, 3}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.atom.Accepts(tt.seg))
		})
	}
}

func TestAtom_FieldAboveMax(t *testing.T) {
	over := new(big.Int).Add(MaxField(), big.NewInt(1))
	assert.False(t, FieldAtom().Accepts(BigToLE(over)))
	assert.True(t, FieldAtom().Accepts(BigToLE(MaxField())))
}

func TestMaxField_ReturnsCopy(t *testing.T) {
	m := MaxField()
	m.SetInt64(0)
	assert.NotEqual(t, int64(0), MaxField().Int64())
}

func TestBigLE_RoundTrip(t *testing.T) {
	for _, v := range []int64{0, 1, 255, 256, 1677609600} {
		seg := BigToLE(big.NewInt(v))
		assert.Equal(t, v, LEToBig(seg).Int64())
	}
	assert.Empty(t, BigToLE(big.NewInt(0)))
	assert.Equal(t, []byte{0x00, 0x01}, BigToLE(big.NewInt(256)))
}

func TestAlignedValue_Validate(t *testing.T) {
	ok := AlignedValue{Value: [][]byte{{1}, nil}, Alignment: Alignment{BitAtom(), FieldAtom()}}
	require.NoError(t, ok.Validate())

	short := AlignedValue{Value: [][]byte{{1}}, Alignment: Alignment{BitAtom(), FieldAtom()}}
	err := short.Validate()
	require.Error(t, err)
	assert.True(t, IsTypeMismatch(err))
}

func TestAlignedValue_KeyDistinguishesSegmentation(t *testing.T) {
	a := AlignedValue{Value: [][]byte{{1, 2}}, Alignment: Alignment{BytesAtom(2)}}
	b := AlignedValue{Value: [][]byte{{1}, {2}}, Alignment: Alignment{BytesAtom(1), BytesAtom(1)}}
	assert.NotEqual(t, a.Key(), b.Key())
}

func TestAlignedValue_ConcatDoesNotAlias(t *testing.T) {
	a := AlignedValue{Value: [][]byte{{1}}, Alignment: Alignment{FieldAtom()}}
	b := AlignedValue{Value: [][]byte{{2}}, Alignment: Alignment{FieldAtom()}}
	c := a.Concat(b)
	c.Value[0][0] = 9

	assert.Equal(t, byte(1), a.Value[0][0])
	assert.Len(t, c.Value, 2)
	assert.Equal(t, Alignment{FieldAtom(), FieldAtom()}, c.Alignment)
}

func TestAlignedValue_JSON(t *testing.T) {
	v := AlignedValue{Value: [][]byte{{0x2a}, nil}, Alignment: Alignment{FieldAtom(), BytesAtom(32)}}

	data, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"value":["0x2a","0x"],"alignment":[{"tag":"field"},{"tag":"bytes","length":32}]}`, string(data))

	var back AlignedValue
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, v.Equal(back))
}

func TestAlignedValue_UnmarshalRejectsUntrimmed(t *testing.T) {
	var v AlignedValue
	err := json.Unmarshal([]byte(`{"value":["0x2a00"],"alignment":[{"tag":"field"}]}`), &v)
	require.Error(t, err)
}

func TestContractAddress_RoundTrip(t *testing.T) {
	var addr ContractAddress
	addr[0] = 0xab
	addr[31] = 0x01

	parsed, err := ParseContractAddress(addr.String())
	require.NoError(t, err)
	assert.Equal(t, addr, parsed)

	_, err = ParseContractAddress("xx" + addr.String()[2:])
	assert.Error(t, err)
}
