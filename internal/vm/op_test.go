package vm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ledgerq/internal/state"
)

func TestProgram_JSONShape(t *testing.T) {
	result := boolCell(true)
	prog := Program{
		Dup{N: 0},
		Idx{Cached: false, PushPath: true, Path: []PathEntry{ValueKey(state.IndexKey(0)), StackKey()}},
		Push{Storage: true, Value: state.NewMap()},
		Ins{Cached: true, N: 2},
		Popeq{Result: &result},
		Size{}, Member{}, Eq{},
	}

	data, err := json.Marshal(prog)
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"dup":{"n":0}},
		{"idx":{"cached":false,"pushPath":true,"path":[
			{"tag":"value","value":{"value":["0x"],"alignment":[{"tag":"bytes","length":1}]}},
			{"tag":"stack"}]}},
		{"push":{"storage":true,"value":{"tag":"map","entries":[]}}},
		{"ins":{"cached":true,"n":2}},
		{"popeq":{"cached":false,"result":{"value":["0x01"],"alignment":[{"tag":"bit"}]}}},
		"size","member","eq"
	]`, string(data))

	var back Program
	require.NoError(t, json.Unmarshal(data, &back))
	require.Len(t, back, len(prog))

	again, err := json.Marshal(back)
	require.NoError(t, err)
	assert.JSONEq(t, string(data), string(again))
}

func TestUnmarshalOperation_Errors(t *testing.T) {
	for _, raw := range []string{
		`"jump"`,
		`{"dup":{"n":0},"ins":{"n":1}}`,
		`{"idx":{"path":[{"tag":"bogus"}]}}`,
		`{"idx":{"path":[{"tag":"value"}]}}`,
		`42`,
	} {
		t.Run(raw, func(t *testing.T) {
			_, err := UnmarshalOperation([]byte(raw))
			assert.Error(t, err)
		})
	}
}

func TestProgram_CloneCopiesResults(t *testing.T) {
	r := boolCell(true)
	prog := Program{Popeq{Result: &r}}
	clone := prog.Clone()

	clone[0].(Popeq).Result.Value[0][0] = 0
	assert.Equal(t, byte(1), r.Value[0][0])
}
