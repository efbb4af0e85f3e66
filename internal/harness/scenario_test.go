package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalScenario = `
name: minimal
description: one call
contract: EthiopianNationalityVerification
flow:
  - invoke: test_verification
    args: []
assertions:
  - type: replay
`

func TestLoadScenario_ValidFiles(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			s, err := LoadScenario(path)
			require.NoError(t, err)
			assert.NotEmpty(t, s.Name)
			assert.NotEmpty(t, s.Flow)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_FromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalScenario), 0o644))

	s, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "minimal", s.Name)
	require.Len(t, s.Flow, 1)
	assert.Equal(t, "test_verification", s.Flow[0].Invoke)
	assert.Empty(t, s.Flow[0].Args)
	assert.Equal(t, AssertReplay, s.Assertions[0].Type)
}

func TestParseScenario_UnknownField(t *testing.T) {
	_, err := ParseScenario([]byte(minimalScenario + "assertion: []\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseScenario_Validation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			"missing name",
			"description: d\ncontract: EthiopianNationalityVerification\nflow: [{invoke: c}]\nassertions: [{type: replay}]\n",
			"name is required",
		},
		{
			"unknown contract",
			"name: n\ndescription: d\ncontract: Nope\nflow: [{invoke: c}]\nassertions: [{type: replay}]\n",
			`unknown contract "Nope"`,
		},
		{
			"empty flow",
			"name: n\ndescription: d\ncontract: EthiopianNationalityVerification\nflow: []\nassertions: [{type: replay}]\n",
			"flow list is required",
		},
		{
			"no assertions",
			"name: n\ndescription: d\ncontract: EthiopianNationalityVerification\nflow: [{invoke: c}]\n",
			"assertions list is required",
		},
		{
			"step without circuit",
			"name: n\ndescription: d\ncontract: EthiopianNationalityVerification\nflow: [{args: []}]\nassertions: [{type: replay}]\n",
			"flow[0]: invoke is required",
		},
		{
			"unknown error code",
			"name: n\ndescription: d\ncontract: EthiopianNationalityVerification\nflow: [{invoke: c, expect: {error: OOPS}}]\nassertions: [{type: replay}]\n",
			`unknown error code "OOPS"`,
		},
		{
			"setup expecting error",
			"name: n\ndescription: d\ncontract: EthiopianNationalityVerification\nsetup: [{invoke: c, expect: {error: RANGE_ERROR}}]\nflow: [{invoke: c}]\nassertions: [{type: replay}]\n",
			"setup calls cannot expect an error",
		},
		{
			"lookup without key",
			"name: n\ndescription: d\ncontract: EthiopianNationalityVerification\nflow: [{invoke: c}]\nassertions: [{type: ledger_lookup, field: f, expect: true}]\n",
			"field, key and expect are required",
		},
		{
			"unknown assertion",
			"name: n\ndescription: d\ncontract: EthiopianNationalityVerification\nflow: [{invoke: c}]\nassertions: [{type: state}]\n",
			`unknown assertion type "state"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseScenario_MemberExpectFalse(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: n
description: d
contract: EthiopianNationalityVerification
flow: [{invoke: test_verification}]
assertions:
  - {type: ledger_member, field: nationalityVerifications, key: 1, expect: false}
`))
	require.NoError(t, err)
	assert.Equal(t, false, s.Assertions[0].Expect)
}
