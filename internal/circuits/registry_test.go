package circuits

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ledgerq/internal/circuits/nationality"
)

func TestBuiltins_Lookup(t *testing.T) {
	r := Builtins()
	b, ok := r.Lookup(nationality.ContractName)
	require.True(t, ok)
	assert.Equal(t, nationality.ContractName, b.Name)

	_, ok = r.Lookup("Missing")
	assert.False(t, ok)
}

func TestBuiltins_Names(t *testing.T) {
	assert.Equal(t, []string{nationality.ContractName}, Builtins().Names())
}

func TestBuiltins_Build(t *testing.T) {
	c, err := Builtins().Build(nationality.ContractName)
	require.NoError(t, err)
	assert.Equal(t, nationality.ContractName, c.Spec().Name)

	_, err = Builtins().Build("Missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown contract "Missing"`)
}

func TestBuiltins_Independent(t *testing.T) {
	a, b := Builtins(), Builtins()
	delete(a.builtins, nationality.ContractName)

	_, ok := b.Lookup(nationality.ContractName)
	assert.True(t, ok, "registries share no state")
}

func nationalityBuiltin(name string) Builtin {
	return Builtin{
		Name:      name,
		Spec:      nationality.Spec,
		New:       nationality.New,
		Witnesses: nationality.DefaultWitnesses,
	}
}

func TestNewRegistry(t *testing.T) {
	r, err := NewRegistry(nationalityBuiltin("Alias"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Alias"}, r.Names())

	_, err = r.Build("Alias")
	require.NoError(t, err)

	_, err = NewRegistry(nationalityBuiltin("A"), nationalityBuiltin("A"))
	assert.ErrorContains(t, err, "registered twice")

	incomplete := nationalityBuiltin("B")
	incomplete.Witnesses = nil
	_, err = NewRegistry(incomplete)
	assert.ErrorContains(t, err, "incomplete")

	empty, err := NewRegistry()
	require.NoError(t, err)
	assert.Empty(t, empty.Names())
}
