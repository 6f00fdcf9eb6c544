package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Register_Get_RoundTrip(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	spec := AgentSpec{ID: "security", Name: "Security"}
	require.NoError(t, r.Register(spec))

	got, err := r.Get("security")
	require.NoError(t, err)
	assert.Equal(t, spec, got)
}

func TestRegistry_Register_DuplicateName(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	require.NoError(t, r.Register(AgentSpec{ID: "security"}))
	err := r.Register(AgentSpec{ID: "security"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateName)
}

func TestRegistry_Register_InvalidID(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	err := r.Register(AgentSpec{ID: "Security"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestRegistry_Get_NotFound(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	_, err := r.Get("missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegistry_Enabled_FiltersDisabled(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	require.NoError(t, r.Register(AgentSpec{ID: "security", Enabled: true}))
	require.NoError(t, r.Register(AgentSpec{ID: "style", Enabled: false}))

	assert.Equal(t, []string{"security"}, r.Enabled())
}

func TestRegistry_SetEnabled(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	require.NoError(t, r.Register(AgentSpec{ID: "style", Enabled: false}))
	require.NoError(t, r.SetEnabled("style", true))

	assert.Equal(t, []string{"style"}, r.Enabled())
}

func TestBuiltin_HasSixEntriesWithPrompts(t *testing.T) {
	t.Parallel()

	r := Builtin()
	ids := r.List()
	assert.Equal(t, []string{"architecture", "correctness", "performance", "security", "style", "testing"}, ids)

	for _, id := range ids {
		spec, err := r.Get(id)
		require.NoError(t, err)
		assert.NotEmpty(t, spec.SystemPrompt, "spec %q has no prompt", id)
		assert.NotEmpty(t, spec.FilePatterns, "spec %q has no file patterns", id)
	}
}

func TestBuiltin_StyleDisabledByDefault(t *testing.T) {
	t.Parallel()

	r := Builtin()
	spec, err := r.Get("style")
	require.NoError(t, err)
	assert.False(t, spec.Enabled)
}
