package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbdelazizMoustafa10m/Raven/internal/catalog"
)

func newTestDeps(t *testing.T, reg *catalog.Registry) *deps {
	t.Helper()
	return &deps{catalogReg: reg}
}

func TestSelectedAgentIDs_ExplicitAgent(t *testing.T) {
	reg := catalog.NewRegistry()
	require.NoError(t, reg.Register(catalog.AgentSpec{ID: "security", Name: "Security", Enabled: true}))
	d := newTestDeps(t, reg)

	ids, err := selectedAgentIDs(d, "security", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"security"}, ids)
}

func TestSelectedAgentIDs_UnknownAgent(t *testing.T) {
	reg := catalog.NewRegistry()
	d := newTestDeps(t, reg)

	_, err := selectedAgentIDs(d, "nope", false)
	assert.Error(t, err)
}

func TestSelectedAgentIDs_All(t *testing.T) {
	reg := catalog.NewRegistry()
	require.NoError(t, reg.Register(catalog.AgentSpec{ID: "security", Enabled: true}))
	require.NoError(t, reg.Register(catalog.AgentSpec{ID: "style", Enabled: false}))
	d := newTestDeps(t, reg)

	ids, err := selectedAgentIDs(d, "", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"security"}, ids)
}

func TestSelectedAgentIDs_Neither_ReturnsEmpty(t *testing.T) {
	reg := catalog.NewRegistry()
	d := newTestDeps(t, reg)

	ids, err := selectedAgentIDs(d, "", false)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestScanCmd_Flags(t *testing.T) {
	assert.NotNil(t, scanCmd.Flags().Lookup("all"))
	assert.NotNil(t, scanCmd.Flags().Lookup("agent"))
	assert.NotNil(t, scanCmd.Flags().Lookup("concurrency"))
}

func TestScanCmd_Use(t *testing.T) {
	assert.Equal(t, "scan [path]", scanCmd.Use)
}
