package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlanCmd_Use(t *testing.T) {
	assert.Equal(t, "plan [path]", planCmd.Use)
}

func TestPlanCmd_ArgsMax1(t *testing.T) {
	assert.NoError(t, planCmd.Args(planCmd, []string{"path"}))
	assert.Error(t, planCmd.Args(planCmd, []string{"a", "b"}))
}
