package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRememberCmd_Use(t *testing.T) {
	assert.Equal(t, "remember <note>", rememberCmd.Use)
}

func TestRememberCmd_RequiresAtLeastOneArg(t *testing.T) {
	assert.Error(t, rememberCmd.Args(rememberCmd, nil))
	assert.NoError(t, rememberCmd.Args(rememberCmd, []string{"word"}))
}
