package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAgentStateConstants(t *testing.T) {
	t.Parallel()

	assert.Equal(t, AgentState("pending"), StatePending)
	assert.Equal(t, AgentState("scanning"), StateScanning)
	assert.Equal(t, AgentState("voting"), StateVoting)
	assert.Equal(t, AgentState("arbitrating"), StateArbitrating)
	assert.Equal(t, AgentState("completed"), StateCompleted)
	assert.Equal(t, AgentState("error"), StateError)
}

func TestErrAgentNotFound_IsDistinctSentinel(t *testing.T) {
	t.Parallel()

	assert.EqualError(t, ErrAgentNotFound, "scan: agent not found")
}
