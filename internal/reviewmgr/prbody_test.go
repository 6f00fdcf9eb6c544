package reviewmgr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbdelazizMoustafa10m/Raven/internal/git"
)

func TestBodyGenerator_Generate_IncludesSummaryCommitsAndIssueBlock(t *testing.T) {
	t.Parallel()

	g := NewBodyGenerator()
	body, err := g.Generate("ISSUE-001", "fix nil pointer dereference", "# ISSUE-001\n\nNil deref in handler.go", []git.LogEntry{
		{SHA: "abc1234", Message: "fix(ISSUE-001): guard nil request"},
		{SHA: "def5678", Message: "fix(ISSUE-001): add regression test"},
	})
	require.NoError(t, err)

	assert.Contains(t, body, "fix nil pointer dereference")
	assert.Contains(t, body, "`abc1234` fix(ISSUE-001): guard nil request")
	assert.Contains(t, body, "`def5678` fix(ISSUE-001): add regression test")
	assert.Contains(t, body, "Original issue: ISSUE-001")
	assert.Contains(t, body, "Nil deref in handler.go")
	assert.Contains(t, body, "Ran the project's test suite locally")
}

func TestBodyGenerator_Generate_NoCommits(t *testing.T) {
	t.Parallel()

	g := NewBodyGenerator()
	body, err := g.Generate("ISSUE-002", "tidy up error wrapping", "", nil)
	require.NoError(t, err)

	assert.Contains(t, body, "tidy up error wrapping")
	assert.Contains(t, body, "## Commits")
	assert.Contains(t, body, "Original issue: ISSUE-002")
}

func TestTitle(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "fix(ISSUE-042): resolve race in batch runner", Title("ISSUE-042", "resolve race in batch runner"))
}
