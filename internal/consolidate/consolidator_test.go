package consolidate

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbdelazizMoustafa10m/Raven/internal/llmagent"
	"github.com/AbdelazizMoustafa10m/Raven/internal/store"
)

func newConsolidatorForTest(t *testing.T, driver llmagent.Agent) (*Consolidator, *store.IssueStore) {
	t.Helper()
	dir := t.TempDir()
	tickets := store.NewTicketWriter(filepath.Join(dir, "tickets"))
	issues := store.NewIssueStore(filepath.Join(dir, "issues.json"))
	return NewConsolidator(driver, tickets, issues, 2, nil), issues
}

func seedIssues(t *testing.T, issues *store.IssueStore, items ...store.ApprovedIssue) {
	t.Helper()
	require.NoError(t, issues.AddIssues(items))
}

func TestConsolidator_Consolidate_NoClusters(t *testing.T) {
	t.Parallel()

	mock := llmagent.NewMockAgent("claude")
	c, issues := newConsolidatorForTest(t, mock)
	seedIssues(t, issues, mkIssue("ISSUE-001", "a.go", "security", "unique one"))

	stats, err := c.Consolidate(context.Background(), "/repo")
	require.NoError(t, err)
	assert.Zero(t, stats.ClustersFound)
	assert.Empty(t, mock.Calls)
}

func TestConsolidator_Consolidate_MergesClusterAndWritesTicket(t *testing.T) {
	t.Parallel()

	mock := llmagent.NewMockAgent("claude").WithRunFunc(func(ctx context.Context, opts llmagent.RunOpts) (*llmagent.RunResult, error) {
		return &llmagent.RunResult{
			ExitCode: 0,
			Stdout: `{"title": "Consolidated SQL injection", "description": "merged", "category": "security", ` +
				`"recommendation": "fix it", "primaryFilePath": "main.go", "lineRange": null, "codeSnippet": ""}`,
		}, nil
	})

	c, issues := newConsolidatorForTest(t, mock)
	seedIssues(t, issues,
		mkIssue("ISSUE-001", "main.go", "security", "SQL injection alpha"),
		mkIssue("ISSUE-002", "main.go", "security", "SQL injection beta"),
	)

	stats, err := c.Consolidate(context.Background(), "/repo")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ClustersFound)
	assert.Equal(t, 1, stats.ClustersMerged)
	assert.Equal(t, 2, stats.OriginalsRemoved)

	doc, err := issues.Load()
	require.NoError(t, err)
	require.Len(t, doc.Issues, 1)
	assert.Equal(t, "Consolidated SQL injection", doc.Issues[0].Title)
	assert.ElementsMatch(t, []string{"ISSUE-001", "ISSUE-002"}, doc.Issues[0].ConsolidatedFrom)
}

func TestConsolidator_Consolidate_FailedMergeLeavesOriginalsIntact(t *testing.T) {
	t.Parallel()

	mock := llmagent.NewMockAgent("claude").WithRunFunc(func(ctx context.Context, opts llmagent.RunOpts) (*llmagent.RunResult, error) {
		return &llmagent.RunResult{ExitCode: 1, Stdout: ""}, nil
	})

	c, issues := newConsolidatorForTest(t, mock)
	seedIssues(t, issues,
		mkIssue("ISSUE-001", "main.go", "security", "SQL injection alpha"),
		mkIssue("ISSUE-002", "main.go", "security", "SQL injection beta"),
	)

	stats, err := c.Consolidate(context.Background(), "/repo")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ClustersFailed)
	assert.Zero(t, stats.ClustersMerged)

	doc, err := issues.Load()
	require.NoError(t, err)
	assert.Len(t, doc.Issues, 2)
}

func TestHighestSeverity_PicksMostSevere(t *testing.T) {
	t.Parallel()

	issues := []store.ApprovedIssue{
		{CandidateIssue: store.CandidateIssue{Severity: store.SeverityLow}},
		{CandidateIssue: store.CandidateIssue{Severity: store.SeverityCritical}},
		{CandidateIssue: store.CandidateIssue{Severity: store.SeverityMedium}},
	}
	assert.Equal(t, store.SeverityCritical, highestSeverity(issues))
}
