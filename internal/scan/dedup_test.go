package scan

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AbdelazizMoustafa10m/Raven/internal/llmagent"
	"github.com/AbdelazizMoustafa10m/Raven/internal/store"
)

func issueAt(id, title string) store.ApprovedIssue {
	return store.ApprovedIssue{
		CandidateIssue: store.CandidateIssue{
			ID:       id,
			Title:    title,
			Category: "security",
			FilePath: "main.go",
		},
		Status: store.IssueStatusOpen,
	}
}

func TestBuildDedupSummary_EmptyStore(t *testing.T) {
	t.Parallel()

	got := BuildDedupSummary(context.Background(), nil, nil, 5)
	assert.Equal(t, noExistingIssues, got)
}

func TestBuildDedupSummary_AllWontFix(t *testing.T) {
	t.Parallel()

	issues := []store.ApprovedIssue{
		{CandidateIssue: store.CandidateIssue{ID: "ISSUE-001"}, Status: store.IssueStatusWontFix},
	}
	got := BuildDedupSummary(context.Background(), nil, issues, 5)
	assert.Equal(t, noExistingIssues, got)
}

func TestBuildDedupSummary_DirectSummary(t *testing.T) {
	t.Parallel()

	issues := []store.ApprovedIssue{
		issueAt("ISSUE-001", "SQL injection"),
		issueAt("ISSUE-002", "Missing auth check"),
	}
	got := BuildDedupSummary(context.Background(), nil, issues, 5)
	assert.Contains(t, got, "SQL injection")
	assert.Contains(t, got, "Missing auth check")
	assert.NotContains(t, got, "more known issue")
}

func TestBuildDedupSummary_TruncatesWithoutDriver(t *testing.T) {
	t.Parallel()

	var issues []store.ApprovedIssue
	for i := 0; i < 8; i++ {
		issues = append(issues, issueAt("ISSUE-00X", "issue"))
	}
	got := BuildDedupSummary(context.Background(), nil, issues, 5)
	assert.Contains(t, got, "... and 3 more known issue(s)")
}

func TestBuildDedupSummary_LLMSummaryUsedWhenAvailable(t *testing.T) {
	t.Parallel()

	var issues []store.ApprovedIssue
	for i := 0; i < 8; i++ {
		issues = append(issues, issueAt("ISSUE-00X", "issue"))
	}

	mock := llmagent.NewMockAgent("claude").WithRunFunc(func(ctx context.Context, opts llmagent.RunOpts) (*llmagent.RunResult, error) {
		return &llmagent.RunResult{Stdout: "condensed summary text", ExitCode: 0}, nil
	})

	got := BuildDedupSummary(context.Background(), mock, issues, 5)
	assert.Equal(t, "condensed summary text", got)
}

func TestBuildDedupSummary_FallsBackOnLLMError(t *testing.T) {
	t.Parallel()

	var issues []store.ApprovedIssue
	for i := 0; i < 8; i++ {
		issues = append(issues, issueAt("ISSUE-00X", "issue"))
	}

	mock := llmagent.NewMockAgent("claude").WithRunFunc(func(ctx context.Context, opts llmagent.RunOpts) (*llmagent.RunResult, error) {
		return nil, errors.New("transport failed")
	})

	got := BuildDedupSummary(context.Background(), mock, issues, 5)
	assert.Contains(t, got, "... and 3 more known issue(s)")
}
