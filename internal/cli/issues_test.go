package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AbdelazizMoustafa10m/Raven/internal/store"
)

func sampleIssues() []store.ApprovedIssue {
	return []store.ApprovedIssue{
		{
			CandidateIssue: store.CandidateIssue{ID: "a", Severity: store.SeverityHigh, Title: "sql injection"},
			TicketPath:     ".rover/tickets/high/ISSUE-001.md",
			Status:         store.IssueStatusOpen,
		},
		{
			CandidateIssue: store.CandidateIssue{ID: "b", Severity: store.SeverityLow, Title: "unused import"},
			TicketPath:     ".rover/tickets/low/ISSUE-002.md",
			Status:         store.IssueStatusWontFix,
		},
		{
			CandidateIssue: store.CandidateIssue{ID: "c", Severity: store.SeverityHigh, Title: "missing timeout"},
			TicketPath:     ".rover/tickets/high/ISSUE-003.md",
			Status:         store.IssueStatusOpen,
		},
	}
}

func TestFilterIssues_ExcludesWontFixByDefault(t *testing.T) {
	out := filterIssues(sampleIssues(), "", false)
	assert.Len(t, out, 2)
	for _, iss := range out {
		assert.NotEqual(t, store.IssueStatusWontFix, iss.Status)
	}
}

func TestFilterIssues_AllIncludesWontFix(t *testing.T) {
	out := filterIssues(sampleIssues(), "", true)
	assert.Len(t, out, 3)
}

func TestFilterIssues_SeverityFilter(t *testing.T) {
	out := filterIssues(sampleIssues(), "high", false)
	assert.Len(t, out, 2)
	for _, iss := range out {
		assert.Equal(t, store.SeverityHigh, iss.Severity)
	}
}

func TestFilterIssues_SeverityFilterExcludesEverything(t *testing.T) {
	out := filterIssues(sampleIssues(), "critical", true)
	assert.Empty(t, out)
}

func TestFilterIssues_SortedByTicketPath(t *testing.T) {
	out := filterIssues(sampleIssues(), "", true)
	for i := 1; i < len(out); i++ {
		assert.LessOrEqual(t, out[i-1].TicketPath, out[i].TicketPath)
	}
}
