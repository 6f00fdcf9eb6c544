package scan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbdelazizMoustafa10m/Raven/internal/store"
)

func newArbitratorForTest(t *testing.T, threshold int) (*Arbitrator, *store.IssueStore) {
	t.Helper()
	dir := t.TempDir()
	tickets := store.NewTicketWriter(filepath.Join(dir, "tickets"))
	issues := store.NewIssueStore(filepath.Join(dir, "issues.json"))
	return NewArbitrator(tickets, issues, threshold), issues
}

func TestArbitrator_Arbitrate_ApprovesAtThreshold(t *testing.T) {
	t.Parallel()

	arb, issues := newArbitratorForTest(t, 2)

	candidates := []store.CandidateIssue{
		{ID: "c1", Title: "real bug", Severity: store.SeverityHigh, FilePath: "x.go", Category: "correctness"},
	}
	votes := []store.Vote{
		{VoterID: "voter-1", IssueID: "c1", Approve: true},
		{VoterID: "voter-2", IssueID: "c1", Approve: true},
		{VoterID: "voter-3", IssueID: "c1", Approve: false},
	}

	approved, rejected, ticketPaths, err := arb.Arbitrate(candidates, votes)
	require.NoError(t, err)
	require.Len(t, approved, 1)
	assert.Empty(t, rejected)
	require.Len(t, ticketPaths, 1)

	assert.Equal(t, "ISSUE-001", approved[0].ID)
	assert.FileExists(t, ticketPaths[0])

	doc, err := issues.Load()
	require.NoError(t, err)
	require.Len(t, doc.Issues, 1)
	assert.Equal(t, "ISSUE-001", doc.Issues[0].ID)
}

func TestArbitrator_Arbitrate_RejectsBelowThreshold(t *testing.T) {
	t.Parallel()

	arb, issues := newArbitratorForTest(t, 2)

	candidates := []store.CandidateIssue{
		{ID: "c1", Title: "maybe bug", Severity: store.SeverityLow, FilePath: "x.go"},
	}
	votes := []store.Vote{
		{VoterID: "voter-1", IssueID: "c1", Approve: true},
		{VoterID: "voter-2", IssueID: "c1", Approve: false},
		{VoterID: "voter-3", IssueID: "c1", Approve: false},
	}

	approved, rejected, ticketPaths, err := arb.Arbitrate(candidates, votes)
	require.NoError(t, err)
	assert.Empty(t, approved)
	require.Len(t, rejected, 1)
	assert.Empty(t, ticketPaths)

	doc, err := issues.Load()
	require.NoError(t, err)
	assert.Empty(t, doc.Issues)
}

func TestArbitrator_Arbitrate_NoVotesMeansRejected(t *testing.T) {
	t.Parallel()

	arb, _ := newArbitratorForTest(t, 2)

	candidates := []store.CandidateIssue{{ID: "c1", Title: "orphan"}}
	approved, rejected, _, err := arb.Arbitrate(candidates, nil)
	require.NoError(t, err)
	assert.Empty(t, approved)
	assert.Len(t, rejected, 1)
}

func TestArbitrator_Arbitrate_SequenceIncrementsAcrossCalls(t *testing.T) {
	t.Parallel()

	arb, _ := newArbitratorForTest(t, 1)

	first, _, _, err := arb.Arbitrate(
		[]store.CandidateIssue{{ID: "c1", Title: "first", Severity: store.SeverityLow}},
		[]store.Vote{{IssueID: "c1", Approve: true}},
	)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, "ISSUE-001", first[0].ID)

	second, _, _, err := arb.Arbitrate(
		[]store.CandidateIssue{{ID: "c2", Title: "second", Severity: store.SeverityLow}},
		[]store.Vote{{IssueID: "c2", Approve: true}},
	)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, "ISSUE-002", second[0].ID)
}

func TestNewArbitrator_ClampsNonPositiveThreshold(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	arb := NewArbitrator(store.NewTicketWriter(filepath.Join(dir, "tickets")), store.NewIssueStore(filepath.Join(dir, "issues.json")), 0)
	assert.Equal(t, DefaultApprovalThreshold, arb.threshold)
}

func TestArbitrator_Arbitrate_WritesMarkdownTicketFile(t *testing.T) {
	t.Parallel()

	arb, _ := newArbitratorForTest(t, 1)
	_, _, ticketPaths, err := arb.Arbitrate(
		[]store.CandidateIssue{{ID: "c1", Title: "bug", Severity: store.SeverityCritical, Description: "desc", Recommendation: "rec"}},
		[]store.Vote{{IssueID: "c1", Approve: true}},
	)
	require.NoError(t, err)
	require.Len(t, ticketPaths, 1)

	data, err := os.ReadFile(ticketPaths[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "bug")
	assert.Contains(t, string(data), "desc")
}
