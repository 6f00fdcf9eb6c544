package scan

import (
	"time"

	"github.com/AbdelazizMoustafa10m/Raven/internal/store"
)

// DefaultApprovalThreshold is M, the minimum number of approving votes an
// issue needs to be approved.
const DefaultApprovalThreshold = 2

// Arbitrator is pure computation over votes: no LLM calls, no retries. It
// is the sole writer of tickets and IssueStore entries for its agent's
// findings, per spec's ownership invariant.
type Arbitrator struct {
	threshold int
	tickets   *store.TicketWriter
	issues    *store.IssueStore
}

// NewArbitrator creates an Arbitrator. threshold <= 0 is clamped to
// DefaultApprovalThreshold.
func NewArbitrator(tickets *store.TicketWriter, issues *store.IssueStore, threshold int) *Arbitrator {
	if threshold <= 0 {
		threshold = DefaultApprovalThreshold
	}
	return &Arbitrator{threshold: threshold, tickets: tickets, issues: issues}
}

// Arbitrate groups votes by issue id, approves issues with at least M
// approving votes, writes a ticket and store entry for each approval, and
// returns the approved and rejected issues plus the ticket paths written.
func (a *Arbitrator) Arbitrate(candidates []store.CandidateIssue, votes []store.Vote) (approved []store.ApprovedIssue, rejected []store.CandidateIssue, ticketPaths []string, err error) {
	votesByIssue := make(map[string][]store.Vote)
	for _, v := range votes {
		votesByIssue[v.IssueID] = append(votesByIssue[v.IssueID], v)
	}

	var toAdd []store.ApprovedIssue

	for _, c := range candidates {
		issueVotes := votesByIssue[c.ID]
		approvals := 0
		for _, v := range issueVotes {
			if v.Approve {
				approvals++
			}
		}

		if approvals < a.threshold {
			rejected = append(rejected, c)
			continue
		}

		ticketID, path, writeErr := a.tickets.Write(store.ApprovedIssue{
			CandidateIssue: c,
			Votes:          issueVotes,
			ApprovedAt:     time.Now().UTC(),
			Status:         store.IssueStatusOpen,
		})
		if writeErr != nil {
			return nil, nil, nil, writeErr
		}

		ai := store.ApprovedIssue{
			CandidateIssue: c,
			Votes:          issueVotes,
			ApprovedAt:     time.Now().UTC(),
			TicketPath:     path,
			Status:         store.IssueStatusOpen,
		}
		ai.ID = ticketID
		toAdd = append(toAdd, ai)
		ticketPaths = append(ticketPaths, path)
	}

	if len(toAdd) > 0 {
		if err := a.issues.AddIssues(toAdd); err != nil {
			return nil, nil, nil, err
		}
	}

	return toAdd, rejected, ticketPaths, nil
}
