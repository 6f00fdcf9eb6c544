// Package scan implements the three-phase scan pipeline -- Scanner, Voter
// pool, Arbitrator -- that drives one catalog.AgentSpec against a target
// source tree and produces verified, ticketed issues. It is grounded on
// internal/review/orchestrator.go's errgroup fan-out shape and
// internal/jsonutil's tolerant JSON extraction.
package scan

import (
	"errors"
	"time"

	"github.com/AbdelazizMoustafa10m/Raven/internal/store"
)

// AgentState names the per-agent pipeline states:
// pending -> scanning -> voting -> arbitrating -> completed | error.
// Pipeline does not record or report these values; it emits Event values,
// and the Batch Runner tracks store.AgentRunStatus instead.
type AgentState string

const (
	StatePending     AgentState = "pending"
	StateScanning    AgentState = "scanning"
	StateVoting      AgentState = "voting"
	StateArbitrating AgentState = "arbitrating"
	StateCompleted   AgentState = "completed"
	StateError       AgentState = "error"
)

// ErrAgentNotFound is returned by Pipeline.RunAgent when agentID is not
// registered in the catalog.
var ErrAgentNotFound = errors.New("scan: agent not found")

// Result is the outcome of one RunAgent invocation.
type Result struct {
	Approved    []store.ApprovedIssue
	Rejected    []store.CandidateIssue
	TicketPaths []string
	CostUSD     float64
	Duration    time.Duration
}

// Event is a structured progress event emitted during a pipeline run, for
// CLI/TUI consumption. Type is one of: scan_started, scanner_completed,
// voting_started, vote_cast, arbitration_completed, agent_error.
type Event struct {
	Type      string
	AgentID   string
	Message   string
	Timestamp time.Time
}
