package scan

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/AbdelazizMoustafa10m/Raven/internal/catalog"
	"github.com/AbdelazizMoustafa10m/Raven/internal/config"
	"github.com/AbdelazizMoustafa10m/Raven/internal/llmagent"
	"github.com/AbdelazizMoustafa10m/Raven/internal/store"
)

// Pipeline runs the Scanner -> Voter pool -> Arbitrator sequence for a
// single agent against a single target path. Grounded on
// review.ReviewOrchestrator's dependency-wiring shape, specialized to the
// scan domain's three strictly-ordered sub-phases.
type Pipeline struct {
	catalogReg *catalog.Registry
	scanner    *Scanner
	voters     *VoterPool
	arbiter    *Arbitrator
	issues     *store.IssueStore
	dedupK     int
	logger     *log.Logger
	events     chan<- Event
}

// Deps bundles the dependencies a Pipeline needs. DedupK <= 0 defaults to
// config.DefaultDedupThresholdK.
type Deps struct {
	Catalog   *catalog.Registry
	Driver    llmagent.Agent
	Issues    *store.IssueStore
	Tickets   *store.TicketWriter
	Voters    int
	Threshold int
	DedupK    int
	Logger    *log.Logger
	Events    chan<- Event
}

// NewPipeline constructs a Pipeline from Deps.
func NewPipeline(d Deps) *Pipeline {
	dedupK := d.DedupK
	if dedupK <= 0 {
		dedupK = config.DefaultDedupThresholdK
	}
	return &Pipeline{
		catalogReg: d.Catalog,
		scanner:    NewScanner(d.Driver, d.Logger),
		voters:     NewVoterPool(d.Driver, d.Voters, d.Logger),
		arbiter:    NewArbitrator(d.Tickets, d.Issues, d.Threshold),
		issues:     d.Issues,
		dedupK:     dedupK,
		logger:     d.Logger,
		events:     d.Events,
	}
}

// RunAgent executes one full pipeline pass for agentID against targetPath.
func (p *Pipeline) RunAgent(ctx context.Context, targetPath, agentID string) (*Result, error) {
	start := time.Now()

	spec, err := p.catalogReg.Get(agentID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrAgentNotFound, agentID)
	}

	p.emit(Event{Type: "scan_started", AgentID: agentID, Message: "scanning started", Timestamp: time.Now()})

	doc, err := p.issues.Load()
	if err != nil {
		return nil, fmt.Errorf("scan: pipeline: loading issue store: %w", err)
	}
	dedupSummary := BuildDedupSummary(ctx, p.scanner.driver, doc.Issues, p.dedupK)

	memory, err := LoadMemory(targetPath)
	if err != nil && p.logger != nil {
		p.logger.Warn("failed to load memory.md", "error", err)
	}

	candidates, scanCost, err := p.scanner.Scan(ctx, targetPath, spec, dedupSummary, memory)
	if err != nil {
		return nil, fmt.Errorf("scan: pipeline: agent %s: %w", agentID, err)
	}

	p.emit(Event{Type: "scanner_completed", AgentID: agentID, Message: fmt.Sprintf("%d candidate(s)", len(candidates)), Timestamp: time.Now()})

	if err := p.issues.TouchLastScanAt(time.Now().UTC()); err != nil && p.logger != nil {
		p.logger.Warn("failed to record last scan time", "error", err)
	}

	if len(candidates) == 0 {
		return &Result{CostUSD: scanCost, Duration: time.Since(start)}, nil
	}

	p.emit(Event{Type: "voting_started", AgentID: agentID, Message: fmt.Sprintf("voting on %d candidate(s)", len(candidates)), Timestamp: time.Now()})

	votes, voteCost, err := p.voters.Run(ctx, targetPath, candidates)
	if err != nil {
		return nil, fmt.Errorf("scan: pipeline: agent %s: voting: %w", agentID, err)
	}

	approved, rejected, ticketPaths, err := p.arbiter.Arbitrate(candidates, votes)
	if err != nil {
		return nil, fmt.Errorf("scan: pipeline: agent %s: arbitrating: %w", agentID, err)
	}

	p.emit(Event{
		Type:      "arbitration_completed",
		AgentID:   agentID,
		Message:   fmt.Sprintf("%d approved, %d rejected", len(approved), len(rejected)),
		Timestamp: time.Now(),
	})

	return &Result{
		Approved:    approved,
		Rejected:    rejected,
		TicketPaths: ticketPaths,
		CostUSD:     scanCost + voteCost,
		Duration:    time.Since(start),
	}, nil
}

func (p *Pipeline) emit(ev Event) {
	if p.events == nil {
		return
	}
	select {
	case p.events <- ev:
	default:
	}
}
