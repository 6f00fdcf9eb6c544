package scan

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/AbdelazizMoustafa10m/Raven/internal/jsonutil"
	"github.com/AbdelazizMoustafa10m/Raven/internal/llmagent"
	"github.com/AbdelazizMoustafa10m/Raven/internal/store"
)

// DefaultVoters is V, the number of voters run per candidate set.
const DefaultVoters = 3

// VoterMaxTurns bounds a single voter call's agent turns.
const VoterMaxTurns = 10

// voteResponse is a single voter's required JSON output shape.
type voteResponse struct {
	Approve   bool   `json:"approve"`
	Reasoning string `json:"reasoning"`
}

// VoterPool runs V voters concurrently via errgroup.SetLimit(V); each voter
// processes every candidate sequentially, exactly as
// review.ReviewOrchestrator.Run's agent fan-out does.
type VoterPool struct {
	driver llmagent.Agent
	voters int
	logger *log.Logger
}

// NewVoterPool creates a VoterPool with the given driver. voters <= 0 is
// clamped to DefaultVoters.
func NewVoterPool(driver llmagent.Agent, voters int, logger *log.Logger) *VoterPool {
	if voters <= 0 {
		voters = DefaultVoters
	}
	return &VoterPool{driver: driver, voters: voters, logger: logger}
}

// Run votes every candidate with each of p.voters voters and returns the
// flat list of votes (len == p.voters * len(candidates)) plus the summed
// driver-reported cost across every vote call. A transport or parse error
// for one candidate never aborts the voter's run -- it yields an implicit
// Vote{Approve: false} with the error captured in Reasoning.
func (p *VoterPool) Run(ctx context.Context, workDir string, candidates []store.CandidateIssue) ([]store.Vote, float64, error) {
	if len(candidates) == 0 {
		return nil, 0, nil
	}

	votesByVoter := make([][]store.Vote, p.voters)
	costByVoter := make([]float64, p.voters)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.voters)

	for i := 0; i < p.voters; i++ {
		i := i
		voterID := fmt.Sprintf("voter-%d", i+1)
		g.Go(func() error {
			votesByVoter[i], costByVoter[i] = p.runVoter(gctx, voterID, workDir, candidates)
			// Per-candidate errors never abort the errgroup.
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, 0, fmt.Errorf("scan: voter pool: %w", err)
	}

	var all []store.Vote
	var totalCost float64
	for i, vs := range votesByVoter {
		all = append(all, vs...)
		totalCost += costByVoter[i]
	}
	return all, totalCost, nil
}

// runVoter processes every candidate sequentially for a single voter.
func (p *VoterPool) runVoter(ctx context.Context, voterID, workDir string, candidates []store.CandidateIssue) ([]store.Vote, float64) {
	votes := make([]store.Vote, 0, len(candidates))
	var cost float64
	for _, c := range candidates {
		v, c2 := p.voteOne(ctx, voterID, workDir, c)
		votes = append(votes, v)
		cost += c2
	}
	return votes, cost
}

func (p *VoterPool) voteOne(ctx context.Context, voterID, workDir string, c store.CandidateIssue) (store.Vote, float64) {
	prompt := buildVotePrompt(c)

	result, err := p.driver.Run(ctx, llmagent.RunOpts{
		Prompt:       prompt,
		AllowedTools: readOnlyTools,
		OutputFormat: llmagent.OutputFormatJSON,
		WorkDir:      workDir,
		MaxTurns:     VoterMaxTurns,
	})
	if err != nil {
		p.warn("voter run failed", voterID, c.ID, err)
		return store.Vote{VoterID: voterID, IssueID: c.ID, Approve: false, Reasoning: err.Error()}, 0
	}
	if result.ExitCode != 0 {
		reason := fmt.Sprintf("agent exited with code %d", result.ExitCode)
		return store.Vote{VoterID: voterID, IssueID: c.ID, Approve: false, Reasoning: reason}, result.CostUSD
	}

	var resp voteResponse
	if err := jsonutil.ExtractInto(result.Stdout, &resp); err != nil {
		p.warn("voter output did not contain parseable JSON", voterID, c.ID, err)
		return store.Vote{VoterID: voterID, IssueID: c.ID, Approve: false, Reasoning: fmt.Sprintf("unparseable response: %v", err)}, result.CostUSD
	}

	return store.Vote{VoterID: voterID, IssueID: c.ID, Approve: resp.Approve, Reasoning: resp.Reasoning}, result.CostUSD
}

func buildVotePrompt(c store.CandidateIssue) string {
	loc := c.FilePath
	if c.LineRange != nil {
		loc = fmt.Sprintf("%s:%d-%d", c.FilePath, c.LineRange.Start, c.LineRange.End)
	}
	return fmt.Sprintf(
		"Review this candidate issue and decide whether it is a real, actionable "+
			"problem worth fixing. Read the referenced file(s) as needed.\n\n"+
			"Title: %s\nCategory: %s\nSeverity: %s\nLocation: %s\n\n"+
			"Description:\n%s\n\nRecommendation:\n%s\n\n"+
			"Respond with a single JSON object: {\"approve\": true|false, \"reasoning\": \"...\"}.",
		c.Title, c.Category, c.Severity, loc, c.Description, c.Recommendation,
	)
}

func (p *VoterPool) warn(msg, voterID, issueID string, err error) {
	if p.logger == nil {
		return
	}
	p.logger.Warn(msg, "voter", voterID, "issue", issueID, "error", err)
}
