package consolidate

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/AbdelazizMoustafa10m/Raven/internal/jsonutil"
	"github.com/AbdelazizMoustafa10m/Raven/internal/llmagent"
	"github.com/AbdelazizMoustafa10m/Raven/internal/store"
)

// mergeMaxTurns bounds the consolidator LLM call's agent turns.
const mergeMaxTurns = 10

// mergeReadOnlyTools mirrors the scan pipeline's Scanner/Voter tool scope:
// the consolidator LLM call only ever needs to read the affected files.
const mergeReadOnlyTools = "Glob,Grep,Read"

// mergeResponse is the consolidator LLM step's required JSON shape.
type mergeResponse struct {
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	Category        string          `json:"category"`
	Recommendation  string          `json:"recommendation"`
	PrimaryFilePath string          `json:"primaryFilePath"`
	LineRange       *store.LineRange `json:"lineRange"`
	CodeSnippet     string          `json:"codeSnippet"`
}

// Stats summarizes one Consolidate call.
type Stats struct {
	ClustersFound      int
	ClustersMerged     int
	ClustersFailed     int
	OriginalsRemoved   int
}

// Consolidator merges clusters of related approved issues into single
// replacement tickets. The LLM merge phase runs concurrently, bounded by an
// errgroup.SetLimit pool exactly as review.ReviewOrchestrator fans out
// per-agent calls; the file-mutation phase (ticket/store writes) runs
// strictly after every merge call has returned, sequentially, so no two
// goroutines ever race on the ticket sequence counter.
type Consolidator struct {
	driver      llmagent.Agent
	tickets     *store.TicketWriter
	issues      *store.IssueStore
	concurrency int
	logger      *log.Logger
}

// NewConsolidator creates a Consolidator. concurrency <= 0 is clamped to 1.
func NewConsolidator(driver llmagent.Agent, tickets *store.TicketWriter, issues *store.IssueStore, concurrency int, logger *log.Logger) *Consolidator {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Consolidator{driver: driver, tickets: tickets, issues: issues, concurrency: concurrency, logger: logger}
}

type mergeOutcome struct {
	cluster store.IssueCluster
	merged  mergeResponse
	err     error
}

// Consolidate clusters the store's current open issues and merges every
// cluster of size >= 2 into a single replacement ticket.
func (c *Consolidator) Consolidate(ctx context.Context, workDir string) (*Stats, error) {
	doc, err := c.issues.Load()
	if err != nil {
		return nil, fmt.Errorf("consolidate: loading issue store: %w", err)
	}

	clusters := Cluster(doc.Issues)
	stats := &Stats{ClustersFound: len(clusters)}
	if len(clusters) == 0 {
		return stats, nil
	}

	outcomes := make([]mergeOutcome, len(clusters))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for i, cl := range clusters {
		i, cl := i, cl
		g.Go(func() error {
			merged, mergeErr := c.mergeCluster(gctx, workDir, cl)
			outcomes[i] = mergeOutcome{cluster: cl, merged: merged, err: mergeErr}
			// A single cluster's failure never aborts the pool.
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("consolidate: merge phase: %w", err)
	}

	// File-mutation phase runs strictly sequentially after every merge call
	// has returned, to avoid racing the ticket sequence counter.
	for _, o := range outcomes {
		if o.err != nil {
			stats.ClustersFailed++
			if c.logger != nil {
				c.logger.Warn("cluster merge failed, originals left untouched", "cluster", o.cluster.ID, "error", o.err)
			}
			continue
		}

		originalIDs := make([]string, 0, len(o.cluster.Issues))
		for _, iss := range o.cluster.Issues {
			originalIDs = append(originalIDs, iss.ID)
		}

		replacement := store.ApprovedIssue{
			CandidateIssue: store.CandidateIssue{
				Title:          o.merged.Title,
				Description:    o.merged.Description,
				Category:       o.merged.Category,
				Recommendation: o.merged.Recommendation,
				FilePath:       o.merged.PrimaryFilePath,
				LineRange:      o.merged.LineRange,
				CodeSnippet:    o.merged.CodeSnippet,
				Severity:       highestSeverity(o.cluster.Issues),
				AgentID:        "consolidator",
			},
			ApprovedAt:       time.Now().UTC(),
			Status:           store.IssueStatusOpen,
			ConsolidatedFrom: originalIDs,
		}

		ticketID, path, writeErr := c.tickets.Write(replacement)
		if writeErr != nil {
			stats.ClustersFailed++
			if c.logger != nil {
				c.logger.Warn("writing consolidated ticket failed", "cluster", o.cluster.ID, "error", writeErr)
			}
			continue
		}
		replacement.ID = ticketID
		replacement.TicketPath = path

		if err := c.issues.ConsolidateIssues(originalIDs, replacement); err != nil {
			stats.ClustersFailed++
			if c.logger != nil {
				c.logger.Warn("updating issue store after consolidation failed", "cluster", o.cluster.ID, "error", err)
			}
			continue
		}

		for _, iss := range o.cluster.Issues {
			if err := c.tickets.Remove(iss.TicketPath); err != nil && c.logger != nil {
				c.logger.Warn("removing superseded ticket file failed", "issue", iss.ID, "error", err)
			}
		}

		stats.ClustersMerged++
		stats.OriginalsRemoved += len(originalIDs)
	}

	return stats, nil
}

func (c *Consolidator) mergeCluster(ctx context.Context, workDir string, cl store.IssueCluster) (mergeResponse, error) {
	prompt := buildMergePrompt(cl)

	result, err := c.driver.Run(ctx, llmagent.RunOpts{
		Prompt:       prompt,
		AllowedTools: mergeReadOnlyTools,
		OutputFormat: llmagent.OutputFormatJSON,
		WorkDir:      workDir,
		MaxTurns:     mergeMaxTurns,
	})
	if err != nil {
		return mergeResponse{}, fmt.Errorf("consolidate: merge call failed: %w", err)
	}
	if result.ExitCode != 0 {
		return mergeResponse{}, fmt.Errorf("consolidate: merge call exited with code %d", result.ExitCode)
	}

	var resp mergeResponse
	if err := jsonutil.ExtractInto(result.Stdout, &resp); err != nil {
		return mergeResponse{}, fmt.Errorf("consolidate: merge output did not contain parseable JSON: %w", err)
	}
	return resp, nil
}

func buildMergePrompt(cl store.IssueCluster) string {
	prompt := "The following issues describe the same underlying problem " +
		"(" + cl.Reason + "). Merge them into a single consolidated issue. " +
		"Read the affected file(s) as needed.\n\n"
	for _, iss := range cl.Issues {
		loc := iss.FilePath
		if iss.LineRange != nil {
			loc = fmt.Sprintf("%s:%d-%d", iss.FilePath, iss.LineRange.Start, iss.LineRange.End)
		}
		prompt += fmt.Sprintf("- %s [%s/%s] %q in %s: %s\n", iss.ID, iss.Category, iss.Severity, iss.Title, loc, iss.Description)
	}
	prompt += "\nRespond with a single JSON object: {\"title\": \"...\", \"description\": \"...\", " +
		"\"category\": \"...\", \"recommendation\": \"...\", \"primaryFilePath\": \"...\", " +
		"\"lineRange\": {\"start\": 1, \"end\": 2} or null, \"codeSnippet\": \"...\"}."
	return prompt
}

func highestSeverity(issues []store.ApprovedIssue) store.Severity {
	rank := map[store.Severity]int{
		store.SeverityLow:      1,
		store.SeverityMedium:   2,
		store.SeverityHigh:     3,
		store.SeverityCritical: 4,
	}
	best := store.SeverityLow
	for _, iss := range issues {
		if rank[iss.Severity] > rank[best] {
			best = iss.Severity
		}
	}
	return best
}
