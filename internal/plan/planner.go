// Package plan turns the current set of open approved issues into an
// execution plan: a dependency graph between issues, parallel work groups,
// and an ordered command list, rendered as markdown with an embedded
// Mermaid flowchart. The dependency vocabulary (an issue depending on
// another, validated against the known id set before use) is grounded on
// internal/prd/schema.go's local_dependencies/cross_epic_dependencies
// validation; the rendering conventions are grounded on
// internal/prd/emitter_test.go's observed Mermaid output.
package plan

import (
	"context"
	"fmt"

	"github.com/AbdelazizMoustafa10m/Raven/internal/jsonutil"
	"github.com/AbdelazizMoustafa10m/Raven/internal/llmagent"
	"github.com/AbdelazizMoustafa10m/Raven/internal/store"
)

// plannerMaxTurns bounds the planner LLM call's agent turns.
const plannerMaxTurns = 20

// plannerReadOnlyTools mirrors the other LLM-facing components' tool scope.
const plannerReadOnlyTools = "Glob,Grep,Read"

// independentGroupName is the synthetic parallel group every issue the LLM
// did not assign to a group is appended to.
const independentGroupName = "Independent"

// DependencyType classifies an edge between two issues in the plan graph.
type DependencyType string

const (
	DependencyBlocks    DependencyType = "blocks"
	DependencyConflicts DependencyType = "conflicts"
	DependencyEnables   DependencyType = "enables"
)

// Dependency is one edge in the plan's dependency graph.
type Dependency struct {
	From string         `json:"from"`
	To   string         `json:"to"`
	Type DependencyType `json:"type"`
}

// ParallelGroup is a set of issue ids that can be worked in parallel.
type ParallelGroup struct {
	Name      string   `json:"name"`
	IssueIDs  []string `json:"issueIds"`
}

// Plan is the planner's post-processed output.
type Plan struct {
	Dependencies    []Dependency    `json:"dependencies"`
	ParallelGroups  []ParallelGroup `json:"parallelGroups"`
	Summary         string          `json:"summary"`
	ExecutionOrder  []string        `json:"executionOrder"`
	CommandsMarkdown string         `json:"commandsMarkdown"`
}

// plannerResponse is the raw LLM output shape before post-processing.
type plannerResponse struct {
	Dependencies     []Dependency    `json:"dependencies"`
	ParallelGroups   []ParallelGroup `json:"parallelGroups"`
	Summary          string          `json:"summary"`
	ExecutionOrder   []string        `json:"executionOrder"`
	CommandsMarkdown string          `json:"commandsMarkdown"`
}

// Planner produces an execution plan for a set of open issues.
type Planner struct {
	driver llmagent.Agent
}

// NewPlanner creates a Planner bound to the given LLM driver.
func NewPlanner(driver llmagent.Agent) *Planner {
	return &Planner{driver: driver}
}

// Plan invokes the planner LLM call over workDir's current open issues and
// post-processes the result per spec: every issue appears in exactly one
// parallel group (unrecognized issues fall into "Independent"), and
// executionOrder defaults to the input issue order if the LLM omitted it.
func (p *Planner) Plan(ctx context.Context, workDir string, issues []store.ApprovedIssue) (*Plan, error) {
	open := openIssues(issues)
	if len(open) == 0 {
		return &Plan{Summary: "No open issues to plan."}, nil
	}

	prompt := buildPlannerPrompt(open)

	result, err := p.driver.Run(ctx, llmagent.RunOpts{
		Prompt:       prompt,
		AllowedTools: plannerReadOnlyTools,
		OutputFormat: llmagent.OutputFormatJSON,
		WorkDir:      workDir,
		MaxTurns:     plannerMaxTurns,
	})
	if err != nil {
		return nil, fmt.Errorf("plan: planner call failed: %w", err)
	}
	if result.ExitCode != 0 {
		return nil, fmt.Errorf("plan: planner call exited with code %d", result.ExitCode)
	}

	var resp plannerResponse
	if err := jsonutil.ExtractInto(result.Stdout, &resp); err != nil {
		return nil, fmt.Errorf("plan: planner output did not contain parseable JSON: %w", err)
	}

	return postProcess(resp, open), nil
}

func openIssues(issues []store.ApprovedIssue) []store.ApprovedIssue {
	out := make([]store.ApprovedIssue, 0, len(issues))
	for _, iss := range issues {
		if iss.Status == store.IssueStatusWontFix {
			continue
		}
		out = append(out, iss)
	}
	return out
}

// postProcess guarantees every input issue appears in exactly one parallel
// group and that executionOrder is never empty.
func postProcess(resp plannerResponse, issues []store.ApprovedIssue) *Plan {
	assigned := make(map[string]bool)
	groups := make([]ParallelGroup, 0, len(resp.ParallelGroups)+1)
	validIDs := make(map[string]bool, len(issues))
	for _, iss := range issues {
		validIDs[iss.ID] = true
	}

	for _, g := range resp.ParallelGroups {
		var kept []string
		for _, id := range g.IssueIDs {
			if !validIDs[id] || assigned[id] {
				continue
			}
			kept = append(kept, id)
			assigned[id] = true
		}
		if len(kept) > 0 {
			groups = append(groups, ParallelGroup{Name: g.Name, IssueIDs: kept})
		}
	}

	var independent []string
	for _, iss := range issues {
		if !assigned[iss.ID] {
			independent = append(independent, iss.ID)
		}
	}
	if len(independent) > 0 {
		groups = append(groups, ParallelGroup{Name: independentGroupName, IssueIDs: independent})
	}

	order := resp.ExecutionOrder
	if len(order) == 0 {
		order = make([]string, 0, len(issues))
		for _, iss := range issues {
			order = append(order, iss.ID)
		}
	}

	var deps []Dependency
	for _, d := range resp.Dependencies {
		if validIDs[d.From] && validIDs[d.To] {
			deps = append(deps, d)
		}
	}

	return &Plan{
		Dependencies:     deps,
		ParallelGroups:   groups,
		Summary:          resp.Summary,
		ExecutionOrder:   order,
		CommandsMarkdown: resp.CommandsMarkdown,
	}
}

func buildPlannerPrompt(issues []store.ApprovedIssue) string {
	prompt := "Given the following open issues, propose an execution plan. " +
		"Identify dependencies between issues (type: blocks, conflicts, or enables), " +
		"group issues that can be worked on in parallel, and suggest an execution order. " +
		"Read affected files as needed.\n\n"
	for _, iss := range issues {
		loc := iss.FilePath
		if iss.LineRange != nil {
			loc = fmt.Sprintf("%s:%d-%d", iss.FilePath, iss.LineRange.Start, iss.LineRange.End)
		}
		prompt += fmt.Sprintf("- %s [%s/%s] %q in %s\n", iss.ID, iss.Category, iss.Severity, iss.Title, loc)
	}
	prompt += "\nRespond with a single JSON object: {\"dependencies\": [{\"from\": \"ISSUE-...\", " +
		"\"to\": \"ISSUE-...\", \"type\": \"blocks|conflicts|enables\"}], " +
		"\"parallelGroups\": [{\"name\": \"...\", \"issueIds\": [\"ISSUE-...\"]}], " +
		"\"summary\": \"...\", \"executionOrder\": [\"ISSUE-...\"], \"commandsMarkdown\": \"...\"}."
	return prompt
}
