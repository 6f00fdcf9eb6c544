package plan

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// maxDependenciesForMermaid caps the rendered flowchart's edge count,
// mirroring internal/prd's emitter omitting its dependency graph past a
// node-count threshold rather than emitting an unreadably large diagram.
const maxDependenciesForMermaid = 100

// Render produces the plan's full markdown document, including an embedded
// Mermaid flowchart derived from the dependency graph.
func Render(p *Plan) string {
	var b strings.Builder

	b.WriteString("# Execution Plan\n\n")
	if p.Summary != "" {
		b.WriteString(p.Summary)
		b.WriteString("\n\n")
	}

	b.WriteString("## Parallel Groups\n\n")
	if len(p.ParallelGroups) == 0 {
		b.WriteString("_No parallel groups defined._\n\n")
	}
	for _, g := range p.ParallelGroups {
		fmt.Fprintf(&b, "- **%s**: %s\n", g.Name, strings.Join(g.IssueIDs, ", "))
	}
	b.WriteString("\n")

	b.WriteString("## Execution Order\n\n")
	for i, id := range p.ExecutionOrder {
		fmt.Fprintf(&b, "%d. %s\n", i+1, id)
	}
	b.WriteString("\n")

	b.WriteString("## Dependency Graph\n\n")
	if len(p.Dependencies) == 0 {
		b.WriteString("_No dependencies defined._\n\n")
	} else if len(p.Dependencies) > maxDependenciesForMermaid {
		fmt.Fprintf(&b, "_Dependency graph omitted: %d edges exceeds the %d-edge rendering cap._\n\n", len(p.Dependencies), maxDependenciesForMermaid)
	} else {
		b.WriteString("```mermaid\n")
		b.WriteString("graph TD\n")
		for _, d := range p.Dependencies {
			fmt.Fprintf(&b, "    %s -->|%s| %s\n", d.From, d.Type, d.To)
		}
		b.WriteString("```\n\n")
	}

	if p.CommandsMarkdown != "" {
		b.WriteString("## Commands\n\n")
		b.WriteString(p.CommandsMarkdown)
		b.WriteString("\n")
	}

	return b.String()
}

// Save writes the plan's rendered markdown to
// <targetPath>/.rover/plans/<timestamp>-plan.md and returns the path
// written. timestamp must already be formatted by the caller (e.g.
// time.Now().UTC().Format("20060102-150405")) since this package never
// calls time.Now itself.
func Save(targetPath, timestamp string, p *Plan) (string, error) {
	dir := filepath.Join(targetPath, ".rover", "plans")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("plan: creating plans directory %q: %w", dir, err)
	}

	path := filepath.Join(dir, timestamp+"-plan.md")
	if err := os.WriteFile(path, []byte(Render(p)), 0644); err != nil {
		return "", fmt.Errorf("plan: writing plan file %q: %w", path, err)
	}
	return path, nil
}
