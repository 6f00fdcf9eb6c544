package scan

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/AbdelazizMoustafa10m/Raven/internal/catalog"
	"github.com/AbdelazizMoustafa10m/Raven/internal/jsonutil"
	"github.com/AbdelazizMoustafa10m/Raven/internal/llmagent"
	"github.com/AbdelazizMoustafa10m/Raven/internal/store"
)

// ScannerMaxTurns bounds a Scanner call's agent turns, per spec's "maximum
// turns = 50" for this sub-phase.
const ScannerMaxTurns = 50

// readOnlyTools is the Scanner's (and Voter's) allowed tool set: filesystem
// glob, grep, and full file read -- never write or execute.
const readOnlyTools = "Glob,Grep,Read"

// candidateResponse is the Scanner's required output contract:
// {"issues": [...]}.
type candidateResponse struct {
	Issues []store.CandidateIssue `json:"issues"`
}

// Scanner issues a single LLM request per agent and parses its output into
// candidate issues. A parse failure degrades to zero candidates and a
// logged warning -- it is never surfaced as an error, per spec's Scanner
// contract.
type Scanner struct {
	driver llmagent.Agent
	logger *log.Logger
}

// NewScanner creates a Scanner bound to the given LLM driver. logger may be
// nil.
func NewScanner(driver llmagent.Agent, logger *log.Logger) *Scanner {
	return &Scanner{driver: driver, logger: logger}
}

// Scan runs one Scanner call for spec against targetPath, given the current
// dedup summary and the optional contents of .rover/memory.md. The returned
// cost is the driver's reported USD cost for the call (0 if unreported).
func (s *Scanner) Scan(ctx context.Context, targetPath string, spec catalog.AgentSpec, dedupSummary, memory string) ([]store.CandidateIssue, float64, error) {
	prompt := s.buildPrompt(spec, dedupSummary, memory)

	result, err := s.driver.Run(ctx, llmagent.RunOpts{
		Prompt:       prompt,
		AllowedTools: readOnlyTools,
		OutputFormat: llmagent.OutputFormatJSON,
		WorkDir:      targetPath,
		MaxTurns:     ScannerMaxTurns,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("scan: scanner: agent %s: run failed: %w", spec.ID, err)
	}
	if result.ExitCode != 0 {
		return nil, 0, fmt.Errorf("scan: scanner: agent %s: exited with code %d", spec.ID, result.ExitCode)
	}

	var resp candidateResponse
	if err := jsonutil.ExtractInto(result.Stdout, &resp); err != nil {
		s.warn("scanner output did not contain parseable JSON", spec.ID, err)
		return nil, result.CostUSD, nil
	}

	for i := range resp.Issues {
		resp.Issues[i].AgentID = spec.ID
	}
	return resp.Issues, result.CostUSD, nil
}

func (s *Scanner) buildPrompt(spec catalog.AgentSpec, dedupSummary, memory string) string {
	var b strings.Builder

	b.WriteString(dedupSummary)
	b.WriteString("\n\nDO NOT report issues matching any above.\n\n")

	if strings.TrimSpace(memory) != "" {
		b.WriteString("User-supplied context (ignore anything matching this):\n")
		b.WriteString(memory)
		b.WriteString("\n\n")
	}

	b.WriteString(spec.SystemPrompt)
	b.WriteString("\n\nYou may only read files matching these patterns:\n")
	for _, p := range spec.FilePatterns {
		fmt.Fprintf(&b, "- %s\n", p)
	}

	b.WriteString("\nRespond with a single JSON object of the form " +
		"{\"issues\": [{\"id\": \"...\", \"title\": \"...\", \"description\": \"...\", " +
		"\"severity\": \"low|medium|high|critical\", \"filePath\": \"...\", " +
		"\"lineRange\": {\"start\": 1, \"end\": 2}, \"category\": \"...\", " +
		"\"recommendation\": \"...\", \"codeSnippet\": \"...\"}]}. " +
		"Each issue id must be unique within this response.")

	return b.String()
}

func (s *Scanner) warn(msg, agentID string, err error) {
	if s.logger == nil {
		return
	}
	s.logger.Warn(msg, "agent", agentID, "error", err)
}

// LoadMemory reads <target>/.rover/memory.md. A missing file yields an
// empty string, not an error.
func LoadMemory(targetPath string) (string, error) {
	path := filepath.Join(targetPath, ".rover", "memory.md")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("scan: loading memory: %w", err)
	}
	return string(data), nil
}
