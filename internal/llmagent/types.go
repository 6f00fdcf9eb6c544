// Package llmagent wraps the external LLM CLI process that the scan pipeline
// and fix orchestrator drive. It is deliberately distinct from the catalog
// package: a catalog.AgentSpec is a scan policy (prompt + file scope); an
// llmagent.Agent is the process adapter that actually talks to the model.
package llmagent

import "time"

// OutputFormatJSON requests final JSON output from the agent.
const OutputFormatJSON = "json"

// OutputFormatStreamJSON requests JSONL streaming output from the agent.
// Each line of stdout is a self-contained JSON event that can be decoded
// with StreamDecoder for real-time observability into agent activity.
const OutputFormatStreamJSON = "stream-json"

// RunOpts specifies options for a single agent invocation.
type RunOpts struct {
	Prompt       string   `json:"prompt,omitempty"`
	PromptFile   string   `json:"prompt_file,omitempty"`
	Model        string   `json:"model,omitempty"`
	Effort       string   `json:"effort,omitempty"`
	AllowedTools string   `json:"allowed_tools,omitempty"`
	OutputFormat string   `json:"output_format,omitempty"`
	WorkDir      string   `json:"work_dir,omitempty"`
	Env          []string `json:"env,omitempty"`

	// MaxTurns bounds the number of agent turns for this call (e.g. 50 for a
	// Scanner call, 10 for a Voter call). Zero means no explicit bound is
	// passed to the CLI.
	MaxTurns int `json:"max_turns,omitempty"`

	// SessionID resumes a prior session when non-empty, so that iteration
	// prompts accumulate context from earlier calls. Empty starts a fresh
	// session.
	SessionID string `json:"session_id,omitempty"`

	// StreamEvents receives real-time stream events when OutputFormat
	// is "stream-json". The agent adapter decodes JSONL from stdout
	// and sends each event to this channel. Nil means no streaming.
	// The channel is NOT closed by the agent -- the caller owns it.
	StreamEvents chan<- StreamEvent `json:"-"`
}

// RunResult captures the output of an agent invocation.
// Duration is serialized as nanoseconds (int64) in JSON, which is the
// default Go behavior for time.Duration.
type RunResult struct {
	Stdout    string         `json:"stdout"`
	Stderr    string         `json:"stderr"`
	ExitCode  int            `json:"exit_code"`
	Duration  time.Duration  `json:"duration"`
	SessionID string         `json:"session_id,omitempty"`
	CostUSD   float64        `json:"cost_usd,omitempty"`
	RateLimit *RateLimitInfo `json:"rate_limit,omitempty"`
}

// RateLimitInfo describes a detected rate-limit condition.
// ResetAfter is serialized as nanoseconds (int64) in JSON.
type RateLimitInfo struct {
	IsLimited  bool          `json:"is_limited"`
	ResetAfter time.Duration `json:"reset_after"`
	Message    string        `json:"message"`
}

// Success returns true if the agent exited with code 0.
func (r *RunResult) Success() bool {
	return r.ExitCode == 0
}

// WasRateLimited returns true if the result indicates a rate-limit condition.
func (r *RunResult) WasRateLimited() bool {
	return r.RateLimit != nil && r.RateLimit.IsLimited
}
