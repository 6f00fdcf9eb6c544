package llmagent

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
)

// agentNameRe validates driver names: alphanumeric characters and hyphens only.
var agentNameRe = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9-]*$`)

// ErrNotFound is returned by Registry.Get when no driver with the requested
// name has been registered.
var ErrNotFound = errors.New("llm driver not found")

// ErrDuplicateName is returned by Registry.Register when a driver with the
// same name is already present in the registry.
var ErrDuplicateName = errors.New("llm driver already registered")

// ErrInvalidName is returned by Registry.Register when the driver name is
// empty or contains invalid characters.
var ErrInvalidName = errors.New("invalid llm driver name")

// Agent is the interface an LLM CLI driver must implement. Rover ships one
// implementation (ClaudeAgent); the interface exists so the scan pipeline and
// fix orchestrator never depend on exec.Cmd directly, and so tests can
// substitute a mock driver.
type Agent interface {
	// Name returns the driver's identifier (e.g., "claude").
	Name() string

	// Run executes a prompt using the driver and returns the result.
	// The context is used for cancellation and timeout.
	Run(ctx context.Context, opts RunOpts) (*RunResult, error)

	// CheckPrerequisites verifies that the driver's CLI tool is installed
	// and accessible. Returns an error describing what is missing.
	CheckPrerequisites() error

	// ParseRateLimit examines driver output for rate-limit signals.
	// Returns rate-limit info and true if a rate limit was detected,
	// or nil and false if no rate limit is present.
	ParseRateLimit(output string) (*RateLimitInfo, bool)

	// DryRunCommand returns the command string that would be executed,
	// without actually running it. Used for --dry-run mode.
	DryRunCommand(opts RunOpts) string
}

// DriverConfig holds driver-level defaults that RunOpts fields override per
// call. It is not populated from rover.toml's [agents.<id>] sections.
type DriverConfig struct {
	Command      string `toml:"command"`
	Model        string `toml:"model"`
	Effort       string `toml:"effort"`
	AllowedTools string `toml:"allowed_tools"`
}

// Registry stores named driver instances for lookup. Drivers are registered
// at startup and looked up by name at runtime. Registry is safe for
// concurrent reads after all registrations are complete.
type Registry struct {
	agents map[string]Agent
}

// NewRegistry creates an empty driver registry.
func NewRegistry() *Registry {
	return &Registry{agents: make(map[string]Agent)}
}

// Register adds a driver to the registry under its Name().
func (r *Registry) Register(a Agent) error {
	if a == nil {
		return fmt.Errorf("register llm driver: %w", ErrInvalidName)
	}
	name := a.Name()
	if name == "" || !agentNameRe.MatchString(name) {
		return fmt.Errorf("register llm driver %q: %w", name, ErrInvalidName)
	}
	if _, exists := r.agents[name]; exists {
		return fmt.Errorf("register llm driver %q: %w", name, ErrDuplicateName)
	}
	r.agents[name] = a
	return nil
}

// Get returns the driver registered under the given name.
func (r *Registry) Get(name string) (Agent, error) {
	a, ok := r.agents[name]
	if !ok {
		return nil, fmt.Errorf("get llm driver %q: %w", name, ErrNotFound)
	}
	return a, nil
}

// MustGet returns the driver registered under the given name or panics.
// Only use this in initialization/setup code, never in request-handling paths.
func (r *Registry) MustGet(name string) Agent {
	a, err := r.Get(name)
	if err != nil {
		panic(fmt.Sprintf("llmagent.Registry.MustGet: driver %q not registered", name))
	}
	return a
}

// List returns the names of all registered drivers, sorted alphabetically.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.agents))
	for name := range r.agents {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has returns true if a driver with the given name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.agents[name]
	return ok
}
