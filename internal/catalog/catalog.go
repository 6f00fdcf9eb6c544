// Package catalog holds the fixed set of scan policies ("agents" in the
// scan-pipeline sense) that the Batch Runner and Scan Pipeline drive against
// a target repository. A catalog.AgentSpec is a scan policy -- a system
// prompt plus a file-scope glob -- not an LLM driver; see internal/llmagent
// for the process adapter that actually talks to the model.
package catalog

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
)

var idRe = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)

// ErrNotFound is returned by Registry.Get when no spec with the requested
// id has been registered.
var ErrNotFound = errors.New("catalog entry not found")

// ErrDuplicateName is returned by Registry.Register when a spec with the
// same id is already present in the registry.
var ErrDuplicateName = errors.New("catalog entry already registered")

// ErrInvalidName is returned by Registry.Register when the spec id is empty
// or contains invalid characters.
var ErrInvalidName = errors.New("invalid catalog entry id")

// AgentSpec is an immutable scan policy: a named, prompted lens the Scanner
// applies to a target repository. Built once at init time via Builtin() and
// never mutated -- per-field [agents.<id>] overrides in rover.toml apply to
// a copy handed to the llmagent driver, not to the AgentSpec itself.
type AgentSpec struct {
	ID           string
	Name         string
	Description  string
	SystemPrompt string

	// FilePatterns are doublestar glob patterns restricting which files this
	// agent may read. A leading "!" negates a pattern (exclusion).
	FilePatterns []string

	// Enabled controls whether `rover scan --all` includes this entry by
	// default. A user can still invoke a disabled entry by name explicitly.
	Enabled bool
}

// Registry stores named AgentSpec values for lookup, mirroring
// llmagent.Registry's shape (repurposed here for scan policies rather than
// LLM drivers).
type Registry struct {
	specs map[string]AgentSpec
}

// NewRegistry creates an empty catalog registry.
func NewRegistry() *Registry {
	return &Registry{specs: make(map[string]AgentSpec)}
}

// Register adds a spec to the registry under its ID.
func (r *Registry) Register(spec AgentSpec) error {
	if spec.ID == "" || !idRe.MatchString(spec.ID) {
		return fmt.Errorf("register catalog entry %q: %w", spec.ID, ErrInvalidName)
	}
	if _, exists := r.specs[spec.ID]; exists {
		return fmt.Errorf("register catalog entry %q: %w", spec.ID, ErrDuplicateName)
	}
	r.specs[spec.ID] = spec
	return nil
}

// Get returns the spec registered under the given id.
func (r *Registry) Get(id string) (AgentSpec, error) {
	s, ok := r.specs[id]
	if !ok {
		return AgentSpec{}, fmt.Errorf("get catalog entry %q: %w", id, ErrNotFound)
	}
	return s, nil
}

// MustGet returns the spec registered under the given id or panics. Only
// for initialization code, never request-handling paths.
func (r *Registry) MustGet(id string) AgentSpec {
	s, err := r.Get(id)
	if err != nil {
		panic(fmt.Sprintf("catalog.Registry.MustGet: entry %q not registered", id))
	}
	return s
}

// List returns the ids of all registered specs, sorted alphabetically.
func (r *Registry) List() []string {
	ids := make([]string, 0, len(r.specs))
	for id := range r.specs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Enabled returns the ids of all registered specs with Enabled == true,
// sorted alphabetically. Used by `rover scan --all`.
func (r *Registry) Enabled() []string {
	var ids []string
	for id, s := range r.specs {
		if s.Enabled {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Has returns true if a spec with the given id is registered.
func (r *Registry) Has(id string) bool {
	_, ok := r.specs[id]
	return ok
}

// SetEnabled overrides a spec's Enabled flag, used when rover.toml's
// [agents.<id>] section carries `enabled = false`.
func (r *Registry) SetEnabled(id string, enabled bool) error {
	s, ok := r.specs[id]
	if !ok {
		return fmt.Errorf("set enabled for catalog entry %q: %w", id, ErrNotFound)
	}
	s.Enabled = enabled
	r.specs[id] = s
	return nil
}
