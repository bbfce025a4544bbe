// Package capability holds the registry through which external
// collaborators (git, issue tracker, code review, notifications,
// environments, complexity scoring, IDE bridge) are wired into the
// orchestrator. Workflows look collaborators up by kind at call time,
// so a disabled integration is simply an absent registration rather
// than a nil field to guard everywhere.
package capability

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/pkg/logging"
)

// Kind classifies what a collaborator provides.
type Kind string

const (
	KindGit           Kind = "git"
	KindTracker       Kind = "tracker"
	KindReview        Kind = "review"
	KindNotifications Kind = "notifications"
	KindEnvironments  Kind = "environments"
	KindComplexity    Kind = "complexity"
	KindBridge        Kind = "bridge"
)

// Capability is the contract every registered collaborator satisfies.
// Ping is the health probe the healthCheck workflow runs; it should be
// cheap and honor the context deadline.
type Capability interface {
	Name() string
	Kind() Kind
	Ping(ctx context.Context) error
}

// Registry is a concurrency-safe collaborator registry.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]Capability
	byKind map[Kind][]Capability
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]Capability),
		byKind: make(map[Kind][]Capability),
	}
}

// Register adds a collaborator. Names are unique across kinds.
func (r *Registry) Register(c Capability) error {
	if c == nil {
		return fmt.Errorf("cannot register nil capability")
	}
	if c.Name() == "" {
		return fmt.Errorf("capability of kind %s has no name", c.Kind())
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[c.Name()]; exists {
		return fmt.Errorf("capability %s already registered", c.Name())
	}
	r.byName[c.Name()] = c
	r.byKind[c.Kind()] = append(r.byKind[c.Kind()], c)

	logging.Info("Registry", "Registered capability %s (kind: %s)", c.Name(), c.Kind())
	return nil
}

// Unregister removes a collaborator by name.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, exists := r.byName[name]
	if !exists {
		return fmt.Errorf("capability %s not registered", name)
	}
	delete(r.byName, name)

	kindSlice := r.byKind[c.Kind()]
	for i, other := range kindSlice {
		if other.Name() == name {
			r.byKind[c.Kind()] = append(kindSlice[:i], kindSlice[i+1:]...)
			break
		}
	}

	logging.Info("Registry", "Unregistered capability %s", name)
	return nil
}

// Get retrieves a collaborator by name.
func (r *Registry) Get(name string) (Capability, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byName[name]
	return c, ok
}

// FirstOfKind returns the first collaborator registered for a kind.
// Most kinds have at most one registration.
func (r *Registry) FirstOfKind(kind Kind) (Capability, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	caps := r.byKind[kind]
	if len(caps) == 0 {
		return nil, false
	}
	return caps[0], true
}

// ListKind returns all collaborators of a kind in registration order.
func (r *Registry) ListKind(kind Kind) []Capability {
	r.mu.RLock()
	defer r.mu.RUnlock()
	caps := r.byKind[kind]
	out := make([]Capability, len(caps))
	copy(out, caps)
	return out
}

// All returns every registered collaborator sorted by name.
func (r *Registry) All() []Capability {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Capability, 0, len(r.byName))
	for _, c := range r.byName {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Names returns the sorted names of all registered collaborators.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
