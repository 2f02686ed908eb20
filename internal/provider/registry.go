package provider

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/AeyeOps/mgit/internal/mgiterrors"
)

// Entry pairs a Driver with its admission gate under one config name.
type Entry struct {
	Name     string
	Driver   Driver
	Admit    *Admission
}

// Health is a read-model summary of one registered provider config, used
// by the Summary supplement for host-side diagnostics without exposing
// driver internals.
type Health struct {
	Name           string
	Kind           string
	Authenticated  bool
	LastError      string
	LastCheckedAt  time.Time
}

// Registry holds every provider config the host resolved, keyed by
// config name, and mediates lookups for the resolver and bulk engine.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	order   []string
	health  map[string]Health
}

// NewRegistry builds an empty Registry. Entries are added with Register.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*Entry),
		health:  make(map[string]Health),
	}
}

// Register adds a named driver instance. Re-registering an existing name
// replaces it, preserving its original position in ListNames so
// duplicate-provider resolution order stays stable (spec.md §9: registry
// order wins ties, first registered takes priority).
func (r *Registry) Register(name string, d Driver, admit *Admission) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[name]; !exists {
		r.order = append(r.order, name)
	}
	r.entries[name] = &Entry{Name: name, Driver: d, Admit: admit}
}

// Get returns the entry registered under name, or a CodeUnknownProvider
// error if none exists.
func (r *Registry) Get(name string) (*Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	if !ok {
		err := mgiterrors.Config.New("unknown provider config %q", name)
		return nil, mgiterrors.WithCode(mgiterrors.CodeUnknownProvider, "unknown provider config: "+name, err)
	}
	return e, nil
}

// ListNames returns every registered config name in registration order.
func (r *Registry) ListNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// ResolveDefault returns the sole registered entry when exactly one
// exists. The resolver does not call it: with no explicit provider
// config named, Resolve fans out across every registered entry.
func (r *Registry) ResolveDefault() (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.order) != 1 {
		return nil, false
	}
	return r.entries[r.order[0]], true
}

// Summary authenticates every registered driver (best-effort, bounded by
// ctx) and returns a sorted health snapshot, the SPEC_FULL.md diagnostics
// supplement grounded on the teacher's buildHealth read-model.
func (r *Registry) Summary(ctx context.Context) []Health {
	r.mu.RLock()
	names := append([]string(nil), r.order...)
	entries := make(map[string]*Entry, len(r.entries))
	for k, v := range r.entries {
		entries[k] = v
	}
	r.mu.RUnlock()

	out := make([]Health, 0, len(names))
	now := time.Now().UTC()
	for _, name := range names {
		e := entries[name]
		h := Health{Name: name, Kind: e.Driver.Capabilities().Kind, LastCheckedAt: now}
		if err := e.Driver.Authenticate(ctx); err != nil {
			h.LastError = err.Error()
		} else {
			h.Authenticated = true
		}
		out = append(out, h)
	}

	r.mu.Lock()
	for _, h := range out {
		r.health[h.Name] = h
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
