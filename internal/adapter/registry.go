package adapter

import (
	"context"
	"sync"
	"time"

	"github.com/user/agentcore/pkg/agentcli"
)

// Registry is the process-wide immutable table of adapters (spec §4.2,
// §9 "Registry is immutable after startup"). Availability probes are
// cached per entry for availabilityCacheTTL to avoid fork storms from a
// status grid polling every adapter on every page load.
type Registry struct {
	adapters map[agentcli.AgentKind]agentcli.Adapter
	order    []agentcli.AgentKind
	cacheTTL time.Duration

	mu    sync.Mutex
	cache map[agentcli.AgentKind]cachedAvailability
}

type cachedAvailability struct {
	value   agentcli.Availability
	checked time.Time
}

// NewRegistry builds a Registry from a fixed set of adapters, one per
// AgentKind. cacheTTL is availability_cache_seconds from spec §6.
func NewRegistry(cacheTTL time.Duration, adapters ...agentcli.Adapter) *Registry {
	r := &Registry{
		adapters: make(map[agentcli.AgentKind]agentcli.Adapter, len(adapters)),
		cacheTTL: cacheTTL,
		cache:    make(map[agentcli.AgentKind]cachedAvailability),
	}
	for _, a := range adapters {
		r.adapters[a.Kind()] = a
		r.order = append(r.order, a.Kind())
	}
	return r
}

// DefaultRegistry wires the five concrete adapters shipped in this package.
func DefaultRegistry(cacheTTL time.Duration) *Registry {
	return NewRegistry(cacheTTL,
		NewClaudeAdapter(),
		NewCursorAdapter(),
		NewCodexAdapter(),
		NewGeminiAdapter(),
		NewQwenAdapter(),
	)
}

// Get returns the adapter for kind, or nil if none is registered.
func (r *Registry) Get(kind agentcli.AgentKind) agentcli.Adapter {
	return r.adapters[kind]
}

// List returns the registered agent kinds in registration order.
func (r *Registry) List() []agentcli.AgentKind {
	out := make([]agentcli.AgentKind, len(r.order))
	copy(out, r.order)
	return out
}

// Availability returns the cached (or freshly probed) availability for one
// kind. Probe failures return the last-known value rather than blocking
// (spec §4.2: "returns stale-on-error rather than blocking").
func (r *Registry) Availability(ctx context.Context, kind agentcli.AgentKind) agentcli.Availability {
	a, ok := r.adapters[kind]
	if !ok {
		return agentcli.Availability{Installed: false, Error: "unknown agent kind"}
	}

	r.mu.Lock()
	if c, ok := r.cache[kind]; ok && time.Since(c.checked) < r.cacheTTL {
		r.mu.Unlock()
		return c.value
	}
	r.mu.Unlock()

	fresh := a.Available(ctx)
	r.mu.Lock()
	if fresh.Error != "" {
		if prior, ok := r.cache[kind]; ok {
			r.cache[kind] = cachedAvailability{value: prior.value, checked: time.Now()}
			r.mu.Unlock()
			return prior.value
		}
	}
	r.cache[kind] = cachedAvailability{value: fresh, checked: time.Now()}
	r.mu.Unlock()
	return fresh
}

// AvailabilitySnapshot fans Availability out across every registered kind.
func (r *Registry) AvailabilitySnapshot(ctx context.Context) map[agentcli.AgentKind]agentcli.Availability {
	snap := make(map[agentcli.AgentKind]agentcli.Availability, len(r.order))
	var wg sync.WaitGroup
	var mu sync.Mutex
	for _, kind := range r.order {
		wg.Add(1)
		go func(kind agentcli.AgentKind) {
			defer wg.Done()
			a := r.Availability(ctx, kind)
			mu.Lock()
			snap[kind] = a
			mu.Unlock()
		}(kind)
	}
	wg.Wait()
	return snap
}

// ResolveModel exposes the package-level model resolution table.
func (r *Registry) ResolveModel(kind agentcli.AgentKind, canonical agentcli.ModelId) (native string, usedDefault bool) {
	return resolveModel(kind, canonical)
}
