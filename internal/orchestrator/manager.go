package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/user/agentcore/internal/adapter"
	"github.com/user/agentcore/internal/session"
	"github.com/user/agentcore/internal/types"
)

// Manager owns every active project's Orchestrator (spec §4.4 "one
// Orchestrator instance per active project"), creating them lazily on first
// use and tearing them down idle_orchestrator_linger_seconds after the last
// reference is released. Grounded on the teacher's gateway.Gateway, which
// played the same role for one lane per session.
type Manager struct {
	cfg      Config
	projects types.ProjectStore
	registry *adapter.Registry
	sessions *session.Store
	messages types.MessageStore
	prompts  types.PromptLoader

	mu      sync.Mutex
	entries map[types.ProjectID]*managedEntry
}

type managedEntry struct {
	orch     *Orchestrator
	refs     int
	idleTimer *time.Timer
}

func NewManager(cfg Config, projects types.ProjectStore, registry *adapter.Registry, sessions *session.Store, messages types.MessageStore, prompts types.PromptLoader) *Manager {
	return &Manager{
		cfg:      cfg,
		projects: projects,
		registry: registry,
		sessions: sessions,
		messages: messages,
		prompts:  prompts,
		entries:  make(map[types.ProjectID]*managedEntry),
	}
}

// Acquire returns the Orchestrator for a project, creating and hydrating it
// on first use, and increments its reference count. Callers (Hub
// connections, one-shot submit/cancel handlers) must call Release exactly
// once when done.
func (m *Manager) Acquire(ctx context.Context, projectID types.ProjectID) (*Orchestrator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.entries[projectID]; ok {
		if e.idleTimer != nil {
			e.idleTimer.Stop()
			e.idleTimer = nil
		}
		e.refs++
		return e.orch, nil
	}

	project, err := m.projects.Get(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("load project %s: %w", projectID, err)
	}
	if err := m.sessions.Hydrate(ctx, projectID, m.messages); err != nil {
		return nil, fmt.Errorf("hydrate sessions for project %s: %w", projectID, err)
	}

	orch := New(project, m.cfg, m.registry, m.sessions, m.messages, m.prompts)
	m.entries[projectID] = &managedEntry{orch: orch, refs: 1}
	return orch, nil
}

// Release decrements the reference count for a project's Orchestrator,
// scheduling teardown after idle_orchestrator_linger_seconds once it drops
// to zero (spec §4.4 "Idle orchestrators... are torn down after a short
// linger interval").
func (m *Manager) Release(projectID types.ProjectID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[projectID]
	if !ok {
		return
	}
	e.refs--
	if e.refs > 0 {
		return
	}
	e.idleTimer = time.AfterFunc(m.cfg.IdleLinger, func() {
		m.teardownIfStillIdle(projectID)
	})
}

func (m *Manager) teardownIfStillIdle(projectID types.ProjectID) {
	m.mu.Lock()
	e, ok := m.entries[projectID]
	if !ok || e.refs > 0 {
		m.mu.Unlock()
		return
	}
	delete(m.entries, projectID)
	m.mu.Unlock()

	e.orch.Shutdown()
}

// Shutdown tears down every live orchestrator concurrently.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	entries := make([]*managedEntry, 0, len(m.entries))
	for id, e := range m.entries {
		if e.idleTimer != nil {
			e.idleTimer.Stop()
		}
		entries = append(entries, e)
		delete(m.entries, id)
	}
	m.mu.Unlock()

	var g errgroup.Group
	for _, e := range entries {
		e := e
		g.Go(func() error {
			e.orch.Shutdown()
			return nil
		})
	}
	return g.Wait()
}
