// Package session implements the Session State Store (spec §4.3): a
// process-wide mapping from (project id, agent kind) to Session, mutated
// only by the owning project's orchestrator and guarded by one RWMutex
// shared by all projects, with copy-on-read snapshots for other readers.
//
// Grounded on internal/state.SessionStore's file-backed-store-with-
// in-memory-index shape in the teacher, adapted here to have no
// independent persistence of its own: durability comes entirely from the
// Message Store via Hydrate, per spec §4.3 ("populated lazily from the
// Message Store").
package session

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/user/agentcore/internal/types"
	"github.com/user/agentcore/pkg/agentcli"
)

type key struct {
	project types.ProjectID
	agent   agentcli.AgentKind
}

// Store is the Session State Store. A single Store instance is shared by
// every Orchestrator in the process; each orchestrator only ever writes
// the keys for its own project.
type Store struct {
	mu       sync.RWMutex
	sessions map[key]*types.Session
	// projSeq is the per-project event counter backing Message Store rows
	// (spec §6: "seq is unique within project_id"). It is distinct from a
	// Session's own Seq field, which just records the last seq value that
	// session observed, for client-reconnect bookkeeping.
	projSeq map[types.ProjectID]int64
}

func New() *Store {
	return &Store{
		sessions: make(map[key]*types.Session),
		projSeq:  make(map[types.ProjectID]int64),
	}
}

// Get returns a copy-on-read snapshot of the session for (project, agent),
// or a zero-value Session if none exists yet.
func (s *Store) Get(project types.ProjectID, agent agentcli.AgentKind) types.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if sess, ok := s.sessions[key{project, agent}]; ok {
		return *sess
	}
	return types.Session{ProjectID: project, Agent: agent}
}

// Update replaces the session for (project, agent). Callers are expected to
// be the single orchestrator owning that project (spec §5 "mutated only by
// the owning project's orchestrator").
func (s *Store) Update(sess types.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{sess.ProjectID, sess.Agent}
	cp := sess
	s.sessions[k] = &cp
}

// NextSeq atomically reserves and returns the next project-scoped seq
// value, and records it as the last-seen seq for (project, agent). This is
// the single point where seq is assigned, satisfying spec §5's "seq is
// assigned by the single-writer orchestrator before either persistence or
// broadcast" -- the caller must be the one orchestrator owning project,
// which already serializes all runs for every agent kind in that project.
func (s *Store) NextSeq(project types.ProjectID, agent agentcli.AgentKind) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projSeq[project]++
	n := s.projSeq[project]

	k := key{project, agent}
	sess, ok := s.sessions[k]
	if !ok {
		sess = &types.Session{ProjectID: project, Agent: agent}
		s.sessions[k] = sess
	}
	sess.Seq = n
	return n
}

// sessionInfoBody mirrors agentcli.SessionInfo for decoding StoredMessage
// bodies during Hydrate, without importing the full Event envelope.
type sessionInfoBody struct {
	NativeSessionID string `json:"native_session_id"`
}

// Hydrate populates the store for one project from the Message Store by
// scanning for the latest session_info row per agent kind (spec §4.3). It
// is safe to call once per project on orchestrator startup, before any
// run begins.
func (s *Store) Hydrate(ctx context.Context, project types.ProjectID, store types.MessageStore) error {
	maxSeq, err := store.MaxSeq(ctx, project)
	if err != nil {
		return err
	}
	s.mu.Lock()
	if maxSeq > s.projSeq[project] {
		s.projSeq[project] = maxSeq
	}
	s.mu.Unlock()

	latest, err := store.LatestSessionInfo(ctx, project)
	if err != nil {
		return err
	}
	for agentKind, msg := range latest {
		var body sessionInfoBody
		if err := json.Unmarshal(msg.Body, &body); err != nil {
			continue
		}
		s.mu.Lock()
		k := key{project, agentKind}
		sess, ok := s.sessions[k]
		if !ok {
			sess = &types.Session{ProjectID: project, Agent: agentKind}
			s.sessions[k] = sess
		}
		sess.NativeSessionID = body.NativeSessionID
		if msg.Seq > sess.Seq {
			sess.Seq = msg.Seq
		}
		s.mu.Unlock()
	}
	return nil
}

// Forget removes every session row for a project. Called only when the
// owning project itself is deleted (spec §4.3: "no global session garbage
// collection; session rows are removed only when the owning project is
// deleted").
func (s *Store) Forget(project types.ProjectID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.sessions {
		if k.project == project {
			delete(s.sessions, k)
		}
	}
}
