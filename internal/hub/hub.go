package hub

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/user/agentcore/internal/orchestrator"
	"github.com/user/agentcore/internal/types"
	"github.com/user/agentcore/pkg/agentcli"
)

// Hub owns, per project, a single fan-out pump reading the project's
// Orchestrator broadcast channel and distributing events to every
// subscriber's bounded outbound queue. Grounded on the teacher's
// gateway.Queue bounded-channel-with-select-default idiom for the
// per-subscriber overflow check.
type Hub struct {
	cfg      Config
	manager  *orchestrator.Manager
	messages types.MessageStore

	mu       sync.Mutex
	projects map[types.ProjectID]*projectFanout
}

// Config is the subset of spec §6's configuration values the Hub itself
// consults (the rest belong to internal/orchestrator.Config).
type Config struct {
	SubscriberQueueCapacity int
	HistoryReplayDefault    int
}

type projectFanout struct {
	orch *orchestrator.Orchestrator
	mu   sync.Mutex
	subs map[*Subscriber]struct{}
}

// Subscriber is one client's view onto a project's event stream: a bounded
// outbound queue plus a done signal used to disconnect it with a close
// code.
type Subscriber struct {
	ID      string
	Outbound chan agentcli.Event
	Closed   chan int // close code, sent exactly once
}

func New(cfg Config, manager *orchestrator.Manager, messages types.MessageStore) *Hub {
	return &Hub{
		cfg:      cfg,
		manager:  manager,
		messages: messages,
		projects: make(map[types.ProjectID]*projectFanout),
	}
}

// Join registers a new subscriber for project, acquiring (and, on first
// subscriber, starting the fan-out pump for) its Orchestrator, then
// replaying history per spec §4.5: afterSeq from the client's
// subscribe_from_seq, or the last history_replay_default events if the
// client has no position yet (afterSeq < 0).
func (h *Hub) Join(ctx context.Context, projectID types.ProjectID, id string, afterSeq int64) (*Subscriber, error) {
	h.mu.Lock()
	pf, ok := h.projects[projectID]
	if !ok {
		orch, err := h.manager.Acquire(ctx, projectID)
		if err != nil {
			h.mu.Unlock()
			return nil, fmt.Errorf("acquire orchestrator for project %s: %w", projectID, err)
		}
		pf = &projectFanout{orch: orch, subs: make(map[*Subscriber]struct{})}
		h.projects[projectID] = pf
		go h.pump(projectID, pf)
	}
	h.mu.Unlock()

	sub := &Subscriber{
		ID:       id,
		Outbound: make(chan agentcli.Event, h.cfg.SubscriberQueueCapacity),
		Closed:   make(chan int, 1),
	}

	if err := h.replay(ctx, projectID, afterSeq, sub); err != nil {
		return nil, fmt.Errorf("replay history for project %s: %w", projectID, err)
	}

	pf.mu.Lock()
	pf.subs[sub] = struct{}{}
	pf.mu.Unlock()

	return sub, nil
}

// replay queues events the subscriber missed before it started listening
// live: events with seq > afterSeq when the client supplied one (spec §8
// property 7, S6), else the last history_replay_default events (spec §4.5).
func (h *Hub) replay(ctx context.Context, projectID types.ProjectID, afterSeq int64, sub *Subscriber) error {
	var stored []*types.StoredMessage
	var err error
	if afterSeq >= 0 {
		stored, err = h.messages.Since(ctx, projectID, afterSeq)
	} else {
		stored, err = h.messages.Tail(ctx, projectID, h.cfg.HistoryReplayDefault)
	}
	if err != nil {
		return err
	}
	for _, msg := range stored {
		ev, decErr := decodeStoredEvent(msg)
		if decErr != nil {
			slog.Warn("failed to decode replayed event", "project", projectID, "seq", msg.Seq, "error", decErr)
			continue
		}
		sub.Outbound <- ev
	}
	return nil
}

// Leave unregisters sub from projectID. If it was the last subscriber, the
// fan-out pump is stopped and the Orchestrator reference released, letting
// the Manager's idle-linger teardown run (spec §4.4).
func (h *Hub) Leave(projectID types.ProjectID, sub *Subscriber) {
	h.mu.Lock()
	pf, ok := h.projects[projectID]
	if !ok {
		h.mu.Unlock()
		return
	}
	pf.mu.Lock()
	delete(pf.subs, sub)
	empty := len(pf.subs) == 0
	pf.mu.Unlock()

	if empty {
		delete(h.projects, projectID)
	}
	h.mu.Unlock()

	if empty {
		h.manager.Release(projectID)
	}
}

// Submit forwards a submit command to the project's Orchestrator. The
// caller must already hold an active Join for projectID (the connection
// read pump enforces this).
func (h *Hub) Submit(ctx context.Context, projectID types.ProjectID, req types.SubmitRequest) (types.RequestID, error) {
	h.mu.Lock()
	pf, ok := h.projects[projectID]
	h.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("project %s has no active subscription", projectID)
	}
	return pf.orch.Submit(ctx, req)
}

// Cancel forwards a cancel command to the project's Orchestrator.
func (h *Hub) Cancel(ctx context.Context, projectID types.ProjectID, id types.RequestID) (bool, error) {
	h.mu.Lock()
	pf, ok := h.projects[projectID]
	h.mu.Unlock()
	if !ok {
		return false, fmt.Errorf("project %s has no active subscription", projectID)
	}
	return pf.orch.Cancel(ctx, id)
}

// pump is the single reader of an Orchestrator's broadcast channel for a
// project (orchestrator.Subscribe's doc comment reserves that channel for
// exactly one consumer). It fans each event out to every current
// subscriber's bounded queue, disconnecting (close code slow_consumer) any
// subscriber whose queue is full rather than blocking the whole project on
// one slow client.
func (h *Hub) pump(projectID types.ProjectID, pf *projectFanout) {
	for ev := range pf.orch.Subscribe() {
		pf.mu.Lock()
		for sub := range pf.subs {
			select {
			case sub.Outbound <- ev:
			default:
				slog.Warn("subscriber outbound queue overflowed, disconnecting", "project", projectID, "subscriber", sub.ID)
				delete(pf.subs, sub)
				select {
				case sub.Closed <- CloseSlowConsumer:
				default:
				}
				close(sub.Outbound)
			}
		}
		pf.mu.Unlock()
	}
}
