package session

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/user/agentcore/internal/types"
	"github.com/user/agentcore/pkg/agentcli"
)

type fakeMessageStore struct {
	maxSeq  int64
	latest  map[agentcli.AgentKind]*types.StoredMessage
}

func (f *fakeMessageStore) Append(ctx context.Context, msg *types.StoredMessage) error { return nil }
func (f *fakeMessageStore) Tail(ctx context.Context, project types.ProjectID, limit int) ([]*types.StoredMessage, error) {
	return nil, nil
}
func (f *fakeMessageStore) Since(ctx context.Context, project types.ProjectID, afterSeq int64) ([]*types.StoredMessage, error) {
	return nil, nil
}
func (f *fakeMessageStore) LatestSessionInfo(ctx context.Context, project types.ProjectID) (map[agentcli.AgentKind]*types.StoredMessage, error) {
	return f.latest, nil
}
func (f *fakeMessageStore) MaxSeq(ctx context.Context, project types.ProjectID) (int64, error) {
	return f.maxSeq, nil
}
func (f *fakeMessageStore) RecentProjects(ctx context.Context, limit int) ([]types.ProjectID, error) {
	return nil, nil
}

func TestNextSeqIsProjectScopedAcrossAgents(t *testing.T) {
	s := New()
	p := types.ProjectID("p1")

	first := s.NextSeq(p, agentcli.Claude)
	second := s.NextSeq(p, agentcli.Qwen)
	if first != 1 || second != 2 {
		t.Fatalf("expected seq to be shared across agent kinds for the same project, got %d, %d", first, second)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	s := New()
	p := types.ProjectID("p1")
	s.NextSeq(p, agentcli.Claude)

	snap := s.Get(p, agentcli.Claude)
	snap.NativeSessionID = "mutated-locally"

	fresh := s.Get(p, agentcli.Claude)
	if fresh.NativeSessionID == "mutated-locally" {
		t.Fatal("Get should return an independent copy, not a shared pointer")
	}
}

func TestHydratePopulatesFromMessageStore(t *testing.T) {
	body, _ := json.Marshal(sessionInfoBody{NativeSessionID: "sess-A"})
	store := &fakeMessageStore{
		maxSeq: 7,
		latest: map[agentcli.AgentKind]*types.StoredMessage{
			agentcli.Claude: {Seq: 7, Body: body, CreatedAt: time.Now()},
		},
	}
	s := New()
	p := types.ProjectID("p1")
	if err := s.Hydrate(context.Background(), p, store); err != nil {
		t.Fatalf("Hydrate: %v", err)
	}

	sess := s.Get(p, agentcli.Claude)
	if sess.NativeSessionID != "sess-A" {
		t.Errorf("NativeSessionID = %q, want sess-A", sess.NativeSessionID)
	}
	if next := s.NextSeq(p, agentcli.Claude); next != 8 {
		t.Errorf("NextSeq after hydrate = %d, want 8", next)
	}
}

func TestForgetRemovesAllAgentsForProject(t *testing.T) {
	s := New()
	p := types.ProjectID("p1")
	s.NextSeq(p, agentcli.Claude)
	s.NextSeq(p, agentcli.Qwen)

	s.Forget(p)

	if sess := s.Get(p, agentcli.Claude); sess.Seq != 0 {
		t.Errorf("expected session forgotten, got seq %d", sess.Seq)
	}
}
