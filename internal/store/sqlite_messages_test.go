package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/user/agentcore/internal/types"
	"github.com/user/agentcore/pkg/agentcli"
)

func newTestStore(t *testing.T) *SQLiteMessageStore {
	t.Helper()
	dir := t.TempDir()
	s, err := NewSQLiteMessageStore(filepath.Join(dir, "messages.db"))
	if err != nil {
		t.Fatalf("NewSQLiteMessageStore: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func appendMsg(t *testing.T, s *SQLiteMessageStore, project types.ProjectID, seq int64, agent agentcli.AgentKind, kind agentcli.EventKind) {
	t.Helper()
	msg := &types.StoredMessage{
		ProjectID: project,
		Seq:       seq,
		RequestID: types.RequestID("r1"),
		Agent:     agent,
		Role:      types.RoleAssistant,
		Kind:      kind,
		Body:      []byte(`{}`),
	}
	if err := s.Append(context.Background(), msg); err != nil {
		t.Fatalf("Append: %v", err)
	}
}

func TestAppendAndTail(t *testing.T) {
	s := newTestStore(t)
	project := types.ProjectID("p1")

	for i := int64(1); i <= 5; i++ {
		appendMsg(t, s, project, i, agentcli.Claude, agentcli.EventAssistantText)
	}

	got, err := s.Tail(context.Background(), project, 3)
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Tail returned %d rows, want 3", len(got))
	}
	for i, msg := range got {
		if msg.Seq != int64(3+i) {
			t.Errorf("Tail[%d].Seq = %d, want %d (ascending)", i, msg.Seq, 3+i)
		}
	}
}

func TestSinceReturnsOnlyNewer(t *testing.T) {
	s := newTestStore(t)
	project := types.ProjectID("p1")

	for i := int64(1); i <= 5; i++ {
		appendMsg(t, s, project, i, agentcli.Claude, agentcli.EventAssistantText)
	}

	got, err := s.Since(context.Background(), project, 2)
	if err != nil {
		t.Fatalf("Since: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Since(2) returned %d rows, want 3", len(got))
	}
	if got[0].Seq != 3 {
		t.Errorf("Since(2)[0].Seq = %d, want 3", got[0].Seq)
	}
}

func TestMaxSeqEmptyProject(t *testing.T) {
	s := newTestStore(t)
	max, err := s.MaxSeq(context.Background(), types.ProjectID("nobody"))
	if err != nil {
		t.Fatalf("MaxSeq: %v", err)
	}
	if max != 0 {
		t.Errorf("MaxSeq = %d, want 0", max)
	}
}

func TestLatestSessionInfoPerAgent(t *testing.T) {
	s := newTestStore(t)
	project := types.ProjectID("p1")

	appendMsg(t, s, project, 1, agentcli.Claude, agentcli.EventSessionInfo)
	appendMsg(t, s, project, 2, agentcli.Qwen, agentcli.EventSessionInfo)
	appendMsg(t, s, project, 3, agentcli.Claude, agentcli.EventSessionInfo)
	appendMsg(t, s, project, 4, agentcli.Claude, agentcli.EventAssistantText)

	latest, err := s.LatestSessionInfo(context.Background(), project)
	if err != nil {
		t.Fatalf("LatestSessionInfo: %v", err)
	}
	if len(latest) != 2 {
		t.Fatalf("len(latest) = %d, want 2", len(latest))
	}
	if latest[agentcli.Claude].Seq != 3 {
		t.Errorf("latest[claude].Seq = %d, want 3 (most recent)", latest[agentcli.Claude].Seq)
	}
	if latest[agentcli.Qwen].Seq != 2 {
		t.Errorf("latest[qwen].Seq = %d, want 2", latest[agentcli.Qwen].Seq)
	}
}

func TestProjectIsolation(t *testing.T) {
	s := newTestStore(t)
	appendMsg(t, s, types.ProjectID("p1"), 1, agentcli.Claude, agentcli.EventAssistantText)
	appendMsg(t, s, types.ProjectID("p2"), 1, agentcli.Claude, agentcli.EventAssistantText)

	got, err := s.Tail(context.Background(), types.ProjectID("p1"), 10)
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Tail(p1) returned %d rows, want 1", len(got))
	}
}
