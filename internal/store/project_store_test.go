package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/user/agentcore/internal/types"
	"github.com/user/agentcore/pkg/agentcli"
)

func TestProjectStorePutGet(t *testing.T) {
	dir := t.TempDir()
	s := NewFileProjectStore(dir)

	p := &types.Project{
		ID:             types.ProjectID("p1"),
		Workspace:      "/home/user/projects/p1",
		PreferredAgent: agentcli.Claude,
		PreferredModel: agentcli.ModelId("claude-sonnet-4.5"),
	}
	if err := s.Put(context.Background(), p); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := s.Get(context.Background(), "p1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Workspace != p.Workspace || got.PreferredAgent != p.PreferredAgent {
		t.Errorf("Get returned %+v, want %+v", got, p)
	}
}

func TestProjectStoreGetMissing(t *testing.T) {
	s := NewFileProjectStore(t.TempDir())
	if _, err := s.Get(context.Background(), "nope"); err == nil {
		t.Fatal("expected error for missing project")
	}
}

func TestProjectStorePutIsAtomic(t *testing.T) {
	dir := t.TempDir()
	s := NewFileProjectStore(dir)
	p := &types.Project{ID: "p1", Workspace: "/tmp/p1"}
	if err := s.Put(context.Background(), p); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "p1.json.tmp")); !os.IsNotExist(err) {
		t.Error("temp file should not remain after successful Put")
	}
}

func TestProjectStoreList(t *testing.T) {
	dir := t.TempDir()
	s := NewFileProjectStore(dir)
	_ = s.Put(context.Background(), &types.Project{ID: "p1", Workspace: "/tmp/p1"})
	_ = s.Put(context.Background(), &types.Project{ID: "p2", Workspace: "/tmp/p2"})

	got, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("List returned %d projects, want 2", len(got))
	}
}
