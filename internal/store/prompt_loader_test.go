package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/user/agentcore/internal/types"
	"github.com/user/agentcore/pkg/agentcli"
)

func TestPromptLoaderAgentSpecific(t *testing.T) {
	dir := t.TempDir()
	projectDir := filepath.Join(dir, "p1")
	if err := os.MkdirAll(projectDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(projectDir, "claude.md"), []byte("you are claude"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(projectDir, "default.md"), []byte("generic prompt"), 0644); err != nil {
		t.Fatal(err)
	}

	l := NewFilePromptLoader(dir)
	got, err := l.Load(context.Background(), types.ProjectID("p1"), agentcli.Claude)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != "you are claude" {
		t.Errorf("Load = %q, want agent-specific prompt", got)
	}
}

func TestPromptLoaderFallsBackToDefault(t *testing.T) {
	dir := t.TempDir()
	projectDir := filepath.Join(dir, "p1")
	if err := os.MkdirAll(projectDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(projectDir, "default.md"), []byte("generic prompt"), 0644); err != nil {
		t.Fatal(err)
	}

	l := NewFilePromptLoader(dir)
	got, err := l.Load(context.Background(), types.ProjectID("p1"), agentcli.Qwen)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != "generic prompt" {
		t.Errorf("Load = %q, want default prompt", got)
	}
}

func TestPromptLoaderNoPromptConfigured(t *testing.T) {
	l := NewFilePromptLoader(t.TempDir())
	got, err := l.Load(context.Background(), types.ProjectID("nonexistent"), agentcli.Claude)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != "" {
		t.Errorf("Load = %q, want empty string when no prompt configured", got)
	}
}
