package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/user/agentcore/internal/types"
	"github.com/user/agentcore/pkg/agentcli"
)

// FilePromptLoader reads the raw markdown system prompt for a project+agent
// from <root>/<project-id>/<agent-kind>.md, falling back to
// <root>/<project-id>/default.md when an agent-specific file is absent.
// The core never parses this content (spec §6); it is handed verbatim to
// Adapter.Initialize.
type FilePromptLoader struct {
	root string
}

func NewFilePromptLoader(dir string) *FilePromptLoader {
	return &FilePromptLoader{root: dir}
}

// Load implements types.PromptLoader.
func (f *FilePromptLoader) Load(_ context.Context, project types.ProjectID, agent agentcli.AgentKind) (string, error) {
	specific := filepath.Join(f.root, string(project), string(agent)+".md")
	if data, err := os.ReadFile(specific); err == nil {
		return string(data), nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("read prompt %s: %w", specific, err)
	}

	fallback := filepath.Join(f.root, string(project), "default.md")
	data, err := os.ReadFile(fallback)
	if err != nil {
		if os.IsNotExist(err) {
			// No prompt configured for this project is a valid state --
			// the orchestrator calls Initialize with an empty string.
			return "", nil
		}
		return "", fmt.Errorf("read prompt %s: %w", fallback, err)
	}
	return string(data), nil
}
