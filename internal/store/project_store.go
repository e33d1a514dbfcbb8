package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/user/agentcore/internal/types"
	"github.com/user/agentcore/pkg/agentcli"
)

// projectRecord is the on-disk shape of one project file. It mirrors
// types.Project field-for-field; kept distinct so the JSON tags don't leak
// onto the in-memory type.
type projectRecord struct {
	ID             string             `json:"id"`
	Workspace      string             `json:"workspace"`
	PreferredAgent agentcli.AgentKind `json:"preferred_agent"`
	PreferredModel agentcli.ModelId   `json:"preferred_model,omitempty"`
}

// FileProjectStore is a read-mostly, file-backed types.ProjectStore: one
// JSON file per project under root/<id>.json. Grounded on the teacher's
// internal/state.ArtifactStore atomic-write-via-temp-then-rename idiom.
type FileProjectStore struct {
	root string
}

// NewFileProjectStore returns a store rooted at dir (created on first
// write if missing).
func NewFileProjectStore(dir string) *FileProjectStore {
	return &FileProjectStore{root: dir}
}

func (f *FileProjectStore) path(id types.ProjectID) string {
	return filepath.Join(f.root, string(id)+".json")
}

// Get implements types.ProjectStore.
func (f *FileProjectStore) Get(_ context.Context, id types.ProjectID) (*types.Project, error) {
	data, err := os.ReadFile(f.path(id))
	if err != nil {
		return nil, fmt.Errorf("project not found: %s: %w", id, err)
	}
	var rec projectRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal project %s: %w", id, err)
	}
	return &types.Project{
		ID:             types.ProjectID(rec.ID),
		Workspace:      rec.Workspace,
		PreferredAgent: rec.PreferredAgent,
		PreferredModel: rec.PreferredModel,
	}, nil
}

// Put creates or overwrites a project record. Projects are registered out
// of band; no command or endpoint of this repository calls Put, and the
// core itself only ever calls Get.
func (f *FileProjectStore) Put(_ context.Context, p *types.Project) error {
	if err := os.MkdirAll(f.root, 0755); err != nil {
		return fmt.Errorf("create project store directory: %w", err)
	}
	rec := projectRecord{
		ID:             string(p.ID),
		Workspace:      p.Workspace,
		PreferredAgent: p.PreferredAgent,
		PreferredModel: p.PreferredModel,
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal project: %w", err)
	}
	data = append(data, '\n')

	target := f.path(p.ID)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write temp project file: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename project file: %w", err)
	}
	return nil
}

// List returns every registered project.
func (f *FileProjectStore) List(_ context.Context) ([]*types.Project, error) {
	entries, err := os.ReadDir(f.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list projects: %w", err)
	}

	var out []*types.Project
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		id := types.ProjectID(entry.Name()[:len(entry.Name())-len(".json")])
		p, err := f.Get(context.Background(), id)
		if err != nil {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}
