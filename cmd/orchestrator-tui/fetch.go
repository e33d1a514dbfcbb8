package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/user/agentcore/pkg/agentcli"
)

// fetchTimeout bounds every HTTP round trip to the daemon.
const fetchTimeout = 5 * time.Second

// fetchAgents polls GET /api/agents for the cached availability snapshot.
func fetchAgents(ctx context.Context, addr string) (map[agentcli.AgentKind]agentcli.Availability, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr+"/api/agents", nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch agents: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch agents: status %d", resp.StatusCode)
	}

	var snapshot map[agentcli.AgentKind]agentcli.Availability
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		return nil, fmt.Errorf("decode agents response: %w", err)
	}
	return snapshot, nil
}

// fetchRecentProjects polls GET /api/projects for the most recently active
// project ids, used to pick a default project to tail when none is given.
func fetchRecentProjects(ctx context.Context, addr string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr+"/api/projects?limit=5", nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch recent projects: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch recent projects: status %d", resp.StatusCode)
	}

	var projects []string
	if err := json.NewDecoder(resp.Body).Decode(&projects); err != nil {
		return nil, fmt.Errorf("decode projects response: %w", err)
	}
	return projects, nil
}
