package hub

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/user/agentcore/internal/adapter"
	"github.com/user/agentcore/internal/types"
)

// Server is the Hub's HTTP entry point: the WebSocket upgrade endpoint plus
// the teacher's webhook.Server-style plain-JSON debug endpoints, directly
// adapted from internal/webhook/server.go.
type Server struct {
	hub      *Hub
	registry *adapter.Registry
	projects types.ProjectStore
	messages types.MessageStore
	mux      *http.ServeMux

	upgrader websocket.Upgrader
}

func NewServer(h *Hub, registry *adapter.Registry, projects types.ProjectStore, messages types.MessageStore) *Server {
	s := &Server{
		hub:      h,
		registry: registry,
		projects: projects,
		messages: messages,
		mux:      http.NewServeMux(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The project's own auth boundary lives outside this core
			// (spec §1 "Out of scope: authentication"); the hub trusts
			// its caller to have already authorized the connection.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /ws/", s.handleWebSocket)
	s.mux.HandleFunc("GET /api/sessions", s.handleAPISessions)
	s.mux.HandleFunc("GET /api/sessions/", s.handleAPISessionEvents)
	s.mux.HandleFunc("GET /api/agents", s.handleAPIAgents)
	s.mux.HandleFunc("GET /api/projects", s.handleAPIProjects)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// handleWebSocket upgrades GET /ws/{project_id}[?from_seq=N] to a
// persistent connection and joins the Hub.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	projectID := types.ProjectID(strings.TrimPrefix(r.URL.Path, "/ws/"))
	if projectID == "" {
		http.Error(w, `{"error":"project id required"}`, http.StatusBadRequest)
		return
	}
	if _, err := s.projects.Get(r.Context(), projectID); err != nil {
		ws, upErr := s.upgrader.Upgrade(w, r, nil)
		if upErr != nil {
			return
		}
		_ = ws.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(CloseProjectUnknown, "project_unknown"))
		_ = ws.Close()
		return
	}

	afterSeq := int64(-1)
	if q := r.URL.Query().Get("from_seq"); q != "" {
		if n, err := strconv.ParseInt(q, 10, 64); err == nil {
			afterSeq = n
		}
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "project", projectID, "error", err)
		return
	}

	subID := r.RemoteAddr + "-" + strconv.FormatInt(int64(len(r.URL.Path)), 10)
	sub, err := s.hub.Join(r.Context(), projectID, subID, afterSeq)
	if err != nil {
		slog.Error("hub join failed", "project", projectID, "error", err)
		_ = ws.Close()
		return
	}

	conn := newConnection(ws, s.hub, projectID, sub)
	conn.serve()
}

type sessionSummary struct {
	Agent           string `json:"agent"`
	NativeSessionID string `json:"native_session_id"`
	LastModel       string `json:"last_model"`
	Seq             int64  `json:"seq"`
}

func (s *Server) handleAPISessions(w http.ResponseWriter, r *http.Request) {
	projectID := types.ProjectID(r.URL.Query().Get("project_id"))
	if projectID == "" {
		http.Error(w, `{"error":"project_id query parameter required"}`, http.StatusBadRequest)
		return
	}
	latest, err := s.messages.LatestSessionInfo(r.Context(), projectID)
	if err != nil {
		slog.Error("list sessions failed", "project", projectID, "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}

	result := make([]sessionSummary, 0, len(latest))
	for agent, msg := range latest {
		result = append(result, sessionSummary{Agent: string(agent), Seq: msg.Seq})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(result)
}

func (s *Server) handleAPISessionEvents(w http.ResponseWriter, r *http.Request) {
	projectID := types.ProjectID(strings.TrimPrefix(r.URL.Path, "/api/sessions/"))
	projectID = types.ProjectID(strings.TrimSuffix(string(projectID), "/events"))
	if projectID == "" {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return
	}

	limit := 200
	if q := r.URL.Query().Get("limit"); q != "" {
		if n, err := strconv.Atoi(q); err == nil && n > 0 {
			limit = n
		}
	}

	msgs, err := s.messages.Tail(r.Context(), projectID, limit)
	if err != nil {
		slog.Error("tail events failed", "project", projectID, "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}

	envelopes := make([]Envelope, 0, len(msgs))
	for _, msg := range msgs {
		ev, err := decodeStoredEvent(msg)
		if err != nil {
			continue
		}
		envelopes = append(envelopes, toEnvelope(ev))
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(envelopes)
}

func (s *Server) handleAPIAgents(w http.ResponseWriter, r *http.Request) {
	snapshot := s.registry.AvailabilitySnapshot(r.Context())
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(snapshot)
}

// handleAPIProjects reports project ids with persisted messages,
// most-recently-active first. Used by cmd/orchestrator-tui to pick a
// default project to tail on startup.
func (s *Server) handleAPIProjects(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if q := r.URL.Query().Get("limit"); q != "" {
		if n, err := strconv.Atoi(q); err == nil && n > 0 {
			limit = n
		}
	}
	projects, err := s.messages.RecentProjects(r.Context(), limit)
	if err != nil {
		slog.Error("list recent projects failed", "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(projects)
}
