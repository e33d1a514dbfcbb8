// Package store holds the three persistence boundaries the core depends on
// but does not own (spec §3/§6): the Message Store, the Project Store, and
// the System-Prompt Loader.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"

	_ "modernc.org/sqlite"

	"github.com/user/agentcore/internal/types"
	"github.com/user/agentcore/pkg/agentcli"
)

// schema is hand-authored: the pack this was grounded on (joescharf-pm)
// embeds its migrations from a migrations/*.sql directory that does not
// exist on disk here, so the single messages table is created inline
// instead of via go:embed.
const schema = `
CREATE TABLE IF NOT EXISTS messages (
	id          TEXT PRIMARY KEY,
	project_id  TEXT NOT NULL,
	seq         INTEGER NOT NULL,
	request_id  TEXT NOT NULL,
	agent_kind  TEXT NOT NULL,
	role        TEXT NOT NULL,
	kind        TEXT NOT NULL,
	body        TEXT NOT NULL,
	created_at  TEXT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_messages_project_seq ON messages(project_id, seq);
CREATE INDEX IF NOT EXISTS idx_messages_project_kind ON messages(project_id, kind);
`

// SQLiteMessageStore implements types.MessageStore using modernc.org/sqlite
// (pure Go, no CGO), grounded on joescharf-pm/internal/store/sqlite.go's
// connection setup and WAL pragmas.
type SQLiteMessageStore struct {
	db *sql.DB
}

// NewSQLiteMessageStore opens (or creates) a SQLite database at dbPath and
// applies the schema.
func NewSQLiteMessageStore(dbPath string) (*SQLiteMessageStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// A single connection serializes all access through Go's pool, which
	// sidesteps SQLite's one-concurrent-writer limit entirely.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteMessageStore{db: db}, nil
}

func (s *SQLiteMessageStore) Close() error {
	return s.db.Close()
}

var entropySource = rand.New(rand.NewSource(time.Now().UnixNano()))

func newULID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(entropySource, 0)).String()
}

// Append persists msg. The caller (internal/orchestrator) has already
// assigned Seq; Append never reassigns it.
func (s *SQLiteMessageStore) Append(ctx context.Context, msg *types.StoredMessage) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (id, project_id, seq, request_id, agent_kind, role, kind, body, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		newULID(), string(msg.ProjectID), msg.Seq, string(msg.RequestID), string(msg.Agent),
		string(msg.Role), string(msg.Kind), string(msg.Body), msg.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

func (s *SQLiteMessageStore) Tail(ctx context.Context, project types.ProjectID, limit int) ([]*types.StoredMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT project_id, seq, request_id, agent_kind, role, kind, body, created_at
		FROM messages WHERE project_id = ? ORDER BY seq DESC LIMIT ?`,
		string(project), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("tail messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	msgs, err := scanMessages(rows)
	if err != nil {
		return nil, err
	}
	// Rows came back newest-first; callers expect seq-ascending order.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func (s *SQLiteMessageStore) Since(ctx context.Context, project types.ProjectID, afterSeq int64) ([]*types.StoredMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT project_id, seq, request_id, agent_kind, role, kind, body, created_at
		FROM messages WHERE project_id = ? AND seq > ? ORDER BY seq ASC`,
		string(project), afterSeq,
	)
	if err != nil {
		return nil, fmt.Errorf("since messages: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanMessages(rows)
}

// LatestSessionInfo relies on agent_kind being stamped by the orchestrator
// on every row (emit() sets it from the active run), so no parsing of the
// event body is needed to recover which agent a session_info row belongs
// to.
func (s *SQLiteMessageStore) LatestSessionInfo(ctx context.Context, project types.ProjectID) (map[agentcli.AgentKind]*types.StoredMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT project_id, seq, request_id, agent_kind, role, kind, body, created_at
		FROM messages WHERE project_id = ? AND kind = ? ORDER BY seq ASC`,
		string(project), string(agentcli.EventSessionInfo),
	)
	if err != nil {
		return nil, fmt.Errorf("latest session info: %w", err)
	}
	defer func() { _ = rows.Close() }()

	msgs, err := scanMessages(rows)
	if err != nil {
		return nil, err
	}

	// Rows are in ascending seq order, so the last assignment per agent
	// kind is the most recent session_info event.
	out := make(map[agentcli.AgentKind]*types.StoredMessage)
	for _, msg := range msgs {
		out[msg.Agent] = msg
	}
	return out, nil
}

// Clear deletes persisted rows for a project, optionally narrowed to one
// agent kind (empty agent clears every agent in the project). Not part of
// types.MessageStore -- only cmd/orchestratord's "session clear" uses it,
// the same role the teacher's os.RemoveAll(sessionDir) played for an
// on-disk session.
func (s *SQLiteMessageStore) Clear(ctx context.Context, project types.ProjectID, agent agentcli.AgentKind) error {
	if agent == "" {
		_, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE project_id = ?`, string(project))
		if err != nil {
			return fmt.Errorf("clear project %s: %w", project, err)
		}
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM messages WHERE project_id = ? AND agent_kind = ?`, string(project), string(agent))
	if err != nil {
		return fmt.Errorf("clear project %s agent %s: %w", project, agent, err)
	}
	return nil
}

// RecentProjects returns the project ids with persisted messages, ordered by
// most recent created_at, bounded by limit.
func (s *SQLiteMessageStore) RecentProjects(ctx context.Context, limit int) ([]types.ProjectID, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT project_id, MAX(created_at) AS last_seen FROM messages
		GROUP BY project_id ORDER BY last_seen DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent projects: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []types.ProjectID
	for rows.Next() {
		var projectID, lastSeen string
		if err := rows.Scan(&projectID, &lastSeen); err != nil {
			return nil, fmt.Errorf("scan recent project: %w", err)
		}
		out = append(out, types.ProjectID(projectID))
	}
	return out, rows.Err()
}

func (s *SQLiteMessageStore) MaxSeq(ctx context.Context, project types.ProjectID) (int64, error) {
	var max sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(seq) FROM messages WHERE project_id = ?`, string(project),
	).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("max seq: %w", err)
	}
	if !max.Valid {
		return 0, nil
	}
	return max.Int64, nil
}

func scanMessages(rows *sql.Rows) ([]*types.StoredMessage, error) {
	var out []*types.StoredMessage
	for rows.Next() {
		msg := &types.StoredMessage{}
		var projectID, requestID, agentKind, role, kind, body, createdAt string
		if err := rows.Scan(&projectID, &msg.Seq, &requestID, &agentKind, &role, &kind, &body, &createdAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.ProjectID = types.ProjectID(projectID)
		msg.RequestID = types.RequestID(requestID)
		msg.Agent = agentcli.AgentKind(agentKind)
		msg.Role = types.Role(role)
		msg.Kind = agentcli.EventKind(kind)
		msg.Body = json.RawMessage(body)
		ts, err := time.Parse(time.RFC3339Nano, createdAt)
		if err == nil {
			msg.CreatedAt = ts
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}
