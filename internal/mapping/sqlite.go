package mapping

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // cgo-free driver, same family the teacher's fork uses

	"github.com/oculairmedia/hvbsync/internal/types"
)

// fatalStoreErr classifies a mapping-store I/O failure as Fatal (spec §7's
// canonical example: "mapping store corruption, disk full"). Every read or
// write against the underlying *sql.DB/*sql.Conn can fail this way, and
// none of them are something a retry or a per-issue warning can recover
// from, so they all fail the whole cycle via types.IsFatal.
func fatalStoreErr(op string, err error) error {
	return types.NewTrackerError(types.ErrKindFatal, op, err)
}

// SQLiteStore is the embedded, transactional, single-writer mapping store
// (C4). All writes funnel through one *sql.Conn (writeConn, guarded by mu), as
// the teacher's internal/storage/sqlite package does with its db.Conn()
// wrapper — the point is a consistent snapshot per row, not raw throughput.
type SQLiteStore struct {
	db *sql.DB

	mu      sync.Mutex // serializes writes onto writeConn
	writeConn *sql.Conn
	path    string
}

// Open creates (if necessary) and opens the mapping store database at path,
// applying the schema in schema.go. WAL mode matches spec.md §6.
func Open(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fatalStoreErr("open mapping store "+path, err)
	}
	db.SetMaxOpenConns(8)

	conn, err := db.Conn(ctx)
	if err != nil {
		_ = db.Close()
		return nil, fatalStoreErr("acquire write connection", err)
	}

	if _, err := conn.ExecContext(ctx, schema); err != nil {
		_ = conn.Close()
		_ = db.Close()
		return nil, fatalStoreErr("apply schema", err)
	}

	return &SQLiteStore{db: db, writeConn: conn, path: path}, nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeConn.Close(); err != nil {
		return err
	}
	return s.db.Close()
}

func (s *SQLiteStore) UpsertProject(ctx context.Context, p *types.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	agentEndpoint := ""
	if p.AgentMemoryEndpoint != nil {
		agentEndpoint = *p.AgentMemoryEndpoint
	}

	_, err := s.writeConn.ExecContext(ctx, `
		INSERT INTO projects (identifier, name, repo_path, v_project_id, agent_memory_endpoint, last_sync_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(identifier) DO UPDATE SET
			name = excluded.name,
			repo_path = CASE WHEN excluded.repo_path != '' THEN excluded.repo_path ELSE projects.repo_path END,
			v_project_id = CASE WHEN excluded.v_project_id != '' THEN excluded.v_project_id ELSE projects.v_project_id END,
			agent_memory_endpoint = CASE WHEN excluded.agent_memory_endpoint != '' THEN excluded.agent_memory_endpoint ELSE projects.agent_memory_endpoint END,
			last_sync_at = excluded.last_sync_at
	`, p.Identifier, p.Name, p.RepoPath, p.VProjectID, agentEndpoint, p.LastSyncAt)
	if err != nil {
		return fatalStoreErr(fmt.Sprintf("upsert project %s", p.Identifier), err)
	}
	return nil
}

func (s *SQLiteStore) GetProject(ctx context.Context, identifier string) (*types.Project, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT identifier, name, repo_path, v_project_id, agent_memory_endpoint, last_sync_at
		FROM projects WHERE identifier = ?
	`, identifier)

	var p types.Project
	var agentEndpoint string
	var lastSync sql.NullTime
	if err := row.Scan(&p.Identifier, &p.Name, &p.RepoPath, &p.VProjectID, &agentEndpoint, &lastSync); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fatalStoreErr(fmt.Sprintf("get project %s", identifier), err)
	}
	if agentEndpoint != "" {
		p.AgentMemoryEndpoint = &agentEndpoint
	}
	if lastSync.Valid {
		p.LastSyncAt = lastSync.Time
	}
	return &p, nil
}

func (s *SQLiteStore) GetIssue(ctx context.Context, project, hIdentifier string) (*types.Issue, error) {
	row := s.db.QueryRowContext(ctx, issueSelectColumns+` FROM issues WHERE project = ? AND h_identifier = ?`,
		project, hIdentifier)
	issue, err := scanIssue(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fatalStoreErr(fmt.Sprintf("get issue %s/%s", project, hIdentifier), err)
	}
	return issue, nil
}

func (s *SQLiteStore) GetProjectIssues(ctx context.Context, project string) ([]*types.Issue, error) {
	return s.queryIssues(ctx, `WHERE project = ?`, project)
}

func (s *SQLiteStore) GetIssuesWithVID(ctx context.Context, project string) ([]*types.Issue, error) {
	return s.queryIssues(ctx, `WHERE project = ? AND v_task_id != ''`, project)
}

func (s *SQLiteStore) GetIssuesWithBID(ctx context.Context, project string) ([]*types.Issue, error) {
	return s.queryIssues(ctx, `WHERE project = ? AND b_issue_id != ''`, project)
}

func (s *SQLiteStore) queryIssues(ctx context.Context, where string, args ...interface{}) ([]*types.Issue, error) {
	rows, err := s.db.QueryContext(ctx, issueSelectColumns+` FROM issues `+where, args...)
	if err != nil {
		return nil, fatalStoreErr("query issues", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*types.Issue
	for rows.Next() {
		issue, err := scanIssue(rows)
		if err != nil {
			return nil, fatalStoreErr("scan issue row", err)
		}
		out = append(out, issue)
	}
	if err := rows.Err(); err != nil {
		return nil, fatalStoreErr("iterate issue rows", err)
	}
	return out, nil
}

func (s *SQLiteStore) MarkDeletedFromV(ctx context.Context, project, hIdentifier string) error {
	return s.markDeleted(ctx, project, hIdentifier, "deleted_from_v")
}

func (s *SQLiteStore) MarkDeletedFromB(ctx context.Context, project, hIdentifier string) error {
	return s.markDeleted(ctx, project, hIdentifier, "deleted_from_b")
}

func (s *SQLiteStore) markDeleted(ctx context.Context, project, hIdentifier, column string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.writeConn.ExecContext(ctx, fmt.Sprintf(`
		UPDATE issues SET %s = 1, tombstoned_at = ?
		WHERE project = ? AND h_identifier = ?
	`, column), time.Now().UTC(), project, hIdentifier)
	if err != nil {
		return fatalStoreErr(fmt.Sprintf("mark deleted (%s) %s/%s", column, project, hIdentifier), err)
	}
	return nil
}

func (s *SQLiteStore) HardDeleteIssue(ctx context.Context, project, hIdentifier string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.writeConn.ExecContext(ctx, `
		DELETE FROM issues WHERE project = ? AND h_identifier = ?
	`, project, hIdentifier)
	if err != nil {
		return fatalStoreErr(fmt.Sprintf("hard delete issue %s/%s", project, hIdentifier), err)
	}
	return nil
}

// Path returns the database file path, used by health checks (C10).
func (s *SQLiteStore) Path() string { return s.path }

// UnderlyingDB exposes the read-pool *sql.DB for health/integrity checks
// (PRAGMA quick_check), mirroring the teacher's store.UnderlyingDB() used in
// cmd/bd/daemon_event_loop.go's checkDaemonHealth.
func (s *SQLiteStore) UnderlyingDB() *sql.DB { return s.db }
