package mapping

// schema creates the projects and issues tables plus the indexes named in
// spec.md §6, grounded directly on the teacher's internal/storage/sqlite
// table-per-entity style (see internal/storage/sqlite/issues.go's column
// list, which this adapts to the cross-system Issue shape of spec.md §3).
const schema = `
PRAGMA journal_mode=WAL;
PRAGMA foreign_keys=ON;

CREATE TABLE IF NOT EXISTS projects (
	identifier            TEXT PRIMARY KEY,
	name                  TEXT NOT NULL,
	repo_path             TEXT NOT NULL DEFAULT '',
	v_project_id          TEXT NOT NULL DEFAULT '',
	agent_memory_endpoint TEXT NOT NULL DEFAULT '',
	last_sync_at          TIMESTAMP
);

CREATE TABLE IF NOT EXISTS issues (
	project          TEXT NOT NULL REFERENCES projects(identifier),
	h_identifier     TEXT NOT NULL,
	title            TEXT NOT NULL DEFAULT '',
	description      TEXT NOT NULL DEFAULT '',
	status           TEXT NOT NULL DEFAULT 'open',
	priority         INTEGER NOT NULL DEFAULT 2,

	h_id             TEXT NOT NULL DEFAULT '',
	v_task_id        TEXT NOT NULL DEFAULT '',
	b_issue_id       TEXT NOT NULL DEFAULT '',

	h_status         TEXT NOT NULL DEFAULT '',
	v_status         TEXT NOT NULL DEFAULT '',
	b_status         TEXT NOT NULL DEFAULT '',

	h_modified_at    TIMESTAMP,
	v_modified_at    TIMESTAMP,
	b_modified_at    TIMESTAMP,

	parent_h_id      TEXT NOT NULL DEFAULT '',
	parent_v_id      TEXT NOT NULL DEFAULT '',
	parent_b_id      TEXT NOT NULL DEFAULT '',

	sub_issue_count  INTEGER NOT NULL DEFAULT 0,

	deleted_from_v   INTEGER NOT NULL DEFAULT 0,
	deleted_from_b   INTEGER NOT NULL DEFAULT 0,
	tombstoned_at    TIMESTAMP,

	close_reason     TEXT NOT NULL DEFAULT '',
	duplicate_of     TEXT NOT NULL DEFAULT '',

	PRIMARY KEY (project, h_identifier)
);

CREATE INDEX IF NOT EXISTS idx_issues_project ON issues(project);
CREATE INDEX IF NOT EXISTS idx_issues_b_issue_id ON issues(b_issue_id);
CREATE INDEX IF NOT EXISTS idx_issues_v_task_id ON issues(v_task_id);
CREATE INDEX IF NOT EXISTS idx_issues_title ON issues(project, title);
`
