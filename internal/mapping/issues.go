package mapping

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/oculairmedia/hvbsync/internal/types"
)

const issueSelectColumns = `
	SELECT project, h_identifier, title, description, status, priority,
		h_id, v_task_id, b_issue_id,
		h_status, v_status, b_status,
		h_modified_at, v_modified_at, b_modified_at,
		parent_h_id, parent_v_id, parent_b_id,
		sub_issue_count, deleted_from_v, deleted_from_b, tombstoned_at,
		close_reason, duplicate_of
`

// rowScanner abstracts *sql.Row and *sql.Rows for scanIssue.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanIssue(row rowScanner) (*types.Issue, error) {
	var issue types.Issue
	var hMod, vMod, bMod, tombstonedAt sql.NullTime
	var deletedFromV, deletedFromB int

	err := row.Scan(
		&issue.Project, &issue.HIdentifier, &issue.Title, &issue.Description, &issue.Status, &issue.Priority,
		&issue.HID, &issue.VTaskID, &issue.BIssueID,
		&issue.HStatus, &issue.VStatus, &issue.BStatus,
		&hMod, &vMod, &bMod,
		&issue.ParentHID, &issue.ParentVID, &issue.ParentBID,
		&issue.SubIssueCount, &deletedFromV, &deletedFromB, &tombstonedAt,
		&issue.CloseReason, &issue.DuplicateOf,
	)
	if err != nil {
		return nil, err
	}
	issue.HModifiedAt = hMod.Time
	issue.VModifiedAt = vMod.Time
	issue.BModifiedAt = bMod.Time
	issue.TombstonedAt = tombstonedAt.Time
	issue.DeletedFromV = deletedFromV != 0
	issue.DeletedFromB = deletedFromB != 0
	return &issue, nil
}

// UpsertIssue applies only the fields named in mask, clamping each per-source
// modified_at to monotonic (invariant 3: never regress on write) and never
// touching fields the caller didn't opt into (so a partial field-diff from a
// syncXToY pass can't blank out fields it never examined).
func (s *SQLiteStore) UpsertIssue(ctx context.Context, issue *types.Issue, mask IssueFieldMask) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.getIssueLocked(ctx, issue.Project, issue.HIdentifier)
	if err != nil {
		return fatalStoreErr(fmt.Sprintf("upsert issue %s/%s: load existing", issue.Project, issue.HIdentifier), err)
	}

	merged := mergeIssue(existing, issue, mask)

	_, err = s.writeConn.ExecContext(ctx, `
		INSERT INTO issues (
			project, h_identifier, title, description, status, priority,
			h_id, v_task_id, b_issue_id,
			h_status, v_status, b_status,
			h_modified_at, v_modified_at, b_modified_at,
			parent_h_id, parent_v_id, parent_b_id,
			sub_issue_count, deleted_from_v, deleted_from_b, tombstoned_at,
			close_reason, duplicate_of
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(project, h_identifier) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			status = excluded.status,
			priority = excluded.priority,
			h_id = excluded.h_id,
			v_task_id = excluded.v_task_id,
			b_issue_id = excluded.b_issue_id,
			h_status = excluded.h_status,
			v_status = excluded.v_status,
			b_status = excluded.b_status,
			h_modified_at = excluded.h_modified_at,
			v_modified_at = excluded.v_modified_at,
			b_modified_at = excluded.b_modified_at,
			parent_h_id = excluded.parent_h_id,
			parent_v_id = excluded.parent_v_id,
			parent_b_id = excluded.parent_b_id,
			sub_issue_count = excluded.sub_issue_count,
			deleted_from_v = excluded.deleted_from_v,
			deleted_from_b = excluded.deleted_from_b,
			tombstoned_at = excluded.tombstoned_at,
			close_reason = excluded.close_reason,
			duplicate_of = excluded.duplicate_of
	`,
		merged.Project, merged.HIdentifier, merged.Title, merged.Description, merged.Status, merged.Priority,
		merged.HID, merged.VTaskID, merged.BIssueID,
		merged.HStatus, merged.VStatus, merged.BStatus,
		nullableTime(merged.HModifiedAt), nullableTime(merged.VModifiedAt), nullableTime(merged.BModifiedAt),
		merged.ParentHID, merged.ParentVID, merged.ParentBID,
		merged.SubIssueCount, boolToInt(merged.DeletedFromV), boolToInt(merged.DeletedFromB), nullableTime(merged.TombstonedAt),
		merged.CloseReason, merged.DuplicateOf,
	)
	if err != nil {
		return fatalStoreErr(fmt.Sprintf("upsert issue %s/%s", issue.Project, issue.HIdentifier), err)
	}
	return nil
}

// getIssueLocked is GetIssue without acquiring s.mu (caller already holds it).
func (s *SQLiteStore) getIssueLocked(ctx context.Context, project, hIdentifier string) (*types.Issue, error) {
	row := s.writeConn.QueryRowContext(ctx, issueSelectColumns+` FROM issues WHERE project = ? AND h_identifier = ?`,
		project, hIdentifier)
	issue, err := scanIssue(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return issue, err
}

// mergeIssue applies mask-selected fields from next onto existing (or a zero
// Issue keyed by next's identity if there is no existing row), clamping the
// three modified_at fields to monotonic non-decreasing per invariant 3.
func mergeIssue(existing *types.Issue, next *types.Issue, mask IssueFieldMask) *types.Issue {
	base := existing
	if base == nil {
		base = &types.Issue{Project: next.Project, HIdentifier: next.HIdentifier}
	}
	out := *base

	if mask.Title {
		out.Title = next.Title
	}
	if mask.Description {
		out.Description = next.Description
	}
	if mask.Status {
		out.Status = next.Status
	}
	if mask.Priority {
		out.Priority = next.Priority
	}
	if mask.HID {
		out.HID = next.HID
	}
	if mask.VTaskID {
		out.VTaskID = next.VTaskID
	}
	if mask.BIssueID {
		out.BIssueID = next.BIssueID
	}
	if mask.HStatus {
		out.HStatus = next.HStatus
	}
	if mask.VStatus {
		out.VStatus = next.VStatus
	}
	if mask.BStatus {
		out.BStatus = next.BStatus
	}
	if mask.HModifiedAt {
		out.HModifiedAt = clampMonotonic(out.HModifiedAt, next.HModifiedAt)
	}
	if mask.VModifiedAt {
		out.VModifiedAt = clampMonotonic(out.VModifiedAt, next.VModifiedAt)
	}
	if mask.BModifiedAt {
		out.BModifiedAt = clampMonotonic(out.BModifiedAt, next.BModifiedAt)
	}
	if mask.ParentHID {
		out.ParentHID = next.ParentHID
	}
	if mask.ParentVID {
		out.ParentVID = next.ParentVID
	}
	if mask.ParentBID {
		out.ParentBID = next.ParentBID
	}
	if mask.SubIssueCount {
		out.SubIssueCount = next.SubIssueCount
	}
	if mask.CloseReason {
		out.CloseReason = next.CloseReason
	}
	if mask.DuplicateOf {
		out.DuplicateOf = next.DuplicateOf
	}
	return &out
}

// clampMonotonic never lets a write regress a per-source modified_at value
// (invariant 3).
func clampMonotonic(current, next time.Time) time.Time {
	if next.After(current) {
		return next
	}
	return current
}

func nullableTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
