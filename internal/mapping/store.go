// Package mapping implements the identity/mapping store (C4): the sole
// source of truth for "do A and B refer to the same logical issue?". It is
// the only shared mutable resource in the system (spec §5); every write is
// serialized by a mutex onto a single *sql.Conn, mirroring how the teacher's
// internal/storage/sqlite package funnels mutations through one *sql.Conn.
package mapping

import (
	"context"

	"github.com/oculairmedia/hvbsync/internal/types"
)

// Store is the C4 contract. Every method is atomic; readers see a consistent
// snapshot of a single row (spec §4.2).
type Store interface {
	UpsertProject(ctx context.Context, p *types.Project) error
	GetProject(ctx context.Context, identifier string) (*types.Project, error)

	GetIssue(ctx context.Context, project, hIdentifier string) (*types.Issue, error)
	// UpsertIssue sets cross-IDs, per-source timestamps, and parents. Fields
	// left at their zero value in issue are NOT cleared on an existing row;
	// only explicitly-set fields (per the IssueFieldMask) are applied, and
	// per-source modified_at is clamped to monotonic (invariant 3).
	UpsertIssue(ctx context.Context, issue *types.Issue, fields IssueFieldMask) error

	MarkDeletedFromV(ctx context.Context, project, hIdentifier string) error
	MarkDeletedFromB(ctx context.Context, project, hIdentifier string) error
	HardDeleteIssue(ctx context.Context, project, hIdentifier string) error

	GetProjectIssues(ctx context.Context, project string) ([]*types.Issue, error)
	GetIssuesWithVID(ctx context.Context, project string) ([]*types.Issue, error)
	GetIssuesWithBID(ctx context.Context, project string) ([]*types.Issue, error)

	Close() error
}

// IssueFieldMask names which fields of an Issue passed to UpsertIssue should
// actually be written. The zero value writes nothing (a caller must opt in
// per field), so a partial field-diff from a syncXToY pass (spec §4.7) can't
// accidentally blank out fields it never looked at.
type IssueFieldMask struct {
	Title         bool
	Description   bool
	Status        bool
	Priority      bool
	HID           bool
	VTaskID       bool
	BIssueID      bool
	HStatus       bool
	VStatus       bool
	BStatus       bool
	HModifiedAt   bool
	VModifiedAt   bool
	BModifiedAt   bool
	ParentHID     bool
	ParentVID     bool
	ParentBID     bool
	SubIssueCount bool
	CloseReason   bool
	DuplicateOf   bool
}

// AllFields is a convenience mask for full-row upserts (e.g. first creation).
var AllFields = IssueFieldMask{
	Title: true, Description: true, Status: true, Priority: true,
	HID: true, VTaskID: true, BIssueID: true,
	HStatus: true, VStatus: true, BStatus: true,
	HModifiedAt: true, VModifiedAt: true, BModifiedAt: true,
	ParentHID: true, ParentVID: true, ParentBID: true,
	SubIssueCount: true, CloseReason: true, DuplicateOf: true,
}
