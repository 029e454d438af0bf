// Package types holds the data model shared across the sync engine:
// projects, issues, the cross-system identity graph, and the ephemeral
// event/workflow shapes that flow through the pipeline.
package types

import "time"

// Status is the normalized status vocabulary used internally. Each client
// translates its source system's native status into one of these values
// (internal/statusmap) before the mapping store or conflict rules ever see it.
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusBlocked    Status = "blocked"
	StatusDeferred   Status = "deferred"
	StatusClosed     Status = "closed"
	StatusReview     Status = "review"
)

// Priority is the normalized priority vocabulary, 0 (highest) to 4 (lowest),
// matching the numeric scale the teacher's Jira field mapper already uses.
type Priority int

const (
	PriorityHighest Priority = 0
	PriorityHigh    Priority = 1
	PriorityMedium  Priority = 2
	PriorityLow     Priority = 3
	PriorityLowest  Priority = 4
)

// Source identifies which of the three systems a timestamp, status
// observation, or cross-ID belongs to.
type Source string

const (
	SourceH Source = "h" // Huly
	SourceV Source = "v" // Vibe Kanban
	SourceB Source = "b" // Beads
)

// Project is a logical grouping keyed by its short uppercase Huly tag.
type Project struct {
	Identifier string // e.g. "PROJ"
	Name       string
	// RepoPath is the filesystem path to the git worktree enabling System B
	// sync for this project, or "" if none is configured.
	RepoPath string
	// VProjectID is the Vibe Kanban project UUID this project is linked to,
	// or "" if System V sync is disabled for this project.
	VProjectID string
	// AgentMemoryEndpoint is the out-of-scope agent-memory sidecar URL that
	// receives board snapshots (C8 step 5). The core never speaks the
	// sidecar's protocol beyond POSTing the snapshot payload.
	AgentMemoryEndpoint *string
	LastSyncAt          time.Time
}

// Issue is a logical issue, keyed by (Project, HIdentifier). Only HIdentifier
// is guaranteed non-empty; the cross-IDs for V and B are populated once a
// counterpart has been created or matched on that side.
type Issue struct {
	Project     string
	HIdentifier string // e.g. "PROJ-123", primary key component

	Title       string
	Description string
	Status      Status
	Priority    Priority

	// Cross-system identifiers. Empty string means "not present on that side".
	HID       string
	VTaskID   string
	BIssueID  string

	// Per-source last-observed status, used by the closed-wins and
	// last-writer-wins conflict rules (§4.8).
	HStatus Status
	VStatus Status
	BStatus Status

	// Per-source modified timestamps. Monotonic per source: upsert_issue
	// clamps these to never regress (invariant 3).
	HModifiedAt time.Time
	VModifiedAt time.Time
	BModifiedAt time.Time

	// Parent cross-IDs, one per side. Either empty or referencing another
	// Issue row's cross-ID on the same side (invariant 5).
	ParentHID string
	ParentVID string
	ParentBID string

	SubIssueCount int

	// Tombstones: sticky flags set when a counterpart disappears from a
	// source. See invariant 4 and the Tombstones conflict rule (§4.8.6).
	DeletedFromV bool
	DeletedFromB bool
	// TombstonedAt records when the tombstone was set, used to enforce the
	// "at least one full orchestration cycle" grace period (invariant 4).
	TombstonedAt time.Time

	// CloseReason and DuplicateOf supplement the distilled spec. The mapping
	// store persists and returns them; no sync path in this module sets
	// DuplicateOf, and duplicate rows are not collapsed onto one another.
	CloseReason string
	DuplicateOf string
}

// NormalizedTitle is computed by internal/dedupe, not stored redundantly;
// callers needing it should call dedupe.Normalize(issue.Title).

// EventKind is the kind of change a SyncEvent reports.
type EventKind string

const (
	EventCreate EventKind = "create"
	EventUpdate EventKind = "update"
	EventDelete EventKind = "delete"
)

// EventSource identifies which intake path produced a SyncEvent.
type EventSource string

const (
	EventSourceTick    EventSource = "tick"
	EventSourceWebhook EventSource = "webhook"
	EventSourceSSE     EventSource = "sse"
	EventSourceFile    EventSource = "file"
	EventSourceManual  EventSource = "manual"
)

// SyncEvent is ephemeral and never persisted; it only drives dispatch.
type SyncEvent struct {
	Source            EventSource
	ProjectIdentifier string // optional
	IssueKey          string // optional
	Kind              EventKind
	ReceivedAt        time.Time
	// CorrelationID ties this event to the orchestration(s) it triggers, for
	// tracing across the pipeline (§4.4).
	CorrelationID string
}

// EventPatchOp is the JSON Patch-style operation carried by Vibe's SSE stream.
type EventPatchOp string

const (
	PatchOpAdd     EventPatchOp = "add"
	PatchOpReplace EventPatchOp = "replace"
	PatchOpRemove  EventPatchOp = "remove"
)

// EventPatchRecordType is the inner record type of an SSE EventPatch.
type EventPatchRecordType string

const (
	RecordTypeTask            EventPatchRecordType = "TASK"
	RecordTypeTaskAttempt     EventPatchRecordType = "TASK_ATTEMPT"
	RecordTypeExecutionProc   EventPatchRecordType = "EXECUTION_PROCESS"
	RecordTypeDeletedTask     EventPatchRecordType = "DELETED_TASK"
)

// EventPatch is one event on Vibe Kanban's SSE stream.
type EventPatch struct {
	Op         EventPatchOp
	Path       string
	RecordType EventPatchRecordType
	Value      map[string]interface{}
}

// ReviewRequest is an ephemeral handoff to the admin surface (C10) when an
// issue enters a named "needs review" status.
type ReviewRequest struct {
	Project     string
	HIdentifier string
	Status      Status
	Reason      string
	CreatedAt   time.Time
}

// ReviewSink receives ReviewRequests as C8 notices issues entering
// StatusReview, decoupling the activity layer from whatever C10 surface
// ends up exposing them (spec §3's "ephemeral handoff to C10").
type ReviewSink interface {
	Record(ReviewRequest)
}

// WorkflowState is the lifecycle state of a durable WorkflowExecution (C7).
type WorkflowState string

const (
	WorkflowStateRunning   WorkflowState = "running"
	WorkflowStatePaused    WorkflowState = "paused"
	WorkflowStateCompleted WorkflowState = "completed"
	WorkflowStateFailed    WorkflowState = "failed"
	WorkflowStateCanceled  WorkflowState = "canceled"
)

// IssueSyncState is the transient, per-cycle per-issue state machine of §4.9.
type IssueSyncState string

const (
	IssueStateObserved IssueSyncState = "observed"
	IssueStateMatched  IssueSyncState = "matched"
	IssueStatePlanned  IssueSyncState = "planned"
	IssueStateApplied  IssueSyncState = "applied"
	IssueStatePersisted IssueSyncState = "persisted"
	IssueStateDone     IssueSyncState = "done"
	IssueStateFailed   IssueSyncState = "failed"
)
