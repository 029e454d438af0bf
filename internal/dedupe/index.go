package dedupe

import (
	"context"
	"sync"
	"time"

	"github.com/oculairmedia/hvbsync/internal/mapping"
	"github.com/oculairmedia/hvbsync/internal/types"
)

// DefaultTTL matches spec.md §6's DEDUPE_CACHE_TTL_MS default.
const DefaultTTL = 15 * time.Second

// Index is the per-project derived dedupe index of spec §4.3. It is built
// from mapping.Store.GetProjectIssues and disposed at cycle end (spec §5):
// callers should construct a fresh Index per orchestration pass rather than
// holding one across cycles, beyond the TTL-based reuse Get provides.
type Index struct {
	byBID      map[string]*types.Issue
	byHID      map[string]*types.Issue
	byTitle    map[string]*types.Issue
	builtAt    time.Time
}

// Build constructs an Index for project from the mapping store.
func Build(ctx context.Context, store mapping.Store, project string) (*Index, error) {
	issues, err := store.GetProjectIssues(ctx, project)
	if err != nil {
		return nil, err
	}
	idx := &Index{
		byBID:   make(map[string]*types.Issue, len(issues)),
		byHID:   make(map[string]*types.Issue, len(issues)),
		byTitle: make(map[string]*types.Issue, len(issues)),
		builtAt: time.Now(),
	}
	for _, issue := range issues {
		if issue.BIssueID != "" {
			idx.byBID[issue.BIssueID] = issue
		}
		if issue.HIdentifier != "" {
			idx.byHID[issue.HIdentifier] = issue
		}
		idx.byTitle[Normalize(issue.Title)] = issue
	}
	return idx, nil
}

// Stale reports whether this index has outlived ttl and should be rebuilt.
func (idx *Index) Stale(ttl time.Duration) bool {
	return time.Since(idx.builtAt) > ttl
}

// ByBID returns the stored cross-ID match for a Beads issue id, without any
// network call (spec §4.3: "a positive hit returns the stored cross-ID
// without any network call").
func (idx *Index) ByBID(bID string) (*types.Issue, bool) {
	issue, ok := idx.byBID[bID]
	return issue, ok
}

// ByHIdentifier returns the stored match for a Huly identifier.
func (idx *Index) ByHIdentifier(hIdentifier string) (*types.Issue, bool) {
	issue, ok := idx.byHID[hIdentifier]
	return issue, ok
}

// ByNormalizedTitle returns the stored match for a normalized title.
func (idx *Index) ByNormalizedTitle(title string) (*types.Issue, bool) {
	issue, ok := idx.byTitle[Normalize(title)]
	return issue, ok
}

// Cache holds one TTL-bounded Index per project, guarding concurrent rebuilds
// so two goroutines racing to sync the same project don't double-query the
// mapping store (spec §6.3).
type Cache struct {
	mu    sync.Mutex
	ttl   time.Duration
	byKey map[string]*Index
}

// NewCache constructs a Cache with the given TTL (use DefaultTTL unless
// overridden by DEDUPE_CACHE_TTL_MS).
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{ttl: ttl, byKey: make(map[string]*Index)}
}

// Get returns the cached Index for project, rebuilding it from store if
// missing or stale.
func (c *Cache) Get(ctx context.Context, store mapping.Store, project string) (*Index, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if idx, ok := c.byKey[project]; ok && !idx.Stale(c.ttl) {
		return idx, nil
	}

	idx, err := Build(ctx, store, project)
	if err != nil {
		return nil, err
	}
	c.byKey[project] = idx
	return idx, nil
}

// Invalidate drops the cached index for project, forcing a rebuild on next Get.
func (c *Cache) Invalidate(project string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.byKey, project)
}
