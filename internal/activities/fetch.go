package activities

import (
	"context"
	"time"

	"github.com/oculairmedia/hvbsync/internal/clients"
)

// projectsCacheTTL matches spec §4.7 step 1's "~30s-cached" note on
// fetchProjects.
const projectsCacheTTL = 30 * time.Second

// FetchProjects returns the list of H projects, serving from a 30s cache
// when fresh (spec §4.7 step 1).
func (s *Service) FetchProjects(ctx context.Context) ([]clients.TrackerIssue, error) {
	s.projectsMu.Lock()
	defer s.projectsMu.Unlock()

	if s.projectsCache != nil && time.Since(s.projectsCacheAt) < projectsCacheTTL {
		return s.projectsCache, nil
	}

	projects, err := s.H.ListProjects(ctx)
	if err != nil {
		return nil, fatalf("fetchProjects", err)
	}
	s.projectsCache = projects
	s.projectsCacheAt = time.Now()
	return projects, nil
}

// FetchBulkIssues fetches changed issues for a cohort of projects in one
// call (spec §4.7 step 2), requesting only the fields the orchestration
// needs.
func (s *Service) FetchBulkIssues(ctx context.Context, projects []string, since *time.Time) (map[string][]clients.TrackerIssue, error) {
	return s.H.BulkListIssues(ctx, clients.BulkFetchOptions{
		Projects: projects,
		Since:    since,
		Fields:   []string{"identifier", "title", "status", "priority", "modifiedOn", "parentIssue"},
	})
}
