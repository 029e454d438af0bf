package main

import (
	"context"
	"time"

	"github.com/oculairmedia/hvbsync/internal/admin"
	"github.com/oculairmedia/hvbsync/internal/workflow"
)

// instrumentedRunner wraps a workflow.Runner to record the spec §6 metrics
// around every cycle, kept at the composition root rather than inside
// internal/activities so that package has no dependency on internal/admin.
type instrumentedRunner struct {
	inner   workflow.Runner
	metrics *admin.Metrics
	status  *admin.Status
}

var _ workflow.Runner = (*instrumentedRunner)(nil)

func (r *instrumentedRunner) RunProjectCycle(ctx context.Context, project string) error {
	r.status.SetRunning(true)
	start := time.Now()
	err := r.inner.RunProjectCycle(ctx, project)
	r.metrics.SyncDurationSecs.Observe(time.Since(start).Seconds())

	outcome := "success"
	if err != nil {
		outcome = "failure"
		r.status.RecordFailure(err)
	} else {
		r.status.RecordSuccess()
	}
	r.metrics.SyncRunsTotal.WithLabelValues(outcome).Inc()
	r.metrics.ProjectsProcessed.Inc()
	return err
}

func (r *instrumentedRunner) RunPerIssue(ctx context.Context, project, issueKey string, fromSource workflow.WorkflowOrigin) error {
	err := r.inner.RunPerIssue(ctx, project, issueKey, fromSource)
	if err == nil {
		r.metrics.IssuesSynced.Inc()
	}
	return err
}
