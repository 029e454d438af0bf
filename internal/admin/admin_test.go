package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/oculairmedia/hvbsync/internal/config"
	"github.com/oculairmedia/hvbsync/internal/events"
	"github.com/oculairmedia/hvbsync/internal/types"
	"github.com/oculairmedia/hvbsync/internal/workflow"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	active := config.NewActive(&config.Config{SyncIntervalMS: 30000})
	bus := events.NewBus(8)
	manual := &events.ManualSource{Bus: bus}
	webhook := &events.WebhookSource{Bus: bus}
	status := &Status{}
	return NewServer(active, status, manual, webhook, bus, reg, metrics, nil)
}

func TestHealthReportsOKBeforeAnyCycle(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body Health
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "ok", body.Status)
}

func TestHealthReportsStaleAfterOldCycle(t *testing.T) {
	srv := newTestServer(t)
	srv.Active.Swap(&config.Config{SyncIntervalMS: 1})
	srv.Status.lastSyncTime = srv.startedAt.Add(-time.Hour)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpointServesPrometheusFormat(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "hvbsync_sync_runs_total")
}

func TestConfigGetAndPutRoundTrip(t *testing.T) {
	srv := newTestServer(t)

	getReq := httptest.NewRequest(http.MethodGet, "/api/config", nil)
	getRec := httptest.NewRecorder()
	srv.Router().ServeHTTP(getRec, getReq)
	require.Equal(t, http.StatusOK, getRec.Code)

	putBody := `{"BatchSize": 50, "DryRun": true}`
	putReq := httptest.NewRequest(http.MethodPut, "/api/config", strings.NewReader(putBody))
	putRec := httptest.NewRecorder()
	srv.Router().ServeHTTP(putRec, putReq)
	require.Equal(t, http.StatusNoContent, putRec.Code)

	require.Equal(t, 50, srv.Active.Get().BatchSize)
	require.True(t, srv.Active.Get().DryRun)
}

func TestConfigPutSignalsRootOrchestrationReload(t *testing.T) {
	srv := newTestServer(t)

	cycles := make(chan workflow.Cursor, 16)
	root := workflow.NewRootOrchestration(func(ctx context.Context, cursor workflow.Cursor) (workflow.Cursor, error) {
		cycles <- cursor
		return cursor, nil
	}, 5*time.Millisecond)
	srv.Root = root

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		_ = root.Run(ctx, workflow.Cursor{})
		close(done)
	}()

	select {
	case first := <-cycles:
		require.Equal(t, 0, first.ConfigVersion)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for first cycle")
	}

	putReq := httptest.NewRequest(http.MethodPut, "/api/config", strings.NewReader(`{"BatchSize": 10}`))
	putRec := httptest.NewRecorder()
	srv.Router().ServeHTTP(putRec, putReq)
	require.Equal(t, http.StatusNoContent, putRec.Code)

	require.Eventually(t, func() bool {
		select {
		case c := <-cycles:
			return c.ConfigVersion == 1
		default:
			return false
		}
	}, time.Second, time.Millisecond, "reload signal should bump the cursor's config version on the next cycle")

	cancel()
	<-done
}

func TestSyncTriggerRejectsWhenAlreadyRunning(t *testing.T) {
	srv := newTestServer(t)
	srv.Status.SetRunning(true)

	req := httptest.NewRequest(http.MethodPost, "/api/sync/trigger", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestSyncTriggerAcceptsAndPublishesEvent(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/sync/trigger", strings.NewReader(`{"project":"PROJ"}`))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)

	select {
	case ev := <-srv.Bus.Events():
		require.Equal(t, "PROJ", ev.ProjectIdentifier)
	default:
		t.Fatal("expected an event on the bus")
	}
}

func TestWebhookHandlerRejectsEmptyProjects(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/webhook/h", strings.NewReader(`{"projects":[]}`))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookHandlerPublishesOneEventPerProject(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/webhook/h", strings.NewReader(`{"projects":["A","B"]}`))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, srv.Bus.Events(), 2)
}

func TestFanOutDeliversToSubscriber(t *testing.T) {
	srv := newTestServer(t)
	sub := make(chan types.SyncEvent, 1)
	srv.sseSubscribers.Store(int64(1), sub)

	srv.FanOut(types.SyncEvent{ProjectIdentifier: "PROJ"})

	select {
	case ev := <-sub:
		require.Equal(t, "PROJ", ev.ProjectIdentifier)
	default:
		t.Fatal("expected fan-out delivery")
	}
}

func TestReviewsEndpointListsRecordedRequests(t *testing.T) {
	srv := newTestServer(t)
	srv.Status.Record(types.ReviewRequest{Project: "PROJ", HIdentifier: "PROJ-1", Status: types.StatusReview})

	req := httptest.NewRequest(http.MethodGet, "/api/reviews", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got []types.ReviewRequest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	require.Equal(t, "PROJ-1", got[0].HIdentifier)
}

func TestStatusRecordCapsReviewLog(t *testing.T) {
	status := &Status{}
	for i := 0; i < maxStoredReviews+10; i++ {
		status.Record(types.ReviewRequest{HIdentifier: "x"})
	}
	require.Len(t, status.Reviews(), maxStoredReviews)
}
