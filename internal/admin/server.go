package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oculairmedia/hvbsync/internal/config"
	"github.com/oculairmedia/hvbsync/internal/events"
	"github.com/oculairmedia/hvbsync/internal/types"
	"github.com/oculairmedia/hvbsync/internal/workflow"
)

// Health is the /health response shape of spec §6.
type Health struct {
	Status         string         `json:"status"`
	UptimeSeconds  float64        `json:"uptime_seconds"`
	Sync           SyncHealth     `json:"sync"`
	ConnectionPool map[string]int `json:"connectionPool"`
	MemoryBytes    uint64         `json:"memory"`
}

// SyncHealth is the nested sync status block of spec §6's /health contract.
type SyncHealth struct {
	LastSyncTime time.Time `json:"last_sync_time"`
	ErrorCount   int64     `json:"error_count"`
	LastError    string    `json:"last_error,omitempty"`
}

// maxStoredReviews bounds the in-memory review log so a project stuck
// bouncing issues through "review" can't grow Status unbounded.
const maxStoredReviews = 200

// Status is the mutable run-state the admin server reports from, updated by
// the controller/workflow layer as cycles complete (spec §6, §7: "failures
// surface in /health"). It also collects the ReviewRequests C8 hands off
// when an issue enters StatusReview (spec §3), implementing
// types.ReviewSink.
type Status struct {
	mu           sync.Mutex
	lastSyncTime time.Time
	lastError    string
	errorCount   int64
	running      bool
	reviews      []types.ReviewRequest
}

var _ types.ReviewSink = (*Status)(nil)

// Record appends req to the review log, implementing types.ReviewSink.
func (s *Status) Record(req types.ReviewRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reviews = append(s.reviews, req)
	if len(s.reviews) > maxStoredReviews {
		s.reviews = s.reviews[len(s.reviews)-maxStoredReviews:]
	}
}

// Reviews returns a copy of the current review log, newest last.
func (s *Status) Reviews() []types.ReviewRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.ReviewRequest, len(s.reviews))
	copy(out, s.reviews)
	return out
}

// RecordSuccess marks a completed, error-free cycle.
func (s *Status) RecordSuccess() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSyncTime = time.Now()
	s.running = false
}

// RecordFailure marks a cycle that ended with err, bumping the error count.
func (s *Status) RecordFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSyncTime = time.Now()
	s.lastError = err.Error()
	s.errorCount++
	s.running = false
}

// SetRunning flags whether a cycle is currently in flight, used by
// /api/sync/trigger's 409 response (spec §6).
func (s *Status) SetRunning(running bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = running
}

func (s *Status) snapshot() (time.Time, string, int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSyncTime, s.lastError, s.errorCount, s.running
}

// Server is the C10 admin HTTP surface.
type Server struct {
	Active   *config.Active
	Status   *Status
	Manual   *events.ManualSource
	Webhook  *events.WebhookSource
	Bus      *events.Bus
	Metrics  *Metrics
	Registry *prometheus.Registry
	// Root is the running root orchestration, signaled on a config update so
	// a reload takes effect at the next cycle boundary (spec §4.6's
	// reloadConfig signal) rather than only on the following restart. Nil is
	// valid in tests that exercise the HTTP surface without a live engine.
	Root *workflow.RootOrchestration

	startedAt time.Time
	router    chi.Router

	sseSubscribers sync.Map // map[int64]chan types.SyncEvent, keyed by subscriberSeq
	subscriberSeq  int64
}

// NewServer constructs a Server and builds its route tree.
func NewServer(active *config.Active, status *Status, manual *events.ManualSource, webhook *events.WebhookSource, bus *events.Bus, reg *prometheus.Registry, metrics *Metrics, root *workflow.RootOrchestration) *Server {
	s := &Server{
		Active:    active,
		Status:    status,
		Manual:    manual,
		Webhook:   webhook,
		Bus:       bus,
		Metrics:   metrics,
		Registry:  reg,
		Root:      root,
		startedAt: time.Now(),
	}
	s.router = s.buildRoutes()
	return s
}

// Router returns the http.Handler to mount, e.g. via http.ListenAndServe.
func (s *Server) Router() http.Handler { return s.router }

func (s *Server) buildRoutes() chi.Router {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.Registry, promhttp.HandlerOpts{}))
	r.Get("/api/config", s.handleGetConfig)
	r.Put("/api/config", s.handlePutConfig)
	r.Post("/api/sync/trigger", s.handleSyncTrigger)
	r.Post("/api/webhook/h", s.handleWebhookH)
	r.Get("/api/events", s.handleSSE)
	r.Get("/api/reviews", s.handleReviews)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	cfg := s.Active.Get()
	lastSync, lastErr, errCount, _ := s.Status.snapshot()

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	status := "ok"
	staleAfter := time.Duration(3*cfg.SyncIntervalMS) * time.Millisecond
	if !lastSync.IsZero() && time.Since(lastSync) > staleAfter {
		status = "stale"
	}

	health := Health{
		Status:        status,
		UptimeSeconds: time.Since(s.startedAt).Seconds(),
		Sync: SyncHealth{
			LastSyncTime: lastSync,
			ErrorCount:   errCount,
			LastError:    lastErr,
		},
		ConnectionPool: map[string]int{"h": 1, "v": 1, "b": 1},
		MemoryBytes:    mem.Alloc,
	}

	w.Header().Set("Content-Type", "application/json")
	if status != "ok" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(health)
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.Active.Get())
}

func (s *Server) handlePutConfig(w http.ResponseWriter, r *http.Request) {
	var cfg config.Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		http.Error(w, fmt.Sprintf("invalid config: %v", err), http.StatusBadRequest)
		return
	}
	s.Active.Swap(&cfg)
	if s.Root != nil {
		s.Root.Signal(workflow.SignalReloadConfig)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSyncTrigger(w http.ResponseWriter, r *http.Request) {
	_, _, _, running := s.Status.snapshot()
	if running {
		http.Error(w, "sync already running", http.StatusConflict)
		return
	}

	var body struct {
		Project string `json:"project"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	s.Manual.Trigger(r.Context(), body.Project)
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleWebhookH(w http.ResponseWriter, r *http.Request) {
	n, err := s.Webhook.Handle(r.Context(), r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]int{"published": n})
}

// handleReviews lists the outstanding ReviewRequests C8 has handed off,
// newest last (spec §3's "ephemeral handoff to C10").
func (s *Server) handleReviews(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.Status.Reviews())
}

// handleSSE re-broadcasts bus events to admin UI clients (spec §6), reading
// from a subscriber-local fan-out channel rather than draining the shared
// bus directly, so one disconnected browser tab can never stall the
// controller's own consumption of the bus.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	sub := make(chan types.SyncEvent, 16)
	id := atomic.AddInt64(&s.subscriberSeq, 1)
	s.sseSubscribers.Store(id, sub)
	defer s.sseSubscribers.Delete(id)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-sub:
			body, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", body)
			flusher.Flush()
		}
	}
}

// FanOut forwards ev to every connected SSE subscriber, dropping it for a
// subscriber whose buffer is full. It is driven by RunEventTee from a
// channel of its own, not by draining s.Bus.Events(), so it never competes
// with C6 for bus events.
func (s *Server) FanOut(ev types.SyncEvent) {
	s.sseSubscribers.Range(func(_, v interface{}) bool {
		sub := v.(chan types.SyncEvent)
		select {
		case sub <- ev:
		default:
		}
		return true
	})
}

// RunEventTee drains source, forwarding every event to FanOut, until ctx is
// done. The caller should publish onto source only after wiring this up
// (e.g. a dup of the bus, or a secondary subscription channel fed by C6).
func RunEventTee(ctx context.Context, source <-chan types.SyncEvent, s *Server) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-source:
			if !ok {
				return
			}
			s.FanOut(ev)
		}
	}
}
