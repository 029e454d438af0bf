// Package config layers a YAML config file under environment variables using
// viper, mirroring internal/config in the teacher repo: env vars always win,
// the file supplies defaults, and a small typed accessor layer (the get*
// helpers in this file) validates enum-shaped settings with a
// warning-and-fallback policy instead of a hard failure.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/spf13/viper"
)

// Config is the atomically-swappable configuration snapshot the sync
// controller (C6) hands to every orchestration. Fields mirror the
// environment variables of spec.md §6.
type Config struct {
	SyncIntervalMS       int
	APIDelayMS           int
	DryRun               bool
	DBPath               string
	HAPIURL              string
	VAPIURL              string
	WorkflowTaskQueue    string
	WorkflowAddress      string
	ReconciliationAction ReconciliationAction
	ReconciliationDryRun bool
	DedupeCacheTTLMS     int
	MaxWorkers           int
	BatchSize            int
	DebounceMS           int
	OrchestrationTimeout time.Duration
}

// ReconciliationAction controls what happens when an upstream listing no
// longer returns a cross-ID this store has mapped (spec §6).
type ReconciliationAction string

const (
	ReconciliationMarkDeleted ReconciliationAction = "mark_deleted"
	ReconciliationHardDelete  ReconciliationAction = "hard_delete"
)

var validReconciliationActions = map[ReconciliationAction]bool{
	ReconciliationMarkDeleted: true,
	ReconciliationHardDelete:  true,
}

// store is the process-wide viper instance. Constructed once at startup by
// Load; never a package-level singleton beyond this (service context owns
// the resulting *Config, per spec §9's "no global mutable state" note).
var store = viper.New()

// Load reads configPath (if non-empty and present) into the viper store and
// binds the environment variables named in spec.md §6. It never returns an
// error for a missing file; only a malformed one.
func Load(configPath string) error {
	store.SetEnvPrefix("")
	store.AutomaticEnv()
	store.SetConfigType("yaml")
	if configPath != "" {
		store.SetConfigFile(configPath)
		if err := store.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("read config %s: %w", configPath, err)
			}
		}
	}
	return nil
}

// Snapshot builds an immutable Config from the current viper state, applying
// the defaults of spec.md §6.
func Snapshot() *Config {
	return &Config{
		SyncIntervalMS:       getIntDefault("SYNC_INTERVAL_MS", 30000),
		APIDelayMS:           getIntDefault("API_DELAY_MS", 10),
		DryRun:               getBoolDefault("DRY_RUN", false),
		DBPath:               getStringDefault("DB_PATH", "./hvbsync.db"),
		HAPIURL:              getStringDefault("H_API_URL", ""),
		VAPIURL:              getStringDefault("V_API_URL", ""),
		WorkflowTaskQueue:    getStringDefault("WORKFLOW_TASK_QUEUE", "hvbsync-orchestration"),
		WorkflowAddress:      getStringDefault("WORKFLOW_ADDRESS", ""),
		ReconciliationAction: getReconciliationAction(),
		ReconciliationDryRun: getBoolDefault("RECONCILIATION_DRY_RUN", false),
		DedupeCacheTTLMS:     getIntDefault("DEDUPE_CACHE_TTL_MS", 15000),
		MaxWorkers:           getIntDefault("MAX_WORKERS", 20),
		BatchSize:            getIntDefault("BATCH_SIZE", 25),
		DebounceMS:           getIntDefault("DEBOUNCE_MS", 500),
		OrchestrationTimeout: 2 * time.Duration(getIntDefault("SYNC_INTERVAL_MS", 30000)) * time.Millisecond,
	}
}

func getStringDefault(key, def string) string {
	if v := store.GetString(key); v != "" {
		return v
	}
	return def
}

func getIntDefault(key string, def int) int {
	if store.IsSet(key) {
		return store.GetInt(key)
	}
	return def
}

func getBoolDefault(key string, def bool) bool {
	if store.IsSet(key) {
		return store.GetBool(key)
	}
	return def
}

// getReconciliationAction validates RECONCILIATION_ACTION the same way the
// teacher's GetSyncMode validates sync.mode: log a warning through slog and
// fall back to the safe default rather than failing startup.
func getReconciliationAction() ReconciliationAction {
	raw := strings.ToLower(strings.TrimSpace(store.GetString("RECONCILIATION_ACTION")))
	if raw == "" {
		return ReconciliationMarkDeleted
	}
	action := ReconciliationAction(raw)
	if !validReconciliationActions[action] {
		slog.Warn("config: invalid RECONCILIATION_ACTION, falling back", "value", raw, "fallback", ReconciliationMarkDeleted)
		return ReconciliationMarkDeleted
	}
	return action
}

// Active is the atomically-swappable live Config used by the sync controller
// (C6) so config reload never races with an in-flight orchestration reading
// a half-updated struct (spec §4.5 "Config reload").
type Active struct {
	ptr atomic.Pointer[Config]
}

// NewActive constructs an Active holder seeded with cfg.
func NewActive(cfg *Config) *Active {
	a := &Active{}
	a.ptr.Store(cfg)
	return a
}

// Get returns the current config snapshot.
func (a *Active) Get() *Config { return a.ptr.Load() }

// Swap atomically replaces the active config, used by /api/config PUT (C10)
// and the reloadConfig signal (C7).
func (a *Active) Swap(cfg *Config) { a.ptr.Store(cfg) }
