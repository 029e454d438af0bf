package activities

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadRepoConfigReadsHvbsyncTable(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".beads"), 0o755))
	contents := "[hvbsync]\nv_project_id = \"v-proj-1\"\nagent_memory_endpoint = \"http://localhost:9000\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".beads", "config.toml"), []byte(contents), 0o644))

	cfg, err := loadRepoConfig(dir)
	require.NoError(t, err)
	require.Equal(t, "v-proj-1", cfg.Hvbsync.VProjectID)
	require.Equal(t, "http://localhost:9000", cfg.Hvbsync.AgentMemoryEndpoint)
}

func TestLoadRepoConfigMissingFileReturnsZeroValue(t *testing.T) {
	cfg, err := loadRepoConfig(t.TempDir())
	require.NoError(t, err)
	require.Empty(t, cfg.Hvbsync.VProjectID)
}
