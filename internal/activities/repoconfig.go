package activities

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// repoConfig is the optional `.beads/config.toml` `[hvbsync]` table a repo
// can carry to declare its own V-project linkage, an alternative to setting
// it through the admin `/api/config` surface. Consulted as a secondary
// source (§4.7 step 3a): the mapping store's own persisted row always wins
// once set.
type repoConfig struct {
	Hvbsync struct {
		VProjectID          string `toml:"v_project_id"`
		AgentMemoryEndpoint string `toml:"agent_memory_endpoint"`
	} `toml:"hvbsync"`
}

// loadRepoConfig reads repoPath's `.beads/config.toml`, returning a zero
// repoConfig (not an error) if the file is absent, matching ResolveRepoPath's
// policy of failing soft rather than aborting the cycle over optional,
// repo-local configuration.
func loadRepoConfig(repoPath string) (repoConfig, error) {
	var cfg repoConfig
	path := filepath.Join(repoPath, ".beads", "config.toml")
	if _, err := os.Stat(path); err != nil {
		return cfg, nil
	}
	_, err := toml.DecodeFile(path, &cfg)
	return cfg, err
}
