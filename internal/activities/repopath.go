package activities

import (
	"path/filepath"
	"strings"
)

// repoPathPrefixes is the fixed set of label prefixes spec §4.7 step 3a
// recognizes inside an H project's description, tried in this order.
var repoPathPrefixes = []string{"Filesystem:", "Path:", "Directory:", "Location:"}

// ResolveRepoPath extracts a git repo path from an H project description,
// looking for one of the recognized prefixes on its own line and validating
// the remainder is an absolute path. Returns "", false if no usable path is
// found.
func ResolveRepoPath(description string) (string, bool) {
	for _, line := range strings.Split(description, "\n") {
		line = strings.TrimSpace(line)
		for _, prefix := range repoPathPrefixes {
			if !strings.HasPrefix(line, prefix) {
				continue
			}
			candidate := strings.TrimSpace(strings.TrimPrefix(line, prefix))
			if candidate == "" {
				continue
			}
			if !filepath.IsAbs(candidate) {
				continue
			}
			return filepath.Clean(candidate), true
		}
	}
	return "", false
}
