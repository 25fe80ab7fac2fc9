// Package discover implements the one piece of filesystem work that
// happens before an engine.Engine can be constructed: walking up from the
// current working directory to find the nearest ancestor containing the
// VCS control directory. This is explicitly an external collaborator
// (SPEC_FULL.md §1) with a trivial implementation, so it talks to the real
// OS filesystem directly rather than through a billy.Filesystem.
package discover

import (
	"os"
	"path/filepath"

	"github.com/nickyhof/vcs/engine"
)

// Root walks up from startDir (an absolute path) looking for a directory
// containing engine.VCSRoot, returning the first ancestor that has one.
// It returns ("", false) if no ancestor qualifies.
func Root(startDir string) (string, bool) {
	dir := startDir
	for {
		if info, err := os.Stat(filepath.Join(dir, engine.VCSRoot)); err == nil && info.IsDir() {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}
