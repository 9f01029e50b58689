package pipeline

import (
	"io/fs"
	"path/filepath"
	"strings"
)

// Discover walks root synchronously (spec §4.7 step 2, "Stage 0") and
// returns every *.mid / *.midi path found. Archive extraction is handled
// upstream of this function by an archive-aware caller; Discover itself
// only ever sees a plain directory tree, which keeps it usable both for
// a freshly extracted archive's output directory and for a source tree
// that was never archived at all.
func Discover(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext == ".mid" || ext == ".midi" {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}
