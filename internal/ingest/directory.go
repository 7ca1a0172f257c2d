package ingest

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

// Walk visits every allowed file under root. Hidden files and directories
// are skipped when skipHidden is set. A visit error stops the walk.
func Walk(root string, skipHidden bool, visit func(path string) error) (DirStats, error) {
	var stats DirStats
	if strings.TrimSpace(root) == "" {
		return stats, errors.New("root path is required")
	}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			// unreadable entries below root are skipped
			return nil
		}
		stats.Scanned++
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !AllowedExt(path) {
			return nil
		}
		stats.Matched++
		return visit(path)
	})
	if err != nil {
		return stats, fmt.Errorf("walk: %w", err)
	}
	return stats, nil
}
