package ingest

import (
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/order-intake/constants"
)

// AllowedExt checks the extension of path against the allowed set (pdf).
func AllowedExt(path string) bool {
	return constants.IsAllowedExt(filepath.Ext(path))
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") && base != "." && base != ".."
}
