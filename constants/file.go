package constants

import "strings"

// PDFMagic is the header every accepted upload starts with.
const PDFMagic = "%PDF-"

// AllowedExtensions holds the file extensions accepted for order uploads and batch ingest.
var AllowedExtensions = map[string]struct{}{
	"pdf": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsAllowedExt reports whether a file name or extension is accepted for ingestion.
func IsAllowedExt(ext string) bool {
	if i := strings.LastIndexByte(ext, '.'); i >= 0 {
		ext = ext[i+1:]
	}
	_, ok := AllowedExtensions[NormalizeExt(ext)]
	return ok
}
