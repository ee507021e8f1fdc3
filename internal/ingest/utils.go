package ingest

import (
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/mxdocs-extractor/constants"
)

// AllowedExt checks if a file extension is in the allowed set (pdf/jpg/jpeg/png).
func AllowedExt(ext string) bool {
	ext = constants.NormalizeExt(ext)
	_, ok := constants.AllowedExtensions[ext]
	return ok
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") && base != "." && base != ".."
}

// DocTypeFromPath returns the document type named by the nearest directory of
// path, e.g. inbox/SAT/constancia.pdf is a SAT document.
func DocTypeFromPath(path string) (constants.DocumentType, bool) {
	dir := filepath.Dir(path)
	for dir != "." && dir != string(filepath.Separator) && dir != "" {
		if dt, ok := constants.ParseDocumentType(filepath.Base(dir)); ok {
			return dt, true
		}
		next := filepath.Dir(dir)
		if next == dir {
			break
		}
		dir = next
	}
	return "", false
}
