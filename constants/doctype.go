package constants

import (
	"strings"
)

// DocumentType identifies the issuing institution of a supported document.
type DocumentType string

const (
	IMSS      DocumentType = "IMSS"
	INFONAVIT DocumentType = "INFONAVIT"
	SAT       DocumentType = "SAT"
)

var allDocumentTypes = []DocumentType{
	IMSS,
	INFONAVIT,
	SAT,
}

// AllDocumentTypes returns the supported document types in a stable order.
func AllDocumentTypes() []DocumentType {
	out := make([]DocumentType, len(allDocumentTypes))
	copy(out, allDocumentTypes)
	return out
}

// DocumentTypesAsStrings is AllDocumentTypes as plain strings, for request validation.
func DocumentTypesAsStrings() []string {
	result := make([]string, len(allDocumentTypes))
	for i, dt := range allDocumentTypes {
		result[i] = string(dt)
	}
	return result
}

// ParseDocumentType matches input case-insensitively against the supported types.
func ParseDocumentType(input string) (DocumentType, bool) {
	normalized := strings.ToUpper(strings.TrimSpace(input))
	if normalized == "" {
		return "", false
	}
	for _, dt := range allDocumentTypes {
		if normalized == string(dt) {
			return dt, true
		}
	}
	return DocumentType(input), false
}

// Valid reports whether dt is one of the supported document types.
func (dt DocumentType) Valid() bool {
	for _, known := range allDocumentTypes {
		if dt == known {
			return true
		}
	}
	return false
}

// CorpusDepth is how many directory levels of the reference corpus are read for dt.
// SAT samples live directly in their folder; IMSS and INFONAVIT group them by variant.
func (dt DocumentType) CorpusDepth() int {
	if dt == SAT {
		return 1
	}
	return 2
}

func (dt DocumentType) String() string { return string(dt) }
