package llm

import (
	"log/slog"
	"strings"
)

// SanitizeFields trims string values and turns textual nulls into real nulls so
// the field validator sees missing values consistently. It never drops keys.
func SanitizeFields(m map[string]any, logger *slog.Logger) map[string]any {
	if logger == nil {
		logger = slog.Default()
	}
	var nulled []string
	for k, v := range m {
		s, ok := v.(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		switch strings.ToLower(s) {
		case "null", "none":
			m[k] = nil
			nulled = append(nulled, k)
		default:
			m[k] = s
		}
	}
	if len(nulled) > 0 {
		logger.Debug("llm.extract.sanitize", "nulled", nulled)
	}
	return m
}
