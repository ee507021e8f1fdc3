package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNotAnObject is returned when model output cannot be read as a JSON object.
var ErrNotAnObject = errors.New("model output is not a json object")

// StripCodeFences removes a surrounding ```json ... ``` block.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// ParseFields decodes model output into a field map. Strict JSON is tried
// first; when that fails a flat "key": "value" object is rebuilt leniently.
func ParseFields(content string) (map[string]any, error) {
	s := StripCodeFences(content)

	var m map[string]any
	strictErr := json.Unmarshal([]byte(s), &m)
	if strictErr == nil {
		if m == nil {
			return nil, ErrNotAnObject
		}
		return m, nil
	}

	m, err := buildDictionary(s)
	if err != nil {
		return nil, fmt.Errorf("parse fields: %w (strict: %v)", err, strictErr)
	}
	return m, nil
}

// buildDictionary reads a brace-wrapped, comma-separated list of key: value
// pairs. Values are kept as strings; NULL becomes nil. Nested objects are
// flattened into their parent, which is the best a lenient pass can do.
func buildDictionary(s string) (map[string]any, error) {
	if !strings.HasPrefix(s, "{") || !strings.HasSuffix(s, "}") {
		return nil, ErrNotAnObject
	}
	s = strings.NewReplacer("{", "", "}", "", "\n", "", "\t", "").Replace(s)

	out := map[string]any{}
	for _, element := range strings.Split(s, ",") {
		element = strings.ReplaceAll(strings.TrimSpace(element), `"`, "")
		if element == "" {
			continue
		}
		// the first colon separates the key; values such as "10:30" keep theirs
		key, value, found := strings.Cut(element, ":")
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if !found {
			out[key] = nil
			continue
		}
		value = strings.TrimSpace(value)
		if value == "NULL" {
			out[key] = nil
		} else {
			out[key] = value
		}
	}
	if len(out) == 0 {
		return nil, ErrNotAnObject
	}
	return out, nil
}
