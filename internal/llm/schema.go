package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/mxdocs-extractor/constants"
	"github.com/joseph-ayodele/mxdocs-extractor/internal/fields"
)

var (
	compiledMu sync.Mutex
	compiled   = map[constants.DocumentType]*jsonschema.Schema{}
)

// CompileSchema compiles a JSON schema given as a generic map.
func CompileSchema(schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

func schemaFor(dt constants.DocumentType) (*jsonschema.Schema, error) {
	compiledMu.Lock()
	defer compiledMu.Unlock()
	if s, ok := compiled[dt]; ok {
		return s, nil
	}
	fs, ok := fields.SchemaFor(dt)
	if !ok {
		return nil, fmt.Errorf("no schema for document type %q", dt)
	}
	s, err := CompileSchema(fs.JSONSchema())
	if err != nil {
		return nil, err
	}
	compiled[dt] = s
	return s, nil
}

// ValidateAgainstSchema checks decoded fields against the document type's output schema.
func ValidateAgainstSchema(dt constants.DocumentType, values map[string]any) error {
	schema, err := schemaFor(dt)
	if err != nil {
		return err
	}
	// round-trip so the validator sees plain JSON types
	b, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("marshal values: %w", err)
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("unmarshal values: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}

// CheckSchema logs a schema mismatch without failing; the field validator
// decides what a missing or odd value means.
func CheckSchema(dt constants.DocumentType, values map[string]any, logger *slog.Logger) bool {
	if logger == nil {
		logger = slog.Default()
	}
	if err := ValidateAgainstSchema(dt, values); err != nil {
		logger.Warn("llm.extract.schema_mismatch", "doc_type", dt, "error", err)
		return false
	}
	return true
}
