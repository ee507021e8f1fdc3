package llm

import (
	"context"

	"github.com/joseph-ayodele/mxdocs-extractor/constants"
)

// Request is one page to extract fields from. Text backends read Text, vision
// backends read ImagePath.
type Request struct {
	DocType   constants.DocumentType
	Text      string
	ImagePath string
}

// Usage reports token consumption as returned by the provider.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Result is the raw extraction of one page, before field validation.
type Result struct {
	Fields  map[string]any `json:"values"`
	Usage   Usage          `json:"usage"`
	Content string         `json:"content"` // prompt sent to the model, for auditing
	Model   string         `json:"model"`
}

// Extractor is the interface the pipeline depends on.
type Extractor interface {
	Name() string
	Extract(ctx context.Context, req Request) (*Result, error)
}
