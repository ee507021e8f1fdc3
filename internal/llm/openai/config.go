package openai

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joseph-ayodele/mxdocs-extractor/internal/corpus"
)

// Config for the OpenAI client.
type Config struct {
	APIKey              string        // if empty, falls back to env OPEN_AI_API_KEY
	BaseURL             string        // default https://api.openai.com/v1
	Model               string        // default gpt-4o-mini
	Temperature         float32       // sent only when > 0
	MaxCompletionTokens int           // default 4096
	Timeout             time.Duration // http client timeout
}

// Client extracts fields from OCR text with chat completions, using the text
// corpus as few-shot examples.
type Client struct {
	cfg      Config
	http     *http.Client
	examples corpus.Source
	logger   *slog.Logger
}

func NewClient(cfg Config, examples corpus.Source, logger *slog.Logger) *Client {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPEN_AI_API_KEY")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.MaxCompletionTokens <= 0 {
		cfg.MaxCompletionTokens = 4096
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 90 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:      cfg,
		http:     &http.Client{Timeout: cfg.Timeout},
		examples: examples,
		logger:   logger,
	}
}

func (c *Client) Name() string { return "openai" }
