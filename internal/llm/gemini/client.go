// Package gemini extracts fields from page images with a multimodal Gemini
// model, using the image corpus as few-shot examples.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/joseph-ayodele/mxdocs-extractor/internal/common"
	"github.com/joseph-ayodele/mxdocs-extractor/internal/corpus"
	"github.com/joseph-ayodele/mxdocs-extractor/internal/llm"
)

// Config for the Gemini client.
type Config struct {
	APIKey      string  // if empty, falls back to env GEMINI_API_KEY
	Model       string  // default gemini-2.0-flash-lite
	Temperature float32 // default 0
	Retries     int     // attempts per request, default 3
}

// generateFunc sends parts to the model. Tests replace it.
type generateFunc func(ctx context.Context, cfg Config, parts []genai.Part) (*genai.GenerateContentResponse, error)

type Client struct {
	cfg      Config
	examples corpus.Source
	logger   *slog.Logger
	generate generateFunc
	backoff  time.Duration
}

func NewClient(cfg Config, examples corpus.Source, logger *slog.Logger) *Client {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash-lite"
	}
	if cfg.Retries <= 0 {
		cfg.Retries = 3
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:      cfg,
		examples: examples,
		logger:   logger,
		generate: generateContent,
		backoff:  300 * time.Millisecond,
	}
}

func (c *Client) Name() string { return "gemini" }

func generateContent(ctx context.Context, cfg Config, parts []genai.Part) (*genai.GenerateContentResponse, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("GEMINI_API_KEY is empty")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	defer func() { _ = cl.Close() }()

	m := cl.GenerativeModel(cfg.Model)
	m.GenerationConfig = genai.GenerationConfig{
		Temperature:      ptrFloat32(cfg.Temperature),
		ResponseMIMEType: "application/json",
	}
	return m.GenerateContent(ctx, parts...)
}

// Extract implements llm.Extractor over the page image in req.ImagePath.
func (c *Client) Extract(ctx context.Context, req llm.Request) (*llm.Result, error) {
	start := time.Now()
	if !req.DocType.Valid() {
		return nil, llm.UnknownDocType(req.DocType)
	}
	if req.ImagePath == "" {
		return nil, common.NewAppError(common.CodeInput, "vision extraction needs a page image", common.ErrInvalidInput)
	}

	set, err := c.examples.Set(req.DocType)
	if err != nil {
		return nil, common.NewAppError(common.CodeBackend, "load image examples", err)
	}
	examples := set.Examples()
	parts, transcript, err := buildParts(req, examples)
	if err != nil {
		return nil, err
	}

	c.logger.Info("llm.extract.start",
		"backend", c.Name(),
		"model", c.cfg.Model,
		"doc_type", req.DocType,
		"image", filepath.Base(req.ImagePath),
		"examples", len(examples),
	)

	var lastErr error
	for attempt := 1; attempt <= c.cfg.Retries; attempt++ {
		resp, err := c.generate(ctx, c.cfg, parts)
		if err != nil {
			lastErr = err
			c.logger.Warn("llm.extract.retry", "backend", c.Name(), "attempt", attempt, "error", err)
			if attempt == c.cfg.Retries || !c.wait(ctx, time.Duration(attempt)*c.backoff) {
				break
			}
			continue
		}

		txt := firstText(resp)
		if txt == "" {
			return nil, common.NewAppError(common.CodeBackend, "gemini returned an empty response", common.ErrBackend)
		}
		values, err := llm.ParseFields(txt)
		if err != nil {
			c.logger.Error("llm.extract.parse_failed", "backend", c.Name(), "error", err, "content", txt)
			return nil, common.NewAppError(common.CodeValidation, "La respuesta del modelo no es un JSON válido.", fmt.Errorf("%w: %v", common.ErrValidation, err))
		}
		values = llm.SanitizeFields(values, c.logger)
		llm.CheckSchema(req.DocType, values, c.logger)

		usage := usageOf(resp)
		c.logger.Info("llm.extract.ok",
			"backend", c.Name(),
			"doc_type", req.DocType,
			"fields", len(values),
			"total_tokens", usage.TotalTokens,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return &llm.Result{
			Fields:  values,
			Usage:   usage,
			Content: transcript,
			Model:   c.cfg.Model,
		}, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(lastErr, ctxErr) {
		lastErr = fmt.Errorf("%w (last attempt: %v)", ctxErr, lastErr)
	}
	c.logger.Error("llm.extract.failed",
		"backend", c.Name(), "error", lastErr,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil, common.NewAppError(common.CodeBackend, "gemini request failed", fmt.Errorf("%w: %w", common.ErrBackend, lastErr))
}

// wait sleeps d between attempts. It reports false once ctx is done.
func (c *Client) wait(ctx context.Context, d time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// buildParts lays out a vision request: the preamble, each example image, the
// example results, the task and finally the target page. The transcript names
// images by file instead of embedding them.
func buildParts(req llm.Request, examples []corpus.Example) ([]genai.Part, string, error) {
	task, err := llm.VisionTask(req.DocType)
	if err != nil {
		return nil, "", err
	}

	var parts []genai.Part
	var transcript []string
	addText := func(s string) {
		parts = append(parts, genai.Text(s))
		transcript = append(transcript, s)
	}
	addImage := func(path string) error {
		data, mime, err := llm.ReadImage(path)
		if err != nil {
			return common.NewAppError(common.CodeInput, "read image", fmt.Errorf("%w: %v", common.ErrInvalidInput, err))
		}
		parts = append(parts, &genai.Blob{MIMEType: mime, Data: data})
		transcript = append(transcript, "[image "+filepath.Base(path)+"]")
		return nil
	}

	withImages := make([]corpus.Example, 0, len(examples))
	for _, ex := range examples {
		if ex.ImagePath != "" {
			withImages = append(withImages, ex)
		}
	}

	addText(llm.VisionPreamble(len(withImages)))
	for _, ex := range withImages {
		if err := addImage(ex.ImagePath); err != nil {
			return nil, "", err
		}
	}
	for _, ex := range withImages {
		addText(ex.Result)
	}
	addText(task)
	if err := addImage(req.ImagePath); err != nil {
		return nil, "", err
	}

	b, _ := json.Marshal(transcript)
	return parts, string(b), nil
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				return strings.TrimSpace(string(t))
			}
		}
	}
	return ""
}

func usageOf(resp *genai.GenerateContentResponse) llm.Usage {
	if resp == nil || resp.UsageMetadata == nil {
		return llm.Usage{}
	}
	return llm.Usage{
		PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
		CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
	}
}

func ptrFloat32(v float32) *float32 { return &v }
