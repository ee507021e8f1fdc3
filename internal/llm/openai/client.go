package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/joseph-ayodele/mxdocs-extractor/internal/common"
	"github.com/joseph-ayodele/mxdocs-extractor/internal/llm"
)

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Extract implements llm.Extractor over text-only chat/completions.
func (c *Client) Extract(ctx context.Context, req llm.Request) (*llm.Result, error) {
	start := time.Now()
	if !req.DocType.Valid() {
		return nil, llm.UnknownDocType(req.DocType)
	}

	set, err := c.examples.Set(req.DocType)
	if err != nil {
		return nil, common.NewAppError(common.CodeBackend, "load text examples", err)
	}
	sys, err := llm.BuildTextPrompt(req.DocType, set.Examples())
	if err != nil {
		return nil, err
	}

	c.logger.Info("llm.extract.start",
		"backend", c.Name(),
		"model", c.cfg.Model,
		"doc_type", req.DocType,
		"text_len", len(req.Text),
		"examples", len(set.Examples()),
	)

	msgs := []message{
		{Role: "developer", Content: sys},
		{Role: "user", Content: req.Text},
	}
	body := map[string]any{
		"model":                 c.cfg.Model,
		"messages":              msgs,
		"max_completion_tokens": c.cfg.MaxCompletionTokens,
		"response_format":       map[string]any{"type": "json_object"},
	}
	if c.cfg.Temperature > 0 {
		body["temperature"] = c.cfg.Temperature
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}
	raw, _, err := llm.SendJSON(ctx, c.http, endpoint, body, headers, c.logger)
	if err != nil {
		c.logger.Error("llm.extract.http_error",
			"backend", c.Name(), "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, common.NewAppError(common.CodeBackend, "openai request failed", fmt.Errorf("%w: %v", common.ErrBackend, err))
	}

	var cc chatResponse
	if err := json.Unmarshal(raw, &cc); err != nil {
		return nil, common.NewAppError(common.CodeBackend, "decode openai response", fmt.Errorf("%w: %v", common.ErrBackend, err))
	}
	if len(cc.Choices) == 0 {
		return nil, common.NewAppError(common.CodeBackend, "no choices in openai response", common.ErrBackend)
	}

	content := cc.Choices[0].Message.Content
	values, err := llm.ParseFields(content)
	if err != nil {
		c.logger.Error("llm.extract.parse_failed", "backend", c.Name(), "error", err, "content", content)
		return nil, common.NewAppError(common.CodeValidation, "La respuesta del modelo no es un JSON válido.", fmt.Errorf("%w: %v", common.ErrValidation, err))
	}
	values = llm.SanitizeFields(values, c.logger)
	llm.CheckSchema(req.DocType, values, c.logger)

	prompt, _ := json.Marshal(msgs)
	c.logger.Info("llm.extract.ok",
		"backend", c.Name(),
		"doc_type", req.DocType,
		"fields", len(values),
		"total_tokens", cc.Usage.TotalTokens,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return &llm.Result{
		Fields: values,
		Usage: llm.Usage{
			PromptTokens:     cc.Usage.PromptTokens,
			CompletionTokens: cc.Usage.CompletionTokens,
			TotalTokens:      cc.Usage.TotalTokens,
		},
		Content: string(prompt),
		Model:   c.cfg.Model,
	}, nil
}
