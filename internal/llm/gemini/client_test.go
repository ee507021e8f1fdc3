package gemini

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/mxdocs-extractor/constants"
	"github.com/joseph-ayodele/mxdocs-extractor/internal/common"
	"github.com/joseph-ayodele/mxdocs-extractor/internal/corpus"
	"github.com/joseph-ayodele/mxdocs-extractor/internal/llm"
)

type staticSource struct{ set *corpus.Set }

func (s staticSource) Set(constants.DocumentType) (*corpus.Set, error) { return s.set, nil }

func writeImage(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte("\x89PNG fake"), 0o644))
	return p
}

func textResponse(s string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text(s)}},
		}},
		UsageMetadata: &genai.UsageMetadata{PromptTokenCount: 900, CandidatesTokenCount: 60, TotalTokenCount: 960},
	}
}

func newTestClient(t *testing.T, gen generateFunc) (*Client, string) {
	t.Helper()
	dir := t.TempDir()
	src := staticSource{set: &corpus.Set{
		Images:  []string{writeImage(t, dir, "image_1.png"), writeImage(t, dir, "image_2.jpg")},
		Results: []string{`{"curp": "A"}`, `{"curp": "B"}`},
	}}
	c := NewClient(Config{APIKey: "k"}, src, nil)
	c.generate = gen
	c.backoff = 0
	return c, writeImage(t, dir, "page_1.png")
}

func TestBuildParts_Order(t *testing.T) {
	dir := t.TempDir()
	examples := []corpus.Example{
		{ImagePath: writeImage(t, dir, "image_1.png"), Result: `{"curp": "A"}`},
		{ImagePath: writeImage(t, dir, "image_2.png"), Result: `{"curp": "B"}`},
	}
	target := writeImage(t, dir, "target.jpeg")

	parts, transcript, err := buildParts(llm.Request{DocType: constants.IMSS, ImagePath: target}, examples)
	require.NoError(t, err)
	require.Len(t, parts, 7)

	assert.Equal(t, genai.Text(llm.VisionPreamble(2)), parts[0])
	assert.IsType(t, &genai.Blob{}, parts[1])
	assert.IsType(t, &genai.Blob{}, parts[2])
	assert.Equal(t, genai.Text(`{"curp": "A"}`), parts[3])
	assert.Equal(t, genai.Text(`{"curp": "B"}`), parts[4])
	task, _ := llm.VisionTask(constants.IMSS)
	assert.Equal(t, genai.Text(task), parts[5])
	last := parts[6].(*genai.Blob)
	assert.Equal(t, "image/jpeg", last.MIMEType)

	assert.Contains(t, transcript, "[image target.jpeg]")
	assert.NotContains(t, transcript, "PNG fake")
}

func TestBuildParts_UnknownType(t *testing.T) {
	_, _, err := buildParts(llm.Request{DocType: "CFE", ImagePath: "x.png"}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrUnknownDocType)
}

func TestExtract_Success(t *testing.T) {
	c, page := newTestClient(t, func(ctx context.Context, cfg Config, parts []genai.Part) (*genai.GenerateContentResponse, error) {
		assert.Equal(t, "gemini-2.0-flash-lite", cfg.Model)
		assert.Len(t, parts, 7)
		return textResponse("```json\n{\"curp\": \"HEGA850101HDFLNS02\", \"nombre_del_patron\": \"None\"}\n```"), nil
	})

	res, err := c.Extract(context.Background(), llm.Request{DocType: constants.IMSS, ImagePath: page})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"curp": "HEGA850101HDFLNS02", "nombre_del_patron": nil}, res.Fields)
	assert.Equal(t, llm.Usage{PromptTokens: 900, CompletionTokens: 60, TotalTokens: 960}, res.Usage)
	assert.Equal(t, "gemini-2.0-flash-lite", res.Model)
}

func TestExtract_RetriesThenFails(t *testing.T) {
	calls := 0
	c, page := newTestClient(t, func(context.Context, Config, []genai.Part) (*genai.GenerateContentResponse, error) {
		calls++
		return nil, errors.New("503 unavailable")
	})

	_, err := c.Extract(context.Background(), llm.Request{DocType: constants.SAT, ImagePath: page})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrBackend)
	assert.Equal(t, 3, calls)
}

func TestExtract_RetryRecovers(t *testing.T) {
	calls := 0
	c, page := newTestClient(t, func(context.Context, Config, []genai.Part) (*genai.GenerateContentResponse, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("transient")
		}
		return textResponse(`{"rfc": "PEPJ900515AB1"}`), nil
	})

	res, err := c.Extract(context.Background(), llm.Request{DocType: constants.SAT, ImagePath: page})
	require.NoError(t, err)
	assert.Equal(t, "PEPJ900515AB1", res.Fields["rfc"])
	assert.Equal(t, 2, calls)
}

func TestExtract_EmptyAndBadOutput(t *testing.T) {
	c, page := newTestClient(t, func(context.Context, Config, []genai.Part) (*genai.GenerateContentResponse, error) {
		return &genai.GenerateContentResponse{}, nil
	})
	_, err := c.Extract(context.Background(), llm.Request{DocType: constants.SAT, ImagePath: page})
	assert.ErrorIs(t, err, common.ErrBackend)

	c.generate = func(context.Context, Config, []genai.Part) (*genai.GenerateContentResponse, error) {
		return textResponse("no es json"), nil
	}
	_, err = c.Extract(context.Background(), llm.Request{DocType: constants.SAT, ImagePath: page})
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestExtract_MissingImage(t *testing.T) {
	c, _ := newTestClient(t, nil)
	_, err := c.Extract(context.Background(), llm.Request{DocType: constants.SAT})
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestExtract_StopsRetryingAtDeadline(t *testing.T) {
	calls := 0
	c, page := newTestClient(t, func(context.Context, Config, []genai.Part) (*genai.GenerateContentResponse, error) {
		calls++
		return nil, errors.New("503 unavailable")
	})
	c.backoff = 2 * time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := c.Extract(ctx, llm.Request{DocType: constants.SAT, ImagePath: page})

	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, common.ErrBackend)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, http.StatusGatewayTimeout, common.HTTPStatus(err))
}
