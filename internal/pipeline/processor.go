// Package pipeline sequences page acquisition, routing, extraction and field
// validation for one document.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/mxdocs-extractor/constants"
	"github.com/joseph-ayodele/mxdocs-extractor/internal/common"
	"github.com/joseph-ayodele/mxdocs-extractor/internal/document"
	"github.com/joseph-ayodele/mxdocs-extractor/internal/fields"
	"github.com/joseph-ayodele/mxdocs-extractor/internal/llm"
	"github.com/joseph-ayodele/mxdocs-extractor/internal/metrics"
	"github.com/joseph-ayodele/mxdocs-extractor/internal/ocr"
	"github.com/joseph-ayodele/mxdocs-extractor/internal/router"
)

// InvalidStrategyMessage is reported when a route names no known backend.
const InvalidStrategyMessage = "Método de procesamiento no valido."

// JobRecorder persists one row per processed document.
type JobRecorder interface {
	Start(ctx context.Context, filename string, docType constants.DocumentType) (uuid.UUID, error)
	FinishSuccess(ctx context.Context, id uuid.UUID, status constants.JobStatus, strategy string, numPages int, result []byte) error
	FinishFailure(ctx context.Context, id uuid.UUID, status constants.JobStatus, message string) error
}

// Processor coordinates page OCR, routing, extraction and validation.
type Processor struct {
	router    *router.Router
	validator *fields.Validator
	pages     document.PageSource
	backends  map[router.Strategy]llm.Extractor

	jobs    JobRecorder
	metrics *metrics.Metrics
	workDir string
	workers int
	logger  *slog.Logger
}

type Option func(*Processor)

// WithJobs records every processed document.
func WithJobs(jobs JobRecorder) Option {
	return func(p *Processor) { p.jobs = jobs }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Processor) { p.metrics = m }
}

// WithWorkDir sets where uploaded files and rendered pages are written.
func WithWorkDir(dir string) Option {
	return func(p *Processor) {
		if dir != "" {
			p.workDir = dir
		}
	}
}

// WithPageWorkers bounds how many pages of one document run at once.
func WithPageWorkers(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.workers = n
		}
	}
}

func NewProcessor(
	r *router.Router,
	v *fields.Validator,
	pages document.PageSource,
	text llm.Extractor,
	vision llm.Extractor,
	logger *slog.Logger,
	opts ...Option,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Processor{
		router:    r,
		validator: v,
		pages:     pages,
		backends: map[router.Strategy]llm.Extractor{
			router.StrategyTextCompletion: text,
			router.StrategyVision:         vision,
		},
		workDir: os.TempDir(),
		workers: 4,
		logger:  logger,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Process runs one document end to end. A single page document fails as a
// whole; in longer documents every page succeeds or fails on its own.
func (p *Processor) Process(ctx context.Context, req Request) (*Extraction, error) {
	start := time.Now()
	logger := common.LoggerFromContext(ctx, p.logger).With("filename", req.Filename, "doc_type", req.DocType)

	ext := &Extraction{Filename: req.Filename, DocType: req.DocType}
	if p.jobs != nil {
		id, err := p.jobs.Start(ctx, req.Filename, req.DocType)
		if err != nil {
			logger.Warn("pipeline.job.start_failed", "error", err)
		} else {
			ext.JobID = id
			logger = logger.With("job_id", id)
		}
	}

	pages, cleanup, err := p.acquire(ctx, req)
	if err != nil {
		logger.Error("pipeline.pages.failed", "error", err)
		return nil, p.fail(ctx, ext, err)
	}
	defer cleanup()
	logger.Info("pipeline.pages.ok", "pages", len(pages))

	if len(pages) == 1 {
		res, err := p.processPage(ctx, logger, req.DocType, 0, pages[0])
		if err == nil && res.Fatal != "" {
			err = common.NewAppError(common.CodeValidation, res.Fatal, common.ErrValidation)
		}
		if err != nil {
			return nil, p.fail(ctx, ext, err)
		}
		ext.Pages = []*PageResult{res}
	} else {
		ext.Pages = p.processPages(ctx, logger, req.DocType, pages)
	}

	ext.Status = statusOf(ext)
	p.succeed(ctx, logger, ext)
	logger.Info("pipeline.process.ok",
		"status", ext.Status,
		"pages", len(ext.Pages),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return ext, nil
}

// acquire writes the upload into a private work dir and OCRs its pages. The
// returned cleanup removes the dir; page images stay readable until then.
func (p *Processor) acquire(ctx context.Context, req Request) ([]ocr.Page, func(), error) {
	dir, err := os.MkdirTemp(p.workDir, "mxdocs-*")
	if err != nil {
		return nil, nil, fmt.Errorf("create work dir: %w", err)
	}
	cleanup := func() {
		if err := os.RemoveAll(dir); err != nil {
			p.logger.Warn("pipeline.workdir.cleanup_failed", "dir", dir, "error", err)
		}
	}

	path := filepath.Join(dir, req.Filename)
	if err := os.WriteFile(path, req.Content, 0o600); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("write upload: %w", err)
	}
	pages, err := p.pages.Pages(ctx, path, filepath.Join(dir, "pages"))
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	if len(pages) == 0 {
		cleanup()
		return nil, nil, common.NewAppError(common.CodeInput, "El documento no contiene páginas.", common.ErrInvalidInput)
	}
	return pages, cleanup, nil
}

// processPages runs every page independently. Errors never cross pages.
func (p *Processor) processPages(ctx context.Context, logger *slog.Logger, dt constants.DocumentType, pages []ocr.Page) []*PageResult {
	out := make([]*PageResult, len(pages))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, page := range pages {
		g.Go(func() error {
			res, err := p.processPage(gctx, logger, dt, i, page)
			if err != nil {
				res = &PageResult{Index: i, Strategy: res.Strategy, Routing: res.Routing, Confidence: page.Confidence, Detail: common.UserMessage(err)}
			}
			out[i] = res
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// processPage routes, extracts and validates one page. A fatal validation is
// reported in the result, not as an error. The returned result is never nil.
func (p *Processor) processPage(ctx context.Context, logger *slog.Logger, dt constants.DocumentType, index int, page ocr.Page) (*PageResult, error) {
	res := &PageResult{Index: index, Confidence: page.Confidence}
	logger = logger.With("page", index)

	decision := p.router.Route(page.Text, dt, page.Confidence, page.HasManuscript)
	res.Strategy, res.Routing = decision.Strategy, decision.Message
	p.metrics.RecordRouting(string(dt), string(decision.Strategy), page.Confidence)
	logger.Info("pipeline.page.routed",
		"valid", decision.Valid,
		"strategy", decision.Strategy,
		"confidence", page.Confidence,
		"has_manuscript", page.HasManuscript,
		"message", decision.Message,
	)
	if !decision.Valid {
		if !dt.Valid() {
			return res, common.NewAppError(common.CodeConfig, decision.Message, common.ErrUnknownDocType)
		}
		return res, common.NewAppError(common.CodeQuality, decision.Message, common.ErrQualityReject)
	}

	backend, ok := p.backends[decision.Strategy]
	if !ok || backend == nil {
		return res, common.NewAppError(common.CodeConfig, InvalidStrategyMessage, common.ErrInvalidInput)
	}

	start := time.Now()
	out, err := backend.Extract(ctx, llm.Request{DocType: dt, Text: page.Text, ImagePath: page.ImagePath})
	if err != nil {
		p.metrics.RecordBackend(backend.Name(), time.Since(start), 0, 0, err)
		logger.Error("pipeline.page.extract_failed", "backend", backend.Name(), "error", err)
		return res, err
	}
	p.metrics.RecordBackend(backend.Name(), time.Since(start), out.Usage.PromptTokens, out.Usage.CompletionTokens, nil)
	res.Usage, res.Content, res.Model = out.Usage, out.Content, out.Model

	outcome := p.validator.Validate(dt, out.Fields)
	if outcome.Fatal {
		logger.Warn("pipeline.page.validation_fatal", "message", outcome.Message)
		res.Fatal = outcome.Message
		return res, nil
	}
	res.Fields = outcome.Fields
	invalid := outcome.Fields.Invalid()
	if len(invalid) > 0 {
		names := make([]string, 0, len(invalid))
		for k := range invalid {
			names = append(names, k)
		}
		p.metrics.RecordFieldErrors(string(dt), names)
	}
	logger.Info("pipeline.page.ok",
		"backend", backend.Name(),
		"fields", outcome.Fields.Len(),
		"invalid_fields", len(invalid),
		"total_tokens", out.Usage.TotalTokens,
	)
	return res, nil
}

func statusOf(ext *Extraction) constants.JobStatus {
	failed := 0
	for _, p := range ext.Pages {
		if p.Failed() {
			failed++
		}
	}
	switch {
	case failed == 0:
		return constants.JobStatusSucceeded
	case failed == len(ext.Pages):
		return constants.JobStatusFailed
	default:
		return constants.JobStatusPartial
	}
}

// failureStatus classifies a document level error for the job row.
func failureStatus(err error) constants.JobStatus {
	if errors.Is(err, common.ErrQualityReject) || errors.Is(err, common.ErrUnknownDocType) {
		return constants.JobStatusRejected
	}
	return constants.JobStatusFailed
}

func (p *Processor) fail(ctx context.Context, ext *Extraction, err error) error {
	status := failureStatus(err)
	p.metrics.RecordDocument(string(ext.DocType), string(status))
	if p.jobs != nil && ext.JobID != uuid.Nil {
		if jerr := p.jobs.FinishFailure(context.WithoutCancel(ctx), ext.JobID, status, common.UserMessage(err)); jerr != nil {
			p.logger.Warn("pipeline.job.finish_failed", "job_id", ext.JobID, "error", jerr)
		}
	}
	return err
}

func (p *Processor) succeed(ctx context.Context, logger *slog.Logger, ext *Extraction) {
	p.metrics.RecordDocument(string(ext.DocType), string(ext.Status))
	if p.jobs == nil || ext.JobID == uuid.Nil {
		return
	}
	body, err := json.Marshal(ext)
	if err != nil {
		logger.Warn("pipeline.job.encode_failed", "error", err)
		return
	}
	strategy := ""
	if !ext.MultiPage() {
		strategy = string(ext.Pages[0].Strategy)
	}
	if err := p.jobs.FinishSuccess(context.WithoutCancel(ctx), ext.JobID, ext.Status, strategy, len(ext.Pages), body); err != nil {
		logger.Warn("pipeline.job.finish_failed", "error", err)
	}
}
