// Package app wires the extraction pipeline from configuration. The commands
// share it so the daemon and the batch tool run the same stack.
package app

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/joseph-ayodele/mxdocs-extractor/internal/common"
	"github.com/joseph-ayodele/mxdocs-extractor/internal/corpus"
	"github.com/joseph-ayodele/mxdocs-extractor/internal/document"
	"github.com/joseph-ayodele/mxdocs-extractor/internal/fields"
	"github.com/joseph-ayodele/mxdocs-extractor/internal/llm"
	"github.com/joseph-ayodele/mxdocs-extractor/internal/llm/gemini"
	"github.com/joseph-ayodele/mxdocs-extractor/internal/llm/openai"
	"github.com/joseph-ayodele/mxdocs-extractor/internal/metrics"
	"github.com/joseph-ayodele/mxdocs-extractor/internal/ocr"
	"github.com/joseph-ayodele/mxdocs-extractor/internal/pipeline"
	"github.com/joseph-ayodele/mxdocs-extractor/internal/repository"
	"github.com/joseph-ayodele/mxdocs-extractor/internal/router"
	"github.com/joseph-ayodele/mxdocs-extractor/internal/thresholds"
)

// Options tweak how the stack is built.
type Options struct {
	InMemoryDB bool // private SQLite database instead of DB_URL
	NoDB       bool // skip job persistence entirely
}

type App struct {
	Processor *pipeline.Processor
	Profiles  *thresholds.Profiles
	Metrics   *metrics.Metrics
	DB        *repository.DB // nil when persistence is off
	Jobs      *repository.JobRepository
	logger    *slog.Logger
}

// New calibrates thresholds from the text corpus and builds the processor. A
// calibration failure is returned as is; the service cannot route without it.
func New(ctx context.Context, cfg *common.Config, opts Options, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	profiles, err := thresholds.Compute(cfg.Corpus.DataDir, logger)
	if err != nil {
		logger.Error("app.thresholds.failed", "corpus", cfg.Corpus.DataDir, "error", err)
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	ocrCfg := ocr.FromConfig(cfg.OCR)
	engine, err := ocr.NewEngine(ocrCfg, logger)
	if err != nil {
		return nil, err
	}
	pdf := ocr.NewPDFTools(ocrCfg, ocr.ExecRunner{Logger: logger}, logger)
	pages := document.NewHandler(engine, pdf, logger)

	limiter := llm.NewLimiter(cfg.LLM.RatePerSecond, cfg.LLM.Burst)
	text := llm.RateLimited(openai.NewClient(openai.Config{
		APIKey:      cfg.LLM.OpenAIKey,
		BaseURL:     cfg.LLM.OpenAIBaseURL,
		Model:       cfg.LLM.OpenAIModel,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	}, corpus.NewDir(cfg.Corpus.DataDir, logger), logger), limiter)
	vision := llm.RateLimited(gemini.NewClient(gemini.Config{
		APIKey:      cfg.LLM.GeminiKey,
		Model:       cfg.LLM.GeminiModel,
		Temperature: cfg.LLM.Temperature,
	}, corpus.NewDir(cfg.Corpus.ImageDir, logger), logger), limiter)

	a := &App{Profiles: profiles, Metrics: m, logger: logger}
	procOpts := []pipeline.Option{
		pipeline.WithMetrics(m),
		pipeline.WithWorkDir(cfg.OCR.WorkDir),
		pipeline.WithPageWorkers(cfg.Pipeline.PageWorkers),
	}
	switch {
	case opts.NoDB:
	case cfg.Database.DSN == "" && cfg.Database.Driver != repository.DriverSQLite && !opts.InMemoryDB:
		logger.Warn("app.jobs.disabled", "reason", "DB_URL not set")
	default:
		db, err := ConnectDB(ctx, cfg.Database, opts.InMemoryDB, logger)
		if err != nil {
			return nil, err
		}
		a.DB = db
		a.Jobs = repository.NewJobRepository(db, logger)
		procOpts = append(procOpts, pipeline.WithJobs(a.Jobs))
	}

	a.Processor = pipeline.NewProcessor(router.New(profiles), fields.NewValidator(logger), pages, text, vision, logger, procOpts...)
	logger.Info("app.ready",
		"ocr_engine", engine.Name(),
		"text_backend", text.Name(),
		"vision_backend", vision.Name(),
		"jobs", a.Jobs != nil,
	)
	return a, nil
}

// Close releases the database, if any.
func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
	}
}
