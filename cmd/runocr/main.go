package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"time"

	"github.com/joseph-ayodele/mxdocs-extractor/constants"
	"github.com/joseph-ayodele/mxdocs-extractor/internal/common"
	"github.com/joseph-ayodele/mxdocs-extractor/internal/document"
	"github.com/joseph-ayodele/mxdocs-extractor/internal/ocr"
	"github.com/joseph-ayodele/mxdocs-extractor/internal/router"
	"github.com/joseph-ayodele/mxdocs-extractor/internal/thresholds"
)

type pageReport struct {
	Index         int             `json:"index"`
	Confidence    float64         `json:"confidence"`
	HasManuscript bool            `json:"has_manuscript"`
	Length        int             `json:"length"`
	Decision      router.Decision `json:"decision"`
	Text          string          `json:"text"`
}

// runocr OCRs a document and shows how each page would be routed, without
// calling any extraction backend.
func main() {
	cfg := common.LoadConfig()
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	if len(os.Args) != 3 {
		logger.Error("usage", "cmd", "runocr <file> <IMSS|INFONAVIT|SAT>")
		os.Exit(2)
	}
	path := os.Args[1]
	dt, ok := constants.ParseDocumentType(os.Args[2])
	if !ok {
		logger.Error("unknown document type", "arg", os.Args[2])
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	profiles, err := thresholds.Compute(cfg.Corpus.DataDir, logger)
	if err != nil {
		logger.Error("threshold calibration failed", "error", err)
		os.Exit(1)
	}

	ocrCfg := ocr.FromConfig(cfg.OCR)
	engine, err := ocr.NewEngine(ocrCfg, logger)
	if err != nil {
		logger.Error("ocr engine", "error", err)
		os.Exit(1)
	}
	handler := document.NewHandler(engine, ocr.NewPDFTools(ocrCfg, ocr.ExecRunner{Logger: logger}, logger), logger)

	workDir, err := os.MkdirTemp(cfg.OCR.WorkDir, "runocr-*")
	if err != nil {
		logger.Error("work dir", "error", err)
		os.Exit(1)
	}
	defer func() { _ = os.RemoveAll(workDir) }()

	start := time.Now()
	pages, err := handler.Pages(ctx, path, workDir)
	if err != nil {
		logger.Error("ocr failed", "path", path, "error", err, "duration_ms", time.Since(start).Milliseconds())
		os.Exit(1)
	}

	r := router.New(profiles)
	reports := make([]pageReport, 0, len(pages))
	for i, p := range pages {
		reports = append(reports, pageReport{
			Index:         i,
			Confidence:    p.Confidence,
			HasManuscript: p.HasManuscript,
			Length:        len([]rune(p.Text)),
			Decision:      r.Route(p.Text, dt, p.Confidence, p.HasManuscript),
			Text:          p.Text,
		})
	}
	logger.Info("ocr ok", "engine", engine.Name(), "pages", len(pages), "duration_ms", time.Since(start).Milliseconds())

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(reports)
}
