package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joseph-ayodele/mxdocs-extractor/constants"
	"github.com/joseph-ayodele/mxdocs-extractor/internal/app"
	"github.com/joseph-ayodele/mxdocs-extractor/internal/common"
	"github.com/joseph-ayodele/mxdocs-extractor/internal/pipeline"
)

// llm runs the full pipeline on the same document several times, to compare
// backend answers across runs.
func main() {
	cfg := common.LoadConfig()
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	if len(os.Args) < 3 {
		logger.Error("usage: llm <file> <IMSS|INFONAVIT|SAT> [times]")
		os.Exit(2)
	}
	path := os.Args[1]
	dt, ok := constants.ParseDocumentType(os.Args[2])
	if !ok {
		logger.Error("unknown document type", "arg", os.Args[2])
		os.Exit(2)
	}
	times := 3
	if len(os.Args) >= 4 {
		if n, err := strconv.Atoi(os.Args[3]); err == nil && n > 0 {
			times = n
		}
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		logger.Error("read document", "path", path, "error", err)
		os.Exit(1)
	}

	a, err := app.New(context.Background(), cfg, app.Options{NoDB: true}, logger)
	if err != nil {
		logger.Error("failed to initialize extractor", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	req := pipeline.Request{Filename: filepath.Base(path), DocType: dt, Content: content}
	enc := json.NewEncoder(os.Stdout)
	for i := 1; i <= times; i++ {
		runCtx, cancelRun := context.WithTimeout(context.Background(), cfg.Server.RequestTimeout)
		start := time.Now()
		logger.Info("pipeline.run.start", "iter", i, "basename", req.Filename)

		ext, err := a.Processor.Process(runCtx, req)
		cancelRun()

		if err != nil {
			logger.Error("pipeline.run.error", "iter", i, "err", err)
		} else {
			logger.Info("pipeline.run.ok", "iter", i, "status", ext.Status, "elapsed_ms", time.Since(start).Milliseconds())
			_ = enc.Encode(ext)
		}

		time.Sleep(750 * time.Millisecond)
	}

	logger.Info("done", "file", path, "times", times)
}
