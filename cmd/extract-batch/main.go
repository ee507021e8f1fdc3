package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/joseph-ayodele/mxdocs-extractor/constants"
	"github.com/joseph-ayodele/mxdocs-extractor/internal/app"
	"github.com/joseph-ayodele/mxdocs-extractor/internal/async"
	"github.com/joseph-ayodele/mxdocs-extractor/internal/common"
	"github.com/joseph-ayodele/mxdocs-extractor/internal/export"
	"github.com/joseph-ayodele/mxdocs-extractor/internal/ingest"
	"github.com/joseph-ayodele/mxdocs-extractor/internal/pipeline"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		inmem   = flag.Bool("inmem", false, "use in-memory SQLite database")
		dir     = flag.String("dir", "", "directory to process documents from (required)")
		docType = flag.String("doc-type", "", "IMSS, INFONAVIT or SAT; inferred from each file's folder when empty")
		out     = flag.String("out", "", "output XLSX file path (optional, defaults to parent directory)")
		workers = flag.Int("workers", 4, "documents processed concurrently")
		watch   = flag.Bool("watch", false, "keep watching --dir for new documents until interrupted")
	)
	flag.Parse()

	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(1)
	}
	var forced constants.DocumentType
	if *docType != "" {
		dt, ok := constants.ParseDocumentType(*docType)
		if !ok {
			printError("Error: --doc-type must be one of IMSS, INFONAVIT, SAT\n")
			os.Exit(1)
		}
		forced = dt
	}
	if *out == "" {
		*out = filepath.Join(filepath.Dir(filepath.Clean(*dir)), "extracciones.xlsx")
	}

	cfg := common.LoadConfig()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, app.Options{InMemoryDB: *inmem}, logger)
	if err != nil {
		logger.Error("failed to initialize extractor", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	var (
		mu       sync.Mutex
		results  []async.Result
		failures int
	)
	queue := async.NewProcessorQueue(a.Processor, func(r async.Result) {
		mu.Lock()
		defer mu.Unlock()
		results = append(results, r)
		if r.Err != nil {
			failures++
		}
	}, logger, async.WithWorkers(*workers), async.WithProcessTimeout(cfg.Server.RequestTimeout))

	submit := func(path string) {
		f, err := ingest.Describe(path)
		if err != nil {
			logger.Warn("batch.skip", "path", path, "error", err)
			return
		}
		dt := forced
		if dt == "" {
			dt = f.DocType
		}
		if dt == "" {
			logger.Warn("batch.skip", "path", path, "reason", "document type unknown; use --doc-type or a IMSS/INFONAVIT/SAT folder")
			return
		}
		content, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("batch.skip", "path", path, "error", err)
			return
		}
		job := async.Job{
			Path:    path,
			Request: pipeline.Request{Filename: filepath.Base(path), DocType: dt, Content: content},
			TraceID: f.HashHex[:12],
		}
		if err := queue.Enqueue(ctx, job); err != nil {
			logger.Warn("batch.enqueue_failed", "path", path, "error", err)
		}
	}

	if *watch {
		events, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
			Roots:       []string{*dir},
			InitialScan: true,
			Debounce:    500 * time.Millisecond,
			Logger:      logger,
		})
		if err != nil {
			logger.Error("failed to watch directory", "error", err)
			os.Exit(1)
		}
		logger.Info("watching for documents", "dir", *dir)
		go func() {
			for err := range errs {
				logger.Warn("batch.watch_error", "error", err)
			}
		}()
		for path := range events {
			submit(path)
		}
	} else {
		files, stats, err := ingest.NewScanner(logger).ScanDirectory(ctx, *dir, true)
		if err != nil {
			logger.Error("failed to scan directory", "error", err)
			os.Exit(1)
		}
		logger.Info("scan complete",
			"scanned", stats.Scanned,
			"matched", stats.Matched,
			"failed", stats.Failed,
			"deduplicated", stats.Deduplicated)
		for _, f := range files {
			if f.Err != "" || f.Deduplicated {
				continue
			}
			submit(f.Path)
		}
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), 2*cfg.Server.RequestTimeout)
	defer cancel()
	queue.Shutdown(drainCtx)

	mu.Lock()
	defer mu.Unlock()
	sort.Slice(results, func(i, j int) bool { return results[i].Job.Path < results[j].Job.Path })
	extractions := make([]*pipeline.Extraction, 0, len(results))
	for _, r := range results {
		if r.Extraction != nil {
			extractions = append(extractions, r.Extraction)
		}
	}

	xlsx, err := export.NewWriter(logger).WriteXLSX(extractions)
	if err != nil {
		logger.Error("failed to export extractions", "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, xlsx, 0o644); err != nil {
		logger.Error("failed to write output file", "error", err)
		os.Exit(1)
	}

	logger.Info("batch processing complete",
		"documents", len(results),
		"processed", len(extractions),
		"failures", failures,
		"output_file", *out)

	fmt.Printf("Batch processing complete!\n")
	fmt.Printf("- Documents: %d\n", len(results))
	fmt.Printf("- Processed: %d\n", len(extractions))
	fmt.Printf("- Failures: %d\n", failures)
	fmt.Printf("- Output: %s\n", *out)
}
