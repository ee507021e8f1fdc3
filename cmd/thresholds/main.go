package main

import (
	"encoding/json"
	"flag"
	"log/slog"
	"os"

	"github.com/joseph-ayodele/mxdocs-extractor/internal/common"
	"github.com/joseph-ayodele/mxdocs-extractor/internal/thresholds"
)

func main() {
	cfg := common.LoadConfig()
	dir := flag.String("dir", cfg.Corpus.DataDir, "text corpus root (defaults to DATA_INJECT_DIR)")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	profiles, err := thresholds.Compute(*dir, logger)
	if err != nil {
		logger.Error("threshold calibration failed", "dir", *dir, "error", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(profiles.All()); err != nil {
		logger.Error("encode profiles", "error", err)
		os.Exit(1)
	}
}
