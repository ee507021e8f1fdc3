package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/mxdocs-extractor/constants"
)

// Scanner discovers documents on the local filesystem.
type Scanner struct {
	logger *slog.Logger
}

func NewScanner(logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{logger: logger}
}

// ScanDirectory walks root, skips hidden entries if requested, and hashes every
// supported file. Files whose content was already seen are flagged as
// deduplicated. Returns per-file results + aggregate stats.
func (s *Scanner) ScanDirectory(ctx context.Context, root string, skipHidden bool) ([]FileResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root_path is required")
	}

	var results []FileResult
	var stats DirStats
	seen := map[string]struct{}{}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			results = append(results, FileResult{Path: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		ext := constants.NormalizeExt(filepath.Ext(path))
		if !AllowedExt(ext) {
			return nil
		}
		stats.Matched++

		r, err := Describe(path)
		if err != nil {
			s.logger.Warn("ingest.scan.file_failed", "path", path, "error", err)
			results = append(results, FileResult{Path: path, Err: err.Error()})
			stats.Failed++
			return nil
		}
		if _, dup := seen[r.HashHex]; dup {
			r.Deduplicated = true
			stats.Deduplicated++
		}
		seen[r.HashHex] = struct{}{}
		results = append(results, r)
		stats.Succeeded++
		return nil
	})

	s.logger.Info("ingest.scan.ok",
		"root", root,
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"failed", stats.Failed,
		"deduplicated", stats.Deduplicated,
	)
	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	return results, stats, nil
}

// Describe hashes and stats a single supported file.
func Describe(path string) (FileResult, error) {
	ext := constants.NormalizeExt(filepath.Ext(path))
	if !AllowedExt(ext) {
		return FileResult{}, fmt.Errorf("unsupported or missing extension: %q", ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return FileResult{}, err
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return FileResult{}, err
	}
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return FileResult{}, fmt.Errorf("hash: %w", err)
	}

	dt, _ := DocTypeFromPath(path)
	return FileResult{
		Path:       path,
		Ext:        ext,
		Size:       info.Size(),
		HashHex:    hex.EncodeToString(h.Sum(nil)),
		DocType:    dt,
		ModifiedAt: info.ModTime(),
	}, nil
}
