package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// PDFTools wraps the poppler utilities used to read PDFs.
type PDFTools struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

// NewPDFTools builds the tools; a nil runner executes on the host.
func NewPDFTools(cfg Config, runner Runner, logger *slog.Logger) *PDFTools {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = ExecRunner{Logger: logger}
	}
	return &PDFTools{cfg: cfg.withDefaults(), runner: runner, logger: logger}
}

// Text returns the embedded text of each page. Scanned PDFs yield empty strings.
func (p *PDFTools) Text(ctx context.Context, path string) ([]string, error) {
	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := p.runner.Run(ctx, p.cfg.Pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return nil, fmt.Errorf("pdftotext: %w: %s", err, truncate(string(errb), 512))
	}
	// a form feed separates pages and also closes the last one
	pages := strings.Split(strings.TrimSuffix(string(out), "\f"), "\f")
	for i := range pages {
		pages[i] = strings.TrimSpace(pages[i])
	}
	return pages, nil
}

// Rasterize renders each page to a PNG under outDir and returns the paths in page order.
func (p *PDFTools) Rasterize(ctx context.Context, path, outDir string) ([]string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, err
	}
	prefix := filepath.Join(outDir, "page")
	// pdftoppm -r 300 -png <in.pdf> <outDir/page>
	_, errb, err := p.runner.Run(ctx, p.cfg.Pdftoppm, "-r", strconv.Itoa(p.cfg.DPI), "-png", path, prefix)
	if err != nil {
		return nil, fmt.Errorf("pdftoppm: %w: %s", err, truncate(string(errb), 512))
	}

	// prefix-1.png, prefix-2.png, ... zero padded when the page count needs it
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Slice(matches, func(i, j int) bool { return pageNumber(matches[i]) < pageNumber(matches[j]) })
	if p.cfg.MaxPages > 0 && len(matches) > p.cfg.MaxPages {
		matches = matches[:p.cfg.MaxPages]
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("pdftoppm produced no images for %s", filepath.Base(path))
	}
	p.logger.Debug("ocr.pdf.rasterized", "path", path, "pages", len(matches), "dpi", p.cfg.DPI)
	return matches, nil
}

func pageNumber(path string) int {
	base := strings.TrimSuffix(filepath.Base(path), ".png")
	i := strings.LastIndex(base, "-")
	n, err := strconv.Atoi(base[i+1:])
	if err != nil {
		return 0
	}
	return n
}
