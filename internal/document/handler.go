// Package document turns an uploaded file into OCR'd pages.
package document

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/joseph-ayodele/mxdocs-extractor/constants"
	"github.com/joseph-ayodele/mxdocs-extractor/internal/common"
	"github.com/joseph-ayodele/mxdocs-extractor/internal/ocr"
)

// EmbeddedTextConfidence is reported for pages whose embedded PDF text is used.
const EmbeddedTextConfidence = 100

// PageSource yields the pages of a document on disk. workDir receives any
// rendered page images.
type PageSource interface {
	Pages(ctx context.Context, path, workDir string) ([]ocr.Page, error)
}

// PDFReader reads and renders PDFs.
type PDFReader interface {
	Text(ctx context.Context, path string) ([]string, error)
	Rasterize(ctx context.Context, path, outDir string) ([]string, error)
}

type Handler struct {
	engine ocr.Engine
	pdf    PDFReader
	logger *slog.Logger
}

func NewHandler(engine ocr.Engine, pdf PDFReader, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{engine: engine, pdf: pdf, logger: logger}
}

// Pages OCRs every page of the document at path. For PDFs the embedded text of
// a page replaces the OCR text when it is longer.
func (h *Handler) Pages(ctx context.Context, path, workDir string) ([]ocr.Page, error) {
	start := time.Now()
	ext := constants.NormalizeExt(filepath.Ext(path))

	var images, embedded []string
	switch constants.MapExtToFormat(ext) {
	case constants.IMAGE:
		images = []string{path}
	case constants.PDF:
		var err error
		if embedded, err = h.pdf.Text(ctx, path); err != nil {
			// scanned PDFs are still readable through OCR
			h.logger.Warn("document.pdf.text_failed", "path", path, "error", err)
			embedded = nil
		}
		if images, err = h.pdf.Rasterize(ctx, path, workDir); err != nil {
			return nil, fmt.Errorf("rasterize %s: %w", filepath.Base(path), err)
		}
	default:
		return nil, common.NewAppError(common.CodeInput,
			fmt.Sprintf("Formato de archivo no soportado: %q. Use pdf, jpg, jpeg o png.", ext),
			common.ErrInvalidInput)
	}

	pages := make([]ocr.Page, 0, len(images))
	for i, img := range images {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, err := h.engine.Recognize(ctx, img)
		if err != nil {
			return nil, fmt.Errorf("ocr page %d: %w", i+1, err)
		}
		page.ImagePath = img
		if i < len(embedded) && utf8.RuneCountInString(page.Text) < utf8.RuneCountInString(embedded[i]) {
			page.Text = embedded[i]
			page.Confidence = EmbeddedTextConfidence
		}
		pages = append(pages, page)
	}

	h.logger.Info("document.pages.ok",
		"path", path,
		"engine", h.engine.Name(),
		"pages", len(pages),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return pages, nil
}
