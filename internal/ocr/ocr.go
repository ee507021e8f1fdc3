// Package ocr turns page images into text with a confidence score and a
// handwriting flag, and reads embedded text out of PDFs.
package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/mxdocs-extractor/internal/common"
)

// Page is the OCR result of one page image.
type Page struct {
	Text          string  `json:"text"`
	Confidence    float64 `json:"confidence"` // 0..100
	HasManuscript bool    `json:"has_manuscript"`
	ImagePath     string  `json:"image_path"`
}

// Engine recognizes the text of a single page image.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, imagePath string) (Page, error)
}

type Config struct {
	Engine string // "textract" | "tesseract"

	AWSRegion          string
	AWSAccessKeyID     string
	AWSSecretAccessKey string

	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "spa"
	TessdataDir   string
	DPI           int // rasterization DPI for PDFs, default 300
	MaxPages      int // 0 = no limit

	PSM int // e.g., 6 is good for uniform block of text
	OEM int // 1 = LSTM; leave 0 to use default
}

func (c Config) withDefaults() Config {
	if c.Pdftotext == "" {
		c.Pdftotext = "pdftotext"
	}
	if c.Pdftoppm == "" {
		c.Pdftoppm = "pdftoppm"
	}
	if c.Tesseract == "" {
		c.Tesseract = "tesseract"
	}
	if c.TesseractLang == "" {
		c.TesseractLang = "spa"
	}
	if c.DPI <= 0 {
		c.DPI = 300
	}
	return c
}

// FromConfig maps the application configuration onto the OCR configuration.
func FromConfig(cfg common.OCRConfig) Config {
	return Config{
		Engine:             cfg.Engine,
		AWSRegion:          cfg.AWSRegion,
		AWSAccessKeyID:     cfg.AWSAccessKeyID,
		AWSSecretAccessKey: cfg.AWSSecretAccessKey,
		TesseractLang:      cfg.TesseractLang,
		TessdataDir:        cfg.TessdataDir,
		DPI:                cfg.DPI,
	}.withDefaults()
}

// NewEngine builds the engine named by cfg.Engine.
func NewEngine(cfg Config, logger *slog.Logger) (Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch strings.ToLower(cfg.Engine) {
	case "", "textract":
		return NewTextractEngine(cfg, logger), nil
	case "tesseract":
		return NewTesseractEngine(cfg, nil, logger), nil
	default:
		return nil, common.NewAppError(common.CodeConfig, "unknown ocr engine",
			fmt.Errorf("%w: %q", common.ErrInvalidInput, cfg.Engine))
	}
}
