package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// TesseractEngine recognizes page images with a local tesseract binary. It
// cannot tell handwriting apart, so pages never report manuscript.
type TesseractEngine struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

// NewTesseractEngine builds the engine; a nil runner executes on the host.
func NewTesseractEngine(cfg Config, runner Runner, logger *slog.Logger) *TesseractEngine {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = ExecRunner{Logger: logger}
	}
	return &TesseractEngine{cfg: cfg.withDefaults(), runner: runner, logger: logger}
}

func (e *TesseractEngine) Name() string { return "tesseract" }

func (e *TesseractEngine) Recognize(ctx context.Context, imagePath string) (Page, error) {
	start := time.Now()
	args := []string{imagePath, "stdout", "-l", e.cfg.TesseractLang}
	if e.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(e.cfg.PSM))
	}
	if e.cfg.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(e.cfg.OEM))
	}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}
	args = append(args, "tsv")

	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, args...)
	if err != nil {
		return Page{}, fmt.Errorf("tesseract: %w: %s", err, truncate(string(errb), 512))
	}

	page := Summarize(blocksFromTSV(string(out)))
	page.Text = Normalize(page.Text)
	page.ImagePath = imagePath
	e.logger.Info("ocr.tesseract.ok",
		"path", imagePath,
		"confidence", page.Confidence,
		"text_len", len(page.Text),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return page, nil
}

// blocksFromTSV reads tesseract TSV output. Each word row becomes a word block;
// words sharing block, paragraph and line numbers are joined into a line block
// carrying their mean confidence.
func blocksFromTSV(tsv string) []Block {
	type lineAcc struct {
		words []string
		conf  float64
	}
	var (
		words []Block
		order []string
		lines = map[string]*lineAcc{}
	)

	for i, ln := range strings.Split(tsv, "\n") {
		if i == 0 || ln == "" {
			continue // header
		}
		cols := strings.Split(ln, "\t")
		if len(cols) < 12 {
			continue
		}
		conf, err := strconv.ParseFloat(cols[10], 64)
		if err != nil || conf < 0 {
			continue
		}
		text := strings.TrimSpace(cols[11])
		if text == "" {
			continue
		}
		words = append(words, Block{Kind: BlockWord, Text: text, Confidence: conf})

		key := strings.Join(cols[1:5], ".")
		acc, ok := lines[key]
		if !ok {
			acc = &lineAcc{}
			lines[key] = acc
			order = append(order, key)
		}
		acc.words = append(acc.words, text)
		acc.conf += conf
	}

	out := make([]Block, 0, len(order)+len(words))
	for _, key := range order {
		acc := lines[key]
		out = append(out, Block{
			Kind:       BlockLine,
			Text:       strings.Join(acc.words, " "),
			Confidence: acc.conf / float64(len(acc.words)),
		})
	}
	return append(out, words...)
}
