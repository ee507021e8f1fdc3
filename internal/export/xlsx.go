package export

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/mxdocs-extractor/internal/pipeline"
	"github.com/joseph-ayodele/mxdocs-extractor/internal/router"
)

const (
	FieldsSheet  = "Campos"
	SummarySheet = "Resumen"
)

var fieldHeaders = []string{"Archivo", "Tipo", "Página", "Estrategia", "Campo", "Valor", "Error"}

var summaryHeaders = []string{"Archivo", "Tipo", "Estado", "Páginas", "Páginas con error", "Campos con error", "Páginas por visión", "Páginas por texto"}

// Writer renders extraction results as XLSX workbooks.
type Writer struct {
	logger *slog.Logger
}

func NewWriter(logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{logger: logger}
}

// WriteXLSX returns a workbook with one row per extracted field per page and a
// per-document summary sheet. Field errors are highlighted.
func (w *Writer) WriteXLSX(extractions []*pipeline.Extraction) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	// the default sheet becomes the fields sheet
	if err := f.SetSheetName(f.GetSheetName(0), FieldsSheet); err != nil {
		return nil, fmt.Errorf("xlsx sheet: %w", err)
	}
	if _, err := f.NewSheet(SummarySheet); err != nil {
		return nil, fmt.Errorf("xlsx sheet: %w", err)
	}

	errStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Color: "#9C0006"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#FFC7CE"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("xlsx style: %w", err)
	}
	headStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("xlsx style: %w", err)
	}

	writeRow(f, FieldsSheet, 1, toAny(fieldHeaders))
	writeRow(f, SummarySheet, 1, toAny(summaryHeaders))
	_ = f.SetRowStyle(FieldsSheet, 1, 1, headStyle)
	_ = f.SetRowStyle(SummarySheet, 1, 1, headStyle)

	row := 2
	for i, ext := range extractions {
		var failedPages, fieldErrors int
		for _, p := range ext.Pages {
			if p.Failed() {
				failedPages++
				msg := p.Detail
				if msg == "" {
					msg = p.Fatal
				}
				writeRow(f, FieldsSheet, row, []any{ext.Filename, string(ext.DocType), p.Index + 1, string(p.Strategy), "", msg, "sí"})
				_ = f.SetCellStyle(FieldsSheet, cell(6, row), cell(7, row), errStyle)
				row++
				continue
			}
			for _, key := range p.Fields.Keys() {
				v, _ := p.Fields.Get(key)
				flag := ""
				if !v.IsValid() {
					flag = "sí"
					fieldErrors++
				}
				writeRow(f, FieldsSheet, row, []any{ext.Filename, string(ext.DocType), p.Index + 1, string(p.Strategy), key, cellValue(v.Interface()), flag})
				if !v.IsValid() {
					_ = f.SetCellStyle(FieldsSheet, cell(6, row), cell(7, row), errStyle)
				}
				row++
			}
		}
		byStrategy := ext.Strategies()
		writeRow(f, SummarySheet, i+2, []any{
			ext.Filename, string(ext.DocType), string(ext.Status), len(ext.Pages), failedPages, fieldErrors,
			byStrategy[router.StrategyVision], byStrategy[router.StrategyTextCompletion],
		})
	}

	_ = f.SetColWidth(FieldsSheet, "A", "A", 32) // filename
	_ = f.SetColWidth(FieldsSheet, "B", "C", 10)
	_ = f.SetColWidth(FieldsSheet, "D", "D", 36) // strategy
	_ = f.SetColWidth(FieldsSheet, "E", "E", 30) // field
	_ = f.SetColWidth(FieldsSheet, "F", "F", 60) // value
	_ = f.SetColWidth(SummarySheet, "A", "A", 32)
	_ = f.SetColWidth(SummarySheet, "B", "H", 18)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	w.logger.Info("export.xlsx.ok",
		"documents", len(extractions),
		"rows", row-2,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) {
	for col, v := range values {
		_ = f.SetCellValue(sheet, cell(col+1, row), v)
	}
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

// cellValue flattens a field value into something a cell can hold.
func cellValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}
