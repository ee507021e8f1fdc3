package ocr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func words(n, handwritten int, conf float64) []Block {
	out := make([]Block, n)
	for i := range out {
		out[i] = Block{Kind: BlockWord, Text: "w", Confidence: conf, Handwriting: i < handwritten}
	}
	return out
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name       string
		blocks     []Block
		wantText   string
		wantConf   float64
		wantManusc bool
	}{
		{
			name:   "empty",
			blocks: nil,
		},
		{
			name: "lines win when more confident",
			blocks: []Block{
				{Kind: BlockLine, Text: "INSTITUTO MEXICANO", Confidence: 99},
				{Kind: BlockLine, Text: "DEL SEGURO SOCIAL", Confidence: 97},
				{Kind: BlockWord, Text: "INSTITUTO", Confidence: 95},
				{Kind: BlockWord, Text: "MEXICANO", Confidence: 96},
			},
			wantText: "INSTITUTO MEXICANO DEL SEGURO SOCIAL ",
			wantConf: 98,
		},
		{
			name: "words win when more confident",
			blocks: []Block{
				{Kind: BlockLine, Text: "RFC PEPJ9OO515", Confidence: 80.123},
				{Kind: BlockWord, Text: "RFC", Confidence: 99.5},
				{Kind: BlockWord, Text: "PEPJ900515", Confidence: 90.12},
			},
			wantText: "RFC PEPJ900515 ",
			wantConf: 94.81,
		},
		{
			name:       "handwriting inside the band",
			blocks:     words(10, 1, 90),
			wantText:   "w w w w w w w w w w ",
			wantConf:   90,
			wantManusc: true,
		},
		{
			name:     "handwriting at 5 percent is not manuscript",
			blocks:   words(20, 1, 90),
			wantText: "w w w w w w w w w w w w w w w w w w w w ",
			wantConf: 90,
		},
		{
			name:     "fully handwritten is not manuscript",
			blocks:   words(4, 4, 90),
			wantText: "w w w w ",
			wantConf: 90,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Summarize(tt.blocks)
			assert.Equal(t, tt.wantText, p.Text)
			assert.InDelta(t, tt.wantConf, p.Confidence, 1e-9)
			assert.Equal(t, tt.wantManusc, p.HasManuscript)
		})
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "CURP: HEGA850101 \n\nNSS", Normalize("  CURP:   HEGA850101 ||||\r\n\n\n\nNSS  "))
}
