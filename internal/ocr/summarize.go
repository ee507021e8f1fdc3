package ocr

import "strings"

// BlockKind is the granularity of a recognized block.
type BlockKind string

const (
	BlockLine BlockKind = "LINE"
	BlockWord BlockKind = "WORD"
)

// Block is one line or word reported by an OCR engine.
type Block struct {
	Kind        BlockKind
	Text        string
	Confidence  float64 // 0..100
	Handwriting bool
}

// Handwriting share of words, in percent, that marks a page as carrying
// manuscript annotations. Fully handwritten pages fall outside the band.
const (
	manuscriptMinPct = 5
	manuscriptMaxPct = 20
)

// Summarize folds blocks into a page. Line and word confidences are averaged
// separately; when words score higher, the word text and confidence win.
func Summarize(blocks []Block) Page {
	var lines, words strings.Builder
	var lineConf, wordConf float64
	var nLines, nWords, nHandwritten int

	for _, b := range blocks {
		switch b.Kind {
		case BlockLine:
			nLines++
			lineConf += b.Confidence
			lines.WriteString(b.Text)
			lines.WriteByte(' ')
		case BlockWord:
			nWords++
			wordConf += b.Confidence
			words.WriteString(b.Text)
			words.WriteByte(' ')
			if b.Handwriting {
				nHandwritten++
			}
		}
	}

	if nLines > 0 {
		lineConf /= float64(nLines)
	}
	if nWords > 0 {
		wordConf /= float64(nWords)
	}

	var hwPct float64
	if nWords > 0 {
		hwPct = float64(nHandwritten) * 100 / float64(nWords)
	}

	page := Page{
		Text:          lines.String(),
		Confidence:    lineConf,
		HasManuscript: hwPct > manuscriptMinPct && hwPct < manuscriptMaxPct,
	}
	if wordConf > lineConf {
		page.Text = words.String()
		page.Confidence = wordConf
	}
	page.Confidence = round2(page.Confidence)
	return page
}
