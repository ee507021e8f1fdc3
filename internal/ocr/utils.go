package ocr

import (
	"math"
	"regexp"
	"strings"
)

var (
	reBoxNoise   = regexp.MustCompile(`[|¦]{2,}|_{4,}`)
	reSpaceRun   = regexp.MustCompile(`[ \t]{2,}`)
	reBlankLines = regexp.MustCompile(`\n{3,}`)
)

// Normalize trims line noise and collapses runs of blanks in OCR output.
func Normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = reBoxNoise.ReplaceAllString(s, "")
	s = reSpaceRun.ReplaceAllString(s, " ")
	s = reBlankLines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
