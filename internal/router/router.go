// Package router decides, per page, which extraction strategy to use.
package router

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/joseph-ayodele/mxdocs-extractor/constants"
	"github.com/joseph-ayodele/mxdocs-extractor/internal/thresholds"
)

// Strategy names an extraction backend.
type Strategy string

const (
	StrategyNone           Strategy = ""
	StrategyVision         Strategy = constants.StrategyVision
	StrategyTextCompletion Strategy = constants.StrategyTextCompletion
)

const (
	// MinConfidence is the OCR confidence (0-100) below which vision is always used.
	MinConfidence = 90.0
	// TextModeRatio scales the corpus mean length into the text-mode threshold.
	TextModeRatio = 0.8
	// MinLengthSlack is subtracted from the corpus minimum before rejecting a page.
	MinLengthSlack = 100.0
)

// Decision is the outcome of routing one page. Strategy is StrategyNone exactly
// when Valid is false.
type Decision struct {
	Valid    bool     `json:"valid"`
	Message  string   `json:"message"`
	Strategy Strategy `json:"strategy,omitempty"`
}

// Router holds the calibrated thresholds. It performs no I/O.
type Router struct {
	profiles *thresholds.Profiles
}

func New(profiles *thresholds.Profiles) *Router {
	return &Router{profiles: profiles}
}

// Route applies, in order: unknown type, too short, low confidence or
// handwriting, long enough for text mode, and finally the vision default.
func (r *Router) Route(text string, dt constants.DocumentType, confidence float64, hasManuscript bool) Decision {
	prof, ok := r.profiles.Lookup(dt)
	if !ok {
		return Decision{
			Message: fmt.Sprintf("Tipo de documento '%s' no reconozido o thresholds no definido.", dt),
		}
	}

	n := utf8.RuneCountInString(text)
	low := prof.MinLength - MinLengthSlack
	high := prof.MeanLength * TextModeRatio

	if float64(n) < low {
		return Decision{
			Message: fmt.Sprintf(
				"Texto extraido (%d caracteres) esta por debajo del mínimo threshold (%s) para %s. Por favor, intente con un documento de mejor calidad.",
				n, formatNumber(low), dt),
		}
	}

	if confidence < MinConfidence || hasManuscript {
		var reasons []string
		if confidence < MinConfidence {
			reasons = append(reasons, fmt.Sprintf("OCR confidence (%.2f < %s)", confidence, formatNumber(MinConfidence)))
		}
		if hasManuscript {
			reasons = append(reasons, "detected handwriting")
		}
		return Decision{
			Valid:    true,
			Message:  "Using vision entity extraction due to " + strings.Join(reasons, " and ") + ".",
			Strategy: StrategyVision,
		}
	}

	if float64(n) >= high {
		return Decision{
			Valid: true,
			Message: fmt.Sprintf(
				"Using chat completions entity extraction: Good confidence (%.2f), sufficient text length (%d >= %s), and no handwriting detected.",
				confidence, n, formatNumber(high)),
			Strategy: StrategyTextCompletion,
		}
	}

	return Decision{
		Valid: true,
		Message: fmt.Sprintf(
			"Using vision entity extraction: Good confidence (%.2f), moderate text length (%d < %s), and no handwriting detected.",
			confidence, n, formatNumber(high)),
		Strategy: StrategyVision,
	}
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
