// Package thresholds calibrates per-document-type text length thresholds from
// the reference corpus. Profiles are computed once at startup and never mutated.
package thresholds

import (
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/joseph-ayodele/mxdocs-extractor/constants"
	"github.com/joseph-ayodele/mxdocs-extractor/internal/common"
	"github.com/joseph-ayodele/mxdocs-extractor/internal/corpus"
)

// Profile holds the observed input-text lengths of one document type, in code points.
type Profile struct {
	MeanLength float64 `json:"mean_length"`
	MinLength  float64 `json:"min_length"`
	Samples    int     `json:"samples"`
}

// Profiles is the immutable calibration result keyed by document type.
type Profiles struct {
	byType map[constants.DocumentType]Profile
}

// Lookup returns the profile for dt.
func (p *Profiles) Lookup(dt constants.DocumentType) (Profile, bool) {
	if p == nil {
		return Profile{}, false
	}
	prof, ok := p.byType[dt]
	return prof, ok
}

// All returns a copy of every profile, suitable for printing.
func (p *Profiles) All() map[constants.DocumentType]Profile {
	out := make(map[constants.DocumentType]Profile, len(p.byType))
	for k, v := range p.byType {
		out[k] = v
	}
	return out
}

// New builds Profiles from explicit values. Used by tests and by callers that
// persist a calibration elsewhere.
func New(profiles map[constants.DocumentType]Profile) *Profiles {
	m := make(map[constants.DocumentType]Profile, len(profiles))
	for k, v := range profiles {
		m[k] = v
	}
	return &Profiles{byType: m}
}

// Compute reads every supported document type under corpusRoot and returns their
// length profiles. A document type with no input samples fails the whole
// calibration with ErrNoSamples.
func Compute(corpusRoot string, logger *slog.Logger) (*Profiles, error) {
	if logger == nil {
		logger = slog.Default()
	}
	out := make(map[constants.DocumentType]Profile, 3)
	for _, dt := range constants.AllDocumentTypes() {
		set, err := corpus.Load(corpusRoot, dt, logger)
		if err != nil {
			return nil, common.NewAppError(common.CodeData, fmt.Sprintf("load corpus for %s", dt), err)
		}
		prof, err := FromTexts(set.Inputs)
		if err != nil {
			return nil, common.NewAppError(common.CodeData, fmt.Sprintf("no input samples for %s under %s", dt, corpusRoot), err)
		}
		out[dt] = prof
		logger.Info("thresholds.computed",
			"doc_type", dt,
			"samples", prof.Samples,
			"mean_length", prof.MeanLength,
			"min_length", prof.MinLength,
		)
	}
	return &Profiles{byType: out}, nil
}

// FromTexts computes the mean and minimum code point length of texts.
func FromTexts(texts []string) (Profile, error) {
	if len(texts) == 0 {
		return Profile{}, common.ErrNoSamples
	}
	var sum int
	minLen := -1
	for _, t := range texts {
		n := utf8.RuneCountInString(t)
		sum += n
		if minLen < 0 || n < minLen {
			minLen = n
		}
	}
	return Profile{
		MeanLength: float64(sum) / float64(len(texts)),
		MinLength:  float64(minLen),
		Samples:    len(texts),
	}, nil
}
