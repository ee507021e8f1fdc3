package pipeline

import (
	"encoding/json"
	"strconv"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/mxdocs-extractor/constants"
	"github.com/joseph-ayodele/mxdocs-extractor/internal/fields"
	"github.com/joseph-ayodele/mxdocs-extractor/internal/llm"
	"github.com/joseph-ayodele/mxdocs-extractor/internal/router"
)

// PageResult is the outcome of one page. Exactly one of Fields, Fatal or
// Detail describes it: validated fields, a fatal validation message, or a
// routing or backend failure.
type PageResult struct {
	Index      int
	Strategy   router.Strategy
	Routing    string // router message
	Confidence float64
	Fields     *fields.Fields
	Fatal      string
	Detail     string
	Usage      llm.Usage
	Content    string
	Model      string
}

// Failed reports whether the page produced no usable fields.
func (p *PageResult) Failed() bool {
	return p.Detail != "" || p.Fatal != ""
}

type pageWire struct {
	ProcessType router.Strategy `json:"process_type,omitempty"`
	Values      any             `json:"values,omitempty"`
	Usage       *llm.Usage      `json:"usage,omitempty"`
	Content     *string         `json:"content,omitempty"`
	Detail      string          `json:"detail,omitempty"`
}

func (p *PageResult) wire() pageWire {
	if p.Detail != "" {
		return pageWire{Detail: p.Detail}
	}
	w := pageWire{ProcessType: p.Strategy, Usage: &p.Usage, Content: &p.Content}
	switch {
	case p.Fatal != "":
		w.Values = map[string]string{"detail": p.Fatal}
	case p.Fields != nil:
		w.Values = p.Fields
	}
	return w
}

func (p *PageResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.wire())
}

// Extraction is the response for one document. A single page document is
// flattened into the top level; longer documents list pages by index.
type Extraction struct {
	JobID    uuid.UUID
	Filename string
	DocType  constants.DocumentType
	Status   constants.JobStatus
	Pages    []*PageResult
}

// MultiPage reports whether the document is rendered with a pages breakdown.
func (e *Extraction) MultiPage() bool {
	return len(e.Pages) != 1
}

func (e *Extraction) MarshalJSON() ([]byte, error) {
	if !e.MultiPage() {
		p := e.Pages[0].wire()
		return json.Marshal(struct {
			JobID       *uuid.UUID             `json:"job_id,omitempty"`
			Filename    string                 `json:"filename"`
			DocType     constants.DocumentType `json:"doc_type"`
			ProcessType router.Strategy        `json:"process_type"`
			Values      any                    `json:"values"`
			Usage       *llm.Usage             `json:"usage"`
			Content     *string                `json:"content"`
		}{e.jobID(), e.Filename, e.DocType, p.ProcessType, p.Values, p.Usage, p.Content})
	}

	pages := make(map[string]*PageResult, len(e.Pages))
	for _, p := range e.Pages {
		pages[strconv.Itoa(p.Index)] = p
	}
	return json.Marshal(struct {
		JobID    *uuid.UUID             `json:"job_id,omitempty"`
		Filename string                 `json:"filename"`
		DocType  constants.DocumentType `json:"doc_type"`
		NumPages int                    `json:"num_pages"`
		Pages    map[string]*PageResult `json:"pages"`
	}{e.jobID(), e.Filename, e.DocType, len(e.Pages), pages})
}

func (e *Extraction) jobID() *uuid.UUID {
	if e.JobID == uuid.Nil {
		return nil
	}
	return &e.JobID
}

// Strategies counts the strategy used per page, failed pages excluded.
func (e *Extraction) Strategies() map[router.Strategy]int {
	out := map[router.Strategy]int{}
	for _, p := range e.Pages {
		if p.Strategy != router.StrategyNone && p.Detail == "" {
			out[p.Strategy]++
		}
	}
	return out
}
