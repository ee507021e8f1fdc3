package async

import (
	"context"
	"errors"
	"time"

	"github.com/joseph-ayodele/mxdocs-extractor/internal/pipeline"
)

var ErrQueueClosed = errors.New("queue is shutting down")

// Job is one document waiting to be processed.
type Job struct {
	Path        string // where the document came from, for reporting
	Request     pipeline.Request
	SubmittedAt time.Time
	TraceID     string
}

// Result is what a worker reports for a Job. Extraction is nil when Err is set.
type Result struct {
	Job        Job
	Extraction *pipeline.Extraction
	Err        error
	Elapsed    time.Duration
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}

// Processor runs one document end to end.
type Processor interface {
	Process(ctx context.Context, req pipeline.Request) (*pipeline.Extraction, error)
}
