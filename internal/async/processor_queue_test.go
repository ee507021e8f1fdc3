package async

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/mxdocs-extractor/constants"
	"github.com/joseph-ayodele/mxdocs-extractor/internal/common"
	"github.com/joseph-ayodele/mxdocs-extractor/internal/pipeline"
)

type fakeProcessor struct {
	mu       sync.Mutex
	seen     []string
	traceIDs []string
	block    chan struct{}
}

func (f *fakeProcessor) Process(ctx context.Context, req pipeline.Request) (*pipeline.Extraction, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	f.seen = append(f.seen, req.Filename)
	f.traceIDs = append(f.traceIDs, common.RequestIDFromContext(ctx))
	f.mu.Unlock()
	if req.Filename == "bad.pdf" {
		return nil, errors.New("boom")
	}
	return &pipeline.Extraction{Filename: req.Filename, DocType: req.DocType, Status: constants.JobStatusSucceeded}, nil
}

type collector struct {
	mu      sync.Mutex
	results []Result
}

func (c *collector) add(r Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, r)
}

func TestProcessorQueue_ProcessesAll(t *testing.T) {
	proc := &fakeProcessor{}
	col := &collector{}
	q := NewProcessorQueue(proc, col.add, nil, WithWorkers(3), WithQueueSize(2))

	names := []string{"a.pdf", "b.pdf", "bad.pdf", "c.jpg", "d.png"}
	for _, n := range names {
		require.NoError(t, q.Enqueue(context.Background(), Job{
			Path:    "/in/" + n,
			Request: pipeline.Request{Filename: n, DocType: constants.SAT},
			TraceID: "trace-" + n,
		}))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	q.Shutdown(ctx)

	require.Len(t, col.results, len(names))
	var failed int
	for _, r := range col.results {
		assert.False(t, r.Job.SubmittedAt.IsZero())
		if r.Err != nil {
			failed++
			assert.Nil(t, r.Extraction)
			assert.Equal(t, "/in/bad.pdf", r.Job.Path)
			continue
		}
		assert.Equal(t, r.Job.Request.Filename, r.Extraction.Filename)
	}
	assert.Equal(t, 1, failed)
	assert.ElementsMatch(t, names, proc.seen)
	assert.Contains(t, proc.traceIDs, "trace-a.pdf")
}

func TestProcessorQueue_EnqueueAfterShutdown(t *testing.T) {
	q := NewProcessorQueue(&fakeProcessor{}, nil, nil, WithWorkers(1))
	q.Shutdown(context.Background())
	q.Shutdown(context.Background())

	err := q.Enqueue(context.Background(), Job{Path: "late.pdf"})
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestProcessorQueue_EnqueueRespectsContext(t *testing.T) {
	proc := &fakeProcessor{block: make(chan struct{})}
	q := NewProcessorQueue(proc, nil, nil, WithWorkers(1), WithQueueSize(1))

	// one job held by the worker, one filling the buffer
	require.NoError(t, q.Enqueue(context.Background(), Job{Path: "1"}))
	require.Eventually(t, func() bool { return len(q.ch) == 0 }, time.Second, 5*time.Millisecond)
	require.NoError(t, q.Enqueue(context.Background(), Job{Path: "2"}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := q.Enqueue(ctx, Job{Path: "3"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(proc.block)
	q.Shutdown(context.Background())
}

func TestProcessorQueue_ShutdownReleasesBlockedProducers(t *testing.T) {
	proc := &fakeProcessor{block: make(chan struct{})}
	col := &collector{}
	q := NewProcessorQueue(proc, col.add, nil, WithWorkers(1), WithQueueSize(1))

	require.NoError(t, q.Enqueue(context.Background(), Job{Path: "1"}))
	require.Eventually(t, func() bool { return len(q.ch) == 0 }, time.Second, 5*time.Millisecond)
	require.NoError(t, q.Enqueue(context.Background(), Job{Path: "2"}))

	blocked := make(chan error, 1)
	go func() { blocked <- q.Enqueue(context.Background(), Job{Path: "3"}) }()

	shutdown := make(chan struct{})
	go func() {
		defer close(shutdown)
		q.Shutdown(context.Background())
	}()

	select {
	case err := <-blocked:
		assert.ErrorIs(t, err, ErrQueueClosed)
	case <-time.After(time.Second):
		t.Fatal("blocked Enqueue did not return after Shutdown")
	}
	assert.ErrorIs(t, q.Enqueue(context.Background(), Job{Path: "4"}), ErrQueueClosed)

	close(proc.block)
	select {
	case <-shutdown:
	case <-time.After(5 * time.Second):
		t.Fatal("Shutdown did not finish")
	}
	col.mu.Lock()
	defer col.mu.Unlock()
	assert.Len(t, col.results, 2)
}
