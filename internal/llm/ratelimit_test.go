package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

type countingExtractor struct{ calls int }

func (c *countingExtractor) Name() string { return "counting" }

func (c *countingExtractor) Extract(_ context.Context, _ Request) (*Result, error) {
	c.calls++
	return &Result{Fields: map[string]any{"ok": true}}, nil
}

func TestRateLimited(t *testing.T) {
	next := &countingExtractor{}
	ex := RateLimited(next, rate.NewLimiter(rate.Every(time.Hour), 1))
	assert.Equal(t, "counting", ex.Name())

	_, err := ex.Extract(context.Background(), Request{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = ex.Extract(ctx, Request{})
	require.Error(t, err)
	assert.Equal(t, 1, next.calls)
}

func TestRateLimited_NilLimiter(t *testing.T) {
	next := &countingExtractor{}
	assert.Same(t, Extractor(next), RateLimited(next, nil))
	assert.Nil(t, NewLimiter(0, 1))
	assert.NotNil(t, NewLimiter(2, 0))
}
