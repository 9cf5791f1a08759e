package scheduler

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingCleaner struct {
	calls int
	err   error
}

func (c *countingCleaner) Cleanup(ctx context.Context) (int, error) {
	c.calls++
	if _, ok := ctx.Deadline(); !ok {
		panic("cleanup must run with a deadline")
	}
	return 2, c.err
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNew_InvalidSpec(t *testing.T) {
	_, err := New(discard(), &countingCleaner{}, "every day")
	assert.Error(t, err)
}

func TestRunOnce(t *testing.T) {
	c := &countingCleaner{}
	s, err := New(discard(), c, "0 3 * * *")
	require.NoError(t, err)

	s.RunOnce()
	c.err = assert.AnError
	s.RunOnce()

	assert.Equal(t, 2, c.calls)
}

func TestStartStop(t *testing.T) {
	s, err := New(discard(), &countingCleaner{}, "0 3 * * *")
	require.NoError(t, err)

	s.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}
