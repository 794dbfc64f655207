package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/contractdocs/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExpirer struct {
	calls  atomic.Int32
	window atomic.Int64
	n      int
	err    error
}

func (f *fakeExpirer) ExpireOlderThan(_ context.Context, window time.Duration) (int, error) {
	f.calls.Add(1)
	f.window.Store(int64(window))
	return f.n, f.err
}

func TestSweepOnce(t *testing.T) {
	f := &fakeExpirer{n: 3}
	s := NewSweeper(f, time.Minute, 2*time.Hour, logging.Discard())

	assert.Equal(t, 3, s.SweepOnce(context.Background()))
	assert.EqualValues(t, 1, f.calls.Load())
	assert.Equal(t, 2*time.Hour, time.Duration(f.window.Load()))
}

func TestSweepOnce_ErrorIsLogged(t *testing.T) {
	f := &fakeExpirer{n: 1, err: errors.New("disk full")}
	s := NewSweeper(f, time.Minute, time.Hour, logging.Discard())

	assert.Equal(t, 1, s.SweepOnce(context.Background()))
}

func TestSweeper_RunTicksUntilCancelled(t *testing.T) {
	f := &fakeExpirer{}
	s := NewSweeper(f, 5*time.Millisecond, time.Hour, logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return f.calls.Load() >= 2 }, time.Second, time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestSweeper_ExpiresRealSessions(t *testing.T) {
	e := newEnv(t)
	e.stage(t, "abandoned", "a.pdf", "ANNEX", "x")
	e.clock.advance(3 * time.Hour)

	s := NewSweeper(e.staging, time.Minute, 2*time.Hour, logging.Discard())
	assert.Equal(t, 1, s.SweepOnce(context.Background()))
	assert.Equal(t, 0, countFiles(t, e.root))
}
