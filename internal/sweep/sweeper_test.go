package sweep

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSweeper struct {
	calls   atomic.Int64
	started chan struct{}
	release chan struct{}
}

func (f *fakeSweeper) SweepStatuses(context.Context) (int, int, error) {
	f.calls.Add(1)
	if f.started != nil {
		f.started <- struct{}{}
		<-f.release
	}
	return 0, 0, nil
}

func TestRunOnce_Sequential(t *testing.T) {
	fake := &fakeSweeper{}
	s := New(fake, time.Minute, zerolog.Nop())

	s.RunOnce(context.Background())
	s.RunOnce(context.Background())

	assert.Equal(t, int64(2), fake.calls.Load())
}

func TestRunOnce_SingleFlight(t *testing.T) {
	fake := &fakeSweeper{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	s := New(fake, time.Minute, zerolog.Nop())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.RunOnce(context.Background())
	}()

	// Wait until the first sweep is in flight, then try to overlap it.
	<-fake.started
	s.RunOnce(context.Background())
	require.Equal(t, int64(1), fake.calls.Load(), "overlapping sweep must be skipped")

	close(fake.release)
	wg.Wait()

	// With the first sweep finished the next run proceeds.
	fake.started = nil
	s.RunOnce(context.Background())
	assert.Equal(t, int64(2), fake.calls.Load())
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	fake := &fakeSweeper{}
	s := New(fake, 10*time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	// Let at least the immediate sweep happen, then cancel.
	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after context cancellation")
	}
	assert.GreaterOrEqual(t, fake.calls.Load(), int64(1))
}
