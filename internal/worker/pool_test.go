package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/leadscout/internal/logger"
)

func TestPoolBoundsConcurrency(t *testing.T) {
	pool := NewPool(logger.NewNop(), 2)

	var running, peak atomic.Int64
	var mu sync.Mutex

	for range 6 {
		err := pool.Submit(context.Background(), func(context.Context) {
			n := running.Add(1)
			mu.Lock()
			if n > peak.Load() {
				peak.Store(n)
			}
			mu.Unlock()
			time.Sleep(10 * time.Millisecond)
			running.Add(-1)
		})
		require.NoError(t, err)
	}

	pool.Wait()
	assert.LessOrEqual(t, peak.Load(), int64(2))
}

func TestPoolSubmitRespectsContext(t *testing.T) {
	pool := NewPool(logger.NewNop(), 1)

	release := make(chan struct{})
	require.NoError(t, pool.Submit(context.Background(), func(context.Context) {
		<-release
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := pool.Submit(ctx, func(context.Context) {
		t.Error("task must not run after context cancellation")
	})
	assert.ErrorIs(t, err, context.Canceled)

	close(release)
	pool.Wait()
}

func TestPoolDetachOutlivesSubmitter(t *testing.T) {
	pool := NewPool(logger.NewNop(), 1)

	parent, cancelParent := context.WithCancel(context.Background())
	grace := context.Background()

	done := make(chan struct{})
	require.NoError(t, pool.Detach(parent, grace, func(ctx context.Context) {
		// The submitter is gone, but our context is the grace one.
		assert.NoError(t, ctx.Err())
		close(done)
	}))

	cancelParent()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("detached task did not run")
	}
	pool.Wait()
}

func TestPoolMinimumSize(t *testing.T) {
	pool := NewPool(logger.NewNop(), 0)

	ran := false
	require.NoError(t, pool.Submit(context.Background(), func(context.Context) {
		ran = true
	}))
	pool.Wait()
	assert.True(t, ran)
}
