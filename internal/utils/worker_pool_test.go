package utils_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kodinohjaus/gateway/internal/utils"
)

func TestWorkerPool_RunsSubmittedTasks(t *testing.T) {
	pool := utils.NewWorkerPool(2)
	defer pool.Shutdown()

	var wg sync.WaitGroup
	var mu sync.Mutex
	ran := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		require.NoError(t, pool.Submit(context.Background(), func() {
			defer wg.Done()
			mu.Lock()
			ran++
			mu.Unlock()
		}))
	}
	wg.Wait()

	assert.Equal(t, 8, ran)
}

func TestWorkerPool_SubmitHonorsContextWhenSaturated(t *testing.T) {
	pool := utils.NewWorkerPool(1)
	defer pool.Shutdown()

	release := make(chan struct{})
	defer close(release)

	// Occupy the only worker, then fill the queue.
	require.NoError(t, pool.Submit(context.Background(), func() { <-release }))
	require.NoError(t, pool.Submit(context.Background(), func() {}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := pool.Submit(ctx, func() { t.Error("saturated submit must not run") })

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWorkerPool_SubmitAfterShutdown(t *testing.T) {
	pool := utils.NewWorkerPool(1)
	pool.Shutdown()

	err := pool.Submit(context.Background(), func() { t.Error("task ran after shutdown") })

	assert.ErrorIs(t, err, utils.ErrPoolClosed)
}

func TestWorkerPool_ShutdownIsIdempotent(t *testing.T) {
	pool := utils.NewWorkerPool(2)

	pool.Shutdown()
	pool.Shutdown()
}
