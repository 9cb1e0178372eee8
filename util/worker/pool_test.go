package worker

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
	"go.uber.org/goleak"

	"go.loomcache.dev/loom/spec/topology"
	"go.loomcache.dev/loom/util/testcond"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestSubmitRunsTask(t *testing.T) {
	as := require.New(t)

	pool := NewPool(2)
	defer pool.Stop()

	ran := atomic.NewInt64(0)
	for i := 0; i < 10; i++ {
		as.NoError(pool.Submit(func() {
			ran.Inc()
		}))
	}

	as.NoError(testcond.WaitForCondition(func() bool {
		return ran.Load() == 10
	}, time.Millisecond*10, time.Second*5))
}

func TestSubmitOverflowDoesNotBlock(t *testing.T) {
	as := require.New(t)

	pool := NewPool(1)
	defer pool.Stop()

	// saturate the single worker and the queue
	release := make(chan struct{})
	var wg sync.WaitGroup
	ran := atomic.NewInt64(0)
	total := 1 + cap(pool.tasks) + 5
	for i := 0; i < total; i++ {
		wg.Add(1)
		as.NoError(pool.Submit(func() {
			defer wg.Done()
			<-release
			ran.Inc()
		}))
	}
	close(release)
	wg.Wait()

	as.Equal(int64(total), ran.Load())
}

func TestStopDrainsQueuedTasks(t *testing.T) {
	as := require.New(t)

	pool := NewPool(1)
	ran := atomic.NewInt64(0)
	for i := 0; i < 5; i++ {
		as.NoError(pool.Submit(func() {
			ran.Inc()
		}))
	}
	pool.Stop()

	as.Equal(int64(5), ran.Load())
	as.ErrorIs(pool.Submit(func() {}), topology.ErrExecutorStopped)
}

func TestStopIsIdempotent(t *testing.T) {
	pool := NewPool(2)
	pool.Stop()
	pool.Stop()
}
