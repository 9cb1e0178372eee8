package topology

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"go.loomcache.dev/loom/spec/mocks"
	"go.loomcache.dev/loom/spec/topology"
	"go.loomcache.dev/loom/util/testcond"
	"go.loomcache.dev/loom/util/worker"
)

// every node joins every cache from its own goroutine while membership
// events fire concurrently; the policy must settle on a balanced topology
// for each cache
func TestConcurrentEventsReachSteadyState(t *testing.T) {
	as := require.New(t)
	logger := zaptest.NewLogger(t)

	members := []topology.Address{"n0", "n1", "n2", "n3", "n4"}
	caches := []string{"alpha", "beta"}

	transport := new(mocks.Transport)
	transport.On("GetMembers").Return(members)

	pool := worker.NewPool(4)
	defer pool.Stop()

	manager := &LoopbackManager{Logger: logger}
	policy, err := New(Config{
		Logger:    logger,
		Transport: transport,
		Manager:   manager,
		Executor:  pool,
	})
	as.NoError(err)
	manager.Policy = policy
	as.NoError(policy.Start())

	for _, cache := range caches {
		as.NoError(policy.InitCache(cache, testJoinInfo(3, 16)))
	}

	var wg sync.WaitGroup
	for _, m := range members {
		for _, cache := range caches {
			wg.Add(1)
			go func(cache string, m topology.Address) {
				defer wg.Done()
				_, err := policy.AddJoiners(cache, []topology.Address{m})
				require.NoError(t, err)
			}(cache, m)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, policy.UpdateMembersList(members))
		}()
	}
	wg.Wait()

	// one final view update covers joiners whose decision jobs lost every race
	as.NoError(policy.UpdateMembersList(members))

	for _, cache := range caches {
		as.NoError(testcond.WaitForCondition(func() bool {
			current := policy.GetTopology(cache)
			if current == nil || current.CurrentCH == nil || current.PendingCH != nil {
				return false
			}
			return len(current.CurrentCH.Members()) == len(members) &&
				topology.IsBalanced(current.CurrentCH)
		}, time.Millisecond*10, time.Second*5), "cache %s never settled", cache)
	}

	// settled means every joiner became an owner
	for _, cache := range caches {
		status, ok := policy.statuses.Load(cache)
		as.True(ok)
		status.mu.Lock()
		as.Empty(status.joiners)
		status.mu.Unlock()
	}
}

func TestConcurrentCachesAreIndependent(t *testing.T) {
	as := require.New(t)
	h := newTestHarness(t, "a", "b")

	as.NoError(h.policy.InitCache("alpha", testJoinInfo(2, 8)))
	as.NoError(h.policy.InitCache("beta", testJoinInfo(1, 4)))

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := h.policy.AddJoiners("alpha", []topology.Address{"a"})
			require.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := h.policy.AddJoiners("beta", []topology.Address{"b"})
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	alpha := h.policy.GetTopology("alpha")
	as.Equal([]topology.Address{"a"}, alpha.CurrentCH.Members())
	as.Equal(8, alpha.CurrentCH.NumSegments())

	beta := h.policy.GetTopology("beta")
	as.Equal([]topology.Address{"b"}, beta.CurrentCH.Members())
	as.Equal(4, beta.CurrentCH.NumSegments())
}
