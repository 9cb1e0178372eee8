package topology

import (
	"sync"

	"go.uber.org/atomic"

	"go.loomcache.dev/loom/spec/topology"
)

// cacheStatus is the per-cache mutable state. Mutations happen while mu is
// held; the topology pointer is replaced whole, so readers never take the
// lock.
type cacheStatus struct {
	mu       sync.Mutex
	joinInfo topology.CacheJoinInfo
	joiners  []topology.Address
	current  *atomic.Pointer[topology.CacheTopology]
}

func newCacheStatus(joinInfo topology.CacheJoinInfo) *cacheStatus {
	return &cacheStatus{
		joinInfo: joinInfo,
		current:  atomic.NewPointer(&topology.CacheTopology{TopologyID: -1}),
	}
}

func (s *cacheStatus) cacheTopology() *topology.CacheTopology {
	return s.current.Load()
}

func (s *cacheStatus) setCacheTopology(t *topology.CacheTopology) {
	s.current.Store(t)
}

// removeJoiners drops every joiner that is now an owner.
func (s *cacheStatus) removeJoiners(owners []topology.Address) {
	if len(s.joiners) == 0 {
		return
	}
	owned := make(map[topology.Address]bool, len(owners))
	for _, m := range owners {
		owned[m] = true
	}
	kept := s.joiners[:0]
	for _, j := range s.joiners {
		if !owned[j] {
			kept = append(kept, j)
		}
	}
	s.joiners = kept
}
