package topology

// RebalancePolicy drives the assignment of cache segments to cluster
// members as nodes join and leave. One instance coordinates all caches;
// operations on different caches proceed independently.
type RebalancePolicy interface {
	// Start snapshots the transport's member list. Must run after the
	// collaborators are wired and before any cache topology activity.
	Start() error

	// InitCache registers a cache with its join parameters. Idempotent;
	// the first writer wins.
	InitCache(cacheName string, joinInfo CacheJoinInfo) error
	// InitCacheWithTopologies merges the topologies that sub-partitions
	// held for the same cache after a partition heal, installing and
	// broadcasting their union.
	InitCacheWithTopologies(cacheName string, partitionTopologies []*CacheTopology) error

	// AddJoiners records nodes that want to join a cache and returns the
	// latest topology. Returns a nil topology for an unknown cache.
	AddJoiners(cacheName string, joiners []Address) (*CacheTopology, error)
	// RemoveLeavers removes nodes from a cache's consistent hashes.
	RemoveLeavers(cacheName string, leavers []Address) error

	// UpdateMembersList replaces the cluster view and prunes every cache
	// topology that references departed members.
	UpdateMembersList(newClusterMembers []Address) error

	// OnRebalanceCompleted promotes the pending hash of a cache once every
	// node confirmed the rebalance identified by topologyID.
	OnRebalanceCompleted(cacheName string, topologyID int) error

	// GetTopology returns the latest topology without locking, or nil for
	// an unknown cache.
	GetTopology(cacheName string) *CacheTopology
}

// ClusterTopologyManager is the broadcast and RPC surface the policy drives.
type ClusterTopologyManager interface {
	// UpdateConsistentHash broadcasts the latest topology to all members.
	// Fire-and-forget; invoked with the cache status lock held.
	UpdateConsistentHash(cacheName string, topology *CacheTopology) error
	// Rebalance initiates the cluster-wide state transfer protocol. May
	// block; invoked outside the cache status lock. Completion arrives
	// through RebalancePolicy.OnRebalanceCompleted.
	Rebalance(cacheName string, topology *CacheTopology) error
}

// Transport supplies the initial cluster view. Later membership changes are
// pushed in through RebalancePolicy.UpdateMembersList.
type Transport interface {
	GetMembers() []Address
}

// Executor runs rebalance decision jobs off the caller thread. Submitted
// jobs run at least once; the policy tolerates duplicate executions.
type Executor interface {
	Submit(task func()) error
}
