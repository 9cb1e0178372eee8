package topology

import (
	"go.uber.org/zap"

	"go.loomcache.dev/loom/spec/topology"
)

// LoopbackManager is a ClusterTopologyManager for standalone operation: it
// logs topology broadcasts and confirms every rebalance immediately, as the
// only node that would have to apply the pending hash is the local one.
// Wire the Policy after construction.
type LoopbackManager struct {
	Logger *zap.Logger
	Policy topology.RebalancePolicy
}

var _ topology.ClusterTopologyManager = (*LoopbackManager)(nil)

func (m *LoopbackManager) UpdateConsistentHash(cacheName string, cacheTopology *topology.CacheTopology) error {
	m.Logger.Info("Topology broadcast",
		zap.String("cache", cacheName), zap.Stringer("topology", cacheTopology))
	return nil
}

func (m *LoopbackManager) Rebalance(cacheName string, cacheTopology *topology.CacheTopology) error {
	m.Logger.Info("Rebalance initiated",
		zap.String("cache", cacheName), zap.Stringer("topology", cacheTopology))
	if m.Policy == nil {
		return nil
	}
	return m.Policy.OnRebalanceCompleted(cacheName, cacheTopology.TopologyID)
}
