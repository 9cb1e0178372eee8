package mocks

import (
	"github.com/stretchr/testify/mock"

	"go.loomcache.dev/loom/spec/topology"
)

type ClusterTopologyManager struct {
	mock.Mock
}

var _ topology.ClusterTopologyManager = (*ClusterTopologyManager)(nil)

func (m *ClusterTopologyManager) UpdateConsistentHash(cacheName string, cacheTopology *topology.CacheTopology) error {
	args := m.Called(cacheName, cacheTopology)
	return args.Error(0)
}

func (m *ClusterTopologyManager) Rebalance(cacheName string, cacheTopology *topology.CacheTopology) error {
	args := m.Called(cacheName, cacheTopology)
	return args.Error(0)
}
