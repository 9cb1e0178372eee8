package topology

import (
	"fmt"

	"go.uber.org/zap"

	"go.loomcache.dev/loom/metrics"
	"go.loomcache.dev/loom/spec/topology"
)

// triggerRebalance schedules an asynchronous rebalance decision. Triggers
// for a cache coalesce while a job is queued; doRebalance remains the
// serialization point either way. Callers hold the status lock.
func (p *Policy) triggerRebalance(cacheName string, status *cacheStatus) {
	if !p.queued.Add(cacheName) {
		// a decision job is already queued for this cache
		return
	}
	metrics.RebalanceTriggered(cacheName)

	err := p.executor.Submit(func() {
		p.queued.Remove(cacheName)
		if err := p.doRebalance(cacheName, status); err != nil {
			p.logger.Error("Rebalance failed", zap.String("cache", cacheName), zap.Error(err))
		}
	})
	if err != nil {
		p.queued.Remove(cacheName)
		p.logger.Warn("Unable to submit rebalance job",
			zap.String("cache", cacheName), zap.Error(err))
	}
}

// doRebalance computes the balanced target hash and starts the cluster-wide
// state transfer. The decision runs under the status lock; the rebalance
// broadcast runs after the lock is released because it may block.
func (p *Policy) doRebalance(cacheName string, status *cacheStatus) error {
	status.mu.Lock()

	current := status.cacheTopology()
	if current.PendingCH != nil {
		p.logger.Debug("Ignoring rebalance request, one is already in progress",
			zap.String("cache", cacheName), zap.Stringer("topology", current))
		status.mu.Unlock()
		return nil
	}

	newMembers := append([]topology.Address(nil), current.Members()...)
	if len(newMembers) == 0 && len(status.joiners) == 0 {
		p.logger.Debug("Ignoring rebalance request, cache has no members",
			zap.String("cache", cacheName))
		status.mu.Unlock()
		return nil
	}

	newMembers = addUnique(newMembers, status.joiners)
	newMembers = intersect(newMembers, p.members())

	if current.CurrentCH == nil {
		// the only member left between the trigger and this job running
		err := p.installInitialTopology(cacheName, status)
		status.mu.Unlock()
		return err
	}

	if len(newMembers) == 0 {
		p.logger.Debug("Ignoring rebalance request, no members in the cluster view",
			zap.String("cache", cacheName))
		status.mu.Unlock()
		return nil
	}

	p.logger.Debug("Rebalancing consistent hash for cache",
		zap.String("cache", cacheName), zap.Strings("members", addrStrings(newMembers)))

	factory := status.joinInfo.Factory
	updatedMembersCH, err := factory.UpdateMembers(current.CurrentCH, newMembers)
	if err != nil {
		status.mu.Unlock()
		return fmt.Errorf("updating members for cache %s: %w", cacheName, err)
	}
	balancedCH := factory.Rebalance(updatedMembersCH)
	if balancedCH.Equal(current.CurrentCH) {
		p.logger.Debug("The balanced hash is the same as the current hash, not rebalancing",
			zap.String("cache", cacheName))
		status.mu.Unlock()
		return nil
	}

	newCacheTopology := &topology.CacheTopology{
		TopologyID: current.TopologyID + 1,
		CurrentCH:  current.CurrentCH,
		PendingCH:  balancedCH,
	}
	p.logger.Debug("Updating cache topology for rebalance",
		zap.String("cache", cacheName), zap.Stringer("topology", newCacheTopology))
	status.setCacheTopology(newCacheTopology)
	metrics.TopologyInstalled(cacheName, newCacheTopology.TopologyID)
	status.mu.Unlock()

	return p.manager.Rebalance(cacheName, newCacheTopology)
}
