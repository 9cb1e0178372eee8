package topology

import (
	"fmt"

	"github.com/zhangyunhao116/skipmap"
	"github.com/zhangyunhao116/skipset"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"go.loomcache.dev/loom/metrics"
	"go.loomcache.dev/loom/spec/topology"
)

// Policy is the per-cluster rebalance coordinator. It owns the status of
// every cache and serializes all state transitions of a cache behind that
// cache's own lock; caches never block each other.
type Policy struct {
	logger    *zap.Logger
	transport topology.Transport
	manager   topology.ClusterTopologyManager
	executor  topology.Executor

	clusterMembers *atomic.Pointer[[]topology.Address]
	statuses       *skipmap.StringMap[*cacheStatus]
	queued         *skipset.StringSet
}

var _ topology.RebalancePolicy = (*Policy)(nil)

func New(conf Config) (*Policy, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	empty := make([]topology.Address, 0)
	return &Policy{
		logger:         conf.Logger,
		transport:      conf.Transport,
		manager:        conf.Manager,
		executor:       conf.Executor,
		clusterMembers: atomic.NewPointer(&empty),
		statuses:       skipmap.NewString[*cacheStatus](),
		queued:         skipset.NewString(),
	}, nil
}

// Start snapshots the transport's view. Must run before any cache topology
// activity.
func (p *Policy) Start() error {
	ms := append([]topology.Address(nil), p.transport.GetMembers()...)
	p.clusterMembers.Store(&ms)
	p.logger.Info("Rebalance policy started", zap.Strings("members", addrStrings(ms)))
	return nil
}

func (p *Policy) members() []topology.Address {
	if ms := p.clusterMembers.Load(); ms != nil {
		return *ms
	}
	return nil
}

func (p *Policy) InitCache(cacheName string, joinInfo topology.CacheJoinInfo) error {
	if err := joinInfo.Validate(); err != nil {
		return fmt.Errorf("invalid join info for cache %s: %w", cacheName, err)
	}
	p.logger.Debug("Initializing rebalance policy for cache", zap.String("cache", cacheName))
	p.statuses.LoadOrStoreLazy(cacheName, func() *cacheStatus {
		return newCacheStatus(joinInfo)
	})
	return nil
}

func (p *Policy) InitCacheWithTopologies(cacheName string, partitionTopologies []*topology.CacheTopology) error {
	status, ok := p.statuses.Load(cacheName)
	if !ok {
		p.logger.Debug("Ignoring partition topologies for cache, not initialized here",
			zap.String("cache", cacheName))
		return nil
	}
	if len(partitionTopologies) == 0 {
		return nil
	}

	status.mu.Lock()
	defer status.mu.Unlock()

	factory := status.joinInfo.Factory
	unionTopologyID := partitionTopologies[0].TopologyID
	var currentCHUnion, pendingCHUnion topology.ConsistentHash
	for _, t := range partitionTopologies {
		if t.TopologyID > unionTopologyID {
			unionTopologyID = t.TopologyID
		}
		var err error
		if t.CurrentCH != nil {
			if currentCHUnion == nil {
				currentCHUnion = t.CurrentCH
			} else if currentCHUnion, err = factory.Union(currentCHUnion, t.CurrentCH); err != nil {
				return fmt.Errorf("merging current hashes for cache %s: %w", cacheName, err)
			}
		}
		if t.PendingCH != nil {
			if pendingCHUnion == nil {
				pendingCHUnion = t.PendingCH
			} else if pendingCHUnion, err = factory.Union(pendingCHUnion, t.PendingCH); err != nil {
				return fmt.Errorf("merging pending hashes for cache %s: %w", cacheName, err)
			}
		}
	}

	merged := &topology.CacheTopology{
		TopologyID: unionTopologyID,
		CurrentCH:  currentCHUnion,
		PendingCH:  pendingCHUnion,
	}
	// the union is intentionally left unbalanced; the next members update
	// starts the rebalance that restores the balance predicate
	return p.updateConsistentHash(cacheName, status, merged, true)
}

func (p *Policy) AddJoiners(cacheName string, joiners []topology.Address) (*topology.CacheTopology, error) {
	status, ok := p.statuses.Load(cacheName)
	if !ok {
		p.logger.Debug("Ignoring joiners for cache, not initialized here",
			zap.String("cache", cacheName), zap.Strings("joiners", addrStrings(joiners)))
		return nil, nil
	}

	status.mu.Lock()
	defer status.mu.Unlock()

	status.joiners = addUnique(status.joiners, joiners)

	if status.cacheTopology().CurrentCH == nil {
		if err := p.installInitialTopology(cacheName, status); err != nil {
			return nil, err
		}
	} else {
		p.triggerRebalance(cacheName, status)
	}
	return status.cacheTopology(), nil
}

func (p *Policy) RemoveLeavers(cacheName string, leavers []topology.Address) error {
	status, ok := p.statuses.Load(cacheName)
	if !ok {
		p.logger.Debug("Ignoring leavers for cache, not initialized here",
			zap.String("cache", cacheName), zap.Strings("leavers", addrStrings(leavers)))
		return nil
	}

	status.mu.Lock()
	defer status.mu.Unlock()

	newMembers := subtract(p.members(), leavers)
	return p.updateCacheMembers(cacheName, status, newMembers)
}

func (p *Policy) UpdateMembersList(newClusterMembers []topology.Address) error {
	ms := append([]topology.Address(nil), newClusterMembers...)
	p.clusterMembers.Store(&ms)
	p.logger.Debug("Updating cluster members for all caches", zap.Strings("members", addrStrings(ms)))

	var firstErr error
	p.statuses.Range(func(cacheName string, status *cacheStatus) bool {
		if err := p.updateCacheMembership(cacheName, status, ms); err != nil {
			p.logger.Error("Failed to update cache membership",
				zap.String("cache", cacheName), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
		return true
	})
	return firstErr
}

func (p *Policy) updateCacheMembership(cacheName string, status *cacheStatus, newClusterMembers []topology.Address) error {
	status.mu.Lock()
	defer status.mu.Unlock()

	current := status.cacheTopology()
	// the consistent hash may not be initialized yet
	if current.CurrentCH == nil {
		return nil
	}

	view := memberSet(newClusterMembers)
	currentMembersValid := containsAll(view, current.CurrentCH.Members())
	pendingMembersValid := current.PendingCH == nil || containsAll(view, current.PendingCH.Members())
	if !currentMembersValid || !pendingMembersValid {
		newCurrentMembers := intersect(current.CurrentCH.Members(), newClusterMembers)
		if err := p.updateCacheMembers(cacheName, status, newCurrentMembers); err != nil {
			return err
		}
	}

	// rebalance after a leave; the joiners check also covers a join request
	// that arrived before the view carrying the joiner was installed
	if ch := status.cacheTopology().CurrentCH; ch != nil &&
		(!topology.IsBalanced(ch) || len(status.joiners) > 0) {
		p.triggerRebalance(cacheName, status)
	}
	return nil
}

func (p *Policy) OnRebalanceCompleted(cacheName string, topologyID int) error {
	status, ok := p.statuses.Load(cacheName)
	if !ok {
		p.logger.Debug("Ignoring rebalance confirmation for cache, not initialized here",
			zap.String("cache", cacheName), zap.Int("topologyId", topologyID))
		return nil
	}

	status.mu.Lock()
	defer status.mu.Unlock()

	current := status.cacheTopology()
	if topologyID != current.TopologyID || current.PendingCH == nil {
		return fmt.Errorf("%w: received topology id %d, expected %d",
			topology.ErrStaleConfirmation, topologyID, current.TopologyID)
	}

	p.logger.Debug("Finished cluster-wide rebalance",
		zap.String("cache", cacheName), zap.Int("topologyId", topologyID))

	newCurrentCH := current.PendingCH
	promoted := &topology.CacheTopology{
		TopologyID: topologyID + 1,
		CurrentCH:  newCurrentCH,
	}
	if err := p.updateConsistentHash(cacheName, status, promoted, true); err != nil {
		return err
	}
	metrics.RebalanceCompleted(cacheName)

	// postponed joiners start a fresh rebalance now; same for a hash left
	// unbalanced by a leaver
	if len(status.joiners) == 0 && topology.IsBalanced(newCurrentCH) {
		p.logger.Debug("Consistent hash is now balanced", zap.String("cache", cacheName))
	} else {
		p.triggerRebalance(cacheName, status)
	}
	return nil
}

func (p *Policy) GetTopology(cacheName string) *topology.CacheTopology {
	status, ok := p.statuses.Load(cacheName)
	if !ok {
		return nil
	}
	return status.cacheTopology()
}

// updateConsistentHash installs a topology and prunes the joiners that are
// now owners. Callers hold the status lock.
func (p *Policy) updateConsistentHash(cacheName string, status *cacheStatus, cacheTopology *topology.CacheTopology, broadcast bool) error {
	p.logger.Debug("Updating cache topology",
		zap.String("cache", cacheName), zap.Stringer("topology", cacheTopology))
	status.setCacheTopology(cacheTopology)
	metrics.TopologyInstalled(cacheName, cacheTopology.TopologyID)

	if cacheTopology.CurrentCH != nil {
		status.removeJoiners(cacheTopology.CurrentCH.Members())
	}
	if broadcast {
		return p.manager.UpdateConsistentHash(cacheName, status.cacheTopology())
	}
	return nil
}

// installInitialTopology builds the first balanced hash over the joiners.
// The topology is not broadcast: it travels back to the joining node as the
// response to the join that created it. Callers hold the status lock.
func (p *Policy) installInitialTopology(cacheName string, status *cacheStatus) error {
	info := status.joinInfo
	balancedCH, err := info.Factory.Create(info.HashFn, info.NumOwners, info.NumSegments, status.joiners)
	if err != nil {
		return fmt.Errorf("creating initial consistent hash for cache %s: %w", cacheName, err)
	}

	initial := &topology.CacheTopology{
		TopologyID: status.cacheTopology().TopologyID + 1,
		CurrentCH:  balancedCH,
	}
	p.logger.Debug("Installing initial topology",
		zap.String("cache", cacheName), zap.Stringer("topology", initial))
	return p.updateConsistentHash(cacheName, status, initial, false)
}

// updateCacheMembers shrinks both hashes to the surviving members. The
// topology id is not minted here: a membership shrink alone reuses the id.
// Callers hold the status lock.
func (p *Policy) updateCacheMembers(cacheName string, status *cacheStatus, newMembers []topology.Address) error {
	factory := status.joinInfo.Factory
	current := status.cacheTopology()
	currentCH := current.CurrentCH
	pendingCH := current.PendingCH
	if currentCH == nil {
		return nil
	}

	var newPendingCH topology.ConsistentHash
	if pendingCH != nil {
		pendingMembers := intersect(newMembers, pendingCH.Members())
		if len(pendingMembers) > 0 {
			ch, err := factory.UpdateMembers(pendingCH, pendingMembers)
			if err != nil {
				return fmt.Errorf("shrinking pending hash for cache %s: %w", cacheName, err)
			}
			newPendingCH = ch
		} else {
			p.logger.Debug("No pending members remaining for cache", zap.String("cache", cacheName))
		}
	}

	var newCurrentCH topology.ConsistentHash
	currentMembers := intersect(newMembers, currentCH.Members())
	if len(currentMembers) > 0 {
		ch, err := factory.UpdateMembers(currentCH, currentMembers)
		if err != nil {
			return fmt.Errorf("shrinking current hash for cache %s: %w", cacheName, err)
		}
		newCurrentCH = ch
	} else {
		p.logger.Debug("No old members remaining for cache", zap.String("cache", cacheName))
		// the cache survives on the pending members if every old owner left
		newCurrentCH = newPendingCH
	}

	hasMembers := newCurrentCH != nil
	shrunk := &topology.CacheTopology{
		TopologyID: current.TopologyID,
		CurrentCH:  newCurrentCH,
		PendingCH:  newPendingCH,
	}

	// no broadcast and no rebalance when the cache has no members left
	if err := p.updateConsistentHash(cacheName, status, shrunk, hasMembers); err != nil {
		return err
	}
	if hasMembers {
		p.triggerRebalance(cacheName, status)
	}
	return nil
}
