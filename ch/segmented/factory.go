package segmented

import (
	"errors"

	"go.loomcache.dev/loom/spec/topology"
)

var (
	ErrInvalidCounts = errors.New("segmented: numOwners and numSegments must be at least 1")
	ErrForeignHash   = errors.New("segmented: consistent hash was not produced by this factory")
)

// Factory produces SegmentedHash values. Stateless; a single instance can
// serve every cache.
type Factory struct{}

var _ topology.ConsistentHashFactory = (*Factory)(nil)

func New() *Factory {
	return &Factory{}
}

func (f *Factory) Create(hashFn topology.HashFn, numOwners, numSegments int, members []topology.Address) (topology.ConsistentHash, error) {
	if numOwners < 1 || numSegments < 1 {
		return nil, ErrInvalidCounts
	}
	if len(members) == 0 {
		return nil, topology.ErrNoMembers
	}
	if hasDuplicates(members) {
		return nil, topology.ErrDuplicateMember
	}
	if hashFn == nil {
		hashFn = DefaultHashFn
	}

	ms := append([]topology.Address(nil), members...)
	n := len(ms)
	t := numOwners
	if n < t {
		t = n
	}

	// round-robin assignment: primaries rotate through the member list so
	// per-member primary counts differ by at most one; total owner counts
	// can spread wider and are evened out by Rebalance
	owners := make([][]topology.Address, numSegments)
	for s := 0; s < numSegments; s++ {
		list := make([]topology.Address, 0, t)
		for i := 0; i < t; i++ {
			list = append(list, ms[(s+i)%n])
		}
		owners[s] = list
	}

	return &SegmentedHash{
		hashFn:    hashFn,
		numOwners: numOwners,
		members:   ms,
		owners:    owners,
	}, nil
}

func (f *Factory) UpdateMembers(ch topology.ConsistentHash, newMembers []topology.Address) (topology.ConsistentHash, error) {
	h, ok := ch.(*SegmentedHash)
	if !ok {
		return nil, ErrForeignHash
	}
	if len(newMembers) == 0 {
		return nil, topology.ErrNoMembers
	}
	if hasDuplicates(newMembers) {
		return nil, topology.ErrDuplicateMember
	}

	ms := append([]topology.Address(nil), newMembers...)
	retained := memberSet(ms)
	load := make(map[topology.Address]int, len(ms))
	owners := make([][]topology.Address, len(h.owners))
	var orphaned []int

	for s := range h.owners {
		kept := make([]topology.Address, 0, len(h.owners[s]))
		for _, o := range h.owners[s] {
			if retained[o] {
				kept = append(kept, o)
				load[o]++
			}
		}
		owners[s] = kept
		if len(kept) == 0 {
			orphaned = append(orphaned, s)
		}
	}

	// a segment must never end up with zero owners, so segments that lost
	// their entire owner list are re-homed to the least loaded survivor
	for _, s := range orphaned {
		m := leastLoaded(ms, load, nil)
		owners[s] = append(owners[s], m)
		load[m]++
	}

	return &SegmentedHash{
		hashFn:    h.hashFn,
		numOwners: h.numOwners,
		members:   ms,
		owners:    owners,
	}, nil
}

func (f *Factory) Union(a, b topology.ConsistentHash) (topology.ConsistentHash, error) {
	ha, ok := a.(*SegmentedHash)
	if !ok {
		return nil, ErrForeignHash
	}
	hb, ok := b.(*SegmentedHash)
	if !ok {
		return nil, ErrForeignHash
	}
	if len(ha.owners) != len(hb.owners) || ha.numOwners != hb.numOwners {
		return nil, topology.ErrSegmentMismatch
	}

	ms := append([]topology.Address(nil), ha.members...)
	seen := memberSet(ms)
	for _, m := range hb.members {
		if !seen[m] {
			seen[m] = true
			ms = append(ms, m)
		}
	}

	owners := make([][]topology.Address, len(ha.owners))
	for s := range owners {
		list := append([]topology.Address(nil), ha.owners[s]...)
		present := memberSet(list)
		for _, o := range hb.owners[s] {
			if !present[o] {
				present[o] = true
				list = append(list, o)
			}
		}
		owners[s] = list
	}

	return &SegmentedHash{
		hashFn:    ha.hashFn,
		numOwners: ha.numOwners,
		members:   ms,
		owners:    owners,
	}, nil
}

func (f *Factory) Rebalance(ch topology.ConsistentHash) topology.ConsistentHash {
	h, ok := ch.(*SegmentedHash)
	if !ok {
		return ch
	}

	n := len(h.members)
	t := h.numOwners
	if n < t {
		t = n
	}

	owners := h.copyOwners()
	load := make(map[topology.Address]int, n)

	// trim each segment to its target owner count, preferring the owners
	// that already hold the segment's data
	for s := range owners {
		present := make(map[topology.Address]bool, len(owners[s]))
		kept := make([]topology.Address, 0, t)
		for _, o := range owners[s] {
			if len(kept) == t {
				break
			}
			if present[o] {
				continue
			}
			present[o] = true
			kept = append(kept, o)
			load[o]++
		}
		owners[s] = kept
	}

	// fill segments that are short of owners from the least loaded members
	for s := range owners {
		for len(owners[s]) < t {
			m := leastLoaded(h.members, load, owners[s])
			owners[s] = append(owners[s], m)
			load[m]++
		}
	}

	total := len(owners) * t
	floor := total / n
	ceil := floor
	if total%n != 0 {
		ceil++
	}

	// raise every member to the floor by taking slots from overloaded ones
	for _, m := range h.members {
		for load[m] < floor {
			donor := mostLoaded(h.members, load)
			if load[donor] <= floor {
				break
			}
			moveSlot(owners, load, donor, m)
		}
	}

	// cap members above the ceiling
	for _, m := range h.members {
		for load[m] > ceil {
			recv := leastLoaded(h.members, load, []topology.Address{m})
			if load[recv] >= ceil {
				break
			}
			moveSlot(owners, load, m, recv)
		}
	}

	return &SegmentedHash{
		hashFn:    h.hashFn,
		numOwners: h.numOwners,
		members:   append([]topology.Address(nil), h.members...),
		owners:    owners,
	}
}

// moveSlot reassigns one owner slot from donor to recv in the first segment
// where donor owns and recv does not, keeping the slot position.
func moveSlot(owners [][]topology.Address, load map[topology.Address]int, donor, recv topology.Address) {
	for s := range owners {
		donorAt := -1
		present := false
		for i, o := range owners[s] {
			if o == donor {
				donorAt = i
			}
			if o == recv {
				present = true
				break
			}
		}
		if donorAt == -1 || present {
			continue
		}
		owners[s][donorAt] = recv
		load[donor]--
		load[recv]++
		return
	}
}

func leastLoaded(members []topology.Address, load map[topology.Address]int, exclude []topology.Address) topology.Address {
	excluded := memberSet(exclude)
	var best topology.Address
	bestLoad := -1
	for _, m := range members {
		if excluded[m] {
			continue
		}
		if bestLoad == -1 || load[m] < bestLoad {
			best = m
			bestLoad = load[m]
		}
	}
	return best
}

func mostLoaded(members []topology.Address, load map[topology.Address]int) topology.Address {
	var best topology.Address
	bestLoad := -1
	for _, m := range members {
		if load[m] > bestLoad {
			best = m
			bestLoad = load[m]
		}
	}
	return best
}

func memberSet(members []topology.Address) map[topology.Address]bool {
	set := make(map[topology.Address]bool, len(members))
	for _, m := range members {
		set[m] = true
	}
	return set
}

func hasDuplicates(members []topology.Address) bool {
	return len(memberSet(members)) != len(members)
}
