package segmented

import (
	"github.com/zeebo/xxh3"

	"go.loomcache.dev/loom/spec/topology"
)

// DefaultHashFn is the hash function caches use unless they supply their own.
func DefaultHashFn(b []byte) uint64 {
	return xxh3.Hash(b)
}

// SegmentedHash is an immutable segment-table consistent hash: every segment
// carries an explicit owner list, primary owner first. All mutations go
// through the Factory and produce fresh instances.
type SegmentedHash struct {
	hashFn    topology.HashFn
	numOwners int
	members   []topology.Address
	owners    [][]topology.Address
}

var _ topology.ConsistentHash = (*SegmentedHash)(nil)

func (h *SegmentedHash) NumSegments() int {
	return len(h.owners)
}

func (h *SegmentedHash) NumOwners() int {
	return h.numOwners
}

func (h *SegmentedHash) Members() []topology.Address {
	return h.members
}

func (h *SegmentedHash) Owners(segment int) []topology.Address {
	if segment < 0 || segment >= len(h.owners) {
		return nil
	}
	return h.owners[segment]
}

func (h *SegmentedHash) Segment(key []byte) int {
	return int(h.hashFn(key) % uint64(len(h.owners)))
}

func (h *SegmentedHash) Equal(other topology.ConsistentHash) bool {
	o, ok := other.(*SegmentedHash)
	if !ok {
		return false
	}
	if h.numOwners != o.numOwners || len(h.owners) != len(o.owners) || len(h.members) != len(o.members) {
		return false
	}
	for i := range h.members {
		if h.members[i] != o.members[i] {
			return false
		}
	}
	for s := range h.owners {
		if len(h.owners[s]) != len(o.owners[s]) {
			return false
		}
		for i := range h.owners[s] {
			if h.owners[s][i] != o.owners[s][i] {
				return false
			}
		}
	}
	return true
}

// copyOwners deep-copies the owner table so derived hashes never alias it.
func (h *SegmentedHash) copyOwners() [][]topology.Address {
	owners := make([][]topology.Address, len(h.owners))
	for s := range h.owners {
		owners[s] = append([]topology.Address(nil), h.owners[s]...)
	}
	return owners
}
