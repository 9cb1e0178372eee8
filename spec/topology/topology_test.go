package topology

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeCH struct {
	numOwners int
	members   []Address
	owners    [][]Address
}

var _ ConsistentHash = (*fakeCH)(nil)

func (f *fakeCH) NumSegments() int { return len(f.owners) }

func (f *fakeCH) NumOwners() int { return f.numOwners }

func (f *fakeCH) Members() []Address { return f.members }

func (f *fakeCH) Owners(segment int) []Address { return f.owners[segment] }

func (f *fakeCH) Segment(key []byte) int { return 0 }

func (f *fakeCH) Equal(other ConsistentHash) bool { return f == other }

func TestCacheTopologyMembers(t *testing.T) {
	as := require.New(t)

	current := &fakeCH{numOwners: 1, members: []Address{"a", "b"}}
	pending := &fakeCH{numOwners: 1, members: []Address{"b", "c"}}

	empty := &CacheTopology{TopologyID: -1}
	as.Nil(empty.Members())

	currentOnly := &CacheTopology{TopologyID: 0, CurrentCH: current}
	as.Equal([]Address{"a", "b"}, currentOnly.Members())

	pendingOnly := &CacheTopology{TopologyID: 0, PendingCH: pending}
	as.Equal([]Address{"b", "c"}, pendingOnly.Members())

	both := &CacheTopology{TopologyID: 1, CurrentCH: current, PendingCH: pending}
	as.Equal([]Address{"b", "c", "a"}, both.Members())
}

func TestIsBalanced(t *testing.T) {
	as := require.New(t)

	as.False(IsBalanced(nil))

	balanced := &fakeCH{
		numOwners: 2,
		members:   []Address{"a", "b", "c"},
		owners: [][]Address{
			{"a", "b"},
			{"b", "c"},
		},
	}
	as.True(IsBalanced(balanced))

	short := &fakeCH{
		numOwners: 2,
		members:   []Address{"a", "b", "c"},
		owners: [][]Address{
			{"a", "b"},
			{"b"},
		},
	}
	as.False(IsBalanced(short))

	// fewer members than owners: one owner per segment is balanced
	single := &fakeCH{
		numOwners: 2,
		members:   []Address{"a"},
		owners: [][]Address{
			{"a"},
			{"a"},
		},
	}
	as.True(IsBalanced(single))

	over := &fakeCH{
		numOwners: 2,
		members:   []Address{"a", "b", "c", "d"},
		owners: [][]Address{
			{"a", "b", "c", "d"},
			{"a", "b"},
		},
	}
	as.False(IsBalanced(over))
}

func TestCacheJoinInfoValidate(t *testing.T) {
	as := require.New(t)

	hashFn := func(b []byte) uint64 { return 0 }
	factory := stubFactory{}

	valid := &CacheJoinInfo{HashFn: hashFn, NumOwners: 2, NumSegments: 16, Factory: factory}
	as.NoError(valid.Validate())

	var nilInfo *CacheJoinInfo
	as.Error(nilInfo.Validate())
	as.Error((&CacheJoinInfo{NumOwners: 2, NumSegments: 16, Factory: factory}).Validate())
	as.Error((&CacheJoinInfo{HashFn: hashFn, NumOwners: 0, NumSegments: 16, Factory: factory}).Validate())
	as.Error((&CacheJoinInfo{HashFn: hashFn, NumOwners: 2, NumSegments: 0, Factory: factory}).Validate())
	as.Error((&CacheJoinInfo{HashFn: hashFn, NumOwners: 2, NumSegments: 16}).Validate())
}

type stubFactory struct{}

var _ ConsistentHashFactory = stubFactory{}

func (stubFactory) Create(hashFn HashFn, numOwners, numSegments int, members []Address) (ConsistentHash, error) {
	return nil, nil
}

func (stubFactory) UpdateMembers(ch ConsistentHash, newMembers []Address) (ConsistentHash, error) {
	return ch, nil
}

func (stubFactory) Union(a, b ConsistentHash) (ConsistentHash, error) {
	return a, nil
}

func (stubFactory) Rebalance(ch ConsistentHash) ConsistentHash {
	return ch
}
