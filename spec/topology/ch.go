package topology

// ConsistentHash assigns every segment of the hash space to an ordered list
// of owners drawn from its member list. Implementations are immutable
// values; all factory operations return fresh instances.
type ConsistentHash interface {
	NumSegments() int
	NumOwners() int
	// Members returns the member list in the ordering the hash was built
	// with. The returned slice must not be mutated by callers.
	Members() []Address
	// Owners returns at least one address for the given segment, primary
	// owner first. A balanced hash returns exactly
	// min(len(Members()), NumOwners()); a Union result can return more.
	Owners(segment int) []Address
	// Segment maps a key onto a segment number in [0, NumSegments()).
	Segment(key []byte) int
	Equal(other ConsistentHash) bool
}

// ConsistentHashFactory provides the pure operations the rebalance policy
// composes. Implementations must not retain or mutate their inputs.
type ConsistentHashFactory interface {
	// Create builds an initial balanced assignment over members.
	Create(hashFn HashFn, numOwners, numSegments int, members []Address) (ConsistentHash, error)
	// UpdateMembers rebuilds ch over newMembers, retaining prior ownership
	// where possible. Members absent from ch start without segments until
	// the next Rebalance; departed members are stripped from every owner
	// list.
	UpdateMembers(ch ConsistentHash, newMembers []Address) (ConsistentHash, error)
	// Union merges owner lists segment-wise so that the result owns at
	// least the owners of both inputs, order-stable.
	Union(a, b ConsistentHash) (ConsistentHash, error)
	// Rebalance returns a balanced hash over the same members. Idempotent:
	// rebalancing an already rebalanced hash returns an equal hash.
	Rebalance(ch ConsistentHash) ConsistentHash
}

// IsBalanced reports whether every segment has exactly
// min(len(members), numOwners) owners.
func IsBalanced(ch ConsistentHash) bool {
	if ch == nil {
		return false
	}
	want := ch.NumOwners()
	if n := len(ch.Members()); n < want {
		want = n
	}
	for s := 0; s < ch.NumSegments(); s++ {
		if len(ch.Owners(s)) != want {
			return false
		}
	}
	return true
}
