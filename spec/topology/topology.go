package topology

import (
	"errors"
	"fmt"
	"strings"
)

// Address identifies a cluster member. Addresses are opaque to the policy
// engine; ordering is positional within whatever member list carries them.
type Address string

// HashFn maps a key onto the hash space shared by all consistent hashes of
// a cache.
type HashFn func([]byte) uint64

// CacheJoinInfo carries the static parameters a cache supplies on its first
// join. Immutable after creation.
type CacheJoinInfo struct {
	HashFn      HashFn
	NumOwners   int
	NumSegments int
	Factory     ConsistentHashFactory
}

func (j *CacheJoinInfo) Validate() error {
	if j == nil {
		return errors.New("nil CacheJoinInfo")
	}
	if j.HashFn == nil {
		return errors.New("nil HashFn")
	}
	if j.NumOwners < 1 {
		return errors.New("invalid NumOwners, must be at least 1")
	}
	if j.NumSegments < 1 {
		return errors.New("invalid NumSegments, must be at least 1")
	}
	if j.Factory == nil {
		return errors.New("nil Factory")
	}
	return nil
}

// CacheTopology is the versioned pair of consistent hashes of a cache.
// A nil CurrentCH means no members have been assigned yet; a non-nil
// PendingCH means a rebalance is in progress and ownership is transitioning
// from CurrentCH to PendingCH. Treated as an immutable value: state changes
// install a fresh CacheTopology.
type CacheTopology struct {
	TopologyID int
	CurrentCH  ConsistentHash
	PendingCH  ConsistentHash
}

// Members returns the effective member set: the union of the pending and
// current members when both hashes exist, pending members first.
func (t *CacheTopology) Members() []Address {
	switch {
	case t.PendingCH == nil && t.CurrentCH == nil:
		return nil
	case t.PendingCH == nil:
		return t.CurrentCH.Members()
	case t.CurrentCH == nil:
		return t.PendingCH.Members()
	}

	pending := t.PendingCH.Members()
	members := make([]Address, 0, len(pending))
	seen := make(map[Address]bool, len(pending))
	for _, m := range pending {
		seen[m] = true
		members = append(members, m)
	}
	for _, m := range t.CurrentCH.Members() {
		if seen[m] {
			continue
		}
		seen[m] = true
		members = append(members, m)
	}
	return members
}

func (t *CacheTopology) String() string {
	var sb strings.Builder
	sb.WriteString("CacheTopology{id=")
	fmt.Fprintf(&sb, "%d", t.TopologyID)
	sb.WriteString(", currentCH=")
	writeCH(&sb, t.CurrentCH)
	sb.WriteString(", pendingCH=")
	writeCH(&sb, t.PendingCH)
	sb.WriteString("}")
	return sb.String()
}

func writeCH(sb *strings.Builder, ch ConsistentHash) {
	if ch == nil {
		sb.WriteString("<nil>")
		return
	}
	fmt.Fprintf(sb, "%v", ch.Members())
}
