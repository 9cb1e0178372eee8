package topology

import "go.loomcache.dev/loom/spec/topology"

// addUnique appends the extras that are not yet present, preserving arrival
// order.
func addUnique(members []topology.Address, extras []topology.Address) []topology.Address {
	present := memberSet(members)
	for _, e := range extras {
		if !present[e] {
			present[e] = true
			members = append(members, e)
		}
	}
	return members
}

// intersect keeps the elements of members that appear in keep, preserving
// the order of members.
func intersect(members []topology.Address, keep []topology.Address) []topology.Address {
	retained := memberSet(keep)
	out := make([]topology.Address, 0, len(members))
	for _, m := range members {
		if retained[m] {
			out = append(out, m)
		}
	}
	return out
}

// subtract removes the elements of drop from members, preserving order.
func subtract(members []topology.Address, drop []topology.Address) []topology.Address {
	dropped := memberSet(drop)
	out := make([]topology.Address, 0, len(members))
	for _, m := range members {
		if !dropped[m] {
			out = append(out, m)
		}
	}
	return out
}

func containsAll(set map[topology.Address]bool, members []topology.Address) bool {
	for _, m := range members {
		if !set[m] {
			return false
		}
	}
	return true
}

func memberSet(members []topology.Address) map[topology.Address]bool {
	set := make(map[topology.Address]bool, len(members))
	for _, m := range members {
		set[m] = true
	}
	return set
}

func addrStrings(members []topology.Address) []string {
	out := make([]string, len(members))
	for i, m := range members {
		out[i] = string(m)
	}
	return out
}
