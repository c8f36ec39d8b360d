package ir

import (
	"fmt"
	"sort"
)

// ErrUnsupportedTopology is returned when CreateNetworkFromLogical is handed
// an asymmetric network; the clique-cover algorithm below only terminates
// correctly on symmetric graphs.
var ErrUnsupportedTopology = fmt.Errorf("taas: ir: cannot infer subnets from an asymmetric connection graph")

// SubnetCandidate is one clique discovered by CreateNetworkFromLogical: a
// set of VM indices that all mutually talk to each other and can therefore
// share one Ethernet-style subnet.
type SubnetCandidate struct {
	ConnectedVMs map[int]struct{}
}

func newSubnetCandidate(vms ...int) SubnetCandidate {
	c := SubnetCandidate{ConnectedVMs: make(map[int]struct{}, len(vms))}
	for _, v := range vms {
		c.ConnectedVMs[v] = struct{}{}
	}
	return c
}

func (c SubnetCandidate) isSubsetOf(other map[int]struct{}) bool {
	for v := range c.ConnectedVMs {
		if _, ok := other[v]; !ok {
			return false
		}
	}
	return true
}

// extendSubnet looks at all current subnet candidates and returns the
// index of the first one the given VM can join: every existing member of
// that candidate must already be a neighbour of vmIdx. Returns -1 if none
// fits, meaning vmIdx needs a brand-new candidate of its own.
func extendSubnet(vmIdx int, candidates []SubnetCandidate, neighbours map[int]struct{}) int {
	for i := range candidates {
		if _, already := candidates[i].ConnectedVMs[vmIdx]; already {
			continue
		}
		if candidates[i].isSubsetOf(neighbours) {
			candidates[i].ConnectedVMs[vmIdx] = struct{}{}
			return i
		}
	}
	return -1
}

// removeSubsubnets deletes every candidate in the list that is a (non-equal)
// subset of candidates[idx] — once a candidate has been extended, any
// smaller candidate it now dominates is redundant.
func removeSubsubnets(idx int, candidates []SubnetCandidate) []SubnetCandidate {
	keep := make([]SubnetCandidate, 0, len(candidates))
	for i, c := range candidates {
		if i == idx {
			keep = append(keep, c)
			continue
		}
		if c.isSubsetOf(candidates[idx].ConnectedVMs) {
			continue
		}
		keep = append(keep, c)
	}
	return keep
}

// checkMissingNeighbours returns the neighbours of vmIdx that do not yet
// share any discovered candidate subnet with it.
func checkMissingNeighbours(vmIdx int, candidates []SubnetCandidate, neighbours map[int]struct{}) map[int]struct{} {
	visited := make(map[int]struct{})
	for _, c := range candidates {
		if _, ok := c.ConnectedVMs[vmIdx]; !ok {
			continue
		}
		for v := range c.ConnectedVMs {
			visited[v] = struct{}{}
		}
	}
	missing := make(map[int]struct{})
	for v := range neighbours {
		if _, ok := visited[v]; !ok {
			missing[v] = struct{}{}
		}
	}
	return missing
}

// CreateNetworkFromLogical covers the connection graph with cliques (one
// subnet per clique): for every VM in turn, it tries to fold the VM into an
// existing candidate subnet all of whose members are already its
// neighbours, pruning any candidate that becomes redundant; any neighbour
// still left without a shared subnet gets a brand new two-VM candidate.
// The network must be symmetric.
func CreateNetworkFromLogical(net Network) ([]SubnetCandidate, error) {
	if !net.IsSymmetric() {
		return nil, ErrUnsupportedTopology
	}

	var candidates []SubnetCandidate
	for vmIdx := 0; vmIdx < net.VMCount(); vmIdx++ {
		neighbourList := net.AllConnectionsForVM(vmIdx)
		neighbours := make(map[int]struct{}, len(neighbourList))
		for _, n := range neighbourList {
			neighbours[n] = struct{}{}
		}

		for {
			extended := extendSubnet(vmIdx, candidates, neighbours)
			if extended < 0 {
				break
			}
			candidates = removeSubsubnets(extended, candidates)
		}

		for missing := range checkMissingNeighbours(vmIdx, candidates, neighbours) {
			candidates = append(candidates, newSubnetCandidate(vmIdx, missing))
		}
	}
	return candidates, nil
}

// sortedVMIndices is a small helper used by callers (and tests) that need a
// deterministic iteration order over a candidate's VM set.
func sortedVMIndices(c SubnetCandidate) []int {
	out := make([]int, 0, len(c.ConnectedVMs))
	for v := range c.ConnectedVMs {
		out = append(out, v)
	}
	sort.Ints(out)
	return out
}
