package ir

import "fmt"

// ConnectionProperties describes the quality of a link between two VMs as
// declared in a scenario file. The subnet inference step only cares about
// which VMs are connected, not about these properties — they are carried
// through so a future provider mapping could honor bandwidth/latency
// shaping, but no backend currently consumes them.
type ConnectionProperties struct {
	SpeedMbps         int
	LatencyUs         int
	DropChancePercent float32
}

// ErrSelfLoop is returned when a scenario declares a VM connected to itself.
var ErrSelfLoop = fmt.Errorf("taas: ir: self-loop connection is not allowed")

// Network is the logical connection graph between the VMs of a system. It
// purposefully stays symmetric-only: every site this codebase builds a
// Network from (the YAML "connections" list, or the "full_network" option)
// produces undirected edges, and the subnet-inference algorithm in
// subnets.go requires symmetry to terminate correctly.
type Network interface {
	VMCount() int
	AllConnectionsForVM(vmIdx int) []int
	ConnectionExists(a, b int) bool
	AddSymConnection(a, b int) error
	AddSymConnectionWithSpeed(a, b int, cp ConnectionProperties) error
	IsSymmetric() bool
}

// AdjacencyNetwork is a straightforward adjacency-list Network
// implementation. Duplicate edges are silently ignored, matching the
// teacher specification's "duplicate connections are ignored" contract.
type AdjacencyNetwork struct {
	adj   [][]int
	props map[[2]int]ConnectionProperties
}

func NewAdjacencyNetwork(vmCount int) *AdjacencyNetwork {
	return &AdjacencyNetwork{
		adj:   make([][]int, vmCount),
		props: make(map[[2]int]ConnectionProperties),
	}
}

func (n *AdjacencyNetwork) VMCount() int { return len(n.adj) }

func (n *AdjacencyNetwork) AllConnectionsForVM(vmIdx int) []int {
	out := make([]int, len(n.adj[vmIdx]))
	copy(out, n.adj[vmIdx])
	return out
}

func (n *AdjacencyNetwork) ConnectionExists(a, b int) bool {
	for _, v := range n.adj[a] {
		if v == b {
			return true
		}
	}
	return false
}

func (n *AdjacencyNetwork) IsSymmetric() bool { return true }

func edgeKey(a, b int) [2]int {
	if a < b {
		return [2]int{a, b}
	}
	return [2]int{b, a}
}

func (n *AdjacencyNetwork) AddSymConnection(a, b int) error {
	return n.AddSymConnectionWithSpeed(a, b, ConnectionProperties{})
}

func (n *AdjacencyNetwork) AddSymConnectionWithSpeed(a, b int, cp ConnectionProperties) error {
	if a == b {
		return ErrSelfLoop
	}
	if !n.ConnectionExists(a, b) {
		n.adj[a] = append(n.adj[a], b)
		n.adj[b] = append(n.adj[b], a)
	}
	n.props[edgeKey(a, b)] = cp
	return nil
}
