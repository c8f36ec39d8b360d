package ir

import (
	"net"
	"testing"
)

func mustConnect(t *testing.T, n *AdjacencyNetwork, a, b int) {
	t.Helper()
	if err := n.AddSymConnection(a, b); err != nil {
		t.Fatalf("AddSymConnection(%d, %d): %v", a, b, err)
	}
}

func TestCreateNetworkFromLogicalSingleClique(t *testing.T) {
	n := NewAdjacencyNetwork(3)
	mustConnect(t, n, 0, 1)
	mustConnect(t, n, 1, 2)
	mustConnect(t, n, 0, 2)

	candidates, err := CreateNetworkFromLogical(n)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("expected one clique covering all 3 VMs, got %d candidates: %+v", len(candidates), candidates)
	}
	if len(candidates[0].ConnectedVMs) != 3 {
		t.Fatalf("expected clique of size 3, got %d", len(candidates[0].ConnectedVMs))
	}
}

func TestCreateNetworkFromLogicalTwoDisjointPairs(t *testing.T) {
	n := NewAdjacencyNetwork(4)
	mustConnect(t, n, 0, 1)
	mustConnect(t, n, 2, 3)

	candidates, err := CreateNetworkFromLogical(n)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d: %+v", len(candidates), candidates)
	}
	for _, c := range candidates {
		if len(c.ConnectedVMs) != 2 {
			t.Fatalf("expected pair cliques, got size %d", len(c.ConnectedVMs))
		}
	}
}

func TestCreateNetworkFromLogicalStarTopologyStaysSeparatePairs(t *testing.T) {
	// VM 0 connects to 1, 2 and 3, but 1/2/3 are not connected to each
	// other: no triangle exists, so the cover must be three 2-VM subnets,
	// not one 4-VM subnet.
	n := NewAdjacencyNetwork(4)
	mustConnect(t, n, 0, 1)
	mustConnect(t, n, 0, 2)
	mustConnect(t, n, 0, 3)

	candidates, err := CreateNetworkFromLogical(n)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candidates) != 3 {
		t.Fatalf("expected 3 candidates for a star topology, got %d: %+v", len(candidates), candidates)
	}
}

func TestCreateNetworkFromLogicalDuplicateConnectionIgnored(t *testing.T) {
	n := NewAdjacencyNetwork(2)
	mustConnect(t, n, 0, 1)
	mustConnect(t, n, 1, 0)
	if len(n.AllConnectionsForVM(0)) != 1 {
		t.Fatalf("expected duplicate edge to be ignored, got %v", n.AllConnectionsForVM(0))
	}
}

func TestCreateNetworkFromLogicalSelfLoopRejected(t *testing.T) {
	n := NewAdjacencyNetwork(1)
	if err := n.AddSymConnection(0, 0); err != ErrSelfLoop {
		t.Fatalf("expected ErrSelfLoop, got %v", err)
	}
}

func TestAssignSubnetsAndIPNoOverlap(t *testing.T) {
	n := NewAdjacencyNetwork(5)
	mustConnect(t, n, 0, 1)
	mustConnect(t, n, 2, 3)

	candidates, err := CreateNetworkFromLogical(n)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	subnets := AssignSubnetsAndIP(candidates)
	if len(subnets) != len(candidates) {
		t.Fatalf("expected one subnet per candidate, got %d subnets for %d candidates", len(subnets), len(candidates))
	}

	seen := make(map[string]bool)
	for _, s := range subnets {
		key := s.Prefix.String()
		if seen[key] {
			t.Fatalf("subnet prefix %s assigned twice", key)
		}
		seen[key] = true

		mask := net.CIDRMask(s.Prefix.Netmask, 32)
		wantNet := s.Prefix.IP.Mask(mask)
		for _, ip := range s.ConnectedVMs {
			if !ip.Mask(mask).Equal(wantNet) {
				t.Fatalf("VM IP %s does not fall within subnet %s", ip, s.Prefix)
			}
		}
	}
}
