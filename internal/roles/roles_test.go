package roles

import (
	"net"
	"testing"

	"github.com/scanzi-taas/orchestrator/internal/ir"
)

func TestCreateVMLocalIPMappingAndReplacementTokens(t *testing.T) {
	vms := []ir.VM{
		{Name: "web", Role: "frontend"},
		{Name: "db", Role: "backend"},
	}
	adj := ir.NewAdjacencyNetwork(2)
	if err := adj.AddSymConnection(0, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	realSubnets := []ir.Subnet{
		{
			ConnectedVMs: map[int]net.IP{
				0: net.ParseIP("10.1.0.1"),
				1: net.ParseIP("10.1.0.2"),
			},
		},
	}

	complete, singleton, err := CreateVMLocalIPMapping(adj, vms, realSubnets)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(complete) != 2 || len(singleton) != 2 {
		t.Fatalf("expected per-vm maps for both VMs")
	}
	if pair := singleton[0]["backend"]; pair.Self.String() != "10.1.0.1" || pair.Peer.String() != "10.1.0.2" {
		t.Fatalf("unexpected singleton pair for web->backend: %+v", pair)
	}

	repl := CreateIPStringReplacementMap(complete, singleton)
	if repl[0]["=>backend"] != "10.1.0.2" {
		t.Fatalf("expected =>backend to resolve to peer address, got %q", repl[0]["=>backend"])
	}
	if repl[0]["<=backend"] != "10.1.0.1" {
		t.Fatalf("expected <=backend to resolve to self address, got %q", repl[0]["<=backend"])
	}
	if repl[0]["=> backend"] != "10.1.0.2" {
		t.Fatalf("expected spaced variant to also resolve")
	}
}

func TestCreateVMLocalIPMappingNoConnectionsYieldsEmptyMaps(t *testing.T) {
	vms := []ir.VM{{Name: "solo", Role: "solo"}}
	adj := ir.NewAdjacencyNetwork(1)
	complete, singleton, err := CreateVMLocalIPMapping(adj, vms, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(complete[0]) != 0 || len(singleton[0]) != 0 {
		t.Fatalf("expected empty role maps for an unconnected VM")
	}
}
