// Package roles derives role-based IP address maps: for every VM, and for
// every role present among its neighbours, the set of (self, peer) IP pairs
// that connect it to every peer of that role, plus one randomly-chosen
// singleton pair — and turns the singleton pairs into the "=>role"/"<=role"
// replacement tokens consumed by internal/template.
package roles

import (
	"fmt"
	"math/rand"
	"net"

	"github.com/scanzi-taas/orchestrator/internal/ir"
)

// IPPair is a connected pair of IP addresses as seen from one VM's point of
// view: Self is this VM's address on the shared subnet, Peer is the other
// VM's address on that same subnet.
type IPPair struct {
	Self net.IP
	Peer net.IP
}

// ErrDisconnectedPeers is returned when two VMs expected to share a subnet
// (because the logical network says they're connected) cannot be found
// together in any physical subnet — a sign the logical-to-physical
// translation produced an inconsistent subnet assignment upstream.
var ErrDisconnectedPeers = fmt.Errorf("taas: roles: two logically connected VMs do not share a physical subnet")

func findAllRoles(vms []ir.VM) []string {
	seen := make(map[string]bool)
	var roles []string
	for _, vm := range vms {
		if !seen[vm.Role] {
			seen[vm.Role] = true
			roles = append(roles, vm.Role)
		}
	}
	return roles
}

func findConnectedVMsWithRole(sourceVM int, role string, net ir.Network, vms []ir.VM) []int {
	var out []int
	for _, idx := range net.AllConnectionsForVM(sourceVM) {
		if vms[idx].Role == role {
			out = append(out, idx)
		}
	}
	return out
}

// lasirConnectionToIP finds the (vmA, vmB) pair of addresses within the
// physical subnet list. Exactly one subnet should contain both VMs if the
// logical-to-physical translation was consistent.
func lasirConnectionToIP(vmA, vmB int, subnets []ir.Subnet) (IPPair, bool) {
	var found IPPair
	ok := false
	for _, subnet := range subnets {
		ipA, hasA := subnet.ConnectedVMs[vmA]
		ipB, hasB := subnet.ConnectedVMs[vmB]
		if hasA && hasB {
			found = IPPair{Self: ipA, Peer: ipB}
			ok = true
		}
	}
	return found, ok
}

// CreateVMLocalIPMapping computes, for every VM, a role -> []IPPair map
// covering every peer of that role ("complete"), and a role -> IPPair map
// with one peer chosen at random ("singleton") — the latter is what gets
// turned into "=>role"/"<=role" template tokens, since a script can only
// reasonably be handed one address per named role.
func CreateVMLocalIPMapping(net ir.Network, vms []ir.VM, subnets []ir.Subnet) ([]map[string][]IPPair, []map[string]IPPair, error) {
	roleNames := findAllRoles(vms)

	complete := make([]map[string][]IPPair, len(vms))
	singleton := make([]map[string]IPPair, len(vms))

	for vmIdx := range vms {
		connectedByRole := make(map[string][]int, len(roleNames))
		for _, role := range roleNames {
			connectedByRole[role] = findConnectedVMsWithRole(vmIdx, role, net, vms)
		}

		completeForVM := make(map[string][]IPPair)
		singletonForVM := make(map[string]IPPair)

		for role, peers := range connectedByRole {
			if len(peers) == 0 {
				continue
			}
			pairs := make([]IPPair, 0, len(peers))
			for _, peer := range peers {
				pair, ok := lasirConnectionToIP(vmIdx, peer, subnets)
				if !ok {
					return nil, nil, ErrDisconnectedPeers
				}
				pairs = append(pairs, pair)
			}
			completeForVM[role] = pairs
			singletonForVM[role] = pairs[rand.Intn(len(pairs))]
		}
		complete[vmIdx] = completeForVM
		singleton[vmIdx] = singletonForVM
	}
	return complete, singleton, nil
}

// CreateIPStringReplacementMap turns the per-VM singleton role maps into
// template replacement maps keyed on "=>role" (the peer's address) and
// "<=role" (this VM's own address on that link), with the single- and
// double-space variants the original templates also accept.
//
// The "complete" map is accepted as a parameter to mirror the source
// signature it was translated from but, like the original, is not actually
// consulted here — every role a script needs more than one peer's address
// for has to name them individually rather than through this map. That is
// an inherited quirk, not a bug introduced here; see DESIGN.md.
func CreateIPStringReplacementMap(complete []map[string][]IPPair, singleton []map[string]IPPair) []map[string]string {
	out := make([]map[string]string, len(singleton))
	for idx, roles := range singleton {
		repl := make(map[string]string)
		for role, pair := range roles {
			repl["=>"+role] = pair.Peer.String()
			repl["=> "+role] = pair.Peer.String()
			repl["=>  "+role] = pair.Peer.String()
			repl["<="+role] = pair.Self.String()
			repl["<= "+role] = pair.Self.String()
			repl["<=  "+role] = pair.Self.String()
		}
		out[idx] = repl
	}
	return out
}
