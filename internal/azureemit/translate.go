package azureemit

import (
	"fmt"
	"net"
	"sync/atomic"

	"github.com/scanzi-taas/orchestrator/internal/ir"
	"github.com/scanzi-taas/orchestrator/internal/sku"
)

// stubIPCounter hands out the last octet of stub-subnet addresses. It starts
// at 5 because 10.0.255.0-10.0.255.4 are reserved (network/gateway/broadcast
// plus a little headroom), matching the original's IP_ADDR_COUNTER.
//
// TODO: this saturates a single /24 and will misbehave past ~250 unconnected
// VMs in one deployment; inherited from the source this was translated from.
var stubIPCounter uint32 = 5

func nextStubOctet() byte {
	return byte(atomic.AddUint32(&stubIPCounter, 1) - 1)
}

// TranslateOptions carries the account-wide settings pasir_to_azuresir needs
// but that the physical IR itself doesn't carry: the VM image to use for
// each common OS name, which resource group to target, and the catalog to
// match hardware requests against.
type TranslateOptions struct {
	VnetName       string
	Location       string
	ResourceGroup  string
	CommonOSImage  map[string]string
	SkuCatalog     []sku.Entry
	AzureCLIBinary string
	DNSPrefix      string
}

// PasirToAzureSystem maps the physical IR (VMs plus their inferred subnets)
// onto an Azure-shaped WholeSystem: one vnet, one Azure subnet and a run of
// NICs per logical subnet, a stub subnet for any VM the scenario never
// connected to another, and one Azure VM description per physical VM.
func PasirToAzureSystem(vms []ir.VM, subnets []ir.Subnet, opts TranslateOptions) (*WholeSystem, error) {
	vnet := Vnet{Name: opts.VnetName, AddressPrefixes: ir.CidrIP{IP: []byte{10, 0, 0, 0}, Netmask: 8}}

	allNics := make([][]Nic, len(vms))
	var azSubnets []Subnet

	for subnetIdx, physSubnet := range subnets {
		subnetName := fmt.Sprintf("%s_subnet-%d", vnet.Name, subnetIdx)
		for _, vmIdx := range orderedVMIndices(physSubnet.ConnectedVMs) {
			nicNum := len(allNics[vmIdx])
			allNics[vmIdx] = append(allNics[vmIdx], Nic{
				Name:               fmt.Sprintf("%s-nic%d", vms[vmIdx].Name, nicNum),
				Vnet:               vnet.Name,
				Subnet:             subnetName,
				PrivateIPAddress:   physSubnet.ConnectedVMs[vmIdx].String(),
				HasPublicIPAddress: nicNum == 0 && vms[vmIdx].HasRemoteAccess,
			})
		}
		azSubnets = append(azSubnets, Subnet{Name: subnetName, AddressPrefixes: physSubnet.Prefix})
	}

	stubSubnetName := fmt.Sprintf("%s-stub-subnet", opts.VnetName)
	azSubnets = append(azSubnets, Subnet{
		Name:            stubSubnetName,
		AddressPrefixes: ir.CidrIP{IP: []byte{10, 0, 255, 0}, Netmask: 24},
	})

	var azVms []Vm
	for vmIdx, vm := range vms {
		nics := allNics[vmIdx]
		if len(nics) == 0 {
			octet := nextStubOctet()
			nics = []Nic{NewStubNic(
				fmt.Sprintf("%s-stub-nic-%d", vm.Name, octet),
				opts.VnetName,
				stubSubnetName,
				fmt.Sprintf("10.0.255.%d", octet),
			)}
		}

		size, err := findMostFittingVM(vm, opts.SkuCatalog)
		if err != nil {
			return nil, err
		}

		image, ok := opts.CommonOSImage[vm.OS.Common()]
		if !ok {
			return nil, fmt.Errorf("taas: azureemit: no Azure image configured for common OS %q (vm %q)", vm.OS.Common(), vm.Name)
		}

		customScript := ""
		if vm.ConfigTemplate != "" {
			customScript = fmt.Sprintf("test-deployment/%s/script.sh", vm.Name)
		}

		azVms = append(azVms, Vm{
			Name:               vm.Name,
			Nics:               nics,
			Image:              image,
			Size:               size,
			AdminUsername:      vm.Auth.User,
			AdminPassword:      vm.Auth.Password,
			AuthenticationType: "all",
			CustomScript:       customScript,
		})
	}

	return &WholeSystem{
		GlobalConfig: Globals{Location: opts.Location, ResourceGroup: opts.ResourceGroup, HasStubNetwork: true},
		Vnet:         vnet,
		Subnets:      azSubnets,
		Vms:          azVms,
	}, nil
}

// findMostFittingVM resolves a VM's Azure size: an explicit OverrideConfig
// wins outright, otherwise the hardware request is matched against the SKU
// catalog.
func findMostFittingVM(vm ir.VM, catalog []sku.Entry) (string, error) {
	if vm.OverrideConfig != "" {
		return vm.OverrideConfig, nil
	}
	if vm.HwConfig == nil {
		return "", fmt.Errorf("taas: azureemit: machine %q has no hardware description (neither cloud-specific nor generic)", vm.Name)
	}
	cores := vm.HwConfig.CPUCores
	ram := vm.HwConfig.RAMGB
	entry := sku.FindBestMatchingVMName(catalog, &cores, &ram)
	return entry.Name, nil
}

// orderedVMIndices returns the VM indices present in a subnet's membership
// map in ascending order, so NIC numbering is deterministic across runs.
func orderedVMIndices(m map[int]net.IP) []int {
	out := make([]int, 0, len(m))
	for idx := range m {
		out = append(out, idx)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}
