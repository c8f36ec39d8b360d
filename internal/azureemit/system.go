// Package azureemit maps the physical IR (VMs + subnets) onto an
// Azure-specific system description (vnet, subnets, NICs, VMs) and emits
// that description as Azure CLI shell script text. It is the only package
// that knows Azure's NIC-ordering quirk and its `az ... create` argument
// names.
package azureemit

import "github.com/scanzi-taas/orchestrator/internal/ir"

// Globals carries the account-wide settings a WholeSystem was built under.
type Globals struct {
	Location        string
	ResourceGroup   string
	HasStubNetwork  bool
}

// Vnet is the one virtual network every subnet in a system belongs to.
type Vnet struct {
	Name            string
	AddressPrefixes ir.CidrIP
}

// Subnet is an Azure subnet carved out of the Vnet's address space.
type Subnet struct {
	Name            string
	AddressPrefixes ir.CidrIP
}

// Nic is a network interface attached to exactly one VM and one Subnet.
type Nic struct {
	Name                string
	Vnet                string
	Subnet              string
	PrivateIPAddress    string
	HasPublicIPAddress  bool
}

// NewStubNic builds a NIC for a VM with no declared connections: it lives
// on the stub subnet and, unlike a normal NIC, always carries a public IP —
// a VM nobody else talks to still needs some way in.
func NewStubNic(name, vnet, subnet, privateIP string) Nic {
	return Nic{Name: name, Vnet: vnet, Subnet: subnet, PrivateIPAddress: privateIP, HasPublicIPAddress: true}
}

// Vm is the Azure-shaped VM description ready for shell-script emission.
type Vm struct {
	Name               string
	Nics               []Nic
	Image              string
	Size               string
	AdminUsername      string
	AdminPassword      string
	AuthenticationType string
	CustomScript       string
}

// WholeSystem is everything needed to stand up one deployment's worth of
// Azure resources.
type WholeSystem struct {
	GlobalConfig Globals
	Vnet         Vnet
	Subnets      []Subnet
	Vms          []Vm
}
