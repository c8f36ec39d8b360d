package azureemit

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// publicIPCounter makes sure every public IP address resource gets a unique
// name, regardless of how many VMs or NICs are being emitted in one run.
var publicIPCounter uint64

func nextPublicIPCount() uint64 {
	return atomic.AddUint64(&publicIPCounter, 1) - 1
}

// EmitterSystem is the shell-script text produced for one deployment: the
// network setup (vnet + subnets) and one script per VM, kept separate so
// the pipeline driver can launch VM creation in parallel once the network
// exists.
type EmitterSystem struct {
	Network string
	Vms     []string
}

// shellArg is one --name value (or -n value, for unnamed short flags) pair
// fed to generateShellCommand. An arg with both Param and Value empty is
// skipped, matching the original emitter's handling of NICs that don't carry
// every optional flag.
type shellArg struct {
	Named bool
	Param string
	Value string
}

func named(param, value string) shellArg { return shellArg{Named: true, Param: param, Value: value} }

// generateShellCommand renders a CLI invocation as a readable, backslash-
// continued multi-line shell command: one "--flag value" pair per line.
func generateShellCommand(name string, args []shellArg) string {
	var b strings.Builder
	b.WriteString(name)
	b.WriteString(" \\\n")
	for _, a := range args {
		if a.Param == "" && a.Value == "" {
			continue
		}
		if a.Named {
			b.WriteString("\t--")
		} else {
			b.WriteString("\t-")
		}
		b.WriteString(strings.TrimSpace(a.Param))
		b.WriteString(" ")
		b.WriteString(strings.TrimSpace(a.Value))
		b.WriteString(" \\\n")
	}
	out := b.String()
	out = strings.TrimSuffix(out, "\\\n")
	return out + "\n"
}

// EmitNew renders a WholeSystem as Azure CLI shell script text: vnet
// creation, then subnet creation, then one script per VM covering its
// public IPs, NICs and the VM itself.
func EmitNew(ws *WholeSystem, azureCLIBinary, dnsPrefix string) EmitterSystem {
	var net strings.Builder
	net.WriteString(generateVnetScript(ws, azureCLIBinary))
	net.WriteString(generateSubnetScripts(ws, azureCLIBinary))

	vmScripts := make([]string, 0, len(ws.Vms))
	for _, vm := range ws.Vms {
		vmScripts = append(vmScripts, generateWholeVMScript(vm, ws, azureCLIBinary, dnsPrefix))
	}

	return EmitterSystem{Network: net.String(), Vms: vmScripts}
}

func generateVnetScript(ws *WholeSystem, azureCLIBinary string) string {
	return generateShellCommand(fmt.Sprintf("\n%s network vnet create", azureCLIBinary), []shellArg{
		named("resource-group", ws.GlobalConfig.ResourceGroup),
		named("name", ws.Vnet.Name),
		named("address-prefixes", ws.Vnet.AddressPrefixes.String()),
	})
}

func generateSubnetScripts(ws *WholeSystem, azureCLIBinary string) string {
	var b strings.Builder
	for _, subnet := range ws.Subnets {
		b.WriteString(generateShellCommand(fmt.Sprintf("\n%s network vnet subnet create", azureCLIBinary), []shellArg{
			named("resource-group", ws.GlobalConfig.ResourceGroup),
			named("name", subnet.Name),
			named("vnet-name", ws.Vnet.Name),
			named("address-prefixes", subnet.AddressPrefixes.String()),
		}))
	}
	return b.String()
}

// generateWholeVMScript builds one VM's full creation script: a public IP
// resource per NIC that needs one, then every NIC, then the VM itself.
// Public NICs must be listed before private ones in the final "--nics"
// argument — Azure requires the public-IP-bearing NIC to attach first.
func generateWholeVMScript(vm Vm, ws *WholeSystem, azureCLIBinary, dnsPrefix string) string {
	var sh strings.Builder
	var nicsTmp strings.Builder
	var publicNicNames, privateNicNames strings.Builder

	for _, nic := range vm.Nics {
		nicParams := []shellArg{
			named("resource-group", ws.GlobalConfig.ResourceGroup),
			named("name", nic.Name),
			named("vnet-name", nic.Vnet),
			named("subnet", nic.Subnet),
			named("private-ip-address", nic.PrivateIPAddress),
		}

		pipCount := nextPublicIPCount()
		pipName := fmt.Sprintf("public-ip-%d", pipCount)

		if nic.HasPublicIPAddress {
			sh.WriteString(generateShellCommand(fmt.Sprintf("\n%s network public-ip create", azureCLIBinary), []shellArg{
				named("resource-group", ws.GlobalConfig.ResourceGroup),
				named("dns-name", strings.ToLower(strings.TrimSpace(fmt.Sprintf("%s-%s-%s", ws.GlobalConfig.ResourceGroup, dnsPrefix, vm.Name)))),
				named("name", pipName),
			}))
			nicParams = append(nicParams, named("public-ip-address", pipName))
			publicNicNames.WriteString(nic.Name)
			publicNicNames.WriteString(" ")
		} else {
			privateNicNames.WriteString(nic.Name)
			privateNicNames.WriteString(" ")
		}

		nicsTmp.WriteString(generateShellCommand(fmt.Sprintf("\n%s network nic create", azureCLIBinary), nicParams))
	}
	sh.WriteString(nicsTmp.String())

	dnsName := fmt.Sprintf("%s.taas", vm.Name)
	nics := publicNicNames.String() + privateNicNames.String()

	sh.WriteString(generateShellCommand(fmt.Sprintf("\n%s vm create", azureCLIBinary), []shellArg{
		named("resource-group", ws.GlobalConfig.ResourceGroup),
		named("name", vm.Name),
		named("nics", nics),
		named("image", vm.Image),
		named("size", vm.Size),
		named("admin-username", vm.AdminUsername),
		named("admin-password", vm.AdminPassword),
		named("authentication-type", vm.AuthenticationType),
		named("public-ip-address-dns-name", dnsName),
	}))

	return sh.String()
}
