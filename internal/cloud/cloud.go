// Package cloud defines the provider-agnostic surface a deployment backend
// must implement: creating the resources an azureemit.WholeSystem (or
// future provider equivalent) describes, querying a VM's public address,
// running a script on a deployed VM, and clearing a resource group between
// runs.
package cloud

import "github.com/scanzi-taas/orchestrator/internal/sku"

// Provider is implemented by every cloud backend this codebase can deploy
// to. Today only internal/cloud/azure implements it.
type Provider interface {
	// Name identifies the provider, e.g. "azure".
	Name() string

	// CheckReady verifies the provider's CLI is installed and authenticated,
	// failing fast before any resources are created.
	CheckReady() error

	// SkuCatalog retrieves the provider's current VM size catalog, used by
	// internal/sku to match a requested hardware shape to a concrete SKU.
	SkuCatalog() ([]sku.Entry, error)

	// RunNetworkScript executes the shell script that creates the vnet and
	// subnets for a deployment.
	RunNetworkScript(script string) error

	// RunVMScript executes the shell script that creates one VM and its
	// attached resources (NICs, public IPs).
	RunVMScript(script string) error

	// RunScriptOnVM executes scriptText on an already-deployed VM through
	// the provider's own remote-run facility (e.g. `az vm run-command
	// invoke`), without needing SSH access to that VM.
	RunScriptOnVM(vmName, scriptText string) error

	// PublicIP returns the public IP address assigned to a deployed VM.
	PublicIP(vmName string) (string, error)

	// ClearResourceGroup empties (without deleting) the configured resource
	// group, used before re-running a deployment that reuses the same
	// group.
	ClearResourceGroup() error
}
