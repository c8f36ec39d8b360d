// Package azure implements internal/cloud.Provider against the Azure CLI
// (az): every operation shells out to the configured az binary rather than
// calling Azure's REST API directly, the same way the codebase this was
// translated from worked.
package azure

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/scanzi-taas/orchestrator/internal/shellexec"
	"github.com/scanzi-taas/orchestrator/internal/sku"
)

// deleteResourceGroupTemplate is the minimal ARM template whose "complete"
// deployment mode wipes every resource out of a resource group without
// deleting the group itself.
const deleteResourceGroupTemplate = `{
	"$schema": "https://schema.management.azure.com/schemas/2015-01-01/deploymentTemplate.json#",
	"contentVersion": "1.0.0.0",
	"parameters": { },
	"variables": { },
	"resources": [ ],
	"outputs": { }
}
`

// Provider is the Azure CLI backed implementation of cloud.Provider.
type Provider struct {
	Log           hclog.Logger
	Binary        string // usually "az"
	Location      string
	ResourceGroup string
	Shell         string
}

func (p *Provider) Name() string { return "azure" }

// CheckReady verifies az is installed and that the user is logged in,
// failing fast before any resource gets created.
func (p *Provider) CheckReady() error {
	if !shellexec.CheckCommandExists(p.Binary) {
		return fmt.Errorf("taas: azure: Azure CLI (%s) was not found on this system; check the binary path in your config files and that it is installed", p.Binary)
	}
	res := shellexec.RunQuiet(fmt.Sprintf("%s account show", p.Binary), p.Shell)
	if res.NonZeroExit() {
		return fmt.Errorf(`taas: azure: Azure CLI is installed but does not seem to be logged in; run "%s login"`, p.Binary)
	}
	return nil
}

type azureVMCapability struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type azureVMSize struct {
	Name         string              `json:"name"`
	Tier         string              `json:"tier"`
	Capabilities []azureVMCapability `json:"capabilities"`
}

func capabilityInt(caps []azureVMCapability, name string, fallback int) int {
	for _, c := range caps {
		if c.Name == name {
			if v, err := strconv.Atoi(c.Value); err == nil {
				return v
			}
			return fallback
		}
	}
	return fallback
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// SkuCatalog shells out to `az vm list-skus` and reduces each entry to the
// properties internal/sku cares about.
func (p *Provider) SkuCatalog() ([]sku.Entry, error) {
	res := shellexec.Run(fmt.Sprintf("%s vm list-skus -l %s", p.Binary, p.Location), p.Shell)
	if res.Failure() {
		return nil, res.Err()
	}

	var sizes []azureVMSize
	if err := json.Unmarshal([]byte(res.Stdout), &sizes); err != nil {
		return nil, fmt.Errorf("taas: azure: could not parse `az vm list-skus` output: %w", err)
	}

	catalog := make([]sku.Entry, 0, len(sizes))
	for _, size := range sizes {
		if size.Capabilities == nil {
			continue
		}
		maxResourceVolumeMB := capabilityInt(size.Capabilities, "MaxResourceVolumeMB", 0)
		osVhdSizeMB := capabilityInt(size.Capabilities, "OSVhdSizeMB", 0)
		catalog = append(catalog, sku.Entry{
			Name:              size.Name,
			CoreCount:         capabilityInt(size.Capabilities, "vCPUs", 0),
			RAMGB:             capabilityInt(size.Capabilities, "MemoryGB", 0),
			MaxDiskCount:      capabilityInt(size.Capabilities, "MaxDataDiskCount", 0),
			MaxDiskCapacityGB: minInt(maxResourceVolumeMB, osVhdSizeMB) / 1024,
		})
	}
	return catalog, nil
}

// RunNetworkScript and RunVMScript both just run the shell text the
// azureemit package already rendered; Azure CLI commands are idempotent
// enough for this codebase's purposes that no special handling is needed
// beyond surfacing a non-zero exit.
func (p *Provider) RunNetworkScript(script string) error {
	res := shellexec.Run(script, p.Shell)
	if res.Failure() {
		p.Log.Error("network script failed", "stderr", res.Stderr)
		return res.Err()
	}
	return nil
}

func (p *Provider) RunVMScript(script string) error {
	res := shellexec.Run(script, p.Shell)
	if res.Failure() {
		p.Log.Error("vm creation script failed", "stderr", res.Stderr)
		return res.Err()
	}
	return nil
}

// RunScriptOnVM runs a script on an already-deployed VM through Azure's
// run-command extension, without needing SSH connectivity to that VM — this
// is what lets the pipeline driver fetch per-step scripts onto a machine
// before that machine's own SSH setup has necessarily finished.
func (p *Provider) RunScriptOnVM(vmName, scriptText string) error {
	cmd := fmt.Sprintf("%s vm run-command invoke -g %s -n %s --command-id RunShellScript --scripts '%s'", p.Binary, p.ResourceGroup, vmName, scriptText)
	res := shellexec.Run(cmd, p.Shell)
	if res.Failure() {
		return res.Err()
	}
	return nil
}

// PublicIP asks Azure for the public address assigned to a deployed VM.
func (p *Provider) PublicIP(vmName string) (string, error) {
	cmd := fmt.Sprintf("%s vm show -d -g %s -n %s --query publicIps -o tsv", p.Binary, p.ResourceGroup, vmName)
	res := shellexec.Run(cmd, p.Shell)
	if res.Failure() {
		return "", res.Err()
	}
	return strings.TrimSpace(res.Stdout), nil
}

// ClearResourceGroup empties (without deleting) the resource group by
// deploying an empty ARM template in "complete" mode, the mode where Azure
// deletes everything not mentioned in the template. The template is written
// to a uniquely-named temp file so two deployments clearing resource
// groups at the same time (e.g. two CI jobs on one build host) never race
// on the same filename.
func (p *Provider) ClearResourceGroup() error {
	fn := fmt.Sprintf("taas-removeall-%s.json", uuid.NewString())
	if err := os.WriteFile(fn, []byte(deleteResourceGroupTemplate), 0o644); err != nil {
		return fmt.Errorf("taas: azure: could not write resource-group clear template: %w", err)
	}
	defer os.Remove(fn)

	cmd := fmt.Sprintf("%s group deployment create --mode complete --template-file %s --resource-group %s", p.Binary, fn, p.ResourceGroup)
	res := shellexec.Run(cmd, p.Shell)
	if res.Failure() {
		return res.Err()
	}
	return nil
}
