package pipeline

import (
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"

	"github.com/scanzi-taas/orchestrator/internal/azureemit"
	"github.com/scanzi-taas/orchestrator/internal/cloud"
	"github.com/scanzi-taas/orchestrator/internal/ir"
)

// createSystem maps a set of VMs plus their subnets onto the configured
// cloud provider: it creates the network first (synchronously, since every
// VM depends on it), then launches one VM-creation call per machine,
// pacing the launches with determinePauseBetweenVMs so a large deployment
// doesn't hit the provider with every VM creation at once.
func createSystem(log hclog.Logger, prov cloud.Provider, vms []ir.VM, subnets []ir.Subnet, opts azureemit.TranslateOptions, systemName string) error {
	// The vnet is named after the system being created, not a fixed config
	// value, exactly like the original's pasir_to_azuresir(vms, subnets,
	// system_name) call — "webserver" and "taas_run" each get their own vnet.
	opts.VnetName = systemName
	ws, err := azureemit.PasirToAzureSystem(vms, subnets, opts)
	if err != nil {
		return err
	}
	emitted := azureemit.EmitNew(ws, opts.AzureCLIBinary, opts.DNSPrefix)

	log.Info("creating network", "system", systemName)
	if err := prov.RunNetworkScript(emitted.Network); err != nil {
		return err
	}

	pause := determinePauseBetweenVMs(len(emitted.Vms))
	var wg sync.WaitGroup
	var mErr multierror.Error
	var mu sync.Mutex

	for idx, vmScript := range emitted.Vms {
		wg.Add(1)
		log.Info("starting vm creation", "system", systemName, "vm", vms[idx].Name)
		go func(script string) {
			defer wg.Done()
			if err := prov.RunVMScript(script); err != nil {
				mu.Lock()
				mErr.Errors = append(mErr.Errors, err)
				mu.Unlock()
			}
		}(vmScript)
		if idx != len(emitted.Vms)-1 {
			time.Sleep(pause)
		}
	}
	wg.Wait()

	log.Info("finished creating system", "system", systemName)
	return mErr.ErrorOrNil()
}
