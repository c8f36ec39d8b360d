package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"

	"github.com/scanzi-taas/orchestrator/internal/cloud"
	"github.com/scanzi-taas/orchestrator/internal/ir"
)

// getAllVMFilesV2 builds and runs the asset-fetch script for one VM: every
// file test-deployment/<vm> holds, plus the VM's share of temp_common_data,
// is wget'd from the orchestrator's asset server, unpacked, and handed to
// the VM's own user.
func getAllVMFilesV2(prov cloud.Provider, vmName, vmUser, wsIP string, commonData []string) error {
	entries, err := os.ReadDir(filepath.Join("test-deployment", vmName))
	if err != nil {
		return fmt.Errorf("taas: pipeline: could not list test-deployment/%s: %w", vmName, err)
	}

	var script strings.Builder
	fmt.Fprintf(&script, "cd /home/%s\n", vmUser)
	for _, e := range entries {
		fmt.Fprintf(&script, "wget http://%s:8000/%s/%s\n", wsIP, vmName, e.Name())
	}
	for _, f := range commonData {
		fmt.Fprintf(&script, "wget http://%s:8000/common_data/%s\n", wsIP, f)
	}
	fmt.Fprintf(&script, "tar xzf %s.tgz\n", vmName)
	fmt.Fprintf(&script, "sudo chown %s:%s ./*\n", vmUser, vmUser)
	fmt.Fprintf(&script, "rm -f %s.tgz\n", vmName)

	return prov.RunScriptOnVM(vmName, script.String())
}

// pushDataToMachines runs getAllVMFilesV2 on every VM, paced the same way
// createSystem paces VM creation, so the asset server isn't hit with every
// machine's wget at once.
func pushDataToMachines(log hclog.Logger, prov cloud.Provider, vms []ir.VM, commonData map[string][]string, orchPublicIP string) error {
	log.Info("running setup scripts on vms")
	pause := determinePauseBetweenVMs(len(vms))

	var wg sync.WaitGroup
	var mErr multierror.Error
	var mu sync.Mutex

	for idx, vm := range vms {
		wg.Add(1)
		go func(vm ir.VM) {
			defer wg.Done()
			if err := getAllVMFilesV2(prov, vm.Name, vm.Auth.User, orchPublicIP, commonData[vm.Name]); err != nil {
				mu.Lock()
				mErr.Errors = append(mErr.Errors, err)
				mu.Unlock()
			}
		}(vm)
		if idx != len(vms)-1 {
			time.Sleep(pause)
		}
	}
	wg.Wait()
	return mErr.ErrorOrNil()
}
