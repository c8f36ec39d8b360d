package pipeline

import (
	"net"
	"os"

	"github.com/scanzi-taas/orchestrator/internal/ir"
	"github.com/scanzi-taas/orchestrator/internal/postdeploy"
)

// orchestratorName is the fixed name every deployment's webserver VM is
// created under — the pipeline driver looks a VM up by this name whenever
// it needs the webserver's own public IP.
const orchestratorName = "orchestrator"

const (
	orchestratorUser = "orch"
	orchestratorPass = "asdfgDDFjklqwe1234"
)

// orchestratorOverrideEnvVar lets an operator override the orchestrator
// VM's size without touching config/webserver.yml, useful for one-off runs
// with unusually large or small asset payloads.
const orchestratorOverrideEnvVar = "ORCH_SIZE"

// buildOrchestratorVM returns the hard-coded VM and its single-member
// subnet for the deployment's own webserver: it always lives alone on
// 10.1.0.0/16, fixed at 10.1.0.5, independent of every subnet the scenario
// itself produces. wsOverride is the provider-specific size override taken
// from config/webserver.yml's override_vm map for the active provider, used
// only if ORCH_SIZE isn't set in the environment.
func buildOrchestratorVM(wsOverride string, repo *postdeploy.Registry) (ir.VM, ir.Subnet) {
	override := wsOverride
	if v, ok := os.LookupEnv(orchestratorOverrideEnvVar); ok {
		override = v
	}

	vm := ir.VM{
		Name:            orchestratorName,
		OS:              ir.CommonOnlyOS("UbuntuLTS"),
		HwConfig:        ir.DefaultHwConfig(),
		OverrideConfig:  override,
		HasRemoteAccess: true,
		Auth:            ir.Auth{User: orchestratorUser, Password: orchestratorPass},
	}

	if repo != nil {
		repo.AddGlobalReplacement("machines/orchestrator/user", orchestratorUser)
		repo.AddGlobalReplacement("machines/orchestrator/username", orchestratorUser)
		repo.AddGlobalReplacement("machines/orchestrator/pass", orchestratorPass)
		repo.AddGlobalReplacement("machines/orchestrator/password", orchestratorPass)
	}

	subnet := ir.Subnet{
		Prefix:       ir.CidrIP{IP: net.ParseIP("10.1.0.0").To4(), Netmask: 16},
		ConnectedVMs: map[int]net.IP{0: net.ParseIP("10.1.0.5")},
	}
	return vm, subnet
}
