// Package pipeline drives a full deployment run: parsing a scenario,
// deriving its physical network, standing up the orchestrator webserver and
// the scenario's own VMs in parallel, pushing per-VM assets and run-list
// scripts, executing the run list, and finally the post-deployment script.
// It is grounded on pipelines/mod.rs's run_v2 and pipelines/azure_cli.rs.
package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/scanzi-taas/orchestrator/internal/azureemit"
	"github.com/scanzi-taas/orchestrator/internal/cloud"
	"github.com/scanzi-taas/orchestrator/internal/config"
	"github.com/scanzi-taas/orchestrator/internal/ir"
	"github.com/scanzi-taas/orchestrator/internal/postdeploy"
	"github.com/scanzi-taas/orchestrator/internal/runlist"
)

// Run executes a complete deployment of scenarioName: it never returns on
// success if the scenario supplies a post-deployment script, since that
// script's exit code becomes the process's own via os.Exit, matching the
// original's propagation policy (§7).
func Run(log hclog.Logger, g *config.Global, prov cloud.Provider, repo *postdeploy.Registry, scenarioName string) error {
	log.Info("generating system internal representation")
	scenario, err := config.LoadScenario(filepath.Join(config.ScenarioPath, scenarioName, config.SystemYamlName))
	if err != nil {
		return err
	}
	vms, network, err := config.Translate(scenario, g, repo)
	if err != nil {
		return err
	}
	candidates, err := ir.CreateNetworkFromLogical(network)
	if err != nil {
		return err
	}
	subnets := ir.AssignSubnetsAndIP(candidates)

	commonData, err := gatherCommonData(scenarioName, vms)
	if err != nil {
		return err
	}
	if err := prepareCommonData(g.Shell.Shell, commonData); err != nil {
		return err
	}

	catalog, err := prov.SkuCatalog()
	if err != nil {
		return err
	}
	opts := azureemit.TranslateOptions{
		Location:       g.ProvidersConfig["location"],
		ResourceGroup:  g.ProvidersConfig["resource-group"],
		CommonOSImage:  g.CommonOSImage,
		SkuCatalog:     catalog,
		AzureCLIBinary: g.ProvidersConfig["azure-cli-binary"],
		DNSPrefix:      g.Network["dns_prefix"],
	}

	log.Info("creating orchestrator webserver")
	var wsErr error
	var wsWG sync.WaitGroup
	wsWG.Add(1)
	go func() {
		defer wsWG.Done()
		orchVM, orchSubnet := buildOrchestratorVM(g.WebserverOverride, repo)
		wsErr = createSystem(log, prov, []ir.VM{orchVM}, []ir.Subnet{orchSubnet}, opts, "webserver")
	}()

	runStepsPath := filepath.Join(config.ScenarioPath, scenarioName, config.RunStepsFileName)
	var runSteps []runlist.Step
	if _, statErr := os.Stat(runStepsPath); statErr == nil {
		runSteps, err = runlist.ParseRunList(runStepsPath)
		if err != nil {
			return err
		}
	} else {
		log.Warn("pipeline file is missing", "path", runStepsPath)
	}
	if len(runSteps) == 0 {
		log.Warn("pipeline file does not contain any steps")
	}

	log.Info("creating machines")
	var sysErr error
	var sysWG sync.WaitGroup
	sysWG.Add(1)
	go func() {
		defer sysWG.Done()
		sysErr = createSystem(log, prov, vms, subnets, opts, "taas_run")
	}()

	wsWG.Wait()
	if wsErr != nil {
		return fmt.Errorf("taas: pipeline: could not create orchestrator webserver: %w", wsErr)
	}

	orchIP, err := prov.PublicIP(orchestratorName)
	if err != nil {
		return err
	}

	log.Info("preparing webserver files")
	machineNames := make([]string, len(vms))
	for i, vm := range vms {
		machineNames[i] = vm.Name
	}
	if err := prepareWS(log, orchIP, machineNames, g.SSH.CustomArgs, g.Shell.Shell); err != nil {
		return err
	}

	sysWG.Wait()
	if sysErr != nil {
		return fmt.Errorf("taas: pipeline: could not create machines: %w", sysErr)
	}

	hostnameMap := mapPublicHostnameWithGlobal(prov, repo, vms)

	if err := prepareFromTemplates(log, scenarioName, network, vms, subnets, hostnameMap, runSteps, orchIP, g.SSH.CustomArgs, g.Shell.Shell); err != nil {
		return err
	}

	if err := pushDataToMachines(log, prov, vms, commonData, orchIP); err != nil {
		return err
	}

	if err := writeDeploymentSummary(log, prov, vms); err != nil {
		return err
	}

	if err := runRunList(log, prov, vms, runSteps); err != nil {
		return err
	}

	return runPostDeployment(repo, scenarioName, g.SSH.CustomArgs, g.Shell.Shell)
}

// mapPublicHostnameWithGlobal resolves, and registers into repo, the public
// address of every remotely-reachable VM.
func mapPublicHostnameWithGlobal(prov cloud.Provider, repo *postdeploy.Registry, vms []ir.VM) map[string]string {
	out := make(map[string]string)
	for _, vm := range vms {
		if !vm.HasRemoteAccess {
			continue
		}
		ip, err := prov.PublicIP(vm.Name)
		if err != nil {
			continue
		}
		out[vm.Name] = ip
		if repo != nil {
			repo.AddGlobalReplacement(fmt.Sprintf("machines/%s/public_ip", vm.Name), ip)
			repo.AddGlobalReplacement(fmt.Sprintf("machines/%s/public_ip_address", vm.Name), ip)
			repo.AddGlobalReplacement(fmt.Sprintf("machines/%s/public_host", vm.Name), ip)
			repo.AddGlobalReplacement(fmt.Sprintf("machines/%s/public_hostname", vm.Name), ip)
		}
	}
	return out
}

// writeDeploymentSummary writes last_deployment_summary.yml: one entry per
// remotely-reachable VM with its name, credentials and public address.
func writeDeploymentSummary(log hclog.Logger, prov cloud.Provider, vms []ir.VM) error {
	var b strings.Builder
	b.WriteString("[\n")
	for _, vm := range vms {
		if !vm.HasRemoteAccess {
			continue
		}
		ip, err := prov.PublicIP(vm.Name)
		if err != nil {
			return err
		}
		log.Info("public ip address", "vm", vm.Name, "ip", ip)
		fmt.Fprintf(&b, "  {\n      name: %s,\n      username: %s,\n      password: %s,\n      hostname: %s,\n  },\n", vm.Name, vm.Auth.User, vm.Auth.Password, ip)
	}
	b.WriteString("]")
	if err := os.WriteFile("last_deployment_summary.yml", []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("taas: pipeline: could not write last_deployment_summary.yml: %w", err)
	}
	return nil
}

// runRunList executes every parsed run-list step: one RunScriptOnVM call
// per targeted machine, goroutines within a step fanning out together, with
// a 1-second pause between launches during setup steps only (setup steps
// are typically heavier and less latency-sensitive than run steps).
func runRunList(log hclog.Logger, prov cloud.Provider, vms []ir.VM, steps []runlist.Step) error {
	userByName := make(map[string]string, len(vms))
	for _, vm := range vms {
		userByName[vm.Name] = vm.Auth.User
	}

	for stepIdx, step := range steps {
		log.Info("pipeline running step", "index", stepIdx, "type", step.Type)

		var wg sync.WaitGroup
		errs := make(chan error, len(step.Scripts))
		for machine := range step.Scripts {
			wg.Add(1)
			user := userByName[machine]
			filename := fmt.Sprintf("%s.%d.sh", stepFilePrefix(step.Type), stepIdx)
			go func(machine, user, filename string) {
				defer wg.Done()
				cmd := fmt.Sprintf("cd /home/%s; sudo sh %s", user, filename)
				if err := prov.RunScriptOnVM(machine, cmd); err != nil {
					errs <- err
				}
			}(machine, user, filename)

			if step.Type == runlist.StepSetup {
				time.Sleep(oneSecond)
			}
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			return fmt.Errorf("taas: pipeline: run list step %d failed: %w", stepIdx, err)
		}
		log.Info("pipeline finished step", "index", stepIdx, "type", step.Type)
	}
	return nil
}

// runPostDeployment executes scenarios/<name>/post_deployment.sh, if
// present, with the accumulated global replacement map substituted in, and
// propagates its exit code to the process per §7's propagation policy.
// If the script is absent this is a no-op.
func runPostDeployment(repo *postdeploy.Registry, scenarioName, sshCustomArgs, shell string) error {
	fn := filepath.Join(config.ScenarioPath, scenarioName, config.PostDeploymentScriptName)
	raw, err := os.ReadFile(fn)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("taas: pipeline: could not read %s: %w", fn, err)
	}

	summary, err := repo.Run(string(raw), sshCustomArgs, shell)
	if err != nil {
		return err
	}
	os.Exit(summary.ExitCode)
	return nil
}
