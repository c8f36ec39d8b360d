package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/scanzi-taas/orchestrator/internal/config"
	"github.com/scanzi-taas/orchestrator/internal/ir"
	"github.com/scanzi-taas/orchestrator/internal/roles"
	"github.com/scanzi-taas/orchestrator/internal/runlist"
	"github.com/scanzi-taas/orchestrator/internal/shellexec"
	"github.com/scanzi-taas/orchestrator/internal/template"
)

// RUN_STEP_PREFIX / SETUP_STEP_PREFIX name the per-machine, per-step script
// files a run list is expanded into: "step_run.0.sh", "step_setup.1.sh", ...
const (
	runStepPrefix   = "step_run"
	setupStepPrefix = "step_setup"
)

func stepFilePrefix(t runlist.StepType) string {
	if t == runlist.StepSetup {
		return setupStepPrefix
	}
	return runStepPrefix
}

// perVMTokens adds the fixed, non-role tokens every template and run-step
// script can reference, on top of whatever "=>role"/"<=role" tokens
// roles.CreateIPStringReplacementMap already filled in.
//
// PASSWORD and PASS are deliberately mapped to the VM's username, not its
// password — preserved from the source this was translated from; see
// DESIGN.md.
func perVMTokens(vm ir.VM, repl map[string]string) {
	for _, key := range []string{"NAME", "name", "VM_NAME", "vm_name", "machine_name", "MACHINE_NAME", "vm name", "machine name", "VM NAME", "MACHINE NAME"} {
		repl[key] = vm.Name
	}
	for _, key := range []string{"USER", "user", "USERNAME", "username"} {
		repl[key] = vm.Auth.User
	}
	repl["password"] = vm.Auth.Password
	repl["PASSWORD"] = vm.Auth.User
	repl["pass"] = vm.Auth.User
	repl["PASS"] = vm.Auth.User
}

// generateReplacementYML renders the per-VM block written into
// last_deployment_replacements.yml.
func generateReplacementYML(vmName string, repl map[string]string) string {
	var b strings.Builder
	b.WriteString("  {\n")
	fmt.Fprintf(&b, "    name: %s,\n", vmName)
	b.WriteString("    replacements:\n")
	b.WriteString("      {\n")
	for k, v := range repl {
		fmt.Fprintf(&b, "        '%s': '%s',\n", strings.ReplaceAll(k, "'", "''"), strings.ReplaceAll(v, "'", "''"))
	}
	b.WriteString("      },\n")
	b.WriteString("  },\n")
	return b.String()
}

// prepareTemplateConfigsForVMs renders every templated VM's replace/* and
// data/* files into test-deployment/<vm>, tars the result, and expands the
// run list's per-machine scripts into test-deployment/<vm>/<prefix>.<idx>.sh.
// It returns the per-machine replacement maps used, since the run-list
// expansion and a later pass both need them.
func prepareTemplateConfigsForVMs(templatesFolder string, vms []ir.VM, base map[string]string, perVM []map[string]string, steps []runlist.Step, shell string) (map[string]map[string]string, error) {
	allMachineSpecific := make(map[string]map[string]string, len(vms))
	var replacementYML strings.Builder
	replacementYML.WriteString("[\n")

	for idx, vm := range vms {
		merged := make(map[string]string, len(base)+len(perVM[idx]))
		for k, v := range base {
			merged[k] = v
		}
		for k, v := range perVM[idx] {
			merged[k] = v
		}
		allMachineSpecific[vm.Name] = merged

		if vm.ConfigTemplate == "" {
			continue
		}

		tplDir := filepath.Join(templatesFolder, vm.ConfigTemplate)
		tempDir := filepath.Join("temp-template-deployment", vm.Name)
		outDir := filepath.Join("test-deployment", vm.Name)
		if err := os.MkdirAll(tempDir, 0o755); err != nil {
			return nil, fmt.Errorf("taas: pipeline: could not create %s: %w", tempDir, err)
		}
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return nil, fmt.Errorf("taas: pipeline: could not create %s: %w", outDir, err)
		}

		replaceDir := filepath.Join(tplDir, "replace")
		if entries, err := os.ReadDir(replaceDir); err == nil {
			for _, e := range entries {
				if e.IsDir() {
					continue
				}
				src := filepath.Join(replaceDir, e.Name())
				dst := filepath.Join(tempDir, e.Name())
				if err := template.CopyAndReplace(src, dst, merged, template.FailWarn); err != nil {
					return nil, err
				}
			}
		}

		shellexec.RunQuiet(fmt.Sprintf("cp -rf %s/data/* %s/", tplDir, tempDir), shell)
		shellexec.RunQuiet(fmt.Sprintf("cd %s; tar czf %s.tgz ./*; cp %s.tgz ../../%s/", tempDir, vm.Name, vm.Name, outDir), shell)

		replacementYML.WriteString(generateReplacementYML(vm.Name, merged))
	}

	validNames := make(map[string]bool, len(vms))
	for _, vm := range vms {
		validNames[vm.Name] = true
	}

	for stepIdx, step := range steps {
		for machine, script := range step.Scripts {
			if !validNames[machine] {
				return nil, fmt.Errorf("taas: pipeline: run list references machine %q, which the scenario does not declare", machine)
			}
			filename := filepath.Join("test-deployment", machine, fmt.Sprintf("%s.%d.sh", stepFilePrefix(step.Type), stepIdx))
			if err := template.ReplaceAndWrite(script, filename, allMachineSpecific[machine], template.FailWarn, config.RunStepsFileName); err != nil {
				return nil, err
			}
		}
	}

	replacementYML.WriteString("]")
	if err := os.WriteFile("last_deployment_replacements.yml", []byte(replacementYML.String()), 0o644); err != nil {
		return nil, fmt.Errorf("taas: pipeline: could not write last_deployment_replacements.yml: %w", err)
	}
	return allMachineSpecific, nil
}

// prepareFromTemplates is the §4.9-step-3 phase: it derives every VM's
// role-based IP tokens, merges in the fixed per-VM tokens, renders every
// templated VM's files plus the run list, and pushes the whole
// test-deployment/ tree onto the orchestrator.
func prepareFromTemplates(log hclog.Logger, scenarioName string, net ir.Network, vms []ir.VM, subnets []ir.Subnet, hostnameMap map[string]string, steps []runlist.Step, orchPublicIP, customArgs, shell string) error {
	complete, singleton, err := roles.CreateVMLocalIPMapping(net, vms, subnets)
	if err != nil {
		return err
	}
	perVM := roles.CreateIPStringReplacementMap(complete, singleton)
	for idx, vm := range vms {
		perVMTokens(vm, perVM[idx])
	}

	base := map[string]string{
		"ORCHESTRATOR_IP": orchPublicIP,
		"WEBSERVER_IP":    orchPublicIP,
	}
	for name, ip := range hostnameMap {
		base[name] = ip
	}

	templatesFolder := filepath.Join(config.ScenarioPath, scenarioName, config.DeploymentTemplatesPath)
	if _, err := prepareTemplateConfigsForVMs(templatesFolder, vms, base, perVM, steps, shell); err != nil {
		return err
	}

	res := shellexec.RunRetry(log, fmt.Sprintf("scp %s -r test-deployment/* orch@%s:~", sshPrefix(customArgs), orchPublicIP), shell, 8, oneSecond)
	if res.Failure() {
		return res.Err()
	}
	return nil
}
