package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/scanzi-taas/orchestrator/internal/config"
	"github.com/scanzi-taas/orchestrator/internal/ir"
	"github.com/scanzi-taas/orchestrator/internal/shellexec"
)

// gatherCommonData reads each templated VM's deployment_templates/<template>/
// common_data.yml (a plain list of filenames under scenarios/common_data/)
// and returns the per-VM list. A missing common_data.yml is not an error —
// most deployment templates have no shared data to pull in.
func gatherCommonData(scenarioName string, vms []ir.VM) (map[string][]string, error) {
	out := make(map[string][]string)
	for _, vm := range vms {
		if vm.ConfigTemplate == "" {
			continue
		}
		fn := filepath.Join(config.ScenarioPath, scenarioName, config.DeploymentTemplatesPath, vm.ConfigTemplate, "common_data.yml")
		raw, err := os.ReadFile(fn)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("taas: pipeline: could not read %s: %w", fn, err)
		}
		var files []string
		if err := yaml.Unmarshal(raw, &files); err != nil {
			return nil, fmt.Errorf("taas: pipeline: %s is not a valid list of filenames: %w", fn, err)
		}
		out[vm.Name] = files
	}
	return out, nil
}

// prepareCommonData copies every distinct file named across commonData into
// temp_common_data/, deduplicated so a file shared by several VMs is only
// copied once.
func prepareCommonData(shell string, commonData map[string][]string) error {
	seen := make(map[string]bool)
	var all []string
	for _, files := range commonData {
		for _, f := range files {
			if !seen[f] {
				seen[f] = true
				all = append(all, f)
			}
		}
	}
	if len(all) == 0 {
		return nil
	}

	res := shellexec.Run("mkdir -p temp_common_data", shell)
	if res.Failure() {
		return res.Err()
	}
	for _, f := range all {
		cmd := fmt.Sprintf("cp -rf scenarios/common_data/%s temp_common_data/", f)
		res := shellexec.Run(cmd, shell)
		if res.Failure() {
			return res.Err()
		}
	}
	return nil
}
