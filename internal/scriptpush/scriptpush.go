// Package scriptpush implements the "push" subcommand: pushing an ad-hoc
// script onto one or more already-deployed VMs from a previous run, reusing
// the credentials and per-VM replacements that run recorded. It is grounded
// on script_push/mod.rs and script_push/azure.rs.
package scriptpush

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hashicorp/go-hclog"
	"gopkg.in/yaml.v3"

	"github.com/scanzi-taas/orchestrator/internal/shellexec"
	"github.com/scanzi-taas/orchestrator/internal/template"
)

// summaryFileName and replacementsFileName are the two files a pipeline run
// leaves behind for a later push to reuse.
const (
	summaryFileName      = "last_deployment_summary.yml"
	replacementsFileName = "last_deployment_replacements.yml"
)

// VmSummary is one deployed VM's identity and credentials, as recorded by
// the pipeline driver into last_deployment_summary.yml.
type VmSummary struct {
	Name     string `yaml:"name"`
	Hostname string `yaml:"hostname"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// ReplData is one VM's replacement map, as recorded into
// last_deployment_replacements.yml.
type ReplData struct {
	Name         string            `yaml:"name"`
	Replacements map[string]string `yaml:"replacements"`
}

func loadYAMLFile(path string, out interface{}) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("taas: scriptpush: could not open %s; run a deployment first and check file permissions: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("taas: scriptpush: could not parse %s: %w", path, err)
	}
	return nil
}

// LoadLastDeploymentSummary reads last_deployment_summary.yml.
func LoadLastDeploymentSummary() ([]VmSummary, error) {
	var out []VmSummary
	if err := loadYAMLFile(summaryFileName, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// LoadLastDeploymentReplacements reads last_deployment_replacements.yml.
func LoadLastDeploymentReplacements() ([]ReplData, error) {
	var out []ReplData
	if err := loadYAMLFile(replacementsFileName, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func replacementsFor(name string, repl []ReplData) map[string]string {
	for _, r := range repl {
		if r.Name == name {
			return r.Replacements
		}
	}
	return nil
}

// PrintVMList prints the numbered list a caller chooses indices from.
func PrintVMList(w io.Writer, vms []VmSummary) {
	for idx, vm := range vms {
		fmt.Fprintf(w, "%d: %s\n", idx, vm.Name)
	}
}

// AskVMSelection prompts on w and reads a whitespace-separated list of
// indices from r, retrying until every entry parses as an unsigned integer
// within [0, len(vms)-1]. Mirrors ask_vm_selection's parse loop exactly,
// including accepting an empty line as invalid and looping forever on bad
// input rather than erroring out.
func AskVMSelection(r *bufio.Reader, w io.Writer, vmCount int) ([]int, error) {
	if vmCount == 0 {
		return nil, fmt.Errorf("taas: scriptpush: no VMs available to choose from")
	}
	maxIdx := vmCount - 1

	for {
		fmt.Fprint(w, "Choose VMs: ")
		line, err := r.ReadString('\n')
		if err != nil && line == "" {
			return nil, fmt.Errorf("taas: scriptpush: could not read VM selection: %w", err)
		}
		line = strings.ReplaceAll(strings.TrimSpace(line), "\t", " ")
		fields := strings.Fields(line)

		idxs, ok := parseSelection(fields, maxIdx)
		if ok {
			return idxs, nil
		}
		fmt.Fprintln(w, "Please input a sequence of numbers within the range.")
	}
}

func parseSelection(fields []string, maxIdx int) ([]int, bool) {
	if len(fields) == 0 {
		return nil, false
	}
	out := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil || n < 0 || n > maxIdx {
			return nil, false
		}
		out = append(out, n)
	}
	return out, true
}

// prepareReplaced renders every file under
// push_scripts/<deploymentName>/replace into
// push_scripts/<deploymentName>/repl_temp, substituting vm's replacement
// map, the same staging step createSystem's templates.go does for the main
// deployment.
func prepareReplaced(deploymentName string, replacements map[string]string) error {
	replaceDir := filepath.Join("push_scripts", deploymentName, "replace")
	entries, err := os.ReadDir(replaceDir)
	if err != nil {
		return fmt.Errorf("taas: scriptpush: could not list %s: %w", replaceDir, err)
	}
	tempDir := filepath.Join("push_scripts", deploymentName, "repl_temp")
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return fmt.Errorf("taas: scriptpush: could not create %s: %w", tempDir, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		src := filepath.Join(replaceDir, e.Name())
		dst := filepath.Join(tempDir, e.Name())
		if err := template.CopyAndReplace(src, dst, replacements, template.FailWarn); err != nil {
			return err
		}
	}
	return nil
}

func dirHasEntries(path string) bool {
	entries, err := os.ReadDir(path)
	return err == nil && len(entries) > 0
}

// sendScriptSSH pushes push_scripts/<deploymentName> onto vm and runs
// run.sh there as root: remove any stale copy, recreate the directory,
// scp run.sh, conditionally scp data/* and templated replace/* files, then
// run run.sh over ssh with sudo.
func sendScriptSSH(vm VmSummary, replacements map[string]string, deploymentName, sshCustomArgs, shell string) error {
	prefix := fmt.Sprintf("%s -oStrictHostKeyChecking=no -oUserKnownHostsFile=/dev/null", sshCustomArgs)
	target := fmt.Sprintf("%s@%s", vm.Username, vm.Hostname)

	cmds := []string{
		fmt.Sprintf("ssh %s %s \"cd ~; echo %s | sudo -S rm -rf push_scripts/%s\"", prefix, target, vm.Password, deploymentName),
		fmt.Sprintf("ssh %s %s \"cd ~; mkdir -p push_scripts/%s\"", prefix, target, deploymentName),
		fmt.Sprintf("scp %s push_scripts/%s/run.sh %s:~/push_scripts/%s/", prefix, deploymentName, target, deploymentName),
	}
	for _, cmd := range cmds {
		if res := shellexec.Run(cmd, shell); res.Failure() {
			return res.Err()
		}
	}

	dataDir := filepath.Join("push_scripts", deploymentName, "data")
	if dirHasEntries(dataDir) {
		cmd := fmt.Sprintf("scp -r %s push_scripts/%s/data/* %s:~/", prefix, deploymentName, target)
		if res := shellexec.Run(cmd, shell); res.Failure() {
			return res.Err()
		}
	}

	replaceDir := filepath.Join("push_scripts", deploymentName, "replace")
	if dirHasEntries(replaceDir) {
		if err := prepareReplaced(deploymentName, replacements); err != nil {
			return err
		}
		cmd := fmt.Sprintf("scp %s push_scripts/%s/repl_temp/* %s:~/", prefix, deploymentName, target)
		if res := shellexec.Run(cmd, shell); res.Failure() {
			return res.Err()
		}
		shellexec.RunQuiet(fmt.Sprintf("rm -rf push_scripts/%s/repl_temp", deploymentName), shell)
	}

	runCmd := fmt.Sprintf("ssh %s %s \"cd ~; echo %s | sudo -S sh ~/push_scripts/%s/run.sh\"", prefix, target, vm.Password, deploymentName)
	if res := shellexec.Run(runCmd, shell); res.Failure() {
		return res.Err()
	}
	return nil
}

// Push runs push_scripts/<deploymentName> on every VM named by idxs,
// sequentially, in the order given — the same order the original pushed
// them, since a push is usually a small, manually-chosen set of machines
// and there's nothing to gain from fanning it out.
func Push(log hclog.Logger, deploymentName string, idxs []int, sshCustomArgs, shell string) error {
	vms, err := LoadLastDeploymentSummary()
	if err != nil {
		return err
	}
	repl, err := LoadLastDeploymentReplacements()
	if err != nil {
		return err
	}

	for _, idx := range idxs {
		if idx < 0 || idx >= len(vms) {
			return fmt.Errorf("taas: scriptpush: machine index %d is out of range (have %d machines)", idx, len(vms))
		}
		vm := vms[idx]
		log.Info("running push script on machine", "index", idx, "vm", vm.Name)
		if err := sendScriptSSH(vm, replacementsFor(vm.Name, repl), deploymentName, sshCustomArgs, shell); err != nil {
			return fmt.Errorf("taas: scriptpush: machine %d (%s): %w", idx, vm.Name, err)
		}
		log.Info("finished running push script on machine", "index", idx, "vm", vm.Name)
	}
	return nil
}

// PushInteractive lists the available VMs on w, prompts for a selection on
// r, and pushes deploymentName to the chosen machines.
func PushInteractive(log hclog.Logger, deploymentName, sshCustomArgs, shell string, r *bufio.Reader, w io.Writer) error {
	vms, err := LoadLastDeploymentSummary()
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "Available VMs:")
	PrintVMList(w, vms)

	idxs, err := AskVMSelection(r, w, len(vms))
	if err != nil {
		return err
	}
	return Push(log, deploymentName, idxs, sshCustomArgs, shell)
}
