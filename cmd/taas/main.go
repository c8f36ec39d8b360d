// Command taas is the orchestrator binary: given a scenario name, it drives
// a full cloud deployment; given "delete" (or an alias), it tears down the
// leftover resources and temp files from the previous run; given "push", it
// re-runs an ad-hoc script against already-deployed machines.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"

	"github.com/hashicorp/go-hclog"

	"github.com/scanzi-taas/orchestrator/internal/cloud"
	"github.com/scanzi-taas/orchestrator/internal/cloud/azure"
	"github.com/scanzi-taas/orchestrator/internal/config"
	"github.com/scanzi-taas/orchestrator/internal/pipeline"
	"github.com/scanzi-taas/orchestrator/internal/postdeploy"
	"github.com/scanzi-taas/orchestrator/internal/scriptpush"
)

const usage = `usage: taas <scenario-name>
       taas delete
       taas push <deployment-name> [vm-indices...]
`

// tempPaths lists every scratch directory and file a run can leave behind,
// removed by the delete subcommand alongside clearing the resource group.
var tempPaths = []string{
	"test-deployment",
	"temp-template-deployment",
	"temp_common_data",
	"last_deployment_summary.yml",
	"last_deployment_replacements.yml",
}

func main() {
	log := hclog.New(&hclog.LoggerOptions{
		Name: "taas",
	})

	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(0)
	}

	if err := dispatch(log, os.Args[1:]); err != nil {
		log.Error("taas failed", "error", err)
		os.Exit(1)
	}
}

func dispatch(log hclog.Logger, args []string) error {
	switch args[0] {
	case "delete", "remove", "clean", "rm", "del":
		return runDelete(log)
	case "push":
		return runPush(log, args[1:])
	default:
		return runScenario(log, args[0])
	}
}

func newProvider(log hclog.Logger, g *config.Global) cloud.Provider {
	switch g.CloudProvider {
	case "azure":
		return &azure.Provider{
			Log:           log,
			Binary:        g.ProvidersConfig["azure-cli-binary"],
			Location:      g.ProvidersConfig["location"],
			ResourceGroup: g.ProvidersConfig["resource-group"],
			Shell:         g.Shell.Shell,
		}
	default:
		return nil
	}
}

func runDelete(log hclog.Logger) error {
	g, err := config.LoadGlobal()
	if err != nil {
		return err
	}
	prov := newProvider(log, g)
	if prov == nil {
		return fmt.Errorf("taas: unsupported cloud provider %q", g.CloudProvider)
	}
	if err := prov.CheckReady(); err != nil {
		return err
	}

	for _, p := range tempPaths {
		log.Info("removing temp path", "path", p)
		if err := os.RemoveAll(p); err != nil {
			return fmt.Errorf("taas: could not remove %s: %w", p, err)
		}
	}

	log.Info("clearing resource group", "group", g.ProvidersConfig["resource-group"])
	return prov.ClearResourceGroup()
}

func runPush(log hclog.Logger, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("taas: push requires a deployment name")
	}
	deploymentName := args[0]

	g, err := config.LoadGlobal()
	if err != nil {
		return err
	}

	if len(args) > 1 {
		idxs := make([]int, 0, len(args)-1)
		for _, a := range args[1:] {
			n, err := strconv.Atoi(a)
			if err != nil {
				return fmt.Errorf("taas: invalid VM index %q: %w", a, err)
			}
			idxs = append(idxs, n)
		}
		return scriptpush.Push(log, deploymentName, idxs, g.SSH.CustomArgs, g.Shell.Shell)
	}

	return scriptpush.PushInteractive(log, deploymentName, g.SSH.CustomArgs, g.Shell.Shell, bufio.NewReader(os.Stdin), os.Stdout)
}

func runScenario(log hclog.Logger, scenarioName string) error {
	g, err := config.LoadGlobal()
	if err != nil {
		return err
	}
	prov := newProvider(log, g)
	if prov == nil {
		return fmt.Errorf("taas: unsupported cloud provider %q", g.CloudProvider)
	}
	if err := prov.CheckReady(); err != nil {
		return err
	}

	repo := postdeploy.New()
	return pipeline.Run(log, g, prov, repo, scenarioName)
}
