// Command taas-webserver is the asset server the pipeline driver stands up
// on the orchestrator VM: it serves the per-machine configuration tarballs
// and shared common-data files every other VM wget's during deployment.
package main

import (
	"fmt"
	"os"

	"github.com/hashicorp/go-hclog"

	"github.com/scanzi-taas/orchestrator/internal/webserver"
)

func main() {
	log := hclog.New(&hclog.LoggerOptions{
		Name: "taas-webserver",
	})

	home, err := os.UserHomeDir()
	if err != nil {
		fmt.Printf("error: could not resolve home directory: %+v\n", err)
		os.Exit(1)
	}

	if err := webserver.Serve(log, webserver.DefaultAddr, home); err != nil {
		log.Error("webserver exited", "error", err)
		os.Exit(1)
	}
}
