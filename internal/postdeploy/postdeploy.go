// Package postdeploy holds the one deployment-wide replacement map fed into
// the post-deployment script: as each VM is provisioned and addresses/DNS
// names become known, that information is registered here under symbolic
// keys (e.g. "machines/web/user"), and the post-deployment script gets them
// substituted in right before it runs.
package postdeploy

import (
	"sync"

	"github.com/scanzi-taas/orchestrator/internal/shellexec"
	"github.com/scanzi-taas/orchestrator/internal/template"
)

// Registry is the mutex-guarded global replacement map. Unlike most of this
// codebase, a single Registry is meant to be shared for the whole lifetime
// of one pipeline run rather than threaded explicitly everywhere, because
// the value it accumulates is genuinely global: any stage of the pipeline
// might discover a fact (a VM's public IP, say) the post-deployment script
// needs regardless of which goroutine discovered it.
type Registry struct {
	mu  sync.Mutex
	vars map[string]string
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{vars: make(map[string]string)}
}

// AddGlobalReplacement records that occurrences of the token "from" in the
// post-deployment script should become "to".
func (r *Registry) AddGlobalReplacement(from, to string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vars[from] = to
}

func (r *Registry) snapshot() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]string, len(r.vars))
	for k, v := range r.vars {
		out[k] = v
	}
	return out
}

// Replace substitutes every registered token into script, additionally
// registering SSH_OPTIONS/SSH_CONFIG from sshCustomArgs right before
// snapshotting the map, since those two tokens are only ever meaningful in
// this one context. Missing tokens are warned about and left in place,
// matching the original's Warn policy for post-deployment scripts.
func (r *Registry) Replace(script, sshCustomArgs string) (string, error) {
	r.AddGlobalReplacement("SSH_OPTIONS", sshCustomArgs)
	r.AddGlobalReplacement("SSH_CONFIG", sshCustomArgs)
	return template.Replace(script, r.snapshot(), template.FailWarn, "post_deployment.sh")
}

// Run substitutes the registered tokens into script and executes it
// interactively through the configured shell.
func (r *Registry) Run(script, sshCustomArgs, shellBinary string) (shellexec.RunSummary, error) {
	substituted, err := r.Replace(script, sshCustomArgs)
	if err != nil {
		return shellexec.RunSummary{}, err
	}
	return shellexec.RunInteractive(substituted, shellBinary)
}
