package pipeline

import (
	"time"

	"github.com/scanzi-taas/orchestrator/internal/ir"
)

// oneSecond is the fixed pause used between setup-phase steps and between
// ssh/scp retry attempts.
const oneSecond = time.Second

// determinePauseBetweenVMs scales the pause inserted between parallel VM
// creation launches with the deployment's size, so a 50-VM scenario doesn't
// fire 50 simultaneous `az vm create` calls at a cloud provider that rate
// limits by account.
func determinePauseBetweenVMs(vmCount int) time.Duration {
	if vmCount <= 0 {
		return 0
	}
	const baseMillis = 1000
	return time.Duration(2*baseMillis*ir.Log2Ceil(vmCount)) * time.Millisecond
}
