package pipeline

import (
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/scanzi-taas/orchestrator/internal/shellexec"
)

const webserverBinaryPath = "webserver/webserver"

// sshPrefix builds the fixed "ssh <custom args> -oStrictHostKeyChecking=no
// -oUserKnownHostsFile=/dev/null" preamble shared by every ssh/scp call this
// codebase makes to a freshly created VM, which never has a known host key.
func sshPrefix(customArgs string) string {
	return fmt.Sprintf("%s -oStrictHostKeyChecking=no -oUserKnownHostsFile=/dev/null", customArgs)
}

// setupWebserv pushes the webserver binary, its systemd unit and setup
// script, and (if any VM declared common data) a shared data tarball, onto
// the orchestrator VM, then runs its setup script there as root.
func setupWebserv(log hclog.Logger, ip string, machineNames []string, customArgs, shell string) error {
	if err := os.MkdirAll("test-deployment", 0o755); err != nil {
		return fmt.Errorf("taas: pipeline: could not create test-deployment: %w", err)
	}
	if res := shellexec.Run(fmt.Sprintf("cp %s test-deployment/ws", webserverBinaryPath), shell); res.Failure() {
		return fmt.Errorf("taas: pipeline: could not copy webserver binary from %s: %w", webserverBinaryPath, res.Err())
	}

	prefix := sshPrefix(customArgs)

	if entries, err := os.ReadDir("temp_common_data"); err == nil && len(entries) > 0 {
		if res := shellexec.Run("cd temp_common_data; tar czf common_data.tgz ./*", shell); res.Failure() {
			return res.Err()
		}
		shellexec.RunRetry(log, fmt.Sprintf("ssh %s orch@%s \"mkdir -p common_data\"", prefix, ip), shell, 8, oneSecond)
		shellexec.RunRetry(log, fmt.Sprintf("scp %s temp_common_data/common_data.tgz orch@%s:~/common_data/", prefix, ip), shell, 8, oneSecond)
		shellexec.RunRetry(log, fmt.Sprintf("ssh %s orch@%s \"cd common_data; tar xzf common_data.tgz\"", prefix, ip), shell, 8, oneSecond)
	}

	shellexec.RunRetry(log, fmt.Sprintf("scp %s test-deployment/ws orch@%s:~/ws", prefix, ip), shell, 8, oneSecond)
	shellexec.RunQuiet("rm test-deployment/ws", shell)
	shellexec.RunRetry(log, fmt.Sprintf("scp %s webserver/webserver_setup.sh orch@%s:~/webserver_setup.sh", prefix, ip), shell, 8, oneSecond)
	shellexec.RunRetry(log, fmt.Sprintf("scp %s webserver/orche.service orch@%s:~/orche.service", prefix, ip), shell, 8, oneSecond)

	shellexec.RunRetry(log, fmt.Sprintf("ssh %s orch@%s \"mkdir -p machine_reports\"", prefix, ip), shell, 8, oneSecond)

	dirs := "machine_reports/" + strings.Join(machineNames, " machine_reports/")
	shellexec.RunRetry(log, fmt.Sprintf("ssh %s orch@%s \"mkdir -p %s\"", prefix, ip, dirs), shell, 8, oneSecond)

	res := shellexec.RunRetry(log, fmt.Sprintf("ssh %s orch@%s \"echo %s | sudo -S sh ~/webserver_setup.sh\"", prefix, ip, orchestratorPass), shell, 8, oneSecond)
	if res.Failure() {
		return res.Err()
	}
	return nil
}

// prepareWS drives setupWebserv through up to 4 attempts, confirming
// success over an actual SSH connection each time rather than trusting the
// scp/ssh exit codes alone — a VM can accept the files but still not have
// its systemd unit come up cleanly.
func prepareWS(log hclog.Logger, ip string, machineNames []string, customArgs, shell string) error {
	var lastErr error
	for attempt := 4; attempt > 0; attempt-- {
		if err := setupWebserv(log, ip, machineNames, customArgs, shell); err != nil {
			lastErr = err
		} else if webserverHealthy(ip, orchestratorUser, orchestratorPass) {
			return nil
		}
		log.Warn("webserver configuration failed, trying again", "attempts_left", attempt-1)
	}
	if lastErr != nil {
		return fmt.Errorf("taas: pipeline: webserver never became healthy: %w", lastErr)
	}
	return fmt.Errorf("taas: pipeline: webserver never became healthy after 4 attempts")
}
