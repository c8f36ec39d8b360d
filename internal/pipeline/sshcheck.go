package pipeline

import (
	"fmt"
	"time"

	"golang.org/x/crypto/ssh"
)

// webserverHealthy opens a real SSH connection to the orchestrator VM (the
// only place this codebase uses golang.org/x/crypto/ssh directly rather
// than shelling out to the ssh binary) and checks that the orche service is
// active and its report directory exists. Both checks run over the same
// connection since they're cheap and always asked together.
func webserverHealthy(addr, user, password string) bool {
	config := &ssh.ClientConfig{
		User:            user,
		Auth:            []ssh.AuthMethod{ssh.Password(password)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         10 * time.Second,
	}

	client, err := ssh.Dial("tcp", fmt.Sprintf("%s:22", addr), config)
	if err != nil {
		return false
	}
	defer client.Close()

	checks := []string{
		fmt.Sprintf("echo %s | sudo -S systemctl status orche", password),
		fmt.Sprintf("echo %s | sudo -S ls /home/%s/machine_reports", password, user),
	}
	for _, cmd := range checks {
		session, err := client.NewSession()
		if err != nil {
			return false
		}
		err = session.Run(cmd)
		session.Close()
		if err != nil {
			return false
		}
	}
	return true
}
