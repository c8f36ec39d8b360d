package pipeline

import (
	"strings"
	"testing"
)

func TestSSHPrefixIncludesStrictHostKeyCheckingOff(t *testing.T) {
	got := sshPrefix("-i mykey.pem")
	if !strings.HasPrefix(got, "-i mykey.pem ") {
		t.Fatalf("expected custom args preserved, got %q", got)
	}
	if !strings.Contains(got, "-oStrictHostKeyChecking=no") {
		t.Fatalf("expected strict host key checking disabled, got %q", got)
	}
	if !strings.Contains(got, "-oUserKnownHostsFile=/dev/null") {
		t.Fatalf("expected known hosts file disabled, got %q", got)
	}
}
