package postdeploy

import "testing"

func TestAddGlobalReplacementAndReplace(t *testing.T) {
	r := New()
	r.AddGlobalReplacement("machines/web/user", "orch")
	out, err := r.Replace("login as ¥{machines/web/user}", "-oStrictHostKeyChecking=no")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "login as orch" {
		t.Fatalf("unexpected replacement: %q", out)
	}
}

func TestReplaceRegistersSSHTokens(t *testing.T) {
	r := New()
	out, err := r.Replace("¥{SSH_OPTIONS} ¥{SSH_CONFIG}", "-oFoo=bar")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "-oFoo=bar -oFoo=bar" {
		t.Fatalf("unexpected ssh token substitution: %q", out)
	}
}

func TestReplaceMissingTokenWarnsAndLeavesPlaceholder(t *testing.T) {
	r := New()
	out, err := r.Replace("¥{never_registered}", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "¥{never_registered}" {
		t.Fatalf("expected missing token to pass through unresolved, got %q", out)
	}
}
