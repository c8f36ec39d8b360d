package runlist

import (
	"strings"
	"testing"
)

func TestParseRunListSetupAndRun(t *testing.T) {
	text := strings.Join([]string{
		"¥ SETUP",
		"¥¥ web db",
		"echo hi",
		"apt-get update",
		"¥ RUN",
		"¥¥ web",
		"systemctl restart web",
	}, "\n") + "\n"

	steps, err := parseRunList(strings.NewReader(text))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(steps) != 2 {
		t.Fatalf("expected 2 steps, got %d: %+v", len(steps), steps)
	}
	if steps[0].Type != StepSetup {
		t.Fatalf("expected first step to be setup, got %v", steps[0].Type)
	}
	if steps[0].Scripts["web"] != "echo hi\napt-get update\n" {
		t.Fatalf("unexpected web setup script: %q", steps[0].Scripts["web"])
	}
	if steps[0].Scripts["db"] != steps[0].Scripts["web"] {
		t.Fatalf("expected web and db to share the same setup script")
	}
	if steps[1].Type != StepRun {
		t.Fatalf("expected second step to be run, got %v", steps[1].Type)
	}
	if steps[1].Scripts["web"] != "systemctl restart web\n" {
		t.Fatalf("unexpected run script: %q", steps[1].Scripts["web"])
	}
	if _, ok := steps[1].Scripts["db"]; ok {
		t.Fatalf("db should not have a run-phase script")
	}
}

func TestParseRunListEmptyProducesNoSteps(t *testing.T) {
	steps, err := parseRunList(strings.NewReader(""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(steps) != 0 {
		t.Fatalf("expected no steps, got %d", len(steps))
	}
}

func TestParseRunListMultipleMachineMarkersSwitchTarget(t *testing.T) {
	text := "¥ RUN\n¥¥ a\nscript-a\n¥¥ b\nscript-b\n"
	steps, err := parseRunList(strings.NewReader(text))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(steps) != 1 {
		t.Fatalf("expected 1 step, got %d", len(steps))
	}
	if steps[0].Scripts["a"] != "script-a\n" {
		t.Fatalf("unexpected script for a: %q", steps[0].Scripts["a"])
	}
	if steps[0].Scripts["b"] != "script-b\n" {
		t.Fatalf("unexpected script for b: %q", steps[0].Scripts["b"])
	}
}
