package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/scanzi-taas/orchestrator/internal/config"
	"github.com/scanzi-taas/orchestrator/internal/ir"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { os.Chdir(cwd) })
	return dir
}

func TestGatherCommonDataReadsPerTemplateList(t *testing.T) {
	chdirTemp(t)
	tplDir := filepath.Join(config.ScenarioPath, "scn", config.DeploymentTemplatesPath, "web")
	if err := os.MkdirAll(tplDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(tplDir, "common_data.yml"), []byte("- shared.txt\n- other.txt\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	vms := []ir.VM{{Name: "web", ConfigTemplate: "web"}, {Name: "db"}}
	out, err := gatherCommonData("scn", vms)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out["web"]) != 2 || out["web"][0] != "shared.txt" {
		t.Fatalf("unexpected common data: %+v", out)
	}
	if _, ok := out["db"]; ok {
		t.Fatalf("db has no config template, should not appear")
	}
}

func TestGatherCommonDataToleratesMissingFile(t *testing.T) {
	chdirTemp(t)
	vms := []ir.VM{{Name: "web", ConfigTemplate: "web"}}
	out, err := gatherCommonData("scn", vms)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected no common data, got %+v", out)
	}
}

func TestPrepareCommonDataDeduplicatesAcrossVMs(t *testing.T) {
	chdirTemp(t)
	if err := os.MkdirAll(filepath.Join("scenarios", "common_data"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join("scenarios", "common_data", "shared.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	commonData := map[string][]string{
		"web": {"shared.txt"},
		"db":  {"shared.txt"},
	}
	if err := prepareCommonData("/bin/sh", commonData); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(filepath.Join("temp_common_data", "shared.txt")); err != nil {
		t.Fatalf("expected shared.txt to be copied: %v", err)
	}
}

func TestPrepareCommonDataNoOpWhenEmpty(t *testing.T) {
	chdirTemp(t)
	if err := prepareCommonData("/bin/sh", map[string][]string{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat("temp_common_data"); !os.IsNotExist(err) {
		t.Fatalf("expected temp_common_data to not be created")
	}
}
