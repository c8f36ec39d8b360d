package azure

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-hclog"
)

// fakeAzBinary writes a minimal shell script masquerading as `az` so tests
// never touch a real Azure subscription.
func fakeAzBinary(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "az")
	script := "#!/bin/sh\n" + body
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write fake az: %v", err)
	}
	return path
}

func TestCheckReadyFailsWhenBinaryMissing(t *testing.T) {
	p := &Provider{Log: hclog.NewNullLogger(), Binary: "taas-definitely-not-a-real-binary", Shell: "/bin/sh"}
	if err := p.CheckReady(); err == nil {
		t.Fatalf("expected an error when the az binary cannot be found")
	}
}

func TestCheckReadyFailsWhenNotLoggedIn(t *testing.T) {
	bin := fakeAzBinary(t, "exit 1\n")
	p := &Provider{Log: hclog.NewNullLogger(), Binary: bin, Shell: "/bin/sh"}
	if err := p.CheckReady(); err == nil {
		t.Fatalf("expected an error when `account show` fails")
	}
}

func TestCheckReadySucceeds(t *testing.T) {
	bin := fakeAzBinary(t, "exit 0\n")
	p := &Provider{Log: hclog.NewNullLogger(), Binary: bin, Shell: "/bin/sh"}
	if err := p.CheckReady(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSkuCatalogParsesCapabilities(t *testing.T) {
	json := `[{"name":"Standard_B2s","tier":"Standard","capabilities":[
		{"name":"vCPUs","value":"2"},
		{"name":"MemoryGB","value":"4"},
		{"name":"MaxDataDiskCount","value":"4"},
		{"name":"MaxResourceVolumeMB","value":"8192"},
		{"name":"OSVhdSizeMB","value":"4096"}
	]}]`
	bin := fakeAzBinary(t, "cat <<'EOF'\n"+json+"\nEOF\n")
	p := &Provider{Log: hclog.NewNullLogger(), Binary: bin, Shell: "/bin/sh", Location: "westeurope"}

	catalog, err := p.SkuCatalog()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(catalog) != 1 {
		t.Fatalf("expected 1 catalog entry, got %d", len(catalog))
	}
	e := catalog[0]
	if e.Name != "Standard_B2s" || e.CoreCount != 2 || e.RAMGB != 4 {
		t.Fatalf("unexpected entry: %+v", e)
	}
	if e.MaxDiskCapacityGB != 4 {
		t.Fatalf("expected max disk capacity to be min(8192,4096)/1024=4, got %d", e.MaxDiskCapacityGB)
	}
}

func TestPublicIPTrimsOutput(t *testing.T) {
	bin := fakeAzBinary(t, "echo '  10.20.30.40  '\n")
	p := &Provider{Log: hclog.NewNullLogger(), Binary: bin, Shell: "/bin/sh", ResourceGroup: "rg"}
	ip, err := p.PublicIP("web")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ip != "10.20.30.40" {
		t.Fatalf("unexpected ip: %q", ip)
	}
}

func TestRunScriptOnVMSurfacesFailure(t *testing.T) {
	bin := fakeAzBinary(t, "exit 1\n")
	p := &Provider{Log: hclog.NewNullLogger(), Binary: bin, Shell: "/bin/sh", ResourceGroup: "rg"}
	if err := p.RunScriptOnVM("web", "echo hi"); err == nil {
		t.Fatalf("expected an error when run-command invoke fails")
	}
}

func TestClearResourceGroupWritesAndRemovesTempFile(t *testing.T) {
	dir := t.TempDir()
	cwd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	defer os.Chdir(cwd)

	bin := fakeAzBinary(t, "exit 0\n")
	p := &Provider{Log: hclog.NewNullLogger(), Binary: bin, Shell: "/bin/sh", ResourceGroup: "rg"}
	if err := p.ClearResourceGroup(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected the temp template file to be cleaned up, found: %v", entries)
	}
}
