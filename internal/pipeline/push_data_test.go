package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/hashicorp/go-hclog"

	"github.com/scanzi-taas/orchestrator/internal/ir"
	"github.com/scanzi-taas/orchestrator/internal/sku"
)

// fakeProvider is a cloud.Provider double recording RunScriptOnVM calls,
// used wherever a pipeline test needs a provider without shelling out to a
// real cloud CLI.
type fakeProvider struct {
	mu           sync.Mutex
	scripts      map[string][]string
	publicIPs    map[string]string
	failVMs      map[string]bool
	networkCalls int
	vmCalls      int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{scripts: make(map[string][]string), publicIPs: make(map[string]string)}
}

func (f *fakeProvider) Name() string        { return "fake" }
func (f *fakeProvider) CheckReady() error   { return nil }
func (f *fakeProvider) SkuCatalog() ([]sku.Entry, error) { return nil, nil }

func (f *fakeProvider) RunNetworkScript(script string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.networkCalls++
	return nil
}

func (f *fakeProvider) RunVMScript(script string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vmCalls++
	return nil
}

func (f *fakeProvider) RunScriptOnVM(vmName, scriptText string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failVMs[vmName] {
		return fmt.Errorf("fake: %s failed", vmName)
	}
	f.scripts[vmName] = append(f.scripts[vmName], scriptText)
	return nil
}

func (f *fakeProvider) PublicIP(vmName string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ip, ok := f.publicIPs[vmName]; ok {
		return ip, nil
	}
	return "", fmt.Errorf("fake: no public ip recorded for %s", vmName)
}

func (f *fakeProvider) ClearResourceGroup() error { return nil }

func TestGetAllVMFilesV2BuildsWgetScript(t *testing.T) {
	chdirTemp(t)
	if err := os.MkdirAll(filepath.Join("test-deployment", "web"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join("test-deployment", "web", "web.tgz"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	prov := newFakeProvider()
	if err := getAllVMFilesV2(prov, "web", "ubuntu", "10.0.0.1", []string{"shared.txt"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	scripts := prov.scripts["web"]
	if len(scripts) != 1 {
		t.Fatalf("expected one script run, got %d", len(scripts))
	}
	script := scripts[0]
	for _, want := range []string{
		"wget http://10.0.0.1:8000/web/web.tgz",
		"wget http://10.0.0.1:8000/common_data/shared.txt",
		"tar xzf web.tgz",
	} {
		if !strings.Contains(script, want) {
			t.Fatalf("expected script to contain %q, got:\n%s", want, script)
		}
	}
}

func TestPushDataToMachinesAggregatesErrors(t *testing.T) {
	chdirTemp(t)
	for _, vm := range []string{"web", "db"} {
		if err := os.MkdirAll(filepath.Join("test-deployment", vm), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}

	prov := newFakeProvider()
	prov.failVMs = map[string]bool{"db": true}

	vms := []ir.VM{
		{Name: "web", Auth: ir.Auth{User: "ubuntu"}},
		{Name: "db", Auth: ir.Auth{User: "ubuntu"}},
	}
	err := pushDataToMachines(hclog.NewNullLogger(), prov, vms, map[string][]string{}, "10.0.0.1")
	if err == nil {
		t.Fatalf("expected aggregated error")
	}
	if !strings.Contains(err.Error(), "db") {
		t.Fatalf("expected error to mention db, got %v", err)
	}
}
