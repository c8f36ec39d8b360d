package webserver

import (
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-hclog"
)

func TestHandlerServesMachineReport(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, reportsDirName, "web"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, reportsDirName, "web", "web.tgz"), []byte("tarball"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	h := NewHandler(hclog.NewNullLogger(), dir)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/web/web.tgz", nil)
	h.ServeHTTP(rr, req)

	if rr.Code != 200 {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if rr.Body.String() != "tarball" {
		t.Fatalf("unexpected body: %q", rr.Body.String())
	}
}

func TestHandlerServesCommonData(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, commonDataDirName), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, commonDataDirName, "shared.txt"), []byte("shared"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	h := NewHandler(hclog.NewNullLogger(), dir)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/common_data/shared.txt", nil)
	h.ServeHTTP(rr, req)

	if rr.Code != 200 {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if rr.Body.String() != "shared" {
		t.Fatalf("unexpected body: %q", rr.Body.String())
	}
}

func TestHandlerMissingFileReturns404(t *testing.T) {
	dir := t.TempDir()
	h := NewHandler(hclog.NewNullLogger(), dir)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/web/missing.tgz", nil)
	h.ServeHTTP(rr, req)

	if rr.Code != 404 {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}
