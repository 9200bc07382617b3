package engine

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/celerix-dev/localcrm/pkg/schema"
)

func TestFilePersistence(t *testing.T) {
	tmpDir := t.TempDir()

	p, err := NewFilePersistence(tmpDir)
	if err != nil {
		t.Fatalf("NewFilePersistence failed: %v", err)
	}

	records := []schema.Record{
		{"id": "1", "name": "Ada"},
		{"id": "2", "name": "Grace"},
	}
	if err := p.Save("leads", records); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	content, err := os.ReadFile(filepath.Join(tmpDir, "leads.json"))
	if err != nil {
		t.Fatalf("collection file was not created: %v", err)
	}
	if !strings.HasPrefix(string(content), "[\n  {") {
		t.Errorf("expected pretty-printed array, got %q", content)
	}

	loaded, err := p.Load("leads")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded) != 2 || loaded[0]["name"] != "Ada" || loaded[1].ID() != "2" {
		t.Errorf("loaded data mismatch: %v", loaded)
	}

	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestFilePersistence_MissingAndBlank(t *testing.T) {
	tmpDir := t.TempDir()
	p, err := NewFilePersistence(tmpDir)
	if err != nil {
		t.Fatal(err)
	}

	recs, err := p.Load("users")
	if err != nil || recs != nil {
		t.Errorf("missing file: expected (nil, nil), got (%v, %v)", recs, err)
	}
	ok, err := p.Exists("users")
	if err != nil || ok {
		t.Errorf("missing file: Exists = (%v, %v)", ok, err)
	}

	if err := os.WriteFile(p.Path("users"), []byte("  \n"), 0o644); err != nil {
		t.Fatal(err)
	}
	recs, err = p.Load("users")
	if err != nil || len(recs) != 0 {
		t.Errorf("blank file: expected empty, got (%v, %v)", recs, err)
	}

	if err := p.Save("users", nil); err != nil {
		t.Fatal(err)
	}
	content, _ := os.ReadFile(p.Path("users"))
	if string(content) != "[]" {
		t.Errorf("expected empty array, got %q", content)
	}
}

func TestFilePersistence_Corrupt(t *testing.T) {
	p, err := NewFilePersistence(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p.Path("leads"), []byte(`{"not": "an array"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Load("leads"); err == nil || !strings.Contains(err.Error(), ErrCorrupt.Error()) {
		t.Errorf("expected ErrCorrupt, got %v", err)
	}
}

func TestNewPersister(t *testing.T) {
	dir := t.TempDir()
	for _, backend := range []string{"", BackendJSON, BackendMemory, BackendSQLite} {
		p, err := NewPersister(backend, dir)
		if err != nil {
			t.Fatalf("backend %q: %v", backend, err)
		}
		p.Close()
	}
	if _, err := NewPersister("mongo", dir); err == nil {
		t.Error("expected error for unknown backend")
	}
}
