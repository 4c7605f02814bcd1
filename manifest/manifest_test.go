package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadNonExistent(t *testing.T) {
	m, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load returned error for non-existent file: %v", err)
	}
	if m.Version != Version {
		t.Errorf("Version = %d, want %d", m.Version, Version)
	}
	if m.Len() != 0 {
		t.Errorf("expected empty manifest, got %d targets", m.Len())
	}
}

func TestRecordSaveAndLoad(t *testing.T) {
	dir := t.TempDir()

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	m.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	m.Record("setup.de.md", "abc", "deepl")
	m.Record("guides/start.fr.md", "def", "chat")

	if err := m.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("manifest not created at %s: %v", path, err)
	}
	if !strings.Contains(string(data), "source_hash: abc") {
		t.Errorf("unexpected manifest content:\n%s", data)
	}

	reloaded, err := Load(dir)
	if err != nil {
		t.Fatalf("Load after save: %v", err)
	}
	if h, ok := reloaded.SourceHash("setup.de.md"); !ok || h != "abc" {
		t.Errorf("SourceHash(setup.de.md) = %q, %v", h, ok)
	}
	if got := reloaded.TargetPaths(); len(got) != 2 || got[0] != "guides/start.fr.md" {
		t.Errorf("TargetPaths = %v", got)
	}
	if e := reloaded.Targets["guides/start.fr.md"]; e.Backend != "chat" || !e.TranslatedAt.Equal(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)) {
		t.Errorf("unexpected entry: %+v", e)
	}
}

func TestSaveSkipsUnchanged(t *testing.T) {
	dir := t.TempDir()
	m, _ := Load(dir)

	if err := m.Save(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, FileName)); !os.IsNotExist(err) {
		t.Error("clean manifest should not be written")
	}
}

func TestSourceHashUnknown(t *testing.T) {
	m, _ := Load(t.TempDir())
	if _, ok := m.SourceHash("missing.de.md"); ok {
		t.Error("unknown target should report false")
	}
}

func TestRemoveAndPrune(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "kept.de.md"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	m, _ := Load(t.TempDir())
	m.Record("kept.de.md", "1", "mock")
	m.Record("gone.de.md", "2", "mock")
	m.Record("other.fr.md", "3", "mock")

	m.Remove("other.fr.md")
	removed := m.Prune(root)

	if len(removed) != 1 || removed[0] != "gone.de.md" {
		t.Errorf("Prune removed %v", removed)
	}
	if got := m.TargetPaths(); len(got) != 1 || got[0] != "kept.de.md" {
		t.Errorf("remaining targets = %v", got)
	}
}

func TestLoadRejectsNewerVersion(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("version: 99\ntargets: {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); err == nil {
		t.Error("expected error for newer manifest version")
	}
}

func TestLoadRejectsGarbage(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("version: [\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); err == nil {
		t.Error("expected parse error")
	}
}
