package manifest

import (
	"os"
	"path/filepath"
	"testing"
)

func writeManifest(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "quill.toml"), []byte(content), 0o644); err != nil {
		t.Fatalf("writing quill.toml: %v", err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[project]
name = "shipyard"
version = "0.3.0"

[optimizer]
peephole = true
build-cfg = true
dump-cfg = true
dump-dir = "debug/cfg"

[cache]
enabled = true
path = "build/bytecode.db"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Project.Name != "shipyard" {
		t.Errorf("project name = %q", m.Project.Name)
	}
	if !m.Optimizer.DumpCFG || m.Optimizer.DumpDir != "debug/cfg" {
		t.Errorf("optimizer config = %+v", m.Optimizer)
	}
	if !m.Cache.Enabled {
		t.Errorf("cache should be enabled")
	}
	want := filepath.Join(m.Dir, "build", "bytecode.db")
	if got := m.CachePath(); got != want {
		t.Errorf("CachePath() = %q, want %q", got, want)
	}
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[project]
name = "minimal"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !m.Optimizer.Peephole || !m.Optimizer.BuildCFG {
		t.Errorf("optimization passes should default on: %+v", m.Optimizer)
	}
	if m.Optimizer.DumpCFG {
		t.Errorf("CFG dumping should default off")
	}
	if m.Cache.Enabled {
		t.Errorf("cache should default off")
	}
}

func TestFindAndLoadWalksUp(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "[project]\nname = \"walkup\"\n")
	nested := filepath.Join(root, "src", "mobs")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	m, err := FindAndLoad(nested)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m == nil || m.Project.Name != "walkup" {
		t.Fatalf("expected manifest found from nested dir, got %+v", m)
	}
}

func TestFindAndLoadMissing(t *testing.T) {
	m, err := FindAndLoad(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m != nil {
		t.Fatalf("expected nil for missing manifest, got %+v", m)
	}
}
