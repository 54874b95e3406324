package paths

import (
	"os"
	"path/filepath"
	"testing"

	"autogif/internal/config"
)

func TestResolveUsesFlag(t *testing.T) {
	root := t.TempDir()
	pp, err := Resolve(root)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if pp.ConfigFile != filepath.Join(root, "autogif.yaml") {
		t.Fatalf("config file: got %s", pp.ConfigFile)
	}
	if pp.StateFile != filepath.Join(root, ".autogif", "state.json") {
		t.Fatalf("state file: got %s", pp.StateFile)
	}
	if pp.LogsDir != filepath.Join(root, ".autogif", "logs") {
		t.Fatalf("logs dir: got %s", pp.LogsDir)
	}
}

func TestApplyConfigRelative(t *testing.T) {
	root := t.TempDir()
	pp := newProjectPaths(root)

	cfg := config.Default()
	cfg.Output.Dir = "gifs/final"

	applied := ApplyConfig(pp, cfg)
	expected := filepath.Join(root, "gifs/final")
	if applied.OutputDir != expected {
		t.Fatalf("expected output dir %s, got %s", expected, applied.OutputDir)
	}
}

func TestApplyConfigAbsolute(t *testing.T) {
	root := t.TempDir()
	pp := newProjectPaths(root)

	abs := filepath.Join(t.TempDir(), "elsewhere")
	cfg := config.Default()
	cfg.Output.Dir = abs

	applied := ApplyConfig(pp, cfg)
	if applied.OutputDir != abs {
		t.Fatalf("expected output dir %s, got %s", abs, applied.OutputDir)
	}
}

func TestEnsureMetaDirs(t *testing.T) {
	pp := newProjectPaths(t.TempDir())
	if err := pp.EnsureMetaDirs(); err != nil {
		t.Fatalf("EnsureMetaDirs: %v", err)
	}
	for _, dir := range []string{pp.MetaDir, pp.OutputDir, pp.LogsDir} {
		ok, err := DirExists(dir)
		if err != nil || !ok {
			t.Fatalf("expected %s to exist (err=%v)", dir, err)
		}
	}
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "clip.gif")
	if ok, _ := FileExists(file); ok {
		t.Fatal("expected missing file")
	}
	if err := os.WriteFile(file, []byte("GIF89a"), 0o644); err != nil {
		t.Fatal(err)
	}
	if ok, err := FileExists(file); err != nil || !ok {
		t.Fatalf("expected file to exist (err=%v)", err)
	}
	if ok, _ := FileExists(dir); ok {
		t.Fatal("directory should not count as a file")
	}
}
