package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"autogif/internal/config"
	"autogif/internal/paths"
)

func TestResolveInitDir(t *testing.T) {
	t.Run("project flag takes precedence", func(t *testing.T) {
		dir, err := resolveInitDir("/custom/path", []string{"ignored"})
		if err != nil {
			t.Fatal(err)
		}
		if dir != "/custom/path" {
			t.Fatalf("got %s, want /custom/path", dir)
		}
	})

	t.Run("dot uses cwd", func(t *testing.T) {
		cwd, _ := os.Getwd()
		dir, err := resolveInitDir("", []string{"."})
		if err != nil {
			t.Fatal(err)
		}
		if dir != cwd {
			t.Fatalf("got %s, want %s", dir, cwd)
		}
	})

	t.Run("named arg creates subdirectory", func(t *testing.T) {
		cwd, _ := os.Getwd()
		dir, err := resolveInitDir("", []string{"my-project"})
		if err != nil {
			t.Fatal(err)
		}
		want := filepath.Join(cwd, "my-project")
		if dir != want {
			t.Fatalf("got %s, want %s", dir, want)
		}
	})
}

func TestNextAvailableDir(t *testing.T) {
	base := t.TempDir()

	t.Run("returns autogif-1 when empty", func(t *testing.T) {
		dir, err := nextAvailableDir(base)
		if err != nil {
			t.Fatal(err)
		}
		want := filepath.Join(base, "autogif-1")
		if dir != want {
			t.Fatalf("got %s, want %s", dir, want)
		}
	})

	t.Run("skips existing directories", func(t *testing.T) {
		if err := os.Mkdir(filepath.Join(base, "autogif-1"), 0o755); err != nil {
			t.Fatal(err)
		}
		dir, err := nextAvailableDir(base)
		if err != nil {
			t.Fatal(err)
		}
		want := filepath.Join(base, "autogif-2")
		if dir != want {
			t.Fatalf("got %s, want %s", dir, want)
		}
	})
}

type recordLogger struct{ lines []string }

func (l *recordLogger) Printf(format string, v ...any) {
	l.lines = append(l.lines, fmt.Sprintf(format, v...))
}

func TestEnsureConfigWritesLoadableDefaults(t *testing.T) {
	pp, err := paths.Resolve(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	var created []string
	logger := &recordLogger{}

	if err := ensureConfig(pp, &created, logger); err != nil {
		t.Fatal(err)
	}
	if len(created) != 1 || created[0] != "autogif.yaml" {
		t.Fatalf("created = %v", created)
	}

	cfg, err := config.Load(pp.ConfigFile)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Effect.Slug != "none" || cfg.Output.FPS != 10 {
		t.Fatalf("unexpected config %+v", cfg)
	}

	if err := ensureConfig(pp, &created, logger); err != nil {
		t.Fatal(err)
	}
	if len(created) != 1 {
		t.Fatalf("second run should not recreate, created = %v", created)
	}
}

func TestInitCommandCreatesProject(t *testing.T) {
	prevProject := projectDir
	defer func() { projectDir = prevProject }()
	projectDir = filepath.Join(t.TempDir(), "gifs")

	cmd := newInitCmd()
	cmd.SetArgs([]string{})
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"autogif.yaml", "plan.csv", ".env.example"} {
		if _, err := os.Stat(filepath.Join(projectDir, name)); err != nil {
			t.Fatalf("expected %s: %v", name, err)
		}
	}
	if !strings.Contains(out.String(), "Initialized project") {
		t.Fatalf("got %q", out.String())
	}

	out.Reset()
	cmd = newInitCmd()
	cmd.SetArgs([]string{})
	cmd.SetOut(out)
	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "already initialized") {
		t.Fatalf("got %q", out.String())
	}
}
