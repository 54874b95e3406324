package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"autogif/internal/paths"
	"autogif/internal/render/state"
)

func seedRenderState(t *testing.T, root string) {
	t.Helper()
	pp, err := paths.Resolve(root)
	if err != nil {
		t.Fatal(err)
	}
	if err := pp.EnsureMetaDirs(); err != nil {
		t.Fatal(err)
	}
	gif := filepath.Join(root, "out", "clip-wave.gif")
	if err := os.MkdirAll(filepath.Dir(gif), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(gif, []byte("GIF89a"), 0o644); err != nil {
		t.Fatal(err)
	}
	rs, _ := state.Load(pp.StateFile)
	rs.Record(gif, state.OutputState{
		InputHash:  "abc",
		RenderedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		SourcePath: filepath.Join(root, "clip.mp4"),
		Effect:     "wave",
		FrameCount: 42,
	})
	rs.Record(filepath.Join(root, "out", "deleted.gif"), state.OutputState{InputHash: "def", Effect: "glow"})
	if err := rs.Save(pp.StateFile); err != nil {
		t.Fatal(err)
	}
}

func TestStatusCommandTableOutput(t *testing.T) {
	prevProject := projectDir
	prevJSON := outputJSON
	defer func() {
		projectDir = prevProject
		outputJSON = prevJSON
	}()

	projectDir = t.TempDir()
	outputJSON = false
	seedRenderState(t, projectDir)

	cmd := newStatusCmd()
	cmd.SetArgs([]string{})
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.Execute(); err != nil {
		t.Fatalf("status command returned error: %v", err)
	}

	got := stdout.String()
	if !strings.Contains(got, "Project: "+projectDir) {
		t.Fatalf("expected project path in output, got %q", got)
	}
	if !strings.Contains(got, "OUTPUT") || !strings.Contains(got, "FRAMES") {
		t.Fatalf("expected table headers in output, got %q", got)
	}
	if !strings.Contains(got, filepath.Join("out", "clip-wave.gif")) || !strings.Contains(got, "42") {
		t.Fatalf("expected row data in output, got %q", got)
	}
	if !strings.Contains(got, "missing") {
		t.Fatalf("expected deleted output flagged missing, got %q", got)
	}
}

func TestStatusCommandJSONOutput(t *testing.T) {
	prevProject := projectDir
	prevJSON := outputJSON
	defer func() {
		projectDir = prevProject
		outputJSON = prevJSON
	}()

	projectDir = t.TempDir()
	outputJSON = true
	seedRenderState(t, projectDir)

	cmd := newStatusCmd()
	cmd.SetArgs([]string{})
	stdout := &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(&bytes.Buffer{})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("status command returned error: %v", err)
	}

	got := stdout.String()
	if !strings.Contains(got, "\"rows\"") {
		t.Fatalf("expected JSON output, got %q", got)
	}
	if !strings.Contains(got, "\"effect\": \"wave\"") {
		t.Fatalf("expected effect in JSON output, got %q", got)
	}
}

func TestStatusCommandEmptyProject(t *testing.T) {
	prevProject := projectDir
	prevJSON := outputJSON
	defer func() {
		projectDir = prevProject
		outputJSON = prevJSON
	}()
	projectDir = t.TempDir()
	outputJSON = false

	cmd := newStatusCmd()
	cmd.SetArgs([]string{})
	stdout := &bytes.Buffer{}
	cmd.SetOut(stdout)
	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stdout.String(), "No renders recorded yet") {
		t.Fatalf("got %q", stdout.String())
	}
}
