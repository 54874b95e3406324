package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"autogif/internal/effects"
	"autogif/pkg/csvplan"
)

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
}

const twoWords = `[{"text":"hello","start":0,"end":0.5},{"text":"world","start":0.5,"end":1}]`

func TestValidatePlanRows(t *testing.T) {
	base := t.TempDir()
	writeFile(t, filepath.Join(base, "clip.mp4"), "not really a video")
	writeFile(t, filepath.Join(base, "words.json"), twoWords)
	writeFile(t, filepath.Join(base, "empty.json"), "[]")
	writeFile(t, filepath.Join(base, "broken.json"), "{")

	rows := []csvplan.Row{
		{Index: 1, Line: 2, Video: "clip.mp4", Transcript: "words.json", Effect: "wave"},
		{Index: 2, Line: 3, Video: "missing.mp4", Transcript: "words.json"},
		{Index: 3, Line: 4, Video: "clip.mp4", Transcript: "broken.json"},
		{Index: 4, Line: 5, Video: "clip.mp4", Transcript: "empty.json", Effect: "sparkles"},
		{Index: 5, Line: 6, Video: "clip.mp4", Transcript: "words.json", Effect: "typewriter+glow:40"},
		{Index: 6, Line: 7, Video: "clip.mp4", Transcript: "words.json", Effect: "glow+typewriter"},
	}

	issues := validatePlanRows(rows, base, effects.Default())

	type key struct {
		row   int
		field string
		level string
	}
	got := map[key]bool{}
	for _, is := range issues {
		got[key{is.Row, is.Field, is.Level}] = true
	}
	want := []key{
		{2, "video", "error"},
		{3, "transcript", "error"},
		{4, "transcript", "warning"},
		{4, "effect", "error"},
		{6, "effect", "error"},
	}
	for _, w := range want {
		if !got[w] {
			t.Errorf("missing issue %+v in %+v", w, issues)
		}
	}
	if len(issues) != len(want) {
		t.Errorf("got %d issues, want %d: %+v", len(issues), len(want), issues)
	}
}

func TestValidatePlanCommand(t *testing.T) {
	prevJSON := outputJSON
	defer func() { outputJSON = prevJSON }()
	outputJSON = false

	base := t.TempDir()
	writeFile(t, filepath.Join(base, "clip.mp4"), "x")
	writeFile(t, filepath.Join(base, "words.json"), twoWords)
	plan := filepath.Join(base, "plan.csv")

	writeFile(t, plan, "video,transcript\nclip.mp4,words.json\n")
	cmd := newValidatePlanCmd()
	cmd.SetArgs([]string{plan})
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("valid plan: %v\n%s", err, out.String())
	}
	if !strings.Contains(out.String(), "no issues found") {
		t.Fatalf("got %q", out.String())
	}

	writeFile(t, plan, "video,transcript,intensity\nclip.mp4,words.json,250\n")
	cmd = newValidatePlanCmd()
	cmd.SetArgs([]string{plan})
	out.Reset()
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected error for out of range intensity, output %q", out.String())
	}
	if !strings.Contains(out.String(), "intensity") {
		t.Fatalf("expected intensity issue, got %q", out.String())
	}
}

func TestValidateConfigCommand(t *testing.T) {
	prevProject := projectDir
	prevJSON := outputJSON
	defer func() {
		projectDir = prevProject
		outputJSON = prevJSON
	}()
	projectDir = t.TempDir()
	outputJSON = true

	writeFile(t, filepath.Join(projectDir, "autogif.yaml"), "effect:\n  slug: sparkles\n")

	cmd := newValidateConfigCmd()
	cmd.SetArgs([]string{})
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error for unknown effect")
	}
	if !strings.Contains(out.String(), "sparkles") || !strings.Contains(out.String(), "\"level\": \"error\"") {
		t.Fatalf("got %q", out.String())
	}
}
