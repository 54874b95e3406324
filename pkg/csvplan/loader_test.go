package csvplan

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writePlan(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	return path
}

func TestLoadCSVValid(t *testing.T) {
	path := writePlan(t, "plan.csv", "video,transcript,name,effect,intensity,output\n"+
		"clips/intro.mp4,words/intro.json,Intro,Wave,70,gifs/intro.gif\n")

	rows, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}

	row := rows[0]
	if row.Index != 1 || row.Line != 2 {
		t.Errorf("index/line = %d/%d, want 1/2", row.Index, row.Line)
	}
	if row.Video != "clips/intro.mp4" || row.Transcript != "words/intro.json" {
		t.Errorf("unexpected paths: %+v", row)
	}
	if row.Name != "Intro" {
		t.Errorf("unexpected name: %q", row.Name)
	}
	if row.Effect != "wave" {
		t.Errorf("effect should be lowercased, got %q", row.Effect)
	}
	if row.Intensity == nil || *row.Intensity != 70 {
		t.Errorf("unexpected intensity: %v", row.Intensity)
	}
	if row.Output != "gifs/intro.gif" {
		t.Errorf("unexpected output: %q", row.Output)
	}
}

func TestLoadTSVWithAliasesAndBOM(t *testing.T) {
	path := writePlan(t, "plan.tsv", "\ufeffSource\tWords\tTitle\n"+
		"# comment lines are skipped\n"+
		"señorita.mp4\tseñorita.json\tSeñorita ✨\n"+
		"\t\t\n"+
		"b.mp4\tb.json\t\n")

	rows, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Name != "Señorita ✨" || rows[0].Video != "señorita.mp4" {
		t.Errorf("unicode not preserved: %+v", rows[0])
	}
	if rows[0].Intensity != nil {
		t.Errorf("intensity should be unset, got %v", *rows[0].Intensity)
	}
	if rows[1].Index != 2 {
		t.Errorf("expected blank line skipped, second row index %d", rows[1].Index)
	}
	if got := rows[1].Label(); got != "b" {
		t.Errorf("Label() = %q, want b", got)
	}
}

func TestLoadCSVValidationErrors(t *testing.T) {
	path := writePlan(t, "plan.csv", "video,transcript,intensity\n"+
		",a.json,50\n"+
		"b.mp4,,abc\n"+
		"c.mp4,c.json,140\n")

	rows, err := Load(path)
	if len(rows) != 3 {
		t.Fatalf("rows should still be returned, got %d", len(rows))
	}
	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected ValidationErrors, got %T: %v", err, err)
	}
	want := map[string]bool{"video": false, "transcript": false, "intensity": false}
	for _, issue := range verrs.Issues() {
		want[issue.Field] = true
	}
	for field, seen := range want {
		if !seen {
			t.Errorf("expected an issue for %s in %v", field, verrs)
		}
	}
	if len(verrs) != 4 {
		t.Errorf("expected 4 issues, got %d: %v", len(verrs), verrs)
	}
}

func TestLoadCSVHeaderProblems(t *testing.T) {
	tests := map[string]string{
		"missing transcript": "video,name\na.mp4,x\n",
		"duplicate":          "video,source,transcript\na,b,c\n",
		"no delimiter":       "video\n",
		"empty":              "   \n",
		"no rows":            "video,transcript\n",
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writePlan(t, "plan.csv", data)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLoadYAMLList(t *testing.T) {
	path := writePlan(t, "plan.yaml", `
- video: a.mp4
  transcript: a.json
  intensity: 0
- Source: b.mp4
  captions: b.json
  effect: Typewriter
  name: Second
`)
	rows, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Intensity == nil || *rows[0].Intensity != 0 {
		t.Errorf("intensity 0 should be kept, got %v", rows[0].Intensity)
	}
	if rows[1].Video != "b.mp4" || rows[1].Transcript != "b.json" || rows[1].Effect != "typewriter" {
		t.Errorf("aliases not applied: %+v", rows[1])
	}
	if rows[1].Line != 5 {
		t.Errorf("line = %d, want 5", rows[1].Line)
	}
}

func TestLoadYAMLClipsKey(t *testing.T) {
	path := writePlan(t, "plan.yml", "clips:\n  - video: a.mp4\n    transcript: a.json\n  - oops\n")
	rows, err := Load(path)
	var verrs ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) != 1 {
		t.Fatalf("expected one validation error, got %v", err)
	}
	if len(rows) != 2 || rows[0].Video != "a.mp4" {
		t.Errorf("unexpected rows: %+v", rows)
	}
}

func TestLoadYAMLRejectsScalarDocument(t *testing.T) {
	if _, err := Load(writePlan(t, "plan.yaml", "just a string\n")); err == nil {
		t.Fatal("expected error")
	}
	if _, err := Load(writePlan(t, "plan.yaml", "other: []\n")); err == nil {
		t.Fatal("expected error for missing clips key")
	}
}

func TestRowResolve(t *testing.T) {
	abs := filepath.Join(t.TempDir(), "abs.mp4")
	row := Row{Video: abs, Transcript: "t.json", Output: ""}.Resolve("/plans")
	if row.Video != abs {
		t.Errorf("absolute path changed: %q", row.Video)
	}
	if row.Transcript != filepath.Join("/plans", "t.json") {
		t.Errorf("relative path not joined: %q", row.Transcript)
	}
	if row.Output != "" {
		t.Errorf("empty output should stay empty, got %q", row.Output)
	}
}

func TestValidationErrorFormatting(t *testing.T) {
	err := ValidationError{Line: 3, Field: "video", Message: "video is required"}
	if got := err.Error(); got != "line 3: video is required" {
		t.Errorf("Error() = %q", got)
	}
	other := ValidationError{Field: "effect", Message: "unknown slug"}
	if got := other.Error(); got != "plan: effect: unknown slug" {
		t.Errorf("Error() = %q", got)
	}
	if got := (ValidationErrors{}).Error(); got != "plan is invalid" {
		t.Errorf("empty Error() = %q", got)
	}
	if got := (ValidationErrors{err}).Error(); got != err.Error() {
		t.Errorf("single Error() = %q", got)
	}
	both := ValidationErrors{{Line: 9, Message: "entry 2 is not a map"}, err}
	if got := both.Error(); !strings.HasPrefix(got, "2 plan problems: line 9") {
		t.Errorf("joined Error() = %q", got)
	}
	if issues := both.Issues(); issues[0].Line != 3 || both[0].Line != 9 {
		t.Errorf("Issues() should sort a copy by line, got %+v", issues)
	}
}
