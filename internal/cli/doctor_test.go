package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"autogif/internal/config"
	"autogif/internal/paths"
	"autogif/internal/render/state"
)

func TestJoinComma(t *testing.T) {
	tests := []struct {
		input []string
		want  string
	}{
		{nil, ""},
		{[]string{"a"}, "a"},
		{[]string{"a", "b"}, "a, b"},
		{[]string{"a", "b", "c"}, "a, b, c"},
	}

	for _, tt := range tests {
		got := joinComma(tt.input)
		if got != tt.want {
			t.Errorf("joinComma(%v) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestCheckConfigWithError(t *testing.T) {
	pp, _ := paths.Resolve(t.TempDir())
	var emptyCfg config.Config
	result := checkConfig(pp, emptyCfg, fmt.Errorf("config file not found"))

	if result.Status != "error" {
		t.Errorf("got status=%q, want error", result.Status)
	}
	if result.Name != "Config" {
		t.Errorf("got name=%q, want Config", result.Name)
	}
}

func TestCheckConfigValid(t *testing.T) {
	pp, _ := paths.Resolve(t.TempDir())
	cfg := config.Default()
	result := checkConfig(pp, cfg, nil)

	if result.Status != "ok" {
		t.Errorf("got status=%q (%s), want ok", result.Status, result.Summary)
	}
}

func TestCheckConfigUnknownEffect(t *testing.T) {
	pp, _ := paths.Resolve(t.TempDir())
	cfg := config.Default()
	cfg.Effect.Slug = "sparkles"
	result := checkConfig(pp, cfg, nil)

	if result.Status != "error" {
		t.Errorf("got status=%q, want error", result.Status)
	}
}

func TestCheckOutputs(t *testing.T) {
	pp, _ := paths.Resolve(t.TempDir())
	if err := pp.EnsureMetaDirs(); err != nil {
		t.Fatal(err)
	}

	if got := checkOutputs(pp); got.Status != "ok" || got.Summary != "nothing rendered yet" {
		t.Fatalf("empty state: got %+v", got)
	}

	present := filepath.Join(pp.Root, "a.gif")
	if err := os.WriteFile(present, []byte("GIF89a"), 0o644); err != nil {
		t.Fatal(err)
	}
	rs, _ := state.Load(pp.StateFile)
	rs.Record(present, state.OutputState{InputHash: "x", RenderedAt: time.Now()})
	rs.Record(filepath.Join(pp.Root, "gone.gif"), state.OutputState{InputHash: "y", RenderedAt: time.Now()})
	if err := rs.Save(pp.StateFile); err != nil {
		t.Fatal(err)
	}

	got := checkOutputs(pp)
	if got.Status != "warning" {
		t.Fatalf("got status=%q, want warning", got.Status)
	}
	want := "1 of 2 recorded GIFs missing"
	if len(got.Summary) < len(want) || got.Summary[:len(want)] != want {
		t.Fatalf("got summary=%q, want prefix %q", got.Summary, want)
	}
}
