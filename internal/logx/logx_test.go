package logx

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"autogif/internal/paths"
)

func TestNewWritesJSONFile(t *testing.T) {
	pp, err := paths.Resolve(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	var console bytes.Buffer
	logger, closer, err := New(pp, Options{Console: &console})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	renderLog := Component(logger, "render")
	renderLog.Info().Str("effect", "glow").Msg("render started")
	logger.Debug().Msg("hidden")
	if err := closer.Close(); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(pp.LogsDir)
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected one log file, got %v (err=%v)", entries, err)
	}
	data, err := os.ReadFile(filepath.Join(pp.LogsDir, entries[0].Name()))
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	if !strings.Contains(text, `"component":"render"`) || !strings.Contains(text, `"effect":"glow"`) {
		t.Fatalf("unexpected log contents: %s", text)
	}
	if strings.Contains(text, "hidden") {
		t.Fatalf("debug line written at info level: %s", text)
	}
	if !strings.Contains(console.String(), "render started") {
		t.Fatalf("console output missing message: %q", console.String())
	}
}

func TestNewLoggerVerbose(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(true, &buf)
	logger.Debug().Msg("frame")
	if !strings.Contains(buf.String(), `"level":"debug"`) {
		t.Fatalf("expected debug line, got %q", buf.String())
	}
}
