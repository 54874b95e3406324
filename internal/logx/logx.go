package logx

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"autogif/internal/paths"
)

// Options tunes the logger returned by New.
type Options struct {
	Verbose bool
	// Console, when set, receives human readable output in addition to the
	// JSON log file.
	Console io.Writer
}

// New creates a logger that writes JSON lines to a timestamped file inside the
// project's logs directory. The returned closer should be closed when logging
// is no longer needed.
func New(p paths.ProjectPaths, opts Options) (zerolog.Logger, io.Closer, error) {
	if err := os.MkdirAll(p.LogsDir, 0o755); err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("ensure logs directory: %w", err)
	}

	filename := time.Now().Format("20060102-150405") + ".log"
	filePath := filepath.Join(p.LogsDir, filename)
	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("open log file: %w", err)
	}

	writers := []io.Writer{file}
	if opts.Console != nil {
		writers = append(writers, zerolog.ConsoleWriter{Out: opts.Console, TimeFormat: "15:04:05"})
	}
	return NewLogger(opts.Verbose, writers...), file, nil
}

// NewLogger builds a timestamped logger over writers at info level, or debug
// when verbose.
func NewLogger(verbose bool, writers ...io.Writer) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	var out io.Writer
	switch len(writers) {
	case 0:
		return zerolog.Nop()
	case 1:
		out = writers[0]
	default:
		out = zerolog.MultiLevelWriter(writers...)
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// Component tags logger with a component field.
func Component(logger zerolog.Logger, name string) zerolog.Logger {
	return logger.With().Str("component", name).Logger()
}
