package tui

import "errors"

// RowUpdateMsg updates a single row's fields by column name.
type RowUpdateMsg struct {
	Key    string
	Fields map[string]string
}

// FrameProgressMsg moves a row's progress bar.
type FrameProgressMsg struct {
	Key   string
	Done  int
	Total int
}

// WorkDoneMsg signals that all background work has completed.
type WorkDoneMsg struct{}

// ErrorMsg signals a fatal error; the TUI should quit.
type ErrorMsg struct {
	Err error
}

// ErrInterrupted is reported when the user quits the progress display
// before the work finished.
var ErrInterrupted = errors.New("interrupted")
