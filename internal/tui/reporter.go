package tui

import (
	"fmt"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"autogif/internal/render"
)

// RenderReporter adapts bubbletea message sending to the
// render.ProgressReporter interface. Row keys and completion fields come from
// caller-supplied functions so the tui package doesn't need to know the
// command's column layout.
type RenderReporter struct {
	send           func(tea.Msg)
	key            func(index int) string
	completeFields func(render.Result) map[string]string

	mu      sync.Mutex
	percent map[int]int
}

// NewRenderReporter constructs a reporter with the given mapping functions.
func NewRenderReporter(
	send func(tea.Msg),
	key func(index int) string,
	completeFields func(render.Result) map[string]string,
) *RenderReporter {
	return &RenderReporter{
		send:           send,
		key:            key,
		completeFields: completeFields,
		percent:        make(map[int]int),
	}
}

// Start implements render.ProgressReporter.
func (r *RenderReporter) Start(req render.Request) {
	r.send(RowUpdateMsg{
		Key:    r.key(req.Index),
		Fields: map[string]string{"STATUS": "rendering"},
	})
}

// Frame implements render.ProgressReporter. Updates are coalesced to whole
// percentage steps.
func (r *RenderReporter) Frame(index, done, total int) {
	if total <= 0 {
		return
	}
	pct := done * 100 / total
	r.mu.Lock()
	last, seen := r.percent[index]
	if seen && pct == last {
		r.mu.Unlock()
		return
	}
	r.percent[index] = pct
	r.mu.Unlock()

	r.send(FrameProgressMsg{Key: r.key(index), Done: done, Total: total})
}

// Complete implements render.ProgressReporter.
func (r *RenderReporter) Complete(res render.Result) {
	if res.Err == nil && !res.Skipped {
		r.send(FrameProgressMsg{Key: r.key(res.Index), Done: 1, Total: 1})
	}
	r.send(RowUpdateMsg{
		Key:    r.key(res.Index),
		Fields: r.completeFields(res),
	})
}

// ResultStatus returns the STATUS column value for a finished render.
func ResultStatus(res render.Result) string {
	switch {
	case res.Err != nil:
		return "error"
	case res.Skipped:
		return "skipped"
	case res.HiddenCaptions > 0:
		return "cut short"
	case res.FallbackFrames > 0:
		return "fallback"
	default:
		return "rendered"
	}
}

// ResultFields returns the default completion fields for a render table with
// STATUS, FRAMES, TIME and OUTPUT columns.
func ResultFields(res render.Result) map[string]string {
	fields := map[string]string{
		"STATUS": ResultStatus(res),
		"FRAMES": fmt.Sprintf("%d", res.FrameCount),
		"TIME":   formatElapsed(res.Elapsed),
		"OUTPUT": res.OutputPath,
	}
	switch {
	case res.Err != nil:
		fields["OUTPUT"] = res.Err.Error()
	case res.Skipped:
		fields["FRAMES"] = "-"
		fields["OUTPUT"] = res.Reason
	}
	return fields
}
