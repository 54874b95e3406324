package timing

import (
	"errors"
	"fmt"

	"autogif/pkg/transcript"
)

// TimingError reports a malformed transcript. It is fatal for the render that
// received the transcript.
type TimingError struct {
	Kind  string
	Index int
	Err   error
}

// Timing error kinds.
const (
	KindInvalidDuration = "invalid-duration"
	KindUnordered       = "unordered"
	KindMalformed       = "malformed"
	KindFrameRate       = "frame-rate"
)

func (e *TimingError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("timing %s at word %d: %v", e.Kind, e.Index, e.Err)
	}
	return fmt.Sprintf("timing %s: %v", e.Kind, e.Err)
}

func (e *TimingError) Unwrap() error {
	return e.Err
}

func newTimingError(err error) *TimingError {
	var issues transcript.ValidationErrors
	if !errors.As(err, &issues) || len(issues) == 0 {
		return &TimingError{Kind: KindMalformed, Index: -1, Err: err}
	}
	first := issues[0]
	kind := KindMalformed
	switch first.Field {
	case "end":
		kind = KindInvalidDuration
	case "start":
		if first.Message != "must not be negative" {
			kind = KindUnordered
		}
	}
	return &TimingError{Kind: kind, Index: first.Index, Err: err}
}
