package effects

import (
	"fmt"
	"strings"
)

// DuplicateSlugError is returned when an effect slug is registered twice.
type DuplicateSlugError struct {
	Slug string
}

func (e *DuplicateSlugError) Error() string {
	return fmt.Sprintf("effect %q is already registered", e.Slug)
}

// UnknownEffectError is returned by Lookup for an unregistered slug.
type UnknownEffectError struct {
	Slug  string
	Known []string
}

func (e *UnknownEffectError) Error() string {
	if len(e.Known) == 0 {
		return fmt.Sprintf("unknown effect %q", e.Slug)
	}
	return fmt.Sprintf("unknown effect %q (available: %s)", e.Slug, strings.Join(e.Known, ", "))
}

// EffectRenderError reports an effect that failed or panicked on one frame.
// The compositor recovers from it by rendering plain text.
type EffectRenderError struct {
	Slug  string
	Frame int
	Err   error
}

func (e *EffectRenderError) Error() string {
	return fmt.Sprintf("effect %s failed on frame %d: %v", e.Slug, e.Frame, e.Err)
}

func (e *EffectRenderError) Unwrap() error {
	return e.Err
}
