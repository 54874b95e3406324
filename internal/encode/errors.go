package encode

import "fmt"

// EncodeError reports a failure while writing the animation. The partial
// output is never left at the destination.
type EncodeError struct {
	Path string
	Op   string
	Err  error
}

func (e *EncodeError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("encode %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("encode %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}
