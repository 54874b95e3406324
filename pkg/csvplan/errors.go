package csvplan

import (
	"fmt"
	"sort"
	"strings"
)

// ValidationError is one problem found in a plan entry.
type ValidationError struct {
	// Line is the line of the entry in the plan file. Zero when unknown.
	Line    int
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	var b strings.Builder
	if e.Line > 0 {
		fmt.Fprintf(&b, "line %d", e.Line)
	} else {
		b.WriteString("plan")
	}
	if e.Field != "" && !strings.HasPrefix(e.Message, e.Field) {
		b.WriteString(": ")
		b.WriteString(e.Field)
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	return b.String()
}

// ValidationErrors collects every problem of a plan so they can be reported
// together.
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	switch len(errs) {
	case 0:
		return "plan is invalid"
	case 1:
		return errs[0].Error()
	}
	messages := make([]string, len(errs))
	for i, err := range errs {
		messages[i] = err.Error()
	}
	return fmt.Sprintf("%d plan problems: %s", len(errs), strings.Join(messages, "; "))
}

// Issues returns a copy of the problems ordered by line.
func (errs ValidationErrors) Issues() []ValidationError {
	out := append([]ValidationError(nil), errs...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Line < out[j].Line })
	return out
}
