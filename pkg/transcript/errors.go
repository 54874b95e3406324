package transcript

import (
	"strconv"
	"strings"
)

// ValidationError captures a single word-level validation problem.
type ValidationError struct {
	Index   int
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field != "" {
		return strings.TrimSpace(
			strings.Join([]string{
				formatIndex(e.Index),
				e.Field,
				e.Message,
			}, " "),
		)
	}
	return strings.TrimSpace(formatIndex(e.Index) + " " + e.Message)
}

// ValidationErrors aggregates multiple validation issues.
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	if len(errs) == 0 {
		return "validation failed"
	}
	messages := make([]string, len(errs))
	for i, err := range errs {
		messages[i] = err.Error()
	}
	return strings.Join(messages, "; ")
}

// Issues returns a copy of the underlying validation errors.
func (errs ValidationErrors) Issues() []ValidationError {
	return append([]ValidationError(nil), errs...)
}

func formatIndex(index int) string {
	if index < 0 {
		return "transcript"
	}
	return "word " + strconv.Itoa(index)
}
