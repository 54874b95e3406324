package transcript

import (
	"math"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// epsilon absorbs float noise in timestamps produced by speech-to-text models.
const epsilon = 1e-6

// Word is a single transcribed word with its timing in seconds.
type Word struct {
	Text  string  `json:"word" yaml:"word"`
	Start float64 `json:"start" yaml:"start"`
	End   float64 `json:"end" yaml:"end"`
}

// Duration returns the spoken length of the word in seconds.
func (w Word) Duration() float64 {
	return w.End - w.Start
}

// NormalizeText trims surrounding whitespace and composes the text to NFC so
// identical words always measure and hash identically.
func NormalizeText(value string) string {
	return strings.TrimSpace(norm.NFC.String(value))
}

// Validate checks that words are well formed, ordered and non-overlapping.
// Every problem is reported; an empty slice is valid.
func Validate(words []Word) error {
	var errs ValidationErrors
	for i, w := range words {
		if strings.TrimSpace(w.Text) == "" {
			errs = append(errs, ValidationError{Index: i, Field: "word", Message: "is empty"})
		}
		if math.IsNaN(w.Start) || math.IsNaN(w.End) || math.IsInf(w.Start, 0) || math.IsInf(w.End, 0) {
			errs = append(errs, ValidationError{Index: i, Field: "timing", Message: "is not a finite number"})
			continue
		}
		if w.Start < 0 {
			errs = append(errs, ValidationError{Index: i, Field: "start", Message: "must not be negative"})
		}
		if w.End <= w.Start {
			errs = append(errs, ValidationError{Index: i, Field: "end", Message: "must be after start (zero or negative duration)"})
		}
		if i == 0 {
			continue
		}
		prev := words[i-1]
		if w.Start+epsilon < prev.Start {
			errs = append(errs, ValidationError{Index: i, Field: "start", Message: "is before the previous word"})
		} else if w.Start+epsilon < prev.End {
			errs = append(errs, ValidationError{Index: i, Field: "start", Message: "overlaps the previous word"})
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// End returns the latest end time across words, or zero when empty.
func End(words []Word) float64 {
	var last float64
	for _, w := range words {
		if w.End > last {
			last = w.End
		}
	}
	return last
}
