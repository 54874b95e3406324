package timing

import (
	"strings"

	"autogif/pkg/transcript"
)

// Policy controls how consecutive words are grouped into captions.
type Policy struct {
	// MaxWords caps the words per caption. Zero or less means unlimited.
	MaxWords int `json:"max_words" yaml:"max_words"`
	// MaxDuration caps the seconds from caption start to the end of its last
	// word. Zero or less means unlimited.
	MaxDuration float64 `json:"max_duration_s" yaml:"max_duration_s"`
	// SilenceThreshold forces a boundary when the gap between two words is
	// strictly greater than this many seconds. It wins over the budget.
	SilenceThreshold float64 `json:"silence_threshold_s" yaml:"silence_threshold_s"`
	// BreakOnSentence closes a caption after a word ending in . ! or ?
	// once the caption has lasted MinSentenceDuration.
	BreakOnSentence     bool    `json:"break_on_sentence" yaml:"break_on_sentence"`
	MinSentenceDuration float64 `json:"min_sentence_duration_s" yaml:"min_sentence_duration_s"`
}

// DefaultPolicy mirrors the grouping defaults used by the render command.
func DefaultPolicy() Policy {
	return Policy{
		MaxWords:            8,
		MaxDuration:         5.0,
		SilenceThreshold:    1.0,
		MinSentenceDuration: 0.5,
	}
}

// Boundary reasons, recorded on each caption for diagnostics.
const (
	ReasonEnd      = "end"
	ReasonSilence  = "silence"
	ReasonWords    = "max-words"
	ReasonDuration = "max-duration"
	ReasonSentence = "sentence"
)

// Group splits an ordered word sequence into captions. Zero words yield zero
// captions. Malformed words produce a *TimingError.
func Group(words []transcript.Word, policy Policy) ([]Caption, error) {
	if len(words) == 0 {
		return nil, nil
	}
	if err := transcript.Validate(words); err != nil {
		return nil, newTimingError(err)
	}

	var (
		captions []Caption
		current  []transcript.Word
	)

	flush := func(reason string) {
		if len(current) == 0 {
			return
		}
		captions = append(captions, newCaption(len(captions), current, reason))
		current = nil
	}

	for _, w := range words {
		if len(current) > 0 {
			if reason, split := policy.boundaryBefore(current, w); split {
				flush(reason)
			}
		}
		current = append(current, w)
		if policy.BreakOnSentence && endsSentence(w.Text) && w.End-current[0].Start >= policy.MinSentenceDuration {
			flush(ReasonSentence)
		}
	}
	flush(ReasonEnd)
	return captions, nil
}

// boundaryBefore reports whether next must start a new caption. Silence is
// checked first so it takes precedence over the word and duration budget.
func (p Policy) boundaryBefore(current []transcript.Word, next transcript.Word) (string, bool) {
	prev := current[len(current)-1]
	if p.SilenceThreshold > 0 && next.Start-prev.End > p.SilenceThreshold {
		return ReasonSilence, true
	}
	if p.MaxWords > 0 && len(current)+1 > p.MaxWords {
		return ReasonWords, true
	}
	if p.MaxDuration > 0 && next.End-current[0].Start > p.MaxDuration {
		return ReasonDuration, true
	}
	return "", false
}

func newCaption(index int, words []transcript.Word, reason string) Caption {
	parts := make([]string, len(words))
	for i, w := range words {
		parts[i] = w.Text
	}
	return Caption{
		Index:  index,
		Text:   strings.Join(parts, " "),
		Words:  append([]transcript.Word(nil), words...),
		Start:  words[0].Start,
		End:    words[len(words)-1].End,
		Reason: reason,
	}
}

func endsSentence(word string) bool {
	word = strings.TrimSpace(word)
	return strings.HasSuffix(word, ".") || strings.HasSuffix(word, "!") || strings.HasSuffix(word, "?")
}
