package effects

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrDrawingNotFirst is returned for a chain where a drawing effect follows
// another effect. Drawing effects start from a blank layer, so only the first
// step may draw the caption.
var ErrDrawingNotFirst = errors.New("only the first effect of a chain may draw the caption")

// Word modes select how a word-level first step is applied.
const (
	// WordModeAuto applies the first step per word when it supports it.
	WordModeAuto = "auto"
	// WordModeCaption applies every step to the whole caption.
	WordModeCaption = "caption"
	// WordModeWords applies the first step to every word separately.
	WordModeWords = "words"
	// WordModeActive applies the first step only to the word being spoken.
	WordModeActive = "active"
)

// WordModes lists the accepted word modes.
var WordModes = []string{WordModeAuto, WordModeCaption, WordModeWords, WordModeActive}

// Spec selects one effect of a chain. A nil Intensity uses the effect's
// default.
type Spec struct {
	Slug      string `json:"slug" yaml:"slug"`
	Intensity *int   `json:"intensity,omitempty" yaml:"intensity,omitempty"`
}

// Step is a resolved chain entry.
type Step struct {
	Effect     Effect
	Descriptor Descriptor
	Intensity  int
}

// IntensityError reports an intensity outside [0,100].
type IntensityError struct {
	Slug  string
	Value int
}

func (e *IntensityError) Error() string {
	return fmt.Sprintf("effect %s: intensity must be between 0 and 100 (got %d)", e.Slug, e.Value)
}

// ParseChain reads an effect expression such as "glow", "glow:70" or
// "typewriter+glow:40". Steps are separated by "+" or ",".
func ParseChain(expr string) ([]Spec, error) {
	parts := strings.FieldsFunc(expr, func(r rune) bool { return r == '+' || r == ',' })
	if len(parts) == 0 {
		return []Spec{{Slug: strings.TrimSpace(expr)}}, nil
	}
	specs := make([]Spec, 0, len(parts))
	for _, part := range parts {
		slug, level, hasLevel := strings.Cut(strings.TrimSpace(part), ":")
		spec := Spec{Slug: strings.TrimSpace(slug)}
		if spec.Slug == "" {
			return nil, fmt.Errorf("effect %q: empty slug", expr)
		}
		if hasLevel {
			n, err := strconv.Atoi(strings.TrimSpace(level))
			if err != nil {
				return nil, fmt.Errorf("effect %s: intensity %q is not a whole number", spec.Slug, level)
			}
			spec.Intensity = &n
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// FormatChain renders specs back into the expression ParseChain reads.
func FormatChain(specs []Spec) string {
	parts := make([]string, len(specs))
	for i, s := range specs {
		parts[i] = s.Slug
		if s.Intensity != nil {
			parts[i] += ":" + strconv.Itoa(*s.Intensity)
		}
	}
	return strings.Join(parts, "+")
}

// Slugs joins the slugs of resolved steps with "+".
func Slugs(steps []Step) string {
	parts := make([]string, len(steps))
	for i, s := range steps {
		parts[i] = s.Descriptor.Slug
	}
	return strings.Join(parts, "+")
}

// Resolve looks up every spec and fills in default intensities. fallback is
// used for specs without their own intensity before the descriptor default.
func (r *Registry) Resolve(specs []Spec, fallback *int) ([]Step, error) {
	if len(specs) == 0 {
		return nil, &UnknownEffectError{Slug: "", Known: r.Slugs()}
	}
	steps := make([]Step, 0, len(specs))
	for i, spec := range specs {
		effect, err := r.Lookup(spec.Slug)
		if err != nil {
			return nil, err
		}
		desc := effect.Descriptor()
		intensity := desc.DefaultIntensity
		switch {
		case spec.Intensity != nil:
			intensity = *spec.Intensity
		case fallback != nil:
			intensity = *fallback
		}
		if intensity < 0 || intensity > 100 {
			return nil, &IntensityError{Slug: desc.Slug, Value: intensity}
		}
		if i > 0 && desc.Capability == Drawing {
			return nil, fmt.Errorf("%s: %w", desc.Slug, ErrDrawingNotFirst)
		}
		steps = append(steps, Step{Effect: effect, Descriptor: desc, Intensity: intensity})
	}
	return steps, nil
}

// WordSeed derives the seed for one word of a caption.
func WordSeed(text string, caption, word int) uint64 {
	return SeedFor(text, caption) ^ (uint64(word+1) * 0xbf58476d1ce4e5b9)
}

// ResolveWordMode turns auto into words or caption, depending on whether the
// first step supports word-level rendering, and rejects modes the first step
// cannot honour.
func ResolveWordMode(mode string, first Descriptor) (string, error) {
	mode = strings.ToLower(strings.TrimSpace(mode))
	switch mode {
	case "", WordModeAuto:
		if first.WordLevel {
			return WordModeWords, nil
		}
		return WordModeCaption, nil
	case WordModeCaption:
		return mode, nil
	case WordModeWords, WordModeActive:
		if !first.WordLevel {
			return "", fmt.Errorf("%s cannot be applied per word", first.Slug)
		}
		return mode, nil
	default:
		return "", fmt.Errorf("unknown mode %q (expected one of %s)", mode, strings.Join(WordModes, ", "))
	}
}
