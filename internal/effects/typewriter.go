package effects

import (
	"image"
	"strings"
)

const (
	typewriterLeadIn     = 0.2
	typewriterCursor     = "|"
	typewriterBlinkEvery = 20
)

type typewriter struct{}

func (typewriter) Descriptor() Descriptor {
	return Descriptor{
		Slug:             "typewriter",
		DisplayName:      "Typewriter",
		DefaultIntensity: 70,
		Capability:       Drawing,
		Description:      "Types the caption one character at a time with a blinking cursor. Intensity sets typing speed.",
	}
}

func (typewriter) New() Instance { return &typewriterInstance{caption: -1} }

type typewriterInstance struct {
	caption  int
	schedule []int
}

func (t *typewriterInstance) Transform(layer *image.RGBA, in Input) error {
	if in.CaptionIndex != t.caption || t.schedule == nil {
		t.caption = in.CaptionIndex
		t.schedule = typewriterSchedule(in)
	}

	shown := 0
	for _, frame := range t.schedule {
		if in.Local < frame {
			break
		}
		shown++
	}
	total := len(t.schedule)
	cursor := shown < total && (in.Local/typewriterBlinkEvery)%2 == 0

	glyphs := Glyphs(in.Face, in.Block)
	lastLine, lastEnd := -1, 0
	for _, g := range glyphs {
		if g.Index >= shown {
			break
		}
		lastLine = g.Line
		lastEnd = (g.X + g.Advance).Round()
	}
	for li, line := range in.Block.Lines {
		prefix := visiblePrefix(glyphs, li, shown)
		if prefix == "" {
			continue
		}
		DrawString(layer, in.Face, prefix, line.X, line.Baseline, in.Style)
	}
	if cursor {
		x, baseline := in.Block.Anchor.X, in.Block.Anchor.Y
		if lastLine >= 0 {
			x, baseline = lastEnd, in.Block.Lines[lastLine].Baseline
		} else if len(in.Block.Lines) > 0 {
			x, baseline = in.Block.Lines[0].X, in.Block.Lines[0].Baseline
		}
		DrawString(layer, in.Face, typewriterCursor, x, baseline, in.Style)
	}
	return nil
}

func visiblePrefix(glyphs []Glyph, line, shown int) string {
	var b strings.Builder
	for _, g := range glyphs {
		if g.Line != line {
			continue
		}
		if g.Index >= shown {
			break
		}
		b.WriteRune(g.Rune)
	}
	return strings.TrimRight(b.String(), " ")
}

// typewriterSchedule returns, for every character index, the local frame at
// which it appears. Speed runs from 2 to 8 characters per second, with pauses
// after punctuation and spaces and a seeded ±20% human jitter. When typing
// would overrun 90% of the caption the schedule is compressed to fit.
func typewriterSchedule(in Input) []int {
	count := GlyphCount(in.Block)
	if count == 0 {
		return []int{}
	}
	runes := []rune(strings.Join(lineTexts(in), " "))
	fps := in.FPS
	if fps <= 0 {
		fps = 1
	}
	cps := 2.0 + 6.0*in.Level()
	rng := in.CaptionRand()

	times := make([]float64, count)
	current := typewriterLeadIn
	for i := 0; i < count; i++ {
		times[i] = current
		delay := 1.0 / cps
		if i < len(runes) {
			switch r := runes[i]; {
			case strings.ContainsRune(".,!?;:", r):
				delay += 0.3
			case r == ' ':
				delay += 0.1
			}
		}
		delay *= 0.8 + 0.4*rng.Float64()
		current += delay
	}

	available := in.CaptionSeconds() * 0.9
	scale := 1.0
	if available > 0 && current > available {
		scale = available / current
	}
	frames := make([]int, count)
	for i, t := range times {
		frames[i] = int(t * scale * fps)
	}
	return frames
}

func lineTexts(in Input) []string {
	out := make([]string, len(in.Block.Lines))
	for i, l := range in.Block.Lines {
		out[i] = l.Text
	}
	return out
}
