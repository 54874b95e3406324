package render

import (
	"strings"

	"autogif/internal/effects"
	"autogif/internal/layout"
	"autogif/internal/timing"
	"autogif/pkg/transcript"
)

// Settings is everything about a render besides its inputs and output.
type Settings struct {
	FPS      float64         `json:"fps"`
	Height   int             `json:"height"`
	Captions timing.Policy   `json:"captions"`
	Layout   layout.Policy   `json:"layout"`
	Font     layout.FontSpec `json:"font"`
	Style    effects.Style   `json:"style"`
	// Effect is a slug or a chain expression such as "typewriter+glow:40".
	Effect string `json:"effect"`
	// Effects, when set, replaces Effect with an explicit chain.
	Effects []effects.Spec `json:"effects,omitempty"`
	// Intensity applies to chain steps without their own. Nil selects each
	// effect's default.
	Intensity *int `json:"intensity,omitempty"`
	// WordMode is one of effects.WordModes. Empty means auto.
	WordMode  string `json:"word_mode,omitempty"`
	Loop      int    `json:"loop"`
	Quantizer string `json:"quantizer"`
	Colors    int    `json:"colors"`
	Dither    bool   `json:"dither"`
}

// Chain returns the effect chain the settings select.
func (s Settings) Chain() ([]effects.Spec, error) {
	if len(s.Effects) > 0 {
		return s.Effects, nil
	}
	return effects.ParseChain(s.Effect)
}

// Request describes one clip to caption.
type Request struct {
	Index int
	Name  string
	// Source is a video file or a directory of numbered frame images.
	Source         string
	TranscriptPath string
	Words          []transcript.Word
	OutputPath     string
	// PreviewPath, when set, also writes an MP4 preview of the same frames.
	PreviewPath string
	Settings    Settings
}

// Label returns a short human readable name for progress output.
func (r Request) Label() string {
	if name := strings.TrimSpace(r.Name); name != "" {
		return name
	}
	return outputPathName(r.OutputPath)
}
