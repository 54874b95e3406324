package effects

import (
	"image"
	"math"
)

type fade struct{}

func (fade) Descriptor() Descriptor {
	return Descriptor{
		Slug:             "fade",
		DisplayName:      "Fade",
		DefaultIntensity: 50,
		Capability:       Drawing,
		Description:      "Eases the caption in and out. Intensity sets how much of the caption is spent fading.",
	}
}

func (f fade) New() Instance { return InstanceFunc(f.transform) }

func (fade) transform(layer *image.RGBA, in Input) error {
	DrawText(layer, in.Face, in.Block, in.Style)
	ScaleAlpha(layer, fadeAlpha(in.Local, in.CaptionFrames, ClampIntensity(in.Intensity)))
	return nil
}

// fadeAlpha spends intensity/2 percent of the caption fading in and the same
// fading out, with quadratic easing on both ends.
func fadeAlpha(local, total, intensity int) float64 {
	if intensity == 0 || total <= 0 {
		return 1
	}
	fadeIn := int(math.Ceil(float64(total) * float64(intensity) / 100 / 2))
	fadeOut := fadeIn
	if fadeIn+fadeOut > total {
		fadeIn = total / 2
		fadeOut = total - fadeIn
	}
	outStart := total - fadeOut

	var alpha float64
	switch {
	case local < fadeIn:
		p := float64(local) / float64(fadeIn)
		alpha = p * p
	case local >= outStart:
		if fadeOut == 0 {
			return 0
		}
		remaining := 1 - float64(local-outStart)/float64(fadeOut)
		alpha = 1 - (1-remaining)*(1-remaining)
	default:
		alpha = 1
	}
	return clamp01(alpha)
}
