package effects

import (
	"image"
	"math"
)

type brushStroke struct{}

func (brushStroke) Descriptor() Descriptor {
	return Descriptor{
		Slug:             "brush-stroke",
		DisplayName:      "Brush Stroke",
		DefaultIntensity: 75,
		Capability:       Drawing,
		Description:      "Paints the caption on from left to right behind a soft brush edge.",
	}
}

func (b brushStroke) New() Instance { return InstanceFunc(b.transform) }

func (brushStroke) transform(layer *image.RGBA, in Input) error {
	DrawText(layer, in.Face, in.Block, in.Style)
	level := in.Level()
	if level == 0 {
		return nil
	}
	progress := brushProgress(in.Seconds(), in.CaptionSeconds(), level)
	if progress >= 1 {
		return nil
	}
	if progress <= 0 {
		clearLayer(layer)
		return nil
	}

	region := in.Block.Bounds.Inset(-max(in.Style.OutlineWidth, 1)).Intersect(layer.Bounds())
	region = image.Rect(region.Min.X-20, region.Min.Y-10, region.Max.X+20, region.Max.Y+10).Intersect(layer.Bounds())
	width := region.Dx()
	reveal := region.Min.X + int(float64(width)*progress)
	soft := max(6, int(float64(width)*0.04))
	scaleColumns(layer, layer.Bounds(), func(x int) float64 {
		switch {
		case x < reveal:
			return 1
		case x < reveal+soft:
			return math.Pow(1-float64(x-reveal)/float64(soft), 1.5)
		default:
			return 0
		}
	})
	return nil
}

// brushProgress returns how much of the caption has been painted. The stroke
// takes 40% to 80% of the caption, at least half a second, eased in and out
// with a cubic curve.
func brushProgress(t, captionSeconds, level float64) float64 {
	duration := math.Max(0.5, captionSeconds*(0.4+0.4*level))
	if captionSeconds > 0 && duration > captionSeconds {
		duration = captionSeconds
	}
	if t >= duration {
		return 1
	}
	p := t / math.Max(0.1, duration)
	if p < 0.5 {
		p = 4 * p * p * p
	} else {
		q := 1 - p
		p = 1 - 4*q*q*q
	}
	return clamp01(p)
}
