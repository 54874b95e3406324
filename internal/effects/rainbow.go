package effects

import (
	"image"
	"math"
)

type rainbow struct{}

func (rainbow) Descriptor() Descriptor {
	return Descriptor{
		Slug:             "rainbow",
		DisplayName:      "Rainbow",
		DefaultIntensity: 80,
		Capability:       Drawing,
		WordLevel:        true,
		Description:      "Each letter takes a hue from the spectrum and the colours cycle over time.",
	}
}

func (r rainbow) New() Instance { return InstanceFunc(r.transform) }

func (rainbow) transform(layer *image.RGBA, in Input) error {
	level := in.Level()
	if level == 0 {
		DrawText(layer, in.Face, in.Block, in.Style)
		return nil
	}
	glyphs := Glyphs(in.Face, in.Block)
	visible := 0
	for _, g := range glyphs {
		if !g.Space() {
			visible++
		}
	}
	offset := in.Seconds() * level * 3
	style := in.Style
	n := 0
	for _, g := range glyphs {
		if g.Space() {
			continue
		}
		hue := 0.0
		if visible > 1 {
			hue = float64(n) / float64(visible-1)
		}
		_, frac := math.Modf(hue + offset)
		style.Fill = hueColor(frac)
		DrawGlyph(layer, in.Face, in.Block, g, 0, 0, style)
		n++
	}
	return nil
}
