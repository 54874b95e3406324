package effects

import (
	"image"
	"image/draw"
	"math"
)

type glow struct{}

func (glow) Descriptor() Descriptor {
	return Descriptor{
		Slug:             "glow",
		DisplayName:      "Glow",
		DefaultIntensity: 70,
		Capability:       Overlay,
		WordLevel:        true,
		Description:      "A soft pulsing halo in layers behind the caption.",
	}
}

func (g glow) New() Instance { return InstanceFunc(g.transform) }

func (glow) transform(layer *image.RGBA, in Input) error {
	level := in.Level()
	if level == 0 || len(in.Block.Lines) == 0 {
		return nil
	}
	// Two pulses per second between half and full strength.
	pulse := 0.5 + 0.5*(math.Sin(in.Seconds()*2*2*math.Pi)+1)/2
	strength := level * pulse

	text := cloneLayer(layer)
	clearLayer(layer)

	fill := in.Style.Fill
	halo := lighten(fill, 1.2, 30)

	outerSigma := 8 + 6*strength
	haloLayer(layer, in, Style{Fill: fill, Outline: fill, OutlineWidth: 3}, outerSigma, 0.5+0.3*strength)

	innerSigma := 4 + 3*strength
	haloLayer(layer, in, Style{Fill: halo, Outline: halo, OutlineWidth: max(2, in.Style.OutlineWidth)}, innerSigma, 0.6+0.3*strength)

	if strength > 0.4 {
		haloLayer(layer, in, Style{Fill: white, Outline: white, OutlineWidth: 1}, 2+strength, 0.3+0.2*strength)
	}
	draw.Draw(layer, layer.Bounds(), text, layer.Bounds().Min, draw.Over)
	return nil
}

// haloLayer draws the caption in style on a scratch layer, blurs it and
// composites it over dst.
func haloLayer(dst *image.RGBA, in Input, style Style, sigma, opacity float64) {
	scratch := image.NewRGBA(dst.Bounds())
	DrawText(scratch, in.Face, in.Block, style)
	pad := style.OutlineWidth + int(math.Ceil(sigma*3))
	blurInto(dst, scratch, textRegion(scratch, in.Block, pad), sigma, opacity)
}

type neon struct{}

func (neon) Descriptor() Descriptor {
	return Descriptor{
		Slug:             "neon",
		DisplayName:      "Neon",
		DefaultIntensity: 80,
		Capability:       Overlay,
		WordLevel:        true,
		Description:      "Tube-light glow with a bright inner core.",
	}
}

func (n neon) New() Instance { return InstanceFunc(n.transform) }

func (neon) transform(layer *image.RGBA, in Input) error {
	level := in.Level()
	if level == 0 || len(in.Block.Lines) == 0 {
		return nil
	}
	fill := in.Style.Fill
	bright := lighten(fill, 1.1, 20)

	clearLayer(layer)
	if level > 0.2 {
		haloLayer(layer, in, Style{Fill: fill, Outline: fill, OutlineWidth: max(2, in.Style.OutlineWidth)}, 3+2*level, 0.6)
	}
	if level > 0.3 {
		haloLayer(layer, in, Style{Fill: bright, Outline: bright, OutlineWidth: in.Style.OutlineWidth}, 1.5+1.5*level, 0.4+0.2*level)
	}
	final := in.Style
	if level >= 0.5 {
		final.Outline = bright
	}
	DrawText(layer, in.Face, in.Block, final)
	return nil
}
