package effects

import "image"

type glitch struct{}

func (glitch) Descriptor() Descriptor {
	return Descriptor{
		Slug:             "glitch",
		DisplayName:      "Glitch",
		DefaultIntensity: 50,
		Capability:       Overlay,
		Description:      "Random frames split into offset red, green and blue copies with corrupted blocks.",
	}
}

func (g glitch) New() Instance { return InstanceFunc(g.transform) }

func (glitch) transform(layer *image.RGBA, in Input) error {
	level := in.Level()
	if level == 0 || len(in.Block.Lines) == 0 {
		return nil
	}
	rng := in.FrameRand()
	if rng.Float64() >= level*0.5 {
		return nil
	}
	maxOffset := int(5 + level*15)
	offset := func(limit int) int {
		if limit <= 0 {
			return 0
		}
		return rng.IntN(2*limit+1) - limit
	}

	source := cloneLayer(layer)
	clearLayer(layer)
	region := textRegion(layer, in.Block, in.Style.OutlineWidth)
	for channel := 0; channel < 3; channel++ {
		shift := image.Pt(offset(maxOffset), offset(maxOffset/2))
		addChannel(layer, source, region, channel, shift)
	}

	if rng.Float64() < 0.5 {
		blocks := 1 + rng.IntN(3)
		for i := 0; i < blocks; i++ {
			x := in.Block.Anchor.X + rng.IntN(101) - 50
			y := in.Block.Anchor.Y + rng.IntN(41) - 20
			w := 20 + rng.IntN(41)
			h := 5 + rng.IntN(11)
			c := premul(uint8(rng.IntN(256)), uint8(rng.IntN(256)), uint8(rng.IntN(256)), uint8(100+rng.IntN(101)))
			fillRect(layer, image.Rect(x, y, x+w, y+h), c)
		}
	}
	return nil
}

// addChannel adds the coverage of src, shifted by offset, into one colour
// channel of dst with an additive blend.
func addChannel(dst, src *image.RGBA, region image.Rectangle, channel int, offset image.Point) {
	target := region.Add(offset).Intersect(dst.Rect)
	for y := target.Min.Y; y < target.Max.Y; y++ {
		for x := target.Min.X; x < target.Max.X; x++ {
			a := src.RGBAAt(x-offset.X, y-offset.Y).A
			if a == 0 {
				continue
			}
			p := dst.RGBAAt(x, y)
			values := [3]*uint8{&p.R, &p.G, &p.B}
			*values[channel] = addClamp(*values[channel], a)
			p.A = max(p.A, a)
			dst.SetRGBA(x, y, p)
		}
	}
}

func addClamp(a, b uint8) uint8 {
	sum := uint16(a) + uint16(b)
	if sum > 255 {
		return 255
	}
	return uint8(sum)
}
