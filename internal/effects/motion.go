package effects

import (
	"image"
	"math"
)

// referenceHeight is the frame height the pixel distances of the motion
// effects were tuned for. Other sizes scale proportionally.
const referenceHeight = 480.0

func pixelScale(layer *image.RGBA) float64 {
	h := layer.Bounds().Dy()
	if h <= 0 {
		return 1
	}
	return float64(h) / referenceHeight
}

type wave struct{}

func (wave) Descriptor() Descriptor {
	return Descriptor{
		Slug:             "wave",
		DisplayName:      "Wave",
		DefaultIntensity: 60,
		Capability:       Drawing,
		Travel:           30,
		Description:      "Letters ripple up and down in a travelling sine wave.",
	}
}

func (w wave) New() Instance { return InstanceFunc(w.transform) }

func (wave) transform(layer *image.RGBA, in Input) error {
	level := in.Level()
	if level == 0 {
		DrawText(layer, in.Face, in.Block, in.Style)
		return nil
	}
	const (
		frequency = 0.15
		speed     = 2.0
	)
	amplitude := level * 30 * pixelScale(layer)
	offset := in.Seconds() * speed
	for _, g := range Glyphs(in.Face, in.Block) {
		dy := math.Sin(float64(g.Index)*frequency+offset) * amplitude
		DrawGlyph(layer, in.Face, in.Block, g, 0, dy, in.Style)
	}
	return nil
}

type bounce struct{}

func (bounce) Descriptor() Descriptor {
	return Descriptor{
		Slug:             "bounce",
		DisplayName:      "Bounce",
		DefaultIntensity: 60,
		Capability:       Drawing,
		Rise:             150,
		Description:      "Letters drop in one after another and bounce to rest.",
	}
}

func (b bounce) New() Instance { return InstanceFunc(b.transform) }

func (bounce) transform(layer *image.RGBA, in Input) error {
	level := in.Level()
	if level == 0 {
		DrawText(layer, in.Face, in.Block, in.Style)
		return nil
	}
	fps := in.FPS
	if fps <= 0 {
		fps = 1
	}
	total := max(1, in.CaptionFrames)
	bounceFrames := max(1, int(float64(total)*(0.5+0.4*level)))
	maxDelay := max(1, int(float64(bounceFrames)*0.3))
	height := (100 + 50*level) * pixelScale(layer)
	count := GlyphCount(in.Block)

	const (
		frequency = 3.0
		damping   = 3.0
	)
	for _, g := range Glyphs(in.Face, in.Block) {
		delay := 0
		if count > 1 {
			delay = int(float64(g.Index) / float64(count-1) * float64(maxDelay))
		}
		local := max(0, in.Local-delay)
		dy := 0.0
		if local < bounceFrames {
			t := float64(local) / fps
			dy = -height * math.Exp(-damping*t) * math.Abs(math.Sin(frequency*math.Pi*t))
		}
		DrawGlyph(layer, in.Face, in.Block, g, 0, dy, in.Style)
	}
	return nil
}

type shake struct{}

func (shake) Descriptor() Descriptor {
	return Descriptor{
		Slug:             "shake",
		DisplayName:      "Shake",
		DefaultIntensity: 50,
		Capability:       Drawing,
		Travel:           18,
		Description:      "The caption trembles with layered low, mid and high frequency jitter.",
	}
}

func (shake) New() Instance { return &shakeInstance{caption: -1} }

var shakeBands = [...]struct{ freq, scale float64 }{
	{8, 1.0},
	{15, 0.6},
	{25, 0.3},
}

type shakeInstance struct {
	caption int
	phases  [len(shakeBands)][2]float64
}

func (s *shakeInstance) Transform(layer *image.RGBA, in Input) error {
	level := in.Level()
	if level == 0 {
		DrawText(layer, in.Face, in.Block, in.Style)
		return nil
	}
	if in.CaptionIndex != s.caption {
		s.caption = in.CaptionIndex
		rng := in.CaptionRand()
		for i := range s.phases {
			s.phases[i] = [2]float64{rng.Float64() * 2 * math.Pi, rng.Float64() * 2 * math.Pi}
		}
	}
	amplitude := level * 8 * pixelScale(layer)
	t := in.Seconds()
	var dx, dy float64
	for i, band := range shakeBands {
		dx += math.Sin(2*math.Pi*band.freq*t+s.phases[i][0]) * amplitude * band.scale
		dy += math.Sin(2*math.Pi*band.freq*t+s.phases[i][1]) * amplitude * band.scale
	}
	rng := in.FrameRand()
	dx += (rng.Float64() - 0.5) * amplitude * 0.15
	dy += (rng.Float64() - 0.5) * amplitude * 0.15

	DrawTextOffset(layer, in.Face, in.Block, in.Style, image.Pt(int(math.Round(dx)), int(math.Round(dy))))
	return nil
}
