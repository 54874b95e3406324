package effects

import (
	"image"
	"math"
)

type sparkleShape int

const (
	sparkleStar sparkleShape = iota
	sparkleDot
	sparklePlus
)

type sparkleParticle struct {
	dx, dy    float64
	phase     float64
	frequency float64
	size      float64
	shape     sparkleShape
}

type sparkle struct{}

func (sparkle) Descriptor() Descriptor {
	return Descriptor{
		Slug:             "sparkle",
		DisplayName:      "Sparkle",
		DefaultIntensity: 65,
		Capability:       Overlay,
		Description:      "Twinkling stars, dots and crosses scattered around the caption.",
	}
}

func (sparkle) New() Instance { return &sparkleInstance{caption: -1} }

type sparkleInstance struct {
	caption   int
	particles []sparkleParticle
}

func (s *sparkleInstance) Transform(layer *image.RGBA, in Input) error {
	level := in.Level()
	if level == 0 || len(in.Block.Lines) == 0 {
		return nil
	}
	if in.CaptionIndex != s.caption {
		s.caption = in.CaptionIndex
		s.particles = scatterSparkles(in, level)
	}
	px := pixelScale(layer)
	t := in.Seconds()
	for _, p := range s.particles {
		brightness := (math.Sin(p.phase+t*p.frequency*2*math.Pi) + 1) / 2
		if brightness < 0.3 {
			continue
		}
		c := premul(255, uint8(255-(1-brightness)*50), uint8(255-(1-brightness)*100), uint8(brightness*255))
		x := in.Block.Anchor.X + int(p.dx)
		y := in.Block.Bounds.Min.Y + in.Block.Bounds.Dy()/2 + int(p.dy)
		size := p.size * brightness * math.Max(1, px)
		length := int(math.Round(size))
		switch p.shape {
		case sparkleStar:
			for _, d := range [][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
				drawRay(layer, x, y, d[0], d[1], length, c)
			}
			diag := int(math.Round(size * 0.7))
			for _, d := range [][2]int{{1, 1}, {-1, 1}, {1, -1}, {-1, -1}} {
				drawRay(layer, x, y, d[0], d[1], diag, c)
			}
			blend(layer, x, y, c)
		case sparkleDot:
			fillCircle(layer, float64(x), float64(y), size/2, c)
		default:
			for _, d := range [][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
				drawRay(layer, x, y, d[0], d[1], length, c)
			}
			blend(layer, x, y, c)
		}
	}
	return nil
}

// scatterSparkles places 5 to 25 particles around the caption block from the
// caption's own random stream.
func scatterSparkles(in Input, level float64) []sparkleParticle {
	rng := in.CaptionRand()
	count := int(5 + level*20)
	halfW := float64(in.Block.Bounds.Dx())/2 + 20
	halfH := float64(in.Block.Bounds.Dy())/2 + 20
	out := make([]sparkleParticle, count)
	for i := range out {
		out[i] = sparkleParticle{
			dx:        (rng.Float64()*2 - 1) * halfW,
			dy:        (rng.Float64()*2 - 1) * halfH,
			phase:     rng.Float64() * 2 * math.Pi,
			frequency: 0.5 + rng.Float64()*2,
			size:      float64(2 + rng.IntN(5)),
			shape:     sparkleShape(rng.IntN(3)),
		}
	}
	return out
}
