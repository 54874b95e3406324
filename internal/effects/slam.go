package effects

import (
	"image"
	"image/color"
	"math"
	"math/rand/v2"

	"golang.org/x/image/font"
)

var slamOutline = color.RGBA{R: 0x8b, A: 0xff}

type slam struct{}

func (slam) Descriptor() Descriptor {
	return Descriptor{
		Slug:             "slam",
		DisplayName:      "Slam",
		DefaultIntensity: 75,
		Capability:       Drawing,
		Description:      "The caption drops in, squashes on impact and throws out shockwave rings and debris.",
	}
}

func (s slam) New() Instance { return InstanceFunc(s.transform) }

type slamPose struct {
	dy     float64
	radius float64
	scale  float64
}

// slamAt computes the drop, impact and settle pose for a caption-local frame.
// The first 60% of the slam is a quadratic fall, the rest a damped double
// bounce with a squash and a growing shockwave.
func slamAt(local, slamFrames int, drop, maxRadius float64) slamPose {
	if local >= slamFrames {
		return slamPose{scale: 1}
	}
	p := float64(local) / float64(max(1, slamFrames))
	if p < 0.6 {
		fall := p / 0.6
		return slamPose{dy: -drop * (1 - fall*fall), scale: 1}
	}
	impact := (p - 0.6) / 0.4
	bounce := drop * 0.3 * math.Sin(impact*2*math.Pi) * (1 - impact)
	pose := slamPose{dy: -bounce * 0.7, radius: impact * maxRadius}
	if impact < 0.3 {
		pose.scale = 1 - impact/0.3*0.2
	} else {
		pose.scale = 0.8 + (impact-0.3)/0.7*0.2
	}
	return pose
}

func (slam) transform(layer *image.RGBA, in Input) error {
	level := in.Level()
	if level == 0 {
		DrawText(layer, in.Face, in.Block, in.Style)
		return nil
	}
	px := pixelScale(layer)
	total := max(1, in.CaptionFrames)
	slamFrames := max(3, int(float64(total)*(0.2+0.3*level)))
	drop := (50 + 100*level) * px
	maxRadius := (80 + 120*level) * px
	pose := slamAt(in.Local, slamFrames, drop, maxRadius)

	cx := float64(in.Block.Anchor.X)
	cy := float64(in.Block.Anchor.Y) + pose.dy

	if pose.radius > 10*px {
		fade := 1 - pose.radius/maxRadius
		for ring := 0; ring < 3; ring++ {
			r := pose.radius - float64(ring)*25*px
			alpha := 150 * fade * (1 - float64(ring)*0.3)
			if r <= 0 || alpha < 1 {
				continue
			}
			c := premul(255, 200, 100, uint8(alpha))
			for t := 0; t < 2+ring; t++ {
				strokeEllipse(layer, cx, cy, r+float64(t), r+float64(t), c)
			}
		}
	}

	style := in.Style
	if pose.radius > 0 {
		impact := pose.radius / maxRadius
		r, g, b, a := straight(style.Fill)
		style.Fill = premul(
			uint8(float64(r)+impact*float64(255-r)),
			uint8(float64(g)*(1-impact*0.3)),
			uint8(float64(b)*(1-impact*0.5)),
			a,
		)
		style.Outline = slamOutline
		style.OutlineWidth += 2
	}

	face := in.Face
	if pose.scale != 1 && in.Faces != nil {
		size := math.Max(8, math.Floor(in.Block.Size*pose.scale))
		if scaled, err := in.Faces.Face(size); err == nil {
			face = scaled
		}
	}
	dy := int(math.Round(pose.dy))
	for _, line := range in.Block.Lines {
		x := line.X
		if face != in.Face {
			width := font.MeasureString(face, line.Text).Ceil()
			x = line.X + (line.Width-width)/2
		}
		DrawString(layer, face, line.Text, x, line.Baseline+dy, style)
	}

	if pose.radius > 30*px {
		rng := rand.New(rand.NewPCG(in.Seed, uint64(in.Local/2)<<32|0x51a))
		fade := 1 - pose.radius/maxRadius
		particles := int(10 + level*20)
		for i := 0; i < particles; i++ {
			angle := rng.Float64() * 2 * math.Pi
			dist := rng.Float64() * pose.radius * 0.8
			size := float64(1 + rng.IntN(3))
			alpha := float64(100+rng.IntN(101)) * fade
			gray := 80 + rng.IntN(71)
			if alpha < 1 {
				continue
			}
			fillCircle(layer, cx+math.Cos(angle)*dist, cy+math.Sin(angle)*dist*0.5, size,
				premul(uint8(gray), uint8(gray-20), uint8(gray-40), uint8(alpha)))
		}
	}
	return nil
}
