package effects

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	vhsPatterns = 10
	vhsDate     = "12/25/1987"
)

type staticPoint struct {
	x, y, strength float64
}

type vhsCRT struct{}

func (vhsCRT) Descriptor() Descriptor {
	return Descriptor{
		Slug:             "vhs-crt",
		DisplayName:      "VHS/CRT",
		DefaultIntensity: 60,
		Capability:       Overlay,
		Description:      "Tape playback look with scanlines, colour fringing, static, vignette and a timecode.",
	}
}

func (vhsCRT) New() Instance { return &vhsInstance{caption: -1} }

type vhsInstance struct {
	caption  int
	patterns [vhsPatterns][]staticPoint
	vignette *image.Alpha
	level    float64
}

// Transform darkens the whole text layer, so the look extends over the video
// once the layer is composited.
func (v *vhsInstance) Transform(layer *image.RGBA, in Input) error {
	level := in.Level()
	if level == 0 {
		return nil
	}
	if in.CaptionIndex != v.caption {
		v.caption = in.CaptionIndex
		rng := in.CaptionRand()
		for i := range v.patterns {
			points := make([]staticPoint, 8+rng.IntN(13))
			for j := range points {
				points[j] = staticPoint{x: rng.Float64(), y: rng.Float64(), strength: 0.4 + 0.6*rng.Float64()}
			}
			v.patterns[i] = points
		}
	}

	if aberration := level * 3; aberration > 0.5 && len(in.Block.Lines) > 0 {
		shift := int(aberration + math.Sin(float64(in.Local)*0.15)*0.8)
		fringe(layer, textRegion(layer, in.Block, in.Style.OutlineWidth+shift+1), shift)
	}
	v.static(layer, in, level*0.15)
	if distortion := level * 0.02; distortion > 0.01 {
		v.applyVignette(layer, distortion)
	}
	scanlines(layer, level)
	if level > 0.5 {
		timecode(layer, in)
	}
	return nil
}

// fringe separates red to the right and blue to the left by shift pixels.
func fringe(layer *image.RGBA, region image.Rectangle, shift int) {
	if shift <= 0 || region.Empty() {
		return
	}
	src := cloneLayer(layer)
	for y := region.Min.Y; y < region.Max.Y; y++ {
		for x := region.Min.X; x < region.Max.X; x++ {
			red := src.RGBAAt(x-shift, y)
			green := src.RGBAAt(x, y)
			blue := src.RGBAAt(x+shift, y)
			layer.SetRGBA(x, y, color.RGBA{
				R: red.R,
				G: green.G,
				B: blue.B,
				A: max(red.A, green.A, blue.A),
			})
		}
	}
}

func (v *vhsInstance) static(layer *image.RGBA, in Input, noise float64) {
	if noise <= 0 {
		return
	}
	rng := in.FrameRand()
	bounds := layer.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	for _, p := range v.patterns[in.Local%vhsPatterns] {
		if rng.Float64() >= noise*2 {
			continue
		}
		x := bounds.Min.X + int(p.x*float64(w))
		y := bounds.Min.Y + int(p.y*float64(h))
		var c color.RGBA
		switch rng.IntN(3) {
		case 0:
			c = premul(255, 255, 255, uint8(255*p.strength))
		case 1:
			c = premul(200, 200, 255, uint8(255*p.strength*0.8))
		default:
			c = premul(255, 200, 200, uint8(255*p.strength*0.8))
		}
		size := 1 + rng.IntN(4)
		fillRect(layer, image.Rect(x, y, x+size+1, y+size+1), c)
	}
	if rng.Float64() < noise*0.8 && h > 0 {
		y := bounds.Min.Y + rng.IntN(h)
		thickness := 1 + rng.IntN(4)
		fillRect(layer, image.Rect(bounds.Min.X, y, bounds.Max.X, y+thickness+1), premul(255, 255, 255, uint8(255*noise)))
	}
}

func (v *vhsInstance) applyVignette(layer *image.RGBA, distortion float64) {
	bounds := layer.Bounds()
	if v.vignette == nil || v.vignette.Rect != bounds || v.level != distortion {
		v.vignette = vignetteMask(bounds, distortion)
		v.level = distortion
	}
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if a := v.vignette.AlphaAt(x, y).A; a > 0 {
				blend(layer, x, y, color.RGBA{A: a})
			}
		}
	}
}

// vignetteMask darkens towards the corners to suggest a curved tube.
func vignetteMask(bounds image.Rectangle, distortion float64) *image.Alpha {
	mask := image.NewAlpha(bounds)
	cx := float64(bounds.Min.X+bounds.Max.X) / 2
	cy := float64(bounds.Min.Y+bounds.Max.Y) / 2
	maxDist := math.Hypot(float64(bounds.Dx())/2, float64(bounds.Dy())/2)
	if maxDist == 0 {
		return mask
	}
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			edge := math.Pow(math.Hypot(float64(x)-cx, float64(y)-cy)/maxDist, 1.5)
			mask.SetAlpha(x, y, color.Alpha{A: uint8(255 * distortion * edge * 0.8)})
		}
	}
	return mask
}

func scanlines(layer *image.RGBA, level float64) {
	bounds := layer.Bounds()
	spacing := 3
	if level > 0.7 {
		spacing = 2
	}
	opacity := 255 * level * 0.8
	for y := bounds.Min.Y; y < bounds.Max.Y; y += spacing {
		a := opacity
		if (y-bounds.Min.Y)%(spacing*2) != 0 {
			a *= 0.7
		}
		fillRect(layer, image.Rect(bounds.Min.X, y, bounds.Max.X, y+1), color.RGBA{A: uint8(a)})
	}
	if level > 0.5 {
		c := color.RGBA{A: uint8(opacity * 0.4)}
		for x := bounds.Min.X; x < bounds.Max.X; x += 3 {
			fillRect(layer, image.Rect(x, bounds.Min.Y, x+1, bounds.Max.Y), c)
		}
	}
}

// timecode draws an HH:MM:SS:FF counter and a date in the top right corner.
func timecode(layer *image.RGBA, in Input) {
	fps := math.Max(1, math.Round(in.FPS))
	seconds := float64(in.Local) / fps
	code := fmt.Sprintf("%02d:%02d:%02d:%02d",
		int(seconds)/3600, int(seconds)%3600/60, int(seconds)%60, in.Local%int(fps))

	face := basicfont.Face7x13
	const (
		margin  = 15
		padding = 8
		gap     = 20
	)
	width := max(font.MeasureString(face, code).Ceil(), font.MeasureString(face, vhsDate).Ceil())
	bounds := layer.Bounds()
	x := bounds.Max.X - width - margin - padding
	y := bounds.Min.Y + margin + padding + face.Metrics().Ascent.Ceil()
	box := image.Rect(x-padding, y-face.Metrics().Ascent.Ceil()-padding, x+width+padding, y+gap+face.Metrics().Descent.Ceil()+padding)
	fillRect(layer, box, color.RGBA{A: 220})
	border := color.RGBA{R: 80, G: 80, B: 80, A: 255}
	fillRect(layer, image.Rect(box.Min.X, box.Min.Y, box.Max.X, box.Min.Y+1), border)
	fillRect(layer, image.Rect(box.Min.X, box.Max.Y-1, box.Max.X, box.Max.Y), border)
	fillRect(layer, image.Rect(box.Min.X, box.Min.Y, box.Min.X+1, box.Max.Y), border)
	fillRect(layer, image.Rect(box.Max.X-1, box.Min.Y, box.Max.X, box.Max.Y), border)

	d := font.Drawer{Dst: layer, Src: image.NewUniform(color.RGBA{R: 255, G: 255, A: 255}), Face: face, Dot: fixed.P(x, y)}
	d.DrawString(code)
	d = font.Drawer{Dst: layer, Src: image.NewUniform(white), Face: face, Dot: fixed.P(x, y+gap)}
	d.DrawString(vhsDate)
}
