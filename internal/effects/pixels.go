package effects

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
)

func cloneLayer(src *image.RGBA) *image.RGBA {
	dst := image.NewRGBA(src.Rect)
	copy(dst.Pix, src.Pix)
	return dst
}

func clearLayer(img *image.RGBA) {
	clear(img.Pix)
}

// ScaleAlpha fades every pixel of img by factor in [0,1]. Pixels are
// premultiplied so all four channels scale together.
func ScaleAlpha(img *image.RGBA, factor float64) {
	factor = clamp01(factor)
	if factor == 1 {
		return
	}
	if factor == 0 {
		clearLayer(img)
		return
	}
	scale := uint32(factor * 256)
	for i, v := range img.Pix {
		img.Pix[i] = uint8(uint32(v) * scale >> 8)
	}
}

// scaleColumns multiplies each column of region by weight(x).
func scaleColumns(img *image.RGBA, region image.Rectangle, weight func(x int) float64) {
	region = region.Intersect(img.Rect)
	for x := region.Min.X; x < region.Max.X; x++ {
		w := clamp01(weight(x))
		if w == 1 {
			continue
		}
		for y := region.Min.Y; y < region.Max.Y; y++ {
			i := img.PixOffset(x, y)
			for c := 0; c < 4; c++ {
				img.Pix[i+c] = uint8(float64(img.Pix[i+c]) * w)
			}
		}
	}
}

// blurInto blurs region of src with imaging's gaussian kernel and draws the
// result over dst with its alpha scaled by opacity.
func blurInto(dst, src *image.RGBA, region image.Rectangle, sigma, opacity float64) {
	if region.Empty() {
		return
	}
	blurred := imaging.Blur(src.SubImage(region), sigma)
	if opacity < 1 {
		for i := 3; i < len(blurred.Pix); i += 4 {
			blurred.Pix[i] = uint8(float64(blurred.Pix[i]) * clamp01(opacity))
		}
	}
	draw.Draw(dst, region, blurred, image.Point{}, draw.Over)
}

// straight undoes premultiplication.
func straight(c color.RGBA) (r, g, b, a uint8) {
	if c.A == 0 {
		return 0, 0, 0, 0
	}
	if c.A == 255 {
		return c.R, c.G, c.B, 255
	}
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return n.R, n.G, n.B, n.A
}

// lighten brightens c channel-wise as scale*v + add, keeping its alpha.
func lighten(c color.RGBA, scale, add float64) color.RGBA {
	r, g, b, a := straight(c)
	up := func(v uint8) uint8 {
		f := float64(v)*scale + add
		if f > 255 {
			return 255
		}
		return uint8(f)
	}
	return premul(up(r), up(g), up(b), a)
}

// hueColor returns the fully saturated colour at hue h in [0,1).
func hueColor(h float64) color.RGBA {
	r, g, b := colorful.Hsv(h*360, 1, 1).RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

var white = color.RGBA{R: 255, G: 255, B: 255, A: 255}
