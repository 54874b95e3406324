package effects

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"autogif/internal/layout"
)

// DrawText draws every line of block at its laid out position.
func DrawText(dst draw.Image, face font.Face, block layout.Block, style Style) {
	DrawTextOffset(dst, face, block, style, image.Point{})
}

// DrawTextOffset draws block shifted by offset.
func DrawTextOffset(dst draw.Image, face font.Face, block layout.Block, style Style, offset image.Point) {
	for _, line := range block.Lines {
		DrawString(dst, face, line.Text, line.X+offset.X, line.Baseline+offset.Y, style)
	}
}

// DrawString draws text with the pen starting at (x, baseline). The outline
// is produced by stamping the text at every offset within OutlineWidth before
// the fill is drawn on top.
func DrawString(dst draw.Image, face font.Face, text string, x, baseline int, style Style) {
	drawStringFixed(dst, face, text, fixed.P(x, baseline), style)
}

func drawStringFixed(dst draw.Image, face font.Face, text string, dot fixed.Point26_6, style Style) {
	if text == "" {
		return
	}
	if style.OutlineWidth > 0 && style.Outline.A > 0 {
		src := image.NewUniform(style.Outline)
		for _, off := range outlineOffsets(style.OutlineWidth) {
			d := font.Drawer{Dst: dst, Src: src, Face: face, Dot: dot.Add(fixed.P(off.X, off.Y))}
			d.DrawString(text)
		}
	}
	d := font.Drawer{Dst: dst, Src: image.NewUniform(style.Fill), Face: face, Dot: dot}
	d.DrawString(text)
}

func outlineOffsets(width int) []image.Point {
	var out []image.Point
	for dy := -width; dy <= width; dy++ {
		for dx := -width; dx <= width; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			if dx*dx+dy*dy > width*width+width {
				continue
			}
			out = append(out, image.Pt(dx, dy))
		}
	}
	return out
}

// Glyph is one rune of a laid out line with its pen position.
type Glyph struct {
	Rune    rune
	Line    int
	Index   int
	X       fixed.Int26_6
	Advance fixed.Int26_6
}

// Space reports whether the glyph is whitespace.
func (g Glyph) Space() bool {
	return g.Rune == ' ' || g.Rune == '\t'
}

// Glyphs splits every line of block into positioned runes. Index counts runes
// across the whole block, with the implicit break between lines counted as a
// space so per-character animations stagger the same way as the source text.
func Glyphs(face font.Face, block layout.Block) []Glyph {
	var (
		out   []Glyph
		index int
	)
	for li, line := range block.Lines {
		if li > 0 {
			index++
		}
		dot := fixed.I(line.X)
		prev := rune(-1)
		for _, r := range line.Text {
			if prev >= 0 {
				dot += face.Kern(prev, r)
			}
			adv, _ := face.GlyphAdvance(r)
			out = append(out, Glyph{Rune: r, Line: li, Index: index, X: dot, Advance: adv})
			dot += adv
			prev = r
			index++
		}
	}
	return out
}

// GlyphCount returns the number of indices Glyphs assigns for block.
func GlyphCount(block layout.Block) int {
	count := 0
	for i, line := range block.Lines {
		if i > 0 {
			count++
		}
		count += len([]rune(line.Text))
	}
	return count
}

// DrawGlyph draws a single glyph on its line, displaced by (dx, dy) pixels.
func DrawGlyph(dst draw.Image, face font.Face, block layout.Block, g Glyph, dx, dy float64, style Style) {
	if g.Space() || g.Line >= len(block.Lines) {
		return
	}
	dot := fixed.Point26_6{
		X: g.X + toFixed(dx),
		Y: fixed.I(block.Lines[g.Line].Baseline) + toFixed(dy),
	}
	drawStringFixed(dst, face, string(g.Rune), dot, style)
}

func toFixed(v float64) fixed.Int26_6 {
	return fixed.Int26_6(math.Round(v * 64))
}

// textRegion returns the block bounds grown by pad and clipped to the layer.
func textRegion(layer *image.RGBA, block layout.Block, pad int) image.Rectangle {
	return block.Bounds.Inset(-pad).Intersect(layer.Bounds())
}

func blend(dst *image.RGBA, x, y int, c color.RGBA) {
	if !(image.Point{X: x, Y: y}).In(dst.Rect) || c.A == 0 {
		return
	}
	i := dst.PixOffset(x, y)
	p := dst.Pix[i : i+4 : i+4]
	inv := 255 - uint32(c.A)
	p[0] = uint8(uint32(c.R) + uint32(p[0])*inv/255)
	p[1] = uint8(uint32(c.G) + uint32(p[1])*inv/255)
	p[2] = uint8(uint32(c.B) + uint32(p[2])*inv/255)
	p[3] = uint8(uint32(c.A) + uint32(p[3])*inv/255)
}

// premul converts a straight alpha colour to the premultiplied form stored
// in image.RGBA.
func premul(r, g, b, a uint8) color.RGBA {
	return color.RGBA{
		R: uint8(uint32(r) * uint32(a) / 255),
		G: uint8(uint32(g) * uint32(a) / 255),
		B: uint8(uint32(b) * uint32(a) / 255),
		A: a,
	}
}

func fillRect(dst *image.RGBA, r image.Rectangle, c color.RGBA) {
	r = r.Intersect(dst.Rect)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			blend(dst, x, y, c)
		}
	}
}

func fillCircle(dst *image.RGBA, cx, cy, radius float64, c color.RGBA) {
	r2 := radius * radius
	for y := int(math.Floor(cy - radius)); y <= int(math.Ceil(cy+radius)); y++ {
		for x := int(math.Floor(cx - radius)); x <= int(math.Ceil(cx+radius)); x++ {
			dx, dy := float64(x)-cx, float64(y)-cy
			if dx*dx+dy*dy <= r2 {
				blend(dst, x, y, c)
			}
		}
	}
}

func strokeEllipse(dst *image.RGBA, cx, cy, rx, ry float64, c color.RGBA) {
	if rx <= 0 || ry <= 0 {
		return
	}
	steps := int(2*math.Pi*math.Max(rx, ry)) + 8
	lastX, lastY := math.MinInt, math.MinInt
	for i := 0; i < steps; i++ {
		theta := 2 * math.Pi * float64(i) / float64(steps)
		x := int(math.Round(cx + rx*math.Cos(theta)))
		y := int(math.Round(cy + ry*math.Sin(theta)))
		if x == lastX && y == lastY {
			continue
		}
		blend(dst, x, y, c)
		lastX, lastY = x, y
	}
}

func drawRay(dst *image.RGBA, x, y, dx, dy, length int, c color.RGBA) {
	for i := 1; i <= length; i++ {
		blend(dst, x+dx*i, y+dy*i, c)
	}
}
