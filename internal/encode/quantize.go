package encode

import (
	"cmp"
	"fmt"
	"image"
	"image/color"
	"image/color/palette"
	"slices"
	"strings"
)

// Quantizer reduces a frame to at most 256 colours.
type Quantizer interface {
	Quantize(img image.Image) color.Palette
}

// ParseQuantizer maps a config name to a quantizer.
func ParseQuantizer(name string, colors int) (Quantizer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "median-cut", "mediancut":
		return MedianCut{Colors: colors}, nil
	case "plan9", "fixed":
		return Plan9{}, nil
	default:
		return nil, fmt.Errorf("unknown quantizer %q (want median-cut or plan9)", name)
	}
}

// Plan9 always returns the fixed 256-colour Plan 9 palette.
type Plan9 struct{}

func (Plan9) Quantize(image.Image) color.Palette {
	return palette.Plan9
}

// MedianCut builds a per-frame palette by recursively splitting the colour
// histogram along its widest channel.
type MedianCut struct {
	Colors int
}

// Histogram bins use 5 bits per channel.
const binBits = 5

type bin struct {
	r, g, b uint8
	count   int
}

type box struct {
	bins []bin
}

func (b box) weight() int {
	n := 0
	for _, e := range b.bins {
		n += e.count
	}
	return n
}

// widest returns the channel with the largest range and that range.
func (b box) widest() (int, int) {
	lo := [3]uint8{255, 255, 255}
	var hi [3]uint8
	for _, e := range b.bins {
		for c, v := range [3]uint8{e.r, e.g, e.b} {
			lo[c] = min(lo[c], v)
			hi[c] = max(hi[c], v)
		}
	}
	channel, span := 0, -1
	for c := range 3 {
		if d := int(hi[c]) - int(lo[c]); d > span {
			channel, span = c, d
		}
	}
	return channel, span
}

func channelOf(e bin, c int) uint8 {
	switch c {
	case 0:
		return e.r
	case 1:
		return e.g
	default:
		return e.b
	}
}

func (b box) mean() color.RGBA {
	var r, g, bl, n int
	for _, e := range b.bins {
		r += int(e.r) * e.count
		g += int(e.g) * e.count
		bl += int(e.b) * e.count
		n += e.count
	}
	if n == 0 {
		return color.RGBA{A: 0xff}
	}
	expand := func(v int) uint8 {
		q := (v + n/2) / n
		return uint8(q<<(8-binBits) | q>>(2*binBits-8))
	}
	return color.RGBA{R: expand(r), G: expand(g), B: expand(bl), A: 0xff}
}

func (q MedianCut) Quantize(img image.Image) color.Palette {
	colors := q.Colors
	if colors <= 0 || colors > 256 {
		colors = 256
	}
	colors = max(colors, 2)

	bins := histogram(img)
	if len(bins) == 0 {
		return color.Palette{color.RGBA{A: 0xff}}
	}
	boxes := []box{{bins: bins}}
	for len(boxes) < colors {
		pick, pickSpan, pickWeight := -1, 0, 0
		for i, b := range boxes {
			if len(b.bins) < 2 {
				continue
			}
			_, span := b.widest()
			w := b.weight()
			if span > pickSpan || (span == pickSpan && w > pickWeight) {
				pick, pickSpan, pickWeight = i, span, w
			}
		}
		if pick < 0 || pickSpan == 0 {
			break
		}
		lo, hi := split(boxes[pick])
		boxes[pick] = lo
		boxes = append(boxes, hi)
	}

	pal := make(color.Palette, 0, len(boxes))
	for _, b := range boxes {
		pal = append(pal, b.mean())
	}
	return pal
}

// split sorts a box along its widest channel and cuts at the weighted median.
func split(b box) (box, box) {
	channel, _ := b.widest()
	slices.SortStableFunc(b.bins, func(x, y bin) int {
		return cmp.Compare(channelOf(x, channel), channelOf(y, channel))
	})
	half := b.weight() / 2
	acc, cut := 0, 1
	for i, e := range b.bins {
		acc += e.count
		if acc >= half {
			cut = i + 1
			break
		}
	}
	cut = min(max(cut, 1), len(b.bins)-1)
	return box{bins: b.bins[:cut]}, box{bins: b.bins[cut:]}
}

func histogram(img image.Image) []bin {
	const size = 1 << (3 * binBits)
	counts := make([]int, size)
	bounds := img.Bounds()
	shift := 8 - binBits
	rgba, _ := img.(*image.RGBA)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			var r, g, b uint8
			if rgba != nil {
				i := rgba.PixOffset(x, y)
				r, g, b = rgba.Pix[i], rgba.Pix[i+1], rgba.Pix[i+2]
			} else {
				c := color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
				r, g, b = c.R, c.G, c.B
			}
			key := int(r>>shift)<<(2*binBits) | int(g>>shift)<<binBits | int(b>>shift)
			counts[key]++
		}
	}
	mask := 1<<binBits - 1
	var bins []bin
	for key, n := range counts {
		if n == 0 {
			continue
		}
		bins = append(bins, bin{
			r:     uint8(key >> (2 * binBits) & mask),
			g:     uint8(key >> binBits & mask),
			b:     uint8(key & mask),
			count: n,
		})
	}
	return bins
}
