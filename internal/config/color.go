package config

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

var namedColors = map[string]color.NRGBA{
	"white":       {0xff, 0xff, 0xff, 0xff},
	"black":       {0x00, 0x00, 0x00, 0xff},
	"red":         {0xff, 0x00, 0x00, 0xff},
	"green":       {0x00, 0x80, 0x00, 0xff},
	"lime":        {0x00, 0xff, 0x00, 0xff},
	"blue":        {0x00, 0x00, 0xff, 0xff},
	"yellow":      {0xff, 0xff, 0x00, 0xff},
	"cyan":        {0x00, 0xff, 0xff, 0xff},
	"aqua":        {0x00, 0xff, 0xff, 0xff},
	"magenta":     {0xff, 0x00, 0xff, 0xff},
	"fuchsia":     {0xff, 0x00, 0xff, 0xff},
	"gray":        {0x80, 0x80, 0x80, 0xff},
	"grey":        {0x80, 0x80, 0x80, 0xff},
	"silver":      {0xc0, 0xc0, 0xc0, 0xff},
	"maroon":      {0x80, 0x00, 0x00, 0xff},
	"olive":       {0x80, 0x80, 0x00, 0xff},
	"navy":        {0x00, 0x00, 0x80, 0xff},
	"purple":      {0x80, 0x00, 0x80, 0xff},
	"teal":        {0x00, 0x80, 0x80, 0xff},
	"orange":      {0xff, 0xa5, 0x00, 0xff},
	"pink":        {0xff, 0xc0, 0xcb, 0xff},
	"gold":        {0xff, 0xd7, 0x00, 0xff},
	"transparent": {0x00, 0x00, 0x00, 0x00},
}

// ParseColor accepts #rgb, #rrggbb, #rrggbbaa, rgb(r, g, b), rgba(r, g, b, a)
// and CSS basic colour names. Channel values outside 0-255 are clamped and
// rgba alpha is a fraction in [0,1]. The result is alpha-premultiplied.
func ParseColor(value string) (color.RGBA, error) {
	s := strings.ToLower(strings.TrimSpace(value))
	if s == "" {
		return color.RGBA{0xff, 0xff, 0xff, 0xff}, nil
	}
	if c, ok := namedColors[s]; ok {
		return toRGBA(c), nil
	}

	switch {
	case strings.HasPrefix(s, "#"):
		return parseHex(s)
	case strings.HasPrefix(s, "rgba(") && strings.HasSuffix(s, ")"):
		return parseFunctional(s[5:len(s)-1], true)
	case strings.HasPrefix(s, "rgb(") && strings.HasSuffix(s, ")"):
		return parseFunctional(s[4:len(s)-1], false)
	}
	return color.RGBA{}, fmt.Errorf("unrecognised colour %q", value)
}

func parseHex(s string) (color.RGBA, error) {
	if len(s) == 9 {
		rgb, err := colorful.Hex(s[:7])
		if err != nil {
			return color.RGBA{}, fmt.Errorf("invalid hex colour %q", s)
		}
		a, err := strconv.ParseUint(s[7:], 16, 8)
		if err != nil {
			return color.RGBA{}, fmt.Errorf("invalid hex colour %q", s)
		}
		r, g, b := rgb.RGB255()
		return toRGBA(color.NRGBA{r, g, b, uint8(a)}), nil
	}
	rgb, err := colorful.Hex(s)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid hex colour %q", s)
	}
	r, g, b := rgb.RGB255()
	return toRGBA(color.NRGBA{r, g, b, 0xff}), nil
}

func parseFunctional(body string, alpha bool) (color.RGBA, error) {
	parts := strings.Split(body, ",")
	want := 3
	if alpha {
		want = 4
	}
	if len(parts) != want {
		return color.RGBA{}, fmt.Errorf("expected %d components, got %d", want, len(parts))
	}
	var channels [3]uint8
	for i := range 3 {
		v, err := strconv.ParseFloat(strings.TrimSpace(parts[i]), 64)
		if err != nil || math.IsNaN(v) {
			return color.RGBA{}, fmt.Errorf("invalid colour component %q", strings.TrimSpace(parts[i]))
		}
		channels[i] = uint8(math.Max(0, math.Min(255, math.Trunc(v))))
	}
	a := uint8(0xff)
	if alpha {
		v, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64)
		if err != nil || math.IsNaN(v) {
			return color.RGBA{}, fmt.Errorf("invalid alpha %q", strings.TrimSpace(parts[3]))
		}
		a = uint8(math.Round(math.Max(0, math.Min(1, v)) * 255))
	}
	return toRGBA(color.NRGBA{channels[0], channels[1], channels[2], a}), nil
}

func toRGBA(c color.NRGBA) color.RGBA {
	return color.RGBAModel.Convert(c).(color.RGBA)
}
