package effects

import "image"

func newNone() Effect {
	return stateless{
		desc: Descriptor{
			Slug:             "none",
			DisplayName:      "None",
			DefaultIntensity: 0,
			Capability:       Overlay,
			Description:      "Plain text with outline.",
		},
		fn: func(*image.RGBA, Input) error { return nil },
	}
}
