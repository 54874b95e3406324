package effects

import (
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	"math/rand/v2"

	"golang.org/x/image/font"

	"autogif/internal/layout"
)

// ContractVersion is bumped whenever Input changes shape or meaning.
const ContractVersion = 1

// Capability tells the compositor what the text layer holds when Transform
// is called.
type Capability int

const (
	// Overlay effects receive a layer with the caption already drawn and
	// modify its pixels.
	Overlay Capability = iota
	// Drawing effects receive a blank layer and draw the caption themselves.
	Drawing
)

func (c Capability) String() string {
	switch c {
	case Overlay:
		return "overlay"
	case Drawing:
		return "drawing"
	default:
		return fmt.Sprintf("capability(%d)", int(c))
	}
}

// MarshalText renders the capability by name.
func (c Capability) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Descriptor is the immutable metadata of an effect.
type Descriptor struct {
	Slug             string     `json:"slug"`
	DisplayName      string     `json:"display_name"`
	DefaultIntensity int        `json:"default_intensity"`
	Capability       Capability `json:"capability"`
	// WordLevel effects can be applied to each word of a caption on its own.
	WordLevel bool `json:"word_level"`
	// Travel is how far, in pixels at a 480 pixel tall frame, the effect may
	// move text from its laid out position. The compositor keeps the block
	// that far inside the frame.
	Travel int `json:"travel,omitempty"`
	// Rise is like Travel for effects that only lift text upwards.
	Rise        int    `json:"rise,omitempty"`
	Description string `json:"description,omitempty"`
}

// Style is the caption styling every effect honours unless it deliberately
// recolours text.
type Style struct {
	Fill         color.RGBA
	Outline      color.RGBA
	OutlineWidth int
}

// Input carries everything an effect may read for one frame. Effects must not
// retain Block, Face or Faces beyond the call.
type Input struct {
	Version int
	Text    string
	Block   layout.Block
	Anchor  image.Point
	// Local is the frame index relative to the caption start. All animation
	// progress derives from it.
	Local         int
	CaptionFrames int
	CaptionIndex  int
	// Frame is the global frame index, used only for error reporting.
	Frame     int
	Intensity int
	FPS       float64
	Face      font.Face
	Faces     *layout.Faces
	Style     Style
	Seed      uint64
}

// Level returns the clamped intensity scaled to [0,1].
func (in Input) Level() float64 {
	return float64(ClampIntensity(in.Intensity)) / 100
}

// Seconds returns the caption-local time of the frame.
func (in Input) Seconds() float64 {
	if in.FPS <= 0 {
		return 0
	}
	return float64(in.Local) / in.FPS
}

// Progress returns how far through the caption the frame is, in [0,1].
func (in Input) Progress() float64 {
	if in.CaptionFrames <= 1 {
		return 1
	}
	p := float64(in.Local) / float64(in.CaptionFrames-1)
	return clamp01(p)
}

// CaptionSeconds returns the caption length implied by its frame count.
func (in Input) CaptionSeconds() float64 {
	if in.FPS <= 0 {
		return 0
	}
	return float64(in.CaptionFrames) / in.FPS
}

// FrameRand returns a random stream unique to this caption and local frame.
func (in Input) FrameRand() *rand.Rand {
	return rand.New(rand.NewPCG(in.Seed, uint64(in.Local)+1))
}

// CaptionRand returns a random stream shared by every frame of the caption.
func (in Input) CaptionRand() *rand.Rand {
	return rand.New(rand.NewPCG(in.Seed, 0))
}

// Effect is a registered text animation.
type Effect interface {
	Descriptor() Descriptor
	// New returns a fresh instance for one render. Instances may keep state
	// derived from frames they have already processed.
	New() Instance
}

// Instance transforms the text layer of one frame.
type Instance interface {
	Transform(layer *image.RGBA, in Input) error
}

// InstanceFunc adapts a stateless function to Instance.
type InstanceFunc func(layer *image.RGBA, in Input) error

// Transform calls f.
func (f InstanceFunc) Transform(layer *image.RGBA, in Input) error {
	return f(layer, in)
}

type stateless struct {
	desc Descriptor
	fn   InstanceFunc
}

func (s stateless) Descriptor() Descriptor { return s.desc }
func (s stateless) New() Instance          { return s.fn }

// ClampIntensity bounds an intensity to [0,100].
func ClampIntensity(value int) int {
	if value < 0 {
		return 0
	}
	if value > 100 {
		return 100
	}
	return value
}

// SeedFor derives the per-caption random seed from the caption text and its
// index so identical inputs always animate identically.
func SeedFor(text string, index int) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	return h.Sum64() ^ (uint64(index+1) * 0x9e3779b97f4a7c15)
}

// Apply runs inst and converts failures and panics into *EffectRenderError.
func Apply(inst Instance, slug string, layer *image.RGBA, in Input) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &EffectRenderError{Slug: slug, Frame: in.Frame, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	if in.Version != ContractVersion {
		return &EffectRenderError{Slug: slug, Frame: in.Frame, Err: fmt.Errorf("unsupported input version %d", in.Version)}
	}
	if err := inst.Transform(layer, in); err != nil {
		return &EffectRenderError{Slug: slug, Frame: in.Frame, Err: err}
	}
	return nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
