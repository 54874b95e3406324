package effects

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autogif/internal/layout"
)

const (
	testWidth  = 160
	testHeight = 120
)

type fixture struct {
	faces *layout.Faces
	block layout.Block
}

func newFixture(t *testing.T, text string) fixture {
	t.Helper()
	spec := layout.FontSpec{Size: 18, MinSize: 10}
	faces, err := layout.LoadFaces(spec)
	require.NoError(t, err)
	t.Cleanup(func() { _ = faces.Close() })
	block, err := layout.NewEngine(faces, spec).Layout(text, testWidth, testHeight, layout.DefaultPolicy())
	require.NoError(t, err)
	return fixture{faces: faces, block: block}
}

func (f fixture) input(t *testing.T, local, frames, intensity int) Input {
	t.Helper()
	face, err := f.faces.Face(f.block.Size)
	require.NoError(t, err)
	text := f.block.Text()
	return Input{
		Version:       ContractVersion,
		Text:          text,
		Block:         f.block,
		Anchor:        f.block.Anchor,
		Local:         local,
		CaptionFrames: frames,
		Intensity:     intensity,
		FPS:           10,
		Face:          face,
		Faces:         f.faces,
		Style: Style{
			Fill:         color.RGBA{R: 255, G: 255, B: 255, A: 255},
			Outline:      color.RGBA{A: 255},
			OutlineWidth: 2,
		},
		Seed: SeedFor(text, 0),
	}
}

// render prepares the layer the way the compositor does and applies inst.
func render(t *testing.T, inst Instance, desc Descriptor, in Input) *image.RGBA {
	t.Helper()
	layer := image.NewRGBA(image.Rect(0, 0, testWidth, testHeight))
	if desc.Capability == Overlay {
		DrawText(layer, in.Face, in.Block, in.Style)
	}
	require.NoError(t, Apply(inst, desc.Slug, layer, in))
	return layer
}

func TestDefaultRegistryHoldsBuiltins(t *testing.T) {
	reg := Default()
	want := []string{
		"none", "bounce", "brush-stroke", "fade", "glitch", "glow", "neon",
		"rainbow", "shake", "slam", "sparkle", "typewriter", "vhs-crt", "wave",
	}
	assert.Equal(t, want, reg.Slugs())

	for _, desc := range reg.List() {
		assert.NotEmpty(t, desc.DisplayName, desc.Slug)
		assert.GreaterOrEqual(t, desc.DefaultIntensity, 0)
		assert.LessOrEqual(t, desc.DefaultIntensity, 100)
	}
	assert.Same(t, reg, Default())
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(fade{}))

	err := reg.Register(fade{})
	var dup *DuplicateSlugError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "fade", dup.Slug)
	assert.Len(t, reg.List(), 1)
}

func TestRegistryLookupUnknown(t *testing.T) {
	_, err := Default().Lookup("sparkles")
	var unknown *UnknownEffectError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "sparkles", unknown.Slug)
	assert.Contains(t, unknown.Known, "sparkle")
	assert.Contains(t, err.Error(), "sparkle")
}

func TestRegistryLookupNormalizesSlug(t *testing.T) {
	e, err := Default().Lookup("  Typewriter ")
	require.NoError(t, err)
	assert.Equal(t, "typewriter", e.Descriptor().Slug)
}

func TestRegistryFrozen(t *testing.T) {
	err := Default().Register(stateless{desc: Descriptor{Slug: "extra"}})
	assert.ErrorIs(t, err, ErrFrozen)
}

func TestRegistryValidatesDescriptor(t *testing.T) {
	reg := NewRegistry()
	assert.Error(t, reg.Register(stateless{desc: Descriptor{Slug: ""}}))
	assert.Error(t, reg.Register(stateless{desc: Descriptor{Slug: "Loud"}}))
	assert.Error(t, reg.Register(stateless{desc: Descriptor{Slug: "hot", DefaultIntensity: 101}}))
	assert.Error(t, reg.Register(nil))
	assert.Empty(t, reg.List())
}

func TestEffectsSurviveIntensityBounds(t *testing.T) {
	fx := newFixture(t, "hello world, again!")
	for _, e := range Builtins() {
		desc := e.Descriptor()
		for _, intensity := range []int{-20, 0, 1, 50, 100, 250} {
			inst := e.New()
			for local := 0; local < 30; local++ {
				in := fx.input(t, local, 30, intensity)
				layer := image.NewRGBA(image.Rect(0, 0, testWidth, testHeight))
				if desc.Capability == Overlay {
					DrawText(layer, in.Face, in.Block, in.Style)
				}
				err := Apply(inst, desc.Slug, layer, in)
				require.NoError(t, err, "%s intensity %d frame %d", desc.Slug, intensity, local)
			}
		}
	}
}

func TestEffectsAreDeterministic(t *testing.T) {
	fx := newFixture(t, "same input same output")
	for _, e := range Builtins() {
		desc := e.Descriptor()
		first, second := e.New(), e.New()
		for local := 0; local < 12; local++ {
			in := fx.input(t, local, 12, 100)
			a := render(t, first, desc, in)
			b := render(t, second, desc, in)
			require.True(t, bytes.Equal(a.Pix, b.Pix), "%s differs at frame %d", desc.Slug, local)
		}
	}
}

func TestEffectsDependOnLocalFrameOnly(t *testing.T) {
	fx := newFixture(t, "local index drives motion")
	for _, e := range Builtins() {
		desc := e.Descriptor()

		sequential := e.New()
		var last *image.RGBA
		for local := 0; local <= 7; local++ {
			last = render(t, sequential, desc, fx.input(t, local, 20, 80))
		}

		jumped := fx.input(t, 7, 20, 80)
		jumped.Frame = 9999
		direct := render(t, e.New(), desc, jumped)
		assert.True(t, bytes.Equal(last.Pix, direct.Pix), "%s depends on history or global frame", desc.Slug)
	}
}

func TestNoneLeavesLayerUntouched(t *testing.T) {
	fx := newFixture(t, "plain")
	in := fx.input(t, 3, 10, 100)
	expected := image.NewRGBA(image.Rect(0, 0, testWidth, testHeight))
	DrawText(expected, in.Face, in.Block, in.Style)

	e, err := Default().Lookup("none")
	require.NoError(t, err)
	got := render(t, e.New(), e.Descriptor(), in)
	assert.Equal(t, expected.Pix, got.Pix)
}

func TestApplyRecoversPanics(t *testing.T) {
	inst := InstanceFunc(func(*image.RGBA, Input) error {
		var m map[string]int
		m["boom"]++
		return nil
	})
	layer := image.NewRGBA(image.Rect(0, 0, 4, 4))
	err := Apply(inst, "broken", layer, Input{Version: ContractVersion, Frame: 12})

	var renderErr *EffectRenderError
	require.True(t, errors.As(err, &renderErr))
	assert.Equal(t, "broken", renderErr.Slug)
	assert.Equal(t, 12, renderErr.Frame)
}

func TestApplyWrapsErrors(t *testing.T) {
	sentinel := errors.New("nope")
	inst := InstanceFunc(func(*image.RGBA, Input) error { return sentinel })
	err := Apply(inst, "x", image.NewRGBA(image.Rect(0, 0, 1, 1)), Input{Version: ContractVersion})
	assert.ErrorIs(t, err, sentinel)
}

func TestApplyRejectsVersionMismatch(t *testing.T) {
	called := false
	inst := InstanceFunc(func(*image.RGBA, Input) error { called = true; return nil })
	err := Apply(inst, "x", image.NewRGBA(image.Rect(0, 0, 1, 1)), Input{Version: ContractVersion + 1})
	var renderErr *EffectRenderError
	assert.True(t, errors.As(err, &renderErr))
	assert.False(t, called)
}

func TestClampIntensity(t *testing.T) {
	assert.Equal(t, 0, ClampIntensity(-1))
	assert.Equal(t, 100, ClampIntensity(101))
	assert.Equal(t, 42, ClampIntensity(42))
}

func TestSeedForVariesByTextAndIndex(t *testing.T) {
	assert.Equal(t, SeedFor("a", 0), SeedFor("a", 0))
	assert.NotEqual(t, SeedFor("a", 0), SeedFor("b", 0))
	assert.NotEqual(t, SeedFor("a", 0), SeedFor("a", 1))
}
