package render

import (
	"bytes"
	"context"
	"image"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autogif/internal/effects"
	"autogif/internal/frames"
	"autogif/internal/layout"
	"autogif/internal/timing"
	"autogif/pkg/transcript"
)

// miscountedSource delivers every frame of its inner source but announces an
// estimated total that may be wrong.
type miscountedSource struct {
	frames.Source
	reported int
}

func (s miscountedSource) Info() frames.Info {
	info := s.Source.Info()
	info.TotalFrames = s.reported
	info.Estimated = true
	return info
}

func earlyLateWords() []transcript.Word {
	return []transcript.Word{
		{Text: "early", Start: 0, End: 0.4},
		{Text: "late", Start: 0.6, End: 0.9},
	}
}

func TestRenderOneShowsCaptionsPastAnUnderestimatedTotal(t *testing.T) {
	for _, reported := range []int{10, 0, 5} {
		svc, root := newTestService(t, &blankOpener{}, nil)
		svc.Open = func(_ context.Context, _ string, fps float64, _ int) (frames.Source, error) {
			return miscountedSource{Source: frames.NewBlankSource(96, 54, 10, fps, background), reported: reported}, nil
		}
		req := testRequest(root, "none", earlyLateWords())
		req.Settings.Captions.MaxWords = 1

		res, err := svc.RenderOne(context.Background(), req, false)
		require.NoError(t, err, "reported %d", reported)
		assert.Equal(t, 10, res.FrameCount, "reported %d", reported)
		assert.Equal(t, 2, res.CaptionCount, "reported %d", reported)
		assert.Zero(t, res.HiddenCaptions, "reported %d", reported)
	}
}

func TestRenderOneCountsCaptionsPastTheLastFrame(t *testing.T) {
	svc, root := newTestService(t, &blankOpener{width: 96, height: 54, total: 5}, nil)
	req := testRequest(root, "none", []transcript.Word{
		{Text: "one", Start: 0, End: 0.4},
		{Text: "two", Start: 0.6, End: 0.7},
		{Text: "three", Start: 0.8, End: 0.9},
	})
	req.Settings.Captions.MaxWords = 1

	res, err := svc.RenderOne(context.Background(), req, false)
	require.NoError(t, err)
	assert.Equal(t, 5, res.FrameCount)
	assert.Equal(t, 1, res.HiddenCaptions)
	assert.Contains(t, Describe(res), "1 hidden past the last frame")
}

func TestCompositorReportsHiddenCaptions(t *testing.T) {
	captions, err := timing.Build([]transcript.Word{
		{Text: "one", Start: 0, End: 0.4},
		{Text: "two", Start: 0.6, End: 0.7},
		{Text: "three", Start: 0.8, End: 0.9},
	}, timing.Policy{MaxWords: 1}, 10, 5)
	require.NoError(t, err)

	stats, err := newTestCompositor(t, builtin(t, "none")).Run(context.Background(), frames.NewBlankSource(96, 54, 5, 10, background), captions, &recordingSink{})
	require.NoError(t, err)
	assert.Equal(t, []int{2}, stats.Hidden)
}

func TestRenderIsByteIdenticalForEverySlug(t *testing.T) {
	slugs := append(effects.Default().Slugs(), "typewriter+glow:40", "rainbow+sparkle")
	for _, slug := range slugs {
		svc, root := newTestService(t, &blankOpener{width: 96, height: 54, total: 12}, nil)
		words := []transcript.Word{
			{Text: "same", Start: 0, End: 0.3},
			{Text: "bytes", Start: 0.3, End: 0.6},
			{Text: "again", Start: 0.6, End: 1.1},
		}
		var outputs [][]byte
		for run := range 2 {
			req := testRequest(root, slug, words)
			req.OutputPath = filepath.Join(root, "out", "run", string(rune('a'+run))+".gif")
			_, err := svc.RenderOne(context.Background(), req, true)
			require.NoError(t, err, slug)
			data, err := os.ReadFile(req.OutputPath)
			require.NoError(t, err, slug)
			outputs = append(outputs, data)
		}
		assert.True(t, bytes.Equal(outputs[0], outputs[1]), "%s renders differ between runs", slug)
	}
}

func TestRenderOneRunsAnEffectChain(t *testing.T) {
	opener := &blankOpener{width: 96, height: 54, total: 8}
	svc, root := newTestService(t, opener, nil)
	req := testRequest(root, "typewriter+glow:40", []transcript.Word{{Text: "chained", Start: 0, End: 0.6}})

	res, err := svc.RenderOne(context.Background(), req, false)
	require.NoError(t, err)
	assert.Equal(t, "typewriter+glow", res.Effect)
	assert.Equal(t, 8, res.FrameCount)
	assert.Zero(t, res.FallbackFrames)

	req.Settings.Effect = ""
	forty := 40
	req.Settings.Effects = []effects.Spec{{Slug: "fade"}, {Slug: "glow", Intensity: &forty}}
	res, err = svc.RenderOne(context.Background(), req, false)
	require.NoError(t, err)
	assert.Equal(t, "fade+glow", res.Effect)
}

func TestRenderOneRejectsBadChainsBeforeFrames(t *testing.T) {
	cases := map[string]string{
		"glow+typewriter": "effect",
		"glow+:40":        "effect",
		"glow:140":        "intensity",
		"glow+fade:-1":    "intensity",
	}
	for expr, field := range cases {
		opener := &blankOpener{width: 64, height: 36, total: 4}
		svc, root := newTestService(t, opener, nil)
		_, err := svc.RenderOne(context.Background(), testRequest(root, expr, []transcript.Word{{Text: "x", Start: 0, End: 0.2}}), false)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr, expr)
		assert.Equal(t, field, verr.Field, expr)
		assert.Zero(t, opener.calls.Load(), expr)
	}

	opener := &blankOpener{width: 64, height: 36, total: 4}
	svc, root := newTestService(t, opener, nil)
	_, err := svc.RenderOne(context.Background(), testRequest(root, "glow+bogus", []transcript.Word{{Text: "x", Start: 0, End: 0.2}}), false)
	var unknown *effects.UnknownEffectError
	require.ErrorAs(t, err, &unknown)
	assert.Zero(t, opener.calls.Load())
}

func TestRenderOneValidatesWordMode(t *testing.T) {
	for _, tc := range []struct{ effect, mode string }{
		{"typewriter", effects.WordModeWords},
		{"wave", effects.WordModeActive},
		{"glow", "letters"},
	} {
		opener := &blankOpener{width: 64, height: 36, total: 4}
		svc, root := newTestService(t, opener, nil)
		req := testRequest(root, tc.effect, []transcript.Word{{Text: "x", Start: 0, End: 0.2}})
		req.Settings.WordMode = tc.mode
		_, err := svc.RenderOne(context.Background(), req, false)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr, tc.effect)
		assert.Equal(t, "word mode", verr.Field)
		assert.Zero(t, opener.calls.Load())
	}
}

type wordCall struct {
	text   string
	local  int
	frames int
	seed   uint64
}

func recordingWordEffect(calls *[]wordCall) testEffect {
	return testEffect{
		desc: effects.Descriptor{Slug: "marker", DisplayName: "Marker", DefaultIntensity: 50, Capability: effects.Overlay, WordLevel: true},
		fn: func(_ *image.RGBA, in effects.Input) error {
			*calls = append(*calls, wordCall{text: in.Text, local: in.Local, frames: in.CaptionFrames, seed: in.Seed})
			return nil
		},
	}
}

func oneTwoThree(t *testing.T) []timing.Caption {
	t.Helper()
	captions, err := timing.Build([]transcript.Word{
		{Text: "one", Start: 0, End: 0.3},
		{Text: "two", Start: 0.3, End: 0.6},
		{Text: "three", Start: 0.6, End: 0.9},
	}, timing.DefaultPolicy(), 10, 10)
	require.NoError(t, err)
	require.Len(t, captions, 1)
	return captions
}

func TestCompositorAppliesWordLevelEffectsPerWord(t *testing.T) {
	var calls []wordCall
	comp := newTestCompositor(t, recordingWordEffect(&calls))
	comp.WordMode = effects.WordModeWords

	_, err := comp.Run(context.Background(), frames.NewBlankSource(240, 120, 10, 10, background), oneTwoThree(t), &recordingSink{})
	require.NoError(t, err)
	require.Len(t, calls, 27)
	assert.Equal(t, []string{"one", "two", "three"}, []string{calls[0].text, calls[1].text, calls[2].text})
	assert.NotEqual(t, calls[0].seed, calls[1].seed)
	assert.Equal(t, 0, calls[2].local)
	assert.Equal(t, 1, calls[3].local)
}

func TestCompositorActiveWordMode(t *testing.T) {
	var calls []wordCall
	comp := newTestCompositor(t, recordingWordEffect(&calls))
	comp.WordMode = effects.WordModeActive

	_, err := comp.Run(context.Background(), frames.NewBlankSource(240, 120, 10, 10, background), oneTwoThree(t), &recordingSink{})
	require.NoError(t, err)
	require.Len(t, calls, 9)
	assert.Equal(t, wordCall{text: "one", local: 0, frames: 3, seed: calls[0].seed}, calls[0])
	assert.Equal(t, wordCall{text: "two", local: 1, frames: 3, seed: calls[4].seed}, calls[4])
	assert.Equal(t, "three", calls[8].text)
	assert.Equal(t, 2, calls[8].local)
}

func TestCompositorCaptionModeIgnoresWords(t *testing.T) {
	var calls []wordCall
	comp := newTestCompositor(t, recordingWordEffect(&calls))

	_, err := comp.Run(context.Background(), frames.NewBlankSource(240, 120, 10, 10, background), oneTwoThree(t), &recordingSink{})
	require.NoError(t, err)
	require.Len(t, calls, 9)
	assert.Equal(t, "one two three", calls[0].text)
}

func TestCompositorRainbowPerWordDiffersFromCaption(t *testing.T) {
	render := func(mode string) *image.RGBA {
		comp := newTestCompositor(t, builtin(t, "rainbow"))
		comp.WordMode = mode
		sink := &recordingSink{}
		_, err := comp.Run(context.Background(), frames.NewBlankSource(240, 120, 10, 10, background), oneTwoThree(t), sink)
		require.NoError(t, err)
		return sink.frames[0]
	}
	caption := render(effects.WordModeCaption)
	words := render(effects.WordModeWords)
	assert.False(t, untouched(words))
	assert.NotEqual(t, caption.Pix, words.Pix)
}

func TestCompositorAppliesChainInOrder(t *testing.T) {
	var (
		mu    sync.Mutex
		order []string
	)
	step := func(slug string, capability effects.Capability, intensity int) effects.Step {
		e := testEffect{
			desc: effects.Descriptor{Slug: slug, DisplayName: slug, DefaultIntensity: 50, Capability: capability},
			fn: func(_ *image.RGBA, in effects.Input) error {
				mu.Lock()
				defer mu.Unlock()
				order = append(order, slug+":"+string(rune('0'+in.Intensity/10)))
				return nil
			},
		}
		return effects.Step{Effect: e, Descriptor: e.desc, Intensity: intensity}
	}
	comp := newTestCompositor(t, builtin(t, "none"))
	comp.Steps = []effects.Step{step("draw", effects.Drawing, 30), step("tint", effects.Overlay, 70)}

	words := []transcript.Word{{Text: "chain", Start: 0, End: 0.1}}
	captions, err := timing.Build(words, timing.DefaultPolicy(), 10, 1)
	require.NoError(t, err)
	_, err = comp.Run(context.Background(), frames.NewBlankSource(120, 60, 1, 10, background), captions, &recordingSink{})
	require.NoError(t, err)
	assert.Equal(t, []string{"draw:3", "tint:7"}, order)
}

func TestCompositorKeepsBounceBelowTheTopEdge(t *testing.T) {
	words := []transcript.Word{{Text: "hop", Start: 0, End: 0.1}}
	captions, err := timing.Build(words, timing.DefaultPolicy(), 10, 1)
	require.NoError(t, err)

	bounce := builtin(t, "bounce")
	comp := newTestCompositor(t, bounce)
	comp.Policy.Position = layout.PositionTop
	top, bottom := travelEdges([]effects.Step{{Effect: bounce, Descriptor: bounce.Descriptor()}})
	assert.GreaterOrEqual(t, top, 150)

	layouts, err := comp.layoutAll(context.Background(), captions, 320, 240, top, bottom, false)
	require.NoError(t, err)
	rise := int(math.Ceil(float64(top) * 240 / 480))
	assert.GreaterOrEqual(t, layouts[0].block.Bounds.Min.Y, rise)
}

type capturingPreview struct {
	mu      sync.Mutex
	frames  int
	closed  bool
	aborted bool
}

func (p *capturingPreview) WriteFrame(image.Image) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frames++
	return nil
}

func (p *capturingPreview) Close() error { p.closed = true; return nil }
func (p *capturingPreview) Abort() error { p.aborted = true; return nil }

func TestRenderOneWritesPreview(t *testing.T) {
	svc, root := newTestService(t, &blankOpener{width: 96, height: 54, total: 7}, nil)
	preview := &capturingPreview{}
	var opened string
	svc.Preview = func(_ context.Context, path string, w, h int, fps float64) (PreviewSink, error) {
		opened = path
		assert.Equal(t, [2]int{96, 54}, [2]int{w, h})
		assert.Equal(t, 10.0, fps)
		return preview, nil
	}
	req := testRequest(root, "wave", []transcript.Word{{Text: "preview", Start: 0, End: 0.5}})
	req.PreviewPath = filepath.Join(root, "out", "clip.mp4")

	res, err := svc.RenderOne(context.Background(), req, false)
	require.NoError(t, err)
	assert.Equal(t, req.PreviewPath, opened)
	assert.Equal(t, req.PreviewPath, res.PreviewPath)
	assert.Equal(t, 7, preview.frames)
	assert.True(t, preview.closed)
	assert.False(t, preview.aborted)

	// The preview file was never written by the fake, so the render is not
	// skipped.
	again, err := svc.RenderOne(context.Background(), req, false)
	require.NoError(t, err)
	assert.False(t, again.Skipped)
}

func TestRenderOneAbortsPreviewOnCancel(t *testing.T) {
	svc, root := newTestService(t, &blankOpener{width: 64, height: 36, total: 50}, nil)
	preview := &capturingPreview{}
	svc.Preview = func(context.Context, string, int, int, float64) (PreviewSink, error) { return preview, nil }
	req := testRequest(root, "none", []transcript.Word{{Text: "stop", Start: 0, End: 5}})
	req.PreviewPath = filepath.Join(root, "out", "clip.mp4")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.RenderOne(ctx, req, false)
	require.ErrorIs(t, err, context.Canceled)
	assert.True(t, preview.aborted)
	assert.False(t, preview.closed)
}

func TestAlignTotal(t *testing.T) {
	captions := []timing.Caption{{Start: 0, End: 0.4}, {Start: 0.6, End: 0.9}}
	assert.Equal(t, 10, alignTotal(frames.Info{TotalFrames: 5, Estimated: true}, captions, 10))
	assert.Equal(t, 10, alignTotal(frames.Info{}, captions, 10))
	assert.Equal(t, 40, alignTotal(frames.Info{TotalFrames: 40, Estimated: true}, captions, 10))
	assert.Equal(t, 5, alignTotal(frames.Info{TotalFrames: 5}, captions, 10))
	assert.Equal(t, 0, alignTotal(frames.Info{}, nil, 10))
}
