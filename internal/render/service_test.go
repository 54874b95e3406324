package render

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/gif"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autogif/internal/effects"
	"autogif/internal/frames"
	"autogif/internal/layout"
	"autogif/internal/paths"
	"autogif/internal/timing"
	"autogif/pkg/transcript"
)

type blankOpener struct {
	width, height, total int
	calls                atomic.Int32
}

func (o *blankOpener) open(_ context.Context, _ string, fps float64, _ int) (frames.Source, error) {
	o.calls.Add(1)
	return frames.NewBlankSource(o.width, o.height, o.total, fps, background), nil
}

func newTestService(t *testing.T, opener *blankOpener, registry *effects.Registry) (*Service, string) {
	t.Helper()
	root := t.TempDir()
	pp, err := paths.Resolve(root)
	require.NoError(t, err)
	return NewService(pp, registry, opener.open, zerolog.Nop()), root
}

func testRequest(root, effect string, words []transcript.Word) Request {
	return Request{
		Name:       "clip",
		Source:     filepath.Join(root, "clip.mp4"),
		Words:      words,
		OutputPath: filepath.Join(root, "out", "clip.gif"),
		Settings: Settings{
			FPS:       10,
			Captions:  timing.DefaultPolicy(),
			Layout:    layout.DefaultPolicy(),
			Font:      layout.FontSpec{Size: 24, MinSize: 12},
			Style:     effects.Style{Fill: white, Outline: black, OutlineWidth: 1},
			Effect:    effect,
			Quantizer: "median-cut",
			Colors:    64,
		},
	}
}

func decodeGIF(t *testing.T, path string) *gif.GIF {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	g, err := gif.DecodeAll(bytes.NewReader(data))
	require.NoError(t, err)
	return g
}

func TestRenderOneSingleCaptionSpansClip(t *testing.T) {
	opener := &blankOpener{width: 160, height: 90, total: 10}
	svc, root := newTestService(t, opener, nil)
	req := testRequest(root, "none", []transcript.Word{
		{Text: "hello", Start: 0, End: 0.5},
		{Text: "world", Start: 0.5, End: 1.0},
	})

	res, err := svc.RenderOne(context.Background(), req, false)
	require.NoError(t, err)
	assert.Equal(t, 10, res.FrameCount)
	assert.Equal(t, 1, res.CaptionCount)
	assert.Equal(t, 160, res.Width)
	assert.Equal(t, 90, res.Height)
	assert.Zero(t, res.FallbackFrames)

	g := decodeGIF(t, res.OutputPath)
	require.Len(t, g.Image, 10)
	for i, delay := range g.Delay {
		assert.Equal(t, 10, delay, "frame %d", i)
	}
	assert.Equal(t, 0, g.LoopCount)
}

func TestRenderOneUnknownEffectBeforeFrames(t *testing.T) {
	opener := &blankOpener{width: 64, height: 36, total: 5}
	svc, root := newTestService(t, opener, nil)
	req := testRequest(root, "sparkles", []transcript.Word{{Text: "hi", Start: 0, End: 0.2}})

	_, err := svc.RenderOne(context.Background(), req, false)
	var unknown *effects.UnknownEffectError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "sparkles", unknown.Slug)
	assert.Zero(t, opener.calls.Load())
	_, statErr := os.Stat(req.OutputPath)
	assert.True(t, errors.Is(statErr, os.ErrNotExist))
}

func TestRenderOneEmptyClip(t *testing.T) {
	opener := &blankOpener{width: 64, height: 36, total: 0}
	svc, root := newTestService(t, opener, nil)
	req := testRequest(root, "typewriter", []transcript.Word{{Text: "nothing", Start: 0, End: 1}})

	res, err := svc.RenderOne(context.Background(), req, false)
	require.NoError(t, err)
	assert.Zero(t, res.FrameCount)
	assert.Equal(t, 1, res.HiddenCaptions)

	data, err := os.ReadFile(res.OutputPath)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("GIF89a")))
	assert.Equal(t, byte(0x3B), data[len(data)-1])
}

func TestRenderOneNoWordsPassesFramesThrough(t *testing.T) {
	opener := &blankOpener{width: 64, height: 36, total: 6}
	svc, root := newTestService(t, opener, nil)
	req := testRequest(root, "glitch", nil)

	res, err := svc.RenderOne(context.Background(), req, false)
	require.NoError(t, err)
	assert.Equal(t, 6, res.FrameCount)
	assert.Zero(t, res.CaptionCount)
	assert.Len(t, decodeGIF(t, res.OutputPath).Image, 6)
}

func TestRenderOneValidation(t *testing.T) {
	words := []transcript.Word{{Text: "hi", Start: 0, End: 0.2}}
	cases := []struct {
		name  string
		field string
		edit  func(*Request)
	}{
		{"fps", "fps", func(r *Request) { r.Settings.FPS = 0 }},
		{"intensity", "intensity", func(r *Request) { v := 101; r.Settings.Intensity = &v }},
		{"negative intensity", "intensity", func(r *Request) { v := -1; r.Settings.Intensity = &v }},
		{"height", "height", func(r *Request) { r.Settings.Height = -2 }},
		{"source", "source", func(r *Request) { r.Source = " " }},
		{"output", "output", func(r *Request) { r.OutputPath = "" }},
		{"quantizer", "quantizer", func(r *Request) { r.Settings.Quantizer = "octree" }},
		{"font", "font", func(r *Request) { r.Settings.Font.Path = "/no/such/font.ttf" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			opener := &blankOpener{width: 64, height: 36, total: 3}
			svc, root := newTestService(t, opener, nil)
			req := testRequest(root, "none", words)
			tc.edit(&req)

			_, err := svc.RenderOne(context.Background(), req, false)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.field, verr.Field)
			assert.Zero(t, opener.calls.Load())
		})
	}
}

func TestRenderOneMissingFontIsFontNotFound(t *testing.T) {
	opener := &blankOpener{width: 64, height: 36, total: 3}
	svc, root := newTestService(t, opener, nil)
	req := testRequest(root, "none", nil)
	req.Settings.Font.Path = filepath.Join(root, "missing.ttf")

	_, err := svc.RenderOne(context.Background(), req, false)
	assert.ErrorIs(t, err, layout.ErrFontNotFound)
}

func TestRenderOneMalformedTranscript(t *testing.T) {
	opener := &blankOpener{width: 64, height: 36, total: 3}
	svc, root := newTestService(t, opener, nil)
	req := testRequest(root, "none", []transcript.Word{{Text: "late", Start: 2, End: 1}})

	_, err := svc.RenderOne(context.Background(), req, false)
	var terr *timing.TimingError
	require.ErrorAs(t, err, &terr)
	assert.Zero(t, opener.calls.Load())
}

func TestRenderOneSkipsUnchangedOutput(t *testing.T) {
	opener := &blankOpener{width: 64, height: 36, total: 4}
	svc, root := newTestService(t, opener, nil)
	req := testRequest(root, "bounce", []transcript.Word{{Text: "again", Start: 0, End: 0.4}})

	first, err := svc.RenderOne(context.Background(), req, false)
	require.NoError(t, err)
	assert.False(t, first.Skipped)

	second, err := svc.RenderOne(context.Background(), req, false)
	require.NoError(t, err)
	assert.True(t, second.Skipped)
	assert.Equal(t, "up to date", second.Reason)

	forced, err := svc.RenderOne(context.Background(), req, true)
	require.NoError(t, err)
	assert.False(t, forced.Skipped)
	assert.Equal(t, "forced", forced.Reason)

	v := 90
	req.Settings.Intensity = &v
	changed, err := svc.RenderOne(context.Background(), req, false)
	require.NoError(t, err)
	assert.False(t, changed.Skipped)
	assert.Equal(t, "input changed", changed.Reason)

	_, err = os.Stat(svc.Paths.StateFile)
	assert.NoError(t, err)
}

func TestRenderOneCancelledLeavesNoOutput(t *testing.T) {
	opener := &blankOpener{width: 64, height: 36, total: 50}
	svc, root := newTestService(t, opener, nil)
	req := testRequest(root, "none", []transcript.Word{{Text: "stop", Start: 0, End: 5}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.RenderOne(ctx, req, false)
	require.ErrorIs(t, err, context.Canceled)

	_, statErr := os.Stat(req.OutputPath)
	assert.True(t, errors.Is(statErr, os.ErrNotExist))
	entries, _ := os.ReadDir(filepath.Dir(req.OutputPath))
	assert.Empty(t, entries, "temporary files are removed")
}

func TestRenderOneFallbackStillWritesEveryFrame(t *testing.T) {
	registry := effects.NewRegistry()
	require.NoError(t, registry.Register(testEffect{
		desc: effects.Descriptor{Slug: "broken", DisplayName: "Broken", DefaultIntensity: 50, Capability: effects.Overlay},
		fn: func(*image.RGBA, effects.Input) error {
			return errors.New("no luck")
		},
	}))
	opener := &blankOpener{width: 120, height: 60, total: 8}
	svc, root := newTestService(t, opener, registry)
	req := testRequest(root, "broken", []transcript.Word{{Text: "fallback", Start: 0, End: 0.5}})

	res, err := svc.RenderOne(context.Background(), req, false)
	require.NoError(t, err)
	assert.Equal(t, 8, res.FrameCount)
	assert.Equal(t, 5, res.FallbackFrames)
	assert.Contains(t, Describe(res), "plain-text fallback")
}

type recordingReporter struct {
	mu        sync.Mutex
	started   []string
	completed []string
	frames    int
}

func (r *recordingReporter) Start(req Request) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, req.Name)
}

func (r *recordingReporter) Frame(int, int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames++
}

func (r *recordingReporter) Complete(res Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed = append(r.completed, res.Name)
}

func TestRenderConcurrentResultsInOrder(t *testing.T) {
	opener := &blankOpener{width: 80, height: 45, total: 6}
	svc, root := newTestService(t, opener, nil)

	slugs := []string{"none", "wave", "bogus", "typewriter"}
	requests := make([]Request, len(slugs))
	for i, slug := range slugs {
		req := testRequest(root, slug, []transcript.Word{{Text: "batch " + slug, Start: 0, End: 0.4}})
		req.Index = i
		req.Name = slug
		req.OutputPath = filepath.Join(root, "out", slug+".gif")
		requests[i] = req
	}

	reporter := &recordingReporter{}
	results := svc.Render(context.Background(), requests, Options{Concurrency: 3, Reporter: reporter})
	require.Len(t, results, len(slugs))
	for i, res := range results {
		assert.Equal(t, i, res.Index)
		assert.Equal(t, slugs[i], res.Name)
		if slugs[i] == "bogus" {
			assert.Error(t, res.Err)
			continue
		}
		require.NoError(t, res.Err, slugs[i])
		assert.Equal(t, 6, res.FrameCount)
	}
	assert.ElementsMatch(t, slugs, reporter.started)
	assert.ElementsMatch(t, slugs, reporter.completed)
	assert.Equal(t, 18, reporter.frames)
}

func TestDescribe(t *testing.T) {
	assert.Contains(t, Describe(Result{Name: "a", Err: errors.New("boom")}), "failed: boom")
	assert.Contains(t, Describe(Result{Name: "a", Skipped: true, Reason: "up to date"}), "skipped (up to date)")
	assert.Contains(t, Describe(Result{Name: "a", FrameCount: 3, CaptionCount: 1, OutputPath: "/x.gif"}), "3 frames, 1 captions -> /x.gif")
}
