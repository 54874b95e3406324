package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"autogif/internal/effects"
	"autogif/internal/encode"
	"autogif/internal/frames"
	"autogif/internal/layout"
	"autogif/internal/paths"
	"autogif/internal/render/state"
	"autogif/internal/timing"
	"autogif/pkg/transcript"
)

// SourceOpener opens the frames of a clip decoded at fps and scaled to
// height. A height of zero keeps the native size.
type SourceOpener func(ctx context.Context, path string, fps float64, height int) (frames.Source, error)

// PreviewSink receives the same frames as the GIF encoder.
type PreviewSink interface {
	FrameSink
	Close() error
	Abort() error
}

// PreviewOpener starts a preview of width x height frames at fps.
type PreviewOpener func(ctx context.Context, path string, width, height int, fps float64) (PreviewSink, error)

// Service coordinates caption rendering for a project.
type Service struct {
	Paths    paths.ProjectPaths
	Registry *effects.Registry
	Open     SourceOpener
	Preview  PreviewOpener
	Logger   zerolog.Logger
	// LayoutWorkers bounds the parallel layout precompute of each render.
	LayoutWorkers int

	stateMu sync.Mutex
	state   *state.RenderState
}

// Options controls render execution behaviour.
type Options struct {
	Concurrency int
	Force       bool
	Reporter    ProgressReporter
}

// Result captures the outcome of a render attempt.
type Result struct {
	Index          int           `json:"index"`
	Name           string        `json:"name"`
	OutputPath     string        `json:"output_path"`
	Effect         string        `json:"effect"`
	Intensity      int           `json:"intensity"`
	Width          int           `json:"width"`
	Height         int           `json:"height"`
	FrameCount     int           `json:"frame_count"`
	CaptionCount   int           `json:"caption_count"`
	FallbackFrames int           `json:"fallback_frames"`
	HiddenCaptions int           `json:"hidden_captions"`
	PreviewPath    string        `json:"preview_path,omitempty"`
	Skipped        bool          `json:"skipped"`
	Reason         string        `json:"reason,omitempty"` // Why the output was rendered or skipped (from state.Reason* constants)
	Elapsed        time.Duration `json:"elapsed_ns"`
	Err            error         `json:"-"`
}

// ProgressReporter receives notifications as requests move through the render
// pipeline.
type ProgressReporter interface {
	Start(req Request)
	// Frame reports frames written so far for the request with Index index.
	Frame(index, done, total int)
	Complete(result Result)
}

// NewService prepares a renderer bound to a project. A nil opener decodes
// with ffmpeg found on PATH.
func NewService(pp paths.ProjectPaths, registry *effects.Registry, opener SourceOpener, logger zerolog.Logger) *Service {
	if registry == nil {
		registry = effects.Default()
	}
	if opener == nil {
		opener = FFmpegOpener(frames.FFmpegOptions{})
	}
	return &Service{
		Paths:         pp,
		Registry:      registry,
		Open:          opener,
		Preview:       FFmpegPreview(frames.FFmpegOptions{}),
		Logger:        logger.With().Str("component", "render").Logger(),
		LayoutWorkers: 4,
	}
}

// FFmpegOpener opens video files through ffmpeg and directories as image
// sequences.
func FFmpegOpener(base frames.FFmpegOptions) SourceOpener {
	return func(ctx context.Context, path string, fps float64, height int) (frames.Source, error) {
		opts := base
		opts.FPS = fps
		opts.Height = height
		return frames.Open(ctx, path, opts)
	}
}

// FFmpegPreview writes MP4 previews with ffmpeg.
func FFmpegPreview(base frames.FFmpegOptions) PreviewOpener {
	return func(ctx context.Context, path string, width, height int, fps float64) (PreviewSink, error) {
		return frames.NewPreviewWriter(ctx, path, width, height, fps, base)
	}
}

// Render executes the provided requests with bounded concurrency. Results are
// returned in request order.
func (s *Service) Render(ctx context.Context, requests []Request, opts Options) []Result {
	if s == nil {
		return []Result{{
			Err: errors.New("render service is nil"),
		}}
	}

	results := make([]Result, len(requests))

	if ctx == nil {
		ctx = context.Background()
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	var (
		wg  sync.WaitGroup
		sem = make(chan struct{}, concurrency)
	)

	for i, req := range requests {
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			if opts.Reporter != nil {
				opts.Reporter.Start(req)
			}
			res, _ := s.renderOne(ctx, req, opts)
			results[i] = res
			if opts.Reporter != nil {
				opts.Reporter.Complete(res)
			}
		}()
	}

	wg.Wait()
	return results
}

// RenderOne renders a single request. Configuration problems surface as
// *ValidationError or *effects.UnknownEffectError before any frame is read.
func (s *Service) RenderOne(ctx context.Context, req Request, force bool) (Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	return s.renderOne(ctx, req, Options{Force: force})
}

// prepared is a validated request ready to render.
type prepared struct {
	steps     []effects.Step
	wordMode  string
	quantizer encode.Quantizer
	captions  []timing.Caption
	faces     *layout.Faces
}

func (s *Service) renderOne(ctx context.Context, req Request, opts Options) (Result, error) {
	started := time.Now()
	result := Result{
		Index:      req.Index,
		Name:       req.Label(),
		OutputPath: req.OutputPath,
		Effect:     req.Settings.Effect,
	}
	fail := func(err error) (Result, error) {
		result.Err = err
		result.Elapsed = time.Since(started)
		return result, err
	}
	logger := s.Logger.With().Str("output", req.OutputPath).Logger()

	prep, err := s.prepare(req)
	if err != nil {
		return fail(err)
	}
	defer prep.faces.Close()
	result.Effect = effects.Slugs(prep.steps)
	result.Intensity = prep.steps[0].Intensity
	result.CaptionCount = len(prep.captions)

	src, err := s.Open(ctx, req.Source, req.Settings.FPS, req.Settings.Height)
	if err != nil {
		return fail(err)
	}
	defer src.Close()
	info := src.Info()
	result.Width, result.Height = info.Width, info.Height

	outputPath, err := filepath.Abs(req.OutputPath)
	if err != nil {
		return fail(invalid("output", "%v", err))
	}
	result.OutputPath = outputPath
	previewPath := ""
	if req.PreviewPath != "" {
		if previewPath, err = filepath.Abs(req.PreviewPath); err != nil {
			return fail(invalid("preview", "%v", err))
		}
		result.PreviewPath = previewPath
	}

	inputHash := state.HashJSON(hashInput{
		Version:     effects.ContractVersion,
		Words:       req.Words,
		Settings:    req.Settings,
		Chain:       chainSpecs(prep.steps),
		WordMode:    prep.wordMode,
		Preview:     previewPath != "",
		Fingerprint: info.Fingerprint,
	})
	decision := s.detect(outputPath, inputHash, opts.Force)
	if decision.Action == state.ActionSkip && previewPath != "" && !fileExists(previewPath) {
		decision = state.Decision{Action: state.ActionRender, Reason: state.ReasonOutputMissing}
	}
	result.Reason = decision.Reason
	if decision.Action == state.ActionSkip {
		result.Skipped = true
		result.Elapsed = time.Since(started)
		logger.Info().Str("reason", decision.Reason).Msg("output up to date, skipping")
		return result, nil
	}

	fps := info.FrameRate
	if fps <= 0 {
		fps = req.Settings.FPS
	}
	captions, err := timing.Align(prep.captions, fps, alignTotal(info, prep.captions, fps))
	if err != nil {
		return fail(err)
	}

	logger.Info().
		Str("source", req.Source).
		Str("effect", result.Effect).
		Int("intensity", result.Intensity).
		Str("word_mode", prep.wordMode).
		Int("captions", len(captions)).
		Int("frames_estimate", info.TotalFrames).
		Bool("estimated", info.Estimated).
		Msg("render started")

	out, err := encode.CreateAtomic(outputPath)
	if err != nil {
		return fail(err)
	}
	enc, err := encode.NewEncoder(out, info.Width, info.Height, encode.Options{
		FPS:       fps,
		LoopCount: req.Settings.Loop,
		Quantizer: prep.quantizer,
		Dither:    req.Settings.Dither,
	})
	if err != nil {
		_ = out.Abort()
		return fail(err)
	}

	var (
		sink    FrameSink = enc
		preview PreviewSink
	)
	if previewPath != "" {
		opener := s.Preview
		if opener == nil {
			opener = FFmpegPreview(frames.FFmpegOptions{})
		}
		preview, err = opener(ctx, previewPath, info.Width, info.Height, fps)
		if err != nil {
			_ = out.Abort()
			return fail(err)
		}
		sink = teeSink{enc, preview}
	}
	abort := func() {
		_ = out.Abort()
		if preview != nil {
			_ = preview.Abort()
		}
	}

	comp := &Compositor{
		Engine:   layout.NewEngine(prep.faces, req.Settings.Font),
		Policy:   req.Settings.Layout,
		Steps:    prep.steps,
		WordMode: prep.wordMode,
		Style:    req.Settings.Style,
		Workers:  s.LayoutWorkers,
		Logger:   logger,
	}
	if opts.Reporter != nil {
		comp.Progress = func(done, total int) { opts.Reporter.Frame(req.Index, done, total) }
	}

	stats, err := comp.Run(ctx, src, captions, sink)
	result.FrameCount = stats.Frames
	result.FallbackFrames = stats.FallbackFrames
	result.HiddenCaptions = len(stats.Hidden)
	if err != nil {
		abort()
		logger.Error().Err(err).Int("frames", stats.Frames).Msg("render failed")
		return fail(err)
	}
	if err := enc.Close(); err != nil {
		abort()
		return fail(err)
	}
	if preview != nil {
		if err := preview.Close(); err != nil {
			_ = out.Abort()
			return fail(err)
		}
	}
	if err := out.Commit(); err != nil {
		return fail(err)
	}
	result.FrameCount = enc.Count()
	result.Elapsed = time.Since(started)

	s.record(outputPath, state.OutputState{
		InputHash:  inputHash,
		RenderedAt: time.Now().UTC(),
		SourcePath: req.Source,
		Effect:     result.Effect,
		FrameCount: result.FrameCount,
	}, logger)

	logger.Info().
		Int("frames", result.FrameCount).
		Int("fallback_frames", result.FallbackFrames).
		Int("hidden_captions", result.HiddenCaptions).
		Dur("elapsed", result.Elapsed).
		Msg("render complete")
	return result, nil
}

// prepare validates the request and resolves everything needed before the
// source is opened.
func (s *Service) prepare(req Request) (prepared, error) {
	set := req.Settings
	registry := s.Registry
	if registry == nil {
		registry = effects.Default()
	}

	chain, err := set.Chain()
	if err != nil {
		return prepared{}, &ValidationError{Field: "effect", Err: err}
	}
	steps, err := registry.Resolve(chain, set.Intensity)
	if err != nil {
		var unknown *effects.UnknownEffectError
		var ierr *effects.IntensityError
		switch {
		case errors.As(err, &unknown):
			return prepared{}, err
		case errors.As(err, &ierr):
			return prepared{}, invalid("intensity", "%s: must be between 0 and 100 (got %d)", ierr.Slug, ierr.Value)
		default:
			return prepared{}, &ValidationError{Field: "effect", Err: err}
		}
	}
	wordMode, err := effects.ResolveWordMode(set.WordMode, steps[0].Descriptor)
	if err != nil {
		return prepared{}, &ValidationError{Field: "word mode", Err: err}
	}
	if set.FPS <= 0 || math.IsNaN(set.FPS) || math.IsInf(set.FPS, 0) {
		return prepared{}, invalid("fps", "must be a positive number (got %v)", set.FPS)
	}
	if set.Height < 0 {
		return prepared{}, invalid("height", "must not be negative (got %d)", set.Height)
	}
	if set.Loop < encode.PlayOnce || set.Loop > math.MaxUint16 {
		return prepared{}, invalid("loop", "must be -1, 0 or a repeat count (got %d)", set.Loop)
	}
	if strings.TrimSpace(req.Source) == "" {
		return prepared{}, invalid("source", "no video or frame directory given")
	}
	if strings.TrimSpace(req.OutputPath) == "" {
		return prepared{}, invalid("output", "no output path given")
	}
	if set.Style.OutlineWidth < 0 {
		return prepared{}, invalid("outline width", "must not be negative (got %d)", set.Style.OutlineWidth)
	}
	quantizer, err := encode.ParseQuantizer(set.Quantizer, set.Colors)
	if err != nil {
		return prepared{}, &ValidationError{Field: "quantizer", Err: err}
	}

	captions, err := timing.Group(req.Words, set.Captions)
	if err != nil {
		return prepared{}, err
	}

	faces, err := layout.LoadFaces(set.Font)
	if err != nil {
		return prepared{}, &ValidationError{Field: "font", Err: err}
	}

	return prepared{
		steps:     steps,
		wordMode:  wordMode,
		quantizer: quantizer,
		captions:  captions,
		faces:     faces,
	}, nil
}

// alignTotal is the frame count captions are aligned against. An estimated
// or missing total is raised to cover the last caption so that a source
// delivering more frames than it announced still shows every caption.
func alignTotal(info frames.Info, captions []timing.Caption, fps float64) int {
	total := info.TotalFrames
	if (!info.Estimated && total > 0) || len(captions) == 0 {
		return total
	}
	last := captions[len(captions)-1]
	return max(total, timing.FrameCount(last.End, fps)+1)
}

func chainSpecs(steps []effects.Step) []effects.Spec {
	specs := make([]effects.Spec, len(steps))
	for i, st := range steps {
		specs[i] = effects.Spec{Slug: st.Descriptor.Slug, Intensity: &st.Intensity}
	}
	return specs
}

// teeSink writes every frame to the GIF encoder and the preview.
type teeSink struct {
	gif     FrameSink
	preview FrameSink
}

func (t teeSink) WriteFrame(img image.Image) error {
	if err := t.gif.WriteFrame(img); err != nil {
		return err
	}
	return t.preview.WriteFrame(img)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// hashInput is the canonical structure hashed to detect unchanged renders.
type hashInput struct {
	Version     int               `json:"version"`
	Words       []transcript.Word `json:"words"`
	Settings    Settings          `json:"settings"`
	Chain       []effects.Spec    `json:"chain"`
	WordMode    string            `json:"word_mode"`
	Preview     bool              `json:"preview,omitempty"`
	Fingerprint string            `json:"fingerprint"`
}

func (s *Service) loadState() *state.RenderState {
	if s.state != nil {
		return s.state
	}
	if s.Paths.StateFile == "" {
		return nil
	}
	rs, _ := state.Load(s.Paths.StateFile)
	s.state = rs
	return rs
}

func (s *Service) detect(outputPath, inputHash string, force bool) state.Decision {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return state.Detect(s.loadState(), outputPath, inputHash, force)
}

func (s *Service) record(outputPath string, out state.OutputState, logger zerolog.Logger) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	rs := s.loadState()
	if rs == nil {
		return
	}
	rs.Record(outputPath, out)
	if err := rs.Save(s.Paths.StateFile); err != nil {
		logger.Warn().Err(err).Msg("could not save render state")
	}
}

func outputPathName(path string) string {
	base := filepath.Base(path)
	if base != "" && base != "." {
		return base
	}
	return path
}

// Describe returns a one line summary of a result for plain output.
func Describe(res Result) string {
	switch {
	case res.Err != nil:
		return fmt.Sprintf("%s: failed: %v", res.Name, res.Err)
	case res.Skipped:
		return fmt.Sprintf("%s: skipped (%s)", res.Name, res.Reason)
	case res.HiddenCaptions > 0:
		return fmt.Sprintf("%s: %d frames, %d captions, %d hidden past the last frame -> %s", res.Name, res.FrameCount, res.CaptionCount, res.HiddenCaptions, res.OutputPath)
	case res.FallbackFrames > 0:
		return fmt.Sprintf("%s: %d frames, %d captions, %d plain-text fallback frames -> %s", res.Name, res.FrameCount, res.CaptionCount, res.FallbackFrames, res.OutputPath)
	default:
		return fmt.Sprintf("%s: %d frames, %d captions -> %s", res.Name, res.FrameCount, res.CaptionCount, res.OutputPath)
	}
}
