package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"autogif/internal/config"
	"autogif/internal/effects"
	"autogif/internal/frames"
	"autogif/internal/paths"
	"autogif/internal/render"
	"autogif/internal/tui"
	"autogif/pkg/csvplan"
	"autogif/pkg/transcript"
)

var (
	renderVideo       string
	renderTranscript  string
	renderOut         string
	renderEffect      string
	renderIntensity   int
	renderFPS         float64
	renderHeight      int
	renderPlan        string
	renderIndexArg    []string
	renderConcurrency int
	renderForce       bool
	renderNoProgress  bool
	renderWordMode    string
	renderPreview     bool
)

func newRenderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render [index ...]",
		Short: "Render a clip and its transcript into a captioned GIF",
		Long: "Render one clip with --video and --transcript, or every row of a batch plan with --plan.\n" +
			"A clip is a video file or a directory of numbered frame images.\n" +
			"With --plan, positional arguments select rows like --index does (3, 2-5, 1,4).",
		RunE: runRender,
	}

	cmd.Flags().StringVar(&renderVideo, "video", "", "Video file or frame directory to caption")
	cmd.Flags().StringVar(&renderTranscript, "transcript", "", "Word-timed transcript JSON")
	cmd.Flags().StringVarP(&renderOut, "out", "o", "", "Output GIF path (default: expand output.filename_template)")
	cmd.Flags().StringVar(&renderEffect, "effect", "", "Effect slug or chain such as typewriter+glow:40 (see `autogif effects`)")
	cmd.Flags().StringVar(&renderWordMode, "word-mode", "", "Word-level effects: auto, caption, words or active")
	cmd.Flags().BoolVar(&renderPreview, "preview", false, "Also write an MP4 preview next to each GIF (needs ffmpeg)")
	cmd.Flags().IntVar(&renderIntensity, "intensity", 0, "Effect intensity 0-100 (default: effect default)")
	cmd.Flags().Float64Var(&renderFPS, "fps", 0, "Output frame rate")
	cmd.Flags().IntVar(&renderHeight, "height", 0, "Output height in pixels, 0 keeps the source size")
	cmd.Flags().StringVar(&renderPlan, "plan", "", "CSV, TSV or YAML batch plan")
	cmd.Flags().StringSliceVar(&renderIndexArg, "index", nil, "Limit a plan render to 1-based row indexes or ranges like 2-4 (repeatable)")
	cmd.Flags().IntVar(&renderConcurrency, "concurrency", 0, "Concurrent renders (default: render.concurrency)")
	cmd.Flags().BoolVar(&renderForce, "force", false, "Re-render even if the output is up to date")
	cmd.Flags().BoolVar(&renderNoProgress, "no-progress", false, "Disable interactive progress output")

	return cmd
}

func runRender(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	pp, cfg, err := loadProject()
	if err != nil {
		return err
	}
	if err := ensureProjectDirs(pp); err != nil {
		return err
	}

	settings, err := settingsFromConfig(cfg, pp.Root)
	if err != nil {
		return err
	}
	applyRenderFlags(cmd, &settings)

	if len(args) > 0 && strings.TrimSpace(renderPlan) == "" {
		return errors.New("row indexes need --plan")
	}
	indexes := append([]string(nil), renderIndexArg...)
	for _, arg := range args {
		indexes = append(indexes, strings.Split(arg, ",")...)
	}
	requests, preflight, err := buildRenderRequests(pp, cfg, settings, indexes)
	if err != nil {
		return err
	}
	if len(requests)+len(preflight) == 0 {
		return errors.New("plan has no rows to render")
	}

	concurrency := cfg.Render.Concurrency
	if cmd.Flags().Changed("concurrency") {
		concurrency = renderConcurrency
	}

	outWriter := cmd.OutOrStdout()
	mode := tui.DetectMode(outWriter, renderNoProgress, outputJSON)

	var console io.Writer
	if mode == tui.ModePlain && verbose {
		console = cmd.ErrOrStderr()
	}
	logger, closer, err := openLogger(pp, console)
	if err != nil {
		return err
	}
	defer closer.Close()

	opener := render.FFmpegOpener(frames.FFmpegOptions{
		FFmpeg:  cfg.Tools.FFmpeg,
		FFprobe: cfg.Tools.FFprobe,
	})
	svc := render.NewService(pp, effects.Default(), opener, logger)
	svc.Preview = render.FFmpegPreview(frames.FFmpegOptions{FFmpeg: cfg.Tools.FFmpeg})

	opts := render.Options{Concurrency: concurrency, Force: renderForce}
	var results []render.Result

	switch mode {
	case tui.ModeTUI:
		fmt.Fprintf(outWriter, "Project: %s\n", pp.Root)
		model := buildRenderProgressModel(pp.Root, requests, preflight)
		err := tui.RunWithWork(ctx, outWriter, model, func(ctx context.Context, send func(tea.Msg)) {
			for _, res := range preflight {
				send(tui.RowUpdateMsg{Key: renderKey(res.Index), Fields: tui.ResultFields(res)})
			}
			opts.Reporter = tui.NewRenderReporter(send, renderKey, func(res render.Result) map[string]string {
				fields := tui.ResultFields(res)
				if res.Err == nil && !res.Skipped {
					fields["OUTPUT"] = relativeToProject(pp.Root, res.OutputPath)
				}
				return fields
			})
			results = svc.Render(ctx, requests, opts)
		})
		if err != nil {
			return err
		}
		results = mergeRenderResults(preflight, results)
		writeRenderSummary(outWriter, cmd.ErrOrStderr(), results)

	case tui.ModeJSON:
		results = mergeRenderResults(preflight, svc.Render(ctx, requests, opts))
		if err := writeRenderJSON(cmd, pp.Root, results); err != nil {
			return err
		}

	default:
		lines := &lineReporter{out: outWriter}
		for _, res := range preflight {
			lines.Complete(res)
		}
		opts.Reporter = lines
		results = mergeRenderResults(preflight, svc.Render(ctx, requests, opts))
		writeRenderSummary(outWriter, nil, results)
	}

	return renderFailure(results)
}

// settingsFromConfig converts the project configuration into render
// settings.
func settingsFromConfig(cfg config.Config, projectRoot string) (render.Settings, error) {
	layoutPolicy, err := cfg.LayoutPolicy()
	if err != nil {
		return render.Settings{}, err
	}
	style, err := cfg.TextStyle()
	if err != nil {
		return render.Settings{}, err
	}
	var intensity *int
	if cfg.Effect.Intensity != nil {
		v := *cfg.Effect.Intensity
		intensity = &v
	}
	return render.Settings{
		FPS:       cfg.Output.FPS,
		Height:    cfg.Output.Height,
		Captions:  cfg.CaptionPolicy(),
		Layout:    layoutPolicy,
		Font:      cfg.FontSpec(projectRoot),
		Style:     style,
		Effect:    cfg.Effect.Slug,
		Intensity: intensity,
		WordMode:  cfg.Effect.WordMode,
		Loop:      cfg.Output.Loop,
		Quantizer: cfg.Output.Quantizer,
		Colors:    cfg.Output.Colors,
		Dither:    cfg.Output.Dither,
	}, nil
}

func applyRenderFlags(cmd *cobra.Command, set *render.Settings) {
	flags := cmd.Flags()
	if flags.Changed("effect") {
		set.Effect = renderEffect
	}
	if flags.Changed("intensity") {
		v := renderIntensity
		set.Intensity = &v
	}
	if flags.Changed("fps") {
		set.FPS = renderFPS
	}
	if flags.Changed("height") {
		set.Height = renderHeight
	}
	if flags.Changed("word-mode") {
		set.WordMode = renderWordMode
	}
}

// previewPathFor places the MP4 preview beside the GIF.
func previewPathFor(output string) string {
	return strings.TrimSuffix(output, filepath.Ext(output)) + ".mp4"
}

// buildRenderRequests turns the command line or the batch plan into render
// requests. Rows whose transcript cannot be loaded come back as failed
// results instead of stopping the batch. indexes limits a plan to some rows.
func buildRenderRequests(pp paths.ProjectPaths, cfg config.Config, set render.Settings, indexes []string) ([]render.Request, []render.Result, error) {
	template := cfg.Output.FilenameTemplate

	if strings.TrimSpace(renderPlan) == "" {
		if strings.TrimSpace(renderVideo) == "" || strings.TrimSpace(renderTranscript) == "" {
			return nil, nil, errors.New("--video and --transcript are required unless --plan is given")
		}
		words, err := transcript.Load(renderTranscript)
		if err != nil {
			return nil, nil, err
		}
		req := render.Request{
			Index:          1,
			Source:         renderVideo,
			TranscriptPath: renderTranscript,
			Words:          words,
			OutputPath:     renderOut,
			Settings:       set,
		}
		if req.OutputPath == "" {
			req.OutputPath = render.OutputPath(pp.OutputDir, template, req)
		}
		if renderPreview {
			req.PreviewPath = previewPathFor(req.OutputPath)
		}
		return []render.Request{req}, nil, nil
	}

	if renderVideo != "" || renderTranscript != "" || renderOut != "" {
		return nil, nil, errors.New("--plan cannot be combined with --video, --transcript or --out")
	}
	planPath, err := filepath.Abs(renderPlan)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve plan path: %w", err)
	}
	rows, err := csvplan.Load(planPath)
	if err != nil {
		return nil, nil, err
	}
	rows, err = filterRowsByIndexArgs(rows, indexes)
	if err != nil {
		return nil, nil, err
	}

	base := filepath.Dir(planPath)
	requests := make([]render.Request, 0, len(rows))
	var preflight []render.Result
	for _, row := range rows {
		row = row.Resolve(base)
		req := requestForRow(row, set)
		words, err := transcript.Load(row.Transcript)
		if err != nil {
			preflight = append(preflight, render.Result{
				Index:      row.Index,
				Name:       req.Label(),
				Effect:     req.Settings.Effect,
				OutputPath: req.OutputPath,
				Err:        err,
			})
			continue
		}
		req.Words = words
		if req.OutputPath == "" {
			req.OutputPath = render.OutputPath(pp.OutputDir, template, req)
		}
		if renderPreview {
			req.PreviewPath = previewPathFor(req.OutputPath)
		}
		requests = append(requests, req)
	}
	return requests, preflight, nil
}

// requestForRow applies a plan row's per-clip overrides on top of set.
func requestForRow(row csvplan.Row, set render.Settings) render.Request {
	if row.Effect != "" {
		set.Effect = row.Effect
	}
	if row.Intensity != nil {
		v := *row.Intensity
		set.Intensity = &v
	}
	return render.Request{
		Index:          row.Index,
		Name:           row.Label(),
		Source:         row.Video,
		TranscriptPath: row.Transcript,
		OutputPath:     row.Output,
		Settings:       set,
	}
}

func renderKey(index int) string {
	return fmt.Sprintf("%03d", index)
}

var renderColumns = []tui.Column{
	{Header: "INDEX", Width: 5},
	{Header: "NAME", Width: 20},
	{Header: "EFFECT", Width: 12},
	{Header: "STATUS", Width: 10},
	{Header: "PROGRESS", Width: 20, Bar: true},
	{Header: "FRAMES", Width: 6},
	{Header: "TIME", Width: 7},
	{Header: "OUTPUT", Width: 36},
}

func buildRenderProgressModel(projectRoot string, requests []render.Request, preflight []render.Result) tui.ProgressModel {
	model := tui.NewProgressModel("autogif render", renderColumns)
	type entry struct {
		index              int
		name, effect, path string
	}
	entries := make([]entry, 0, len(requests)+len(preflight))
	for _, req := range requests {
		entries = append(entries, entry{req.Index, req.Label(), req.Settings.Effect, req.OutputPath})
	}
	for _, res := range preflight {
		entries = append(entries, entry{res.Index, res.Name, res.Effect, res.OutputPath})
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].index < entries[j].index })
	for _, e := range entries {
		model.AddRow(renderKey(e.index), []string{
			renderKey(e.index),
			e.name,
			tui.NonEmptyOrDash(e.effect),
			"pending",
			"",
			"-",
			"-",
			relativeToProject(projectRoot, e.path),
		})
	}
	return model
}

func relativeToProject(root, path string) string {
	if path == "" {
		return "-"
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(root, abs)
	if err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return abs
}

// mergeRenderResults combines preflight failures with service results,
// ordered by plan index.
func mergeRenderResults(preflight, results []render.Result) []render.Result {
	merged := make([]render.Result, 0, len(preflight)+len(results))
	merged = append(merged, preflight...)
	merged = append(merged, results...)
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Index < merged[j].Index })
	return merged
}

// lineReporter prints one line per finished render for non-interactive
// output.
type lineReporter struct {
	mu  sync.Mutex
	out io.Writer
}

func (r *lineReporter) Start(render.Request) {}

func (r *lineReporter) Frame(int, int, int) {}

func (r *lineReporter) Complete(res render.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, render.Describe(res))
}

type renderCounts struct {
	Rendered int `json:"rendered"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
	Fallback int `json:"fallback"`
	Hidden   int `json:"hidden"`
}

func countResults(results []render.Result) renderCounts {
	var c renderCounts
	for _, res := range results {
		switch {
		case res.Err != nil:
			c.Failed++
		case res.Skipped:
			c.Skipped++
		default:
			c.Rendered++
			if res.FallbackFrames > 0 {
				c.Fallback++
			}
			if res.HiddenCaptions > 0 {
				c.Hidden++
			}
		}
	}
	return c
}

func writeRenderSummary(out io.Writer, errWriter io.Writer, results []render.Result) {
	counts := countResults(results)
	if errWriter != nil {
		for _, res := range results {
			if res.Err != nil {
				fmt.Fprintf(errWriter, "render %03d %q failed: %v\n", res.Index, res.Name, res.Err)
			}
		}
	}
	fmt.Fprintf(out, "completed renders: %d rendered, %d skipped, %d failed\n", counts.Rendered, counts.Skipped, counts.Failed)
	if counts.Fallback > 0 {
		fmt.Fprintf(out, "%d render(s) fell back to plain text on some frames; see logs for details\n", counts.Fallback)
	}
	if counts.Hidden > 0 {
		fmt.Fprintf(out, "%d render(s) have captions after the last frame; see logs for details\n", counts.Hidden)
	}
}

type renderJSONResult struct {
	Index          int     `json:"index"`
	Name           string  `json:"name"`
	OutputPath     string  `json:"output_path,omitempty"`
	Effect         string  `json:"effect,omitempty"`
	Intensity      int     `json:"intensity"`
	Width          int     `json:"width,omitempty"`
	Height         int     `json:"height,omitempty"`
	FrameCount     int     `json:"frame_count"`
	CaptionCount   int     `json:"caption_count"`
	FallbackFrames int     `json:"fallback_frames"`
	HiddenCaptions int     `json:"hidden_captions"`
	PreviewPath    string  `json:"preview_path,omitempty"`
	Skipped        bool    `json:"skipped"`
	Reason         string  `json:"reason,omitempty"`
	ElapsedSeconds float64 `json:"elapsed_s"`
	Error          string  `json:"error,omitempty"`
}

func writeRenderJSON(cmd *cobra.Command, project string, results []render.Result) error {
	payload := struct {
		Project string             `json:"project"`
		Results []renderJSONResult `json:"results"`
		Summary renderCounts       `json:"summary"`
	}{
		Project: project,
		Results: make([]renderJSONResult, 0, len(results)),
		Summary: countResults(results),
	}

	for _, res := range results {
		payload.Results = append(payload.Results, renderJSONResult{
			Index:          res.Index,
			Name:           res.Name,
			OutputPath:     res.OutputPath,
			Effect:         res.Effect,
			Intensity:      res.Intensity,
			Width:          res.Width,
			Height:         res.Height,
			FrameCount:     res.FrameCount,
			CaptionCount:   res.CaptionCount,
			FallbackFrames: res.FallbackFrames,
			HiddenCaptions: res.HiddenCaptions,
			PreviewPath:    res.PreviewPath,
			Skipped:        res.Skipped,
			Reason:         res.Reason,
			ElapsedSeconds: res.Elapsed.Seconds(),
			Error:          errorString(res.Err),
		})
	}

	out, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("encode render json: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

// renderFailure returns the only error of a single render, or a count when
// several renders failed.
func renderFailure(results []render.Result) error {
	var failed []error
	for _, res := range results {
		if res.Err != nil {
			failed = append(failed, res.Err)
		}
	}
	switch len(failed) {
	case 0:
		return nil
	case 1:
		if len(results) == 1 {
			return failed[0]
		}
	}
	return fmt.Errorf("%d of %d render(s) failed; see logs for details", len(failed), len(results))
}

func errorString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
