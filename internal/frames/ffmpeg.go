package frames

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"os"
	"strconv"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"autogif/internal/timing"
)

// DefaultFPS is used when neither the caller nor the container supplies a
// usable frame rate.
const DefaultFPS = 10

// FFmpegOptions controls how a video file is decoded.
type FFmpegOptions struct {
	FFmpeg  string
	FFprobe string
	// FPS resamples the clip. Zero keeps the source rate.
	FPS float64
	// Height scales the clip down to this height, keeping the aspect ratio.
	// Zero or a value above the source height keeps the source size.
	Height int
	Runner Runner
}

func (o FFmpegOptions) withDefaults() FFmpegOptions {
	if o.FFmpeg == "" {
		o.FFmpeg = "ffmpeg"
	}
	if o.FFprobe == "" {
		o.FFprobe = "ffprobe"
	}
	if o.Runner == nil {
		o.Runner = CmdRunner{}
	}
	return o
}

// FFmpegSource decodes a video file by piping raw RGBA frames out of ffmpeg.
type FFmpegSource struct {
	path  string
	info  Info
	proc  Process
	frame *image.RGBA
	done  bool
}

// OpenVideo probes path and starts the decoder.
func OpenVideo(ctx context.Context, path string, opts FFmpegOptions) (*FFmpegSource, error) {
	opts = opts.withDefaults()
	stat, err := os.Stat(path)
	if err != nil {
		return nil, &ResourceError{Path: path, Op: "open", Err: err}
	}
	if stat.IsDir() {
		return nil, &ResourceError{Path: path, Op: "open", Err: errors.New("is a directory")}
	}

	probe, err := Probe(ctx, opts.Runner, opts.FFprobe, path)
	if err != nil {
		return nil, err
	}

	fps := opts.FPS
	if fps <= 0 {
		fps = probe.FrameRate
	}
	if fps <= 0 || math.IsNaN(fps) || math.IsInf(fps, 0) {
		fps = DefaultFPS
	}
	width, height := scaledSize(probe.Width, probe.Height, opts.Height)

	info := Info{
		Width:       width,
		Height:      height,
		FrameRate:   fps,
		Duration:    probe.Duration,
		TotalFrames: timing.FrameCount(probe.Duration, fps),
		Estimated:   true,
		Fingerprint: fingerprint(path, stat, fps, width, height),
	}
	if info.TotalFrames == 0 && probe.Frames > 0 && probe.FrameRate > 0 {
		info.Duration = float64(probe.Frames) / probe.FrameRate
		info.TotalFrames = timing.FrameCount(info.Duration, fps)
	}

	proc, err := opts.Runner.Start(ctx, opts.FFmpeg, DecodeArgs(path, fps, width, height), RunOptions{})
	if err != nil {
		return nil, &ResourceError{Path: path, Op: "decode", Err: err}
	}
	return &FFmpegSource{
		path:  path,
		info:  info,
		proc:  proc,
		frame: image.NewRGBA(image.Rect(0, 0, width, height)),
	}, nil
}

// DecodeArgs builds the ffmpeg arguments that resample path to fps, scale it
// to width x height and write raw RGBA frames to stdout.
func DecodeArgs(path string, fps float64, width, height int) []string {
	filter := fmt.Sprintf("fps=%s,scale=%d:%d:flags=lanczos", strconv.FormatFloat(fps, 'f', -1, 64), width, height)
	return ffmpeg.Input(path).
		Output("pipe:", ffmpeg.KwArgs{
			"f":        "rawvideo",
			"pix_fmt":  "rgba",
			"vf":       filter,
			"an":       "",
			"loglevel": "error",
		}).
		GetArgs()
}

// scaledSize fits width x height to target height with even dimensions, which
// the scale filter and GIF consumers handle best.
func scaledSize(width, height, target int) (int, int) {
	if target <= 0 || target >= height {
		return width, height
	}
	w := int(math.Round(float64(width) * float64(target) / float64(height)))
	w = max(2, w-w%2)
	h := max(2, target-target%2)
	return w, h
}

func fingerprint(path string, stat os.FileInfo, fps float64, width, height int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%d|%g|%dx%d",
		path, stat.Size(), stat.ModTime().UnixNano(), fps, width, height)))
	return fmt.Sprintf("sha256:%x", sum)
}

func (s *FFmpegSource) Info() Info { return s.info }

// Next reads one frame from the decoder. The returned image is reused by the
// following call.
func (s *FFmpegSource) Next(ctx context.Context) (*image.RGBA, error) {
	if s.done {
		return nil, io.EOF
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	_, err := io.ReadFull(s.proc.Stdout(), s.frame.Pix)
	switch {
	case err == nil:
		return s.frame, nil
	case errors.Is(err, io.EOF):
		s.done = true
		if waitErr := s.proc.Wait(); waitErr != nil {
			return nil, &ResourceError{Path: s.path, Op: "decode", Err: waitErr}
		}
		return nil, io.EOF
	default:
		s.done = true
		_ = s.proc.Kill()
		waitErr := s.proc.Wait()
		if waitErr != nil {
			err = fmt.Errorf("%w (%v)", err, waitErr)
		}
		return nil, &ResourceError{Path: s.path, Op: "decode", Err: err}
	}
}

// Close stops the decoder if it is still running.
func (s *FFmpegSource) Close() error {
	if s.proc == nil {
		return nil
	}
	if !s.done {
		s.done = true
		_ = s.proc.Kill()
		_ = s.proc.Wait()
	}
	return nil
}
