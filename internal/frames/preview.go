package frames

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

var errPreviewExited = errors.New("ffmpeg exited before all frames were written")

// PreviewWriter encodes frames into an MP4 preview by piping raw RGBA into
// ffmpeg. The file appears at its final path only after Close succeeds.
type PreviewWriter struct {
	path    string
	tmp     string
	rect    image.Rectangle
	pipe    *io.PipeWriter
	proc    Process
	buf     *image.RGBA
	drained chan struct{}
	closed  bool
}

// PreviewArgs builds the ffmpeg arguments that read raw RGBA frames of
// width x height at fps from stdin and write an H.264 MP4 to path.
func PreviewArgs(path string, width, height int, fps float64) []string {
	return ffmpeg.Input("pipe:", ffmpeg.KwArgs{
		"f":       "rawvideo",
		"pix_fmt": "rgba",
		"s":       fmt.Sprintf("%dx%d", width, height),
		"r":       strconv.FormatFloat(fps, 'f', -1, 64),
	}).
		Output(path, ffmpeg.KwArgs{
			"f":        "mp4",
			"c:v":      "libx264",
			"pix_fmt":  "yuv420p",
			"vf":       "pad=ceil(iw/2)*2:ceil(ih/2)*2",
			"movflags": "+faststart",
			"loglevel": "error",
		}).
		OverWriteOutput().
		GetArgs()
}

// NewPreviewWriter starts ffmpeg writing a preview of width x height frames
// at fps to path.
func NewPreviewWriter(ctx context.Context, path string, width, height int, fps float64, opts FFmpegOptions) (*PreviewWriter, error) {
	opts = opts.withDefaults()
	if width <= 0 || height <= 0 {
		return nil, &ResourceError{Path: path, Op: "preview", Err: fmt.Errorf("invalid frame size %dx%d", width, height)}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, &ResourceError{Path: path, Op: "preview", Err: err}
	}
	tmp := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+"."+uuid.NewString()+".part")

	pr, pw := io.Pipe()
	proc, err := opts.Runner.Start(ctx, opts.FFmpeg, PreviewArgs(tmp, width, height, fps), RunOptions{Stdin: pr})
	if err != nil {
		_ = pr.Close()
		return nil, &ResourceError{Path: path, Op: "preview", Err: err}
	}
	w := &PreviewWriter{
		path:    path,
		tmp:     tmp,
		rect:    image.Rect(0, 0, width, height),
		pipe:    pw,
		proc:    proc,
		drained: make(chan struct{}),
	}
	go func() {
		defer close(w.drained)
		_, _ = io.Copy(io.Discard, proc.Stdout())
		// ffmpeg closed its stdout, so nothing reads stdin any more.
		_ = pr.CloseWithError(errPreviewExited)
	}()
	return w, nil
}

// Path returns the final preview path.
func (w *PreviewWriter) Path() string {
	return w.path
}

// WriteFrame sends one frame to ffmpeg. Frames of another size are drawn
// onto a canvas of the preview size.
func (w *PreviewWriter) WriteFrame(img image.Image) error {
	pix := w.pixels(img)
	if _, err := w.pipe.Write(pix); err != nil {
		return &ResourceError{Path: w.path, Op: "preview", Err: err}
	}
	return nil
}

func (w *PreviewWriter) pixels(img image.Image) []byte {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect == w.rect && rgba.Stride == w.rect.Dx()*4 {
		return rgba.Pix
	}
	if w.buf == nil {
		w.buf = image.NewRGBA(w.rect)
	}
	clear(w.buf.Pix)
	draw.Draw(w.buf, w.rect, img, img.Bounds().Min, draw.Src)
	return w.buf.Pix
}

// Close finishes the stream, waits for ffmpeg and moves the preview into
// place.
func (w *PreviewWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	_ = w.pipe.Close()
	<-w.drained
	if err := w.proc.Wait(); err != nil {
		_ = os.Remove(w.tmp)
		return &ResourceError{Path: w.path, Op: "preview", Err: err}
	}
	if err := os.Rename(w.tmp, w.path); err != nil {
		_ = os.Remove(w.tmp)
		return &ResourceError{Path: w.path, Op: "preview", Err: err}
	}
	return nil
}

// Abort stops ffmpeg and removes the partial preview.
func (w *PreviewWriter) Abort() error {
	if w.closed {
		return nil
	}
	w.closed = true
	_ = w.pipe.CloseWithError(context.Canceled)
	_ = w.proc.Kill()
	<-w.drained
	_ = w.proc.Wait()
	if err := os.Remove(w.tmp); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
