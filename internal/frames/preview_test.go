package frames

import (
	"context"
	"image"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pipeProcess reads stdin until EOF like ffmpeg would, writing what it got
// to the output file named in its arguments.
type pipeProcess struct {
	stdout *io.PipeReader
	done   chan struct{}
	err    error
	killed bool
}

func (p *pipeProcess) Stdout() io.Reader { return p.stdout }
func (p *pipeProcess) Wait() error       { <-p.done; return p.err }
func (p *pipeProcess) Kill() error       { p.killed = true; return nil }

type pipeRunner struct {
	output string
	proc   *pipeProcess
}

func (r *pipeRunner) Run(context.Context, string, []string, RunOptions) (RunResult, error) {
	return RunResult{}, nil
}

func (r *pipeRunner) Start(_ context.Context, _ string, args []string, opts RunOptions) (Process, error) {
	for _, arg := range args {
		if strings.HasSuffix(arg, ".part") {
			r.output = arg
		}
	}
	out, in := io.Pipe()
	r.proc = &pipeProcess{stdout: out, done: make(chan struct{})}
	go func() {
		defer close(r.proc.done)
		defer in.Close()
		f, err := os.Create(r.output)
		if err != nil {
			r.proc.err = err
			return
		}
		defer f.Close()
		if _, err := io.Copy(f, opts.Stdin); err != nil {
			r.proc.err = err
		}
	}()
	return r.proc, nil
}

func TestPreviewArgs(t *testing.T) {
	args := PreviewArgs("out/clip.mp4", 64, 36, 12)
	joined := strings.Join(args, " ")
	assert.Contains(t, joined, "-f rawvideo")
	assert.Contains(t, joined, "-s 64x36")
	assert.Contains(t, joined, "-r 12")
	assert.Contains(t, joined, "-i pipe:")
	assert.Contains(t, joined, "libx264")
	assert.Contains(t, joined, "yuv420p")
	assert.Contains(t, args, "-y")
	assert.Contains(t, args, "out/clip.mp4")
}

func TestPreviewWriterStreamsFrames(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.mp4")
	runner := &pipeRunner{}

	w, err := NewPreviewWriter(context.Background(), path, 4, 2, 10, FFmpegOptions{Runner: runner})
	require.NoError(t, err)
	assert.Equal(t, path, w.Path())

	frame := image.NewRGBA(image.Rect(0, 0, 4, 2))
	frame.Set(1, 1, color.RGBA{R: 255, A: 255})
	require.NoError(t, w.WriteFrame(frame))
	// A frame of another size is drawn onto a preview sized canvas.
	require.NoError(t, w.WriteFrame(image.NewRGBA(image.Rect(0, 0, 2, 2))))
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, data, 2*4*2*4)
	assert.Equal(t, byte(255), data[(1*4+1)*4])
	_, err = os.Stat(runner.output)
	assert.True(t, os.IsNotExist(err))
}

func TestPreviewWriterAbortRemovesPartialFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.mp4")
	runner := &pipeRunner{}

	w, err := NewPreviewWriter(context.Background(), path, 4, 2, 10, FFmpegOptions{Runner: runner})
	require.NoError(t, err)
	require.NoError(t, w.WriteFrame(image.NewRGBA(image.Rect(0, 0, 4, 2))))
	require.NoError(t, w.Abort())

	assert.True(t, runner.proc.killed)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPreviewWriterRejectsEmptyFrame(t *testing.T) {
	_, err := NewPreviewWriter(context.Background(), filepath.Join(t.TempDir(), "x.mp4"), 0, 2, 10, FFmpegOptions{Runner: &pipeRunner{}})
	var rerr *ResourceError
	assert.ErrorAs(t, err, &rerr)
}
