package frames

import (
	"context"
	"fmt"
	"image"
	"io"
)

// Info describes a decoded clip.
type Info struct {
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	FrameRate float64 `json:"frame_rate"`
	// TotalFrames is exact for in-memory and directory sources and an
	// estimate from the container duration for ffmpeg sources.
	TotalFrames int `json:"total_frames"`
	// Estimated marks TotalFrames as a guess. The decoder may deliver more
	// or fewer frames.
	Estimated   bool    `json:"estimated,omitempty"`
	Duration    float64 `json:"duration_s"`
	Fingerprint string  `json:"fingerprint,omitempty"`
}

// Source yields decoded frames in order. Next returns io.EOF after the last
// frame. Frames handed out may be reused by the source after the next call to
// Next, so callers that keep a frame must copy it.
type Source interface {
	Info() Info
	Next(ctx context.Context) (*image.RGBA, error)
	Close() error
}

// ResourceError reports a frame source that could not be opened or read.
type ResourceError struct {
	Path string
	Op   string
	Err  error
}

func (e *ResourceError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("frame source %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("frame source %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *ResourceError) Unwrap() error {
	return e.Err
}

// SliceSource serves frames held in memory.
type SliceSource struct {
	info   Info
	frames []*image.RGBA
	next   int
}

// NewSliceSource wraps frames at the given rate. Dimensions come from the
// first frame.
func NewSliceSource(frames []*image.RGBA, fps float64) *SliceSource {
	info := Info{FrameRate: fps, TotalFrames: len(frames)}
	if len(frames) > 0 {
		b := frames[0].Bounds()
		info.Width, info.Height = b.Dx(), b.Dy()
	}
	if fps > 0 {
		info.Duration = float64(len(frames)) / fps
	}
	return &SliceSource{info: info, frames: frames}
}

// NewBlankSource returns total frames of a solid colour, useful for previews.
func NewBlankSource(width, height, total int, fps float64, fill [4]uint8) *SliceSource {
	frames := make([]*image.RGBA, total)
	for i := range frames {
		img := image.NewRGBA(image.Rect(0, 0, width, height))
		for p := 0; p < len(img.Pix); p += 4 {
			copy(img.Pix[p:p+4], fill[:])
		}
		frames[i] = img
	}
	src := NewSliceSource(frames, fps)
	src.info.Width, src.info.Height = width, height
	return src
}

func (s *SliceSource) Info() Info { return s.info }

func (s *SliceSource) Next(ctx context.Context) (*image.RGBA, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.next >= len(s.frames) {
		return nil, io.EOF
	}
	frame := s.frames[s.next]
	s.next++
	return frame, nil
}

func (s *SliceSource) Close() error { return nil }
