package timing

import (
	"fmt"
	"math"

	"autogif/pkg/transcript"
)

// frameEpsilon keeps values like 0.6*10 from flooring to 5.
const frameEpsilon = 1e-9

// Caption is a contiguous group of words shown together over a frame range.
type Caption struct {
	Index  int
	Text   string
	Words  []transcript.Word
	Start  float64
	End    float64
	Reason string

	// StartFrame is inclusive, EndFrame exclusive. Both are zero until Align.
	StartFrame int
	EndFrame   int
}

// Frames returns the number of frames assigned to the caption.
func (c Caption) Frames() int {
	if c.EndFrame <= c.StartFrame {
		return 0
	}
	return c.EndFrame - c.StartFrame
}

// Visible reports whether the caption owns at least one frame.
func (c Caption) Visible() bool {
	return c.Frames() > 0
}

// Contains reports whether frame lies inside the caption's range.
func (c Caption) Contains(frame int) bool {
	return frame >= c.StartFrame && frame < c.EndFrame
}

// Duration returns the natural spoken duration of the caption in seconds.
func (c Caption) Duration() float64 {
	return c.End - c.Start
}

// FrameIndex converts seconds to a frame index with floor(t * fps).
func FrameIndex(seconds, fps float64) int {
	return int(math.Floor(seconds*fps + frameEpsilon))
}

// FrameCount returns how many whole frames fit in duration at fps.
func FrameCount(duration, fps float64) int {
	if duration <= 0 || fps <= 0 {
		return 0
	}
	return FrameIndex(duration, fps)
}

// Align maps captions onto the frame index space of a clip. Start frames are
// clamped to [0, totalFrames-1] and end frames to [0, totalFrames]. Every
// caption inside the clip owns at least one frame; when two captions would
// claim the same frame the later one is shifted right so ranges never
// overlap. Captions pushed past the last frame keep an empty range.
func Align(captions []Caption, fps float64, totalFrames int) ([]Caption, error) {
	if fps <= 0 || math.IsNaN(fps) || math.IsInf(fps, 0) {
		return nil, &TimingError{Kind: KindFrameRate, Index: -1, Err: fmt.Errorf("frame rate must be positive, got %v", fps)}
	}
	out := make([]Caption, len(captions))
	copy(out, captions)
	if totalFrames <= 0 {
		for i := range out {
			out[i].StartFrame, out[i].EndFrame = 0, 0
		}
		return out, nil
	}

	prevEnd := 0
	for i := range out {
		start := clampInt(FrameIndex(out[i].Start, fps), 0, totalFrames-1)
		end := clampInt(FrameIndex(out[i].End, fps), 0, totalFrames)
		if start < prevEnd {
			start = prevEnd
		}
		if end <= start {
			end = start + 1
		}
		if start >= totalFrames {
			start, end = totalFrames, totalFrames
		}
		if end > totalFrames {
			end = totalFrames
		}
		out[i].StartFrame, out[i].EndFrame = start, end
		if end > start {
			prevEnd = end
		}
	}
	return out, nil
}

// Build groups words and aligns the captions in one step.
func Build(words []transcript.Word, policy Policy, fps float64, totalFrames int) ([]Caption, error) {
	captions, err := Group(words, policy)
	if err != nil {
		return nil, err
	}
	return Align(captions, fps, totalFrames)
}

func clampInt(value, minVal, maxVal int) int {
	if value < minVal {
		return minVal
	}
	if value > maxVal {
		return maxVal
	}
	return value
}
