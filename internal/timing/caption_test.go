package timing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlignSingleCaption(t *testing.T) {
	policy := DefaultPolicy()
	policy.MaxWords = 2
	captions, err := Build(words("hello", 0.0, 0.5, "world", 0.6, 1.0), policy, 10, 10)
	require.NoError(t, err)
	require.Len(t, captions, 1)
	assert.Equal(t, 0, captions[0].StartFrame)
	assert.Equal(t, 10, captions[0].EndFrame)
}

func TestAlignSilenceGap(t *testing.T) {
	captions, err := Build(words("hi", 0.0, 0.5, "there", 2.5, 3.0), DefaultPolicy(), 10, 30)
	require.NoError(t, err)
	require.Len(t, captions, 2)
	assert.Equal(t, [2]int{0, 5}, [2]int{captions[0].StartFrame, captions[0].EndFrame})
	assert.Equal(t, [2]int{25, 30}, [2]int{captions[1].StartFrame, captions[1].EndFrame})

	tl := NewTimeline(captions)
	for frame := 5; frame < 25; frame++ {
		_, _, ok := tl.At(frame)
		assert.False(t, ok, "frame %d should have no caption", frame)
	}
}

func TestAlignShortCaptionGetsOneFrame(t *testing.T) {
	captions, err := Build(words("blip", 0.41, 0.43), Policy{}, 10, 10)
	require.NoError(t, err)
	require.Len(t, captions, 1)
	assert.Equal(t, 4, captions[0].StartFrame)
	assert.Equal(t, 5, captions[0].EndFrame)
}

func TestAlignCollisionShiftsLaterCaption(t *testing.T) {
	captions, err := Build(words(
		"a", 0.50, 0.52,
		"b", 0.55, 0.58,
		"c", 0.60, 0.90,
	), Policy{MaxWords: 1}, 10, 20)
	require.NoError(t, err)
	require.Len(t, captions, 3)

	assert.Equal(t, [2]int{5, 6}, [2]int{captions[0].StartFrame, captions[0].EndFrame})
	assert.Equal(t, [2]int{6, 7}, [2]int{captions[1].StartFrame, captions[1].EndFrame})
	assert.Equal(t, [2]int{7, 9}, [2]int{captions[2].StartFrame, captions[2].EndFrame})
	assertNoOverlap(t, captions)
}

func TestAlignClampsPastClipEnd(t *testing.T) {
	captions, err := Build(words(
		"inside", 0.0, 0.5,
		"late", 5.0, 6.0,
	), Policy{MaxWords: 1}, 10, 8)
	require.NoError(t, err)
	require.Len(t, captions, 2)
	assert.Equal(t, [2]int{0, 5}, [2]int{captions[0].StartFrame, captions[0].EndFrame})
	// Start clamps to the last frame and still gets one frame.
	assert.Equal(t, [2]int{7, 8}, [2]int{captions[1].StartFrame, captions[1].EndFrame})
}

func TestAlignCaptionsPushedOutOfClipAreHidden(t *testing.T) {
	captions, err := Build(words(
		"a", 0.0, 0.05,
		"b", 0.06, 0.07,
		"c", 0.08, 0.09,
	), Policy{MaxWords: 1}, 10, 2)
	require.NoError(t, err)
	require.Len(t, captions, 3)
	assert.True(t, captions[0].Visible())
	assert.True(t, captions[1].Visible())
	assert.False(t, captions[2].Visible())
	assertNoOverlap(t, captions)
}

func TestAlignEmptyClip(t *testing.T) {
	captions, err := Build(words("hi", 0.0, 1.0), DefaultPolicy(), 10, 0)
	require.NoError(t, err)
	require.Len(t, captions, 1)
	assert.False(t, captions[0].Visible())
}

func TestAlignRejectsBadFrameRate(t *testing.T) {
	_, err := Align(nil, 0, 10)
	var timingErr *TimingError
	require.True(t, errors.As(err, &timingErr))
	assert.Equal(t, KindFrameRate, timingErr.Kind)
}

func TestAlignFloatFloor(t *testing.T) {
	assert.Equal(t, 6, FrameIndex(0.6, 10))
	assert.Equal(t, 3, FrameIndex(0.1, 30))
	assert.Equal(t, 0, FrameCount(0, 10))
	assert.Equal(t, 25, FrameCount(2.5, 10))
}

func TestAlignDeterministic(t *testing.T) {
	input := words("a", 0.0, 0.3, "b", 0.31, 0.33, "c", 0.34, 1.9)
	first, err := Build(input, Policy{MaxWords: 1}, 15, 40)
	require.NoError(t, err)
	second, err := Build(input, Policy{MaxWords: 1}, 15, 40)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestTimelineCursor(t *testing.T) {
	captions, err := Build(words("a", 0.0, 0.3, "b", 0.5, 0.8), Policy{MaxWords: 1}, 10, 10)
	require.NoError(t, err)
	tl := NewTimeline(captions)

	c, local, ok := tl.At(0)
	require.True(t, ok)
	assert.Equal(t, "a", c.Text)
	assert.Equal(t, 0, local)

	_, _, ok = tl.At(3)
	assert.False(t, ok)

	c, local, ok = tl.At(6)
	require.True(t, ok)
	assert.Equal(t, "b", c.Text)
	assert.Equal(t, 1, local)

	_, _, ok = tl.At(9)
	assert.False(t, ok)

	// Rewinding restarts the scan.
	c, _, ok = tl.At(1)
	require.True(t, ok)
	assert.Equal(t, "a", c.Text)
}

func assertNoOverlap(t *testing.T, captions []Caption) {
	t.Helper()
	owner := map[int]int{}
	for _, c := range captions {
		for f := c.StartFrame; f < c.EndFrame; f++ {
			if prev, ok := owner[f]; ok {
				t.Fatalf("frame %d owned by captions %d and %d", f, prev, c.Index)
			}
			owner[f] = c.Index
		}
	}
}
