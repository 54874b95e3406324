package timing

// Timeline answers "which caption owns this frame" for frames queried in
// ascending order. The cursor only moves forward unless a frame earlier than
// the previous query arrives, in which case it rewinds.
type Timeline struct {
	captions []Caption
	cursor   int
	last     int
}

// NewTimeline wraps aligned captions. Captions must be sorted by StartFrame,
// which Align guarantees.
func NewTimeline(captions []Caption) *Timeline {
	return &Timeline{captions: captions, last: -1}
}

// At returns the caption active at frame and the frame's index relative to
// the start of that caption.
func (t *Timeline) At(frame int) (Caption, int, bool) {
	if frame < t.last {
		t.cursor = 0
	}
	t.last = frame
	for t.cursor < len(t.captions) {
		c := t.captions[t.cursor]
		if c.Visible() && frame < c.EndFrame {
			break
		}
		t.cursor++
	}
	if t.cursor >= len(t.captions) {
		return Caption{}, 0, false
	}
	c := t.captions[t.cursor]
	if !c.Contains(frame) {
		return Caption{}, 0, false
	}
	return c, frame - c.StartFrame, true
}

// Captions returns the underlying captions.
func (t *Timeline) Captions() []Caption {
	return t.captions
}
