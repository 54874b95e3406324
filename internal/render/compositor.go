package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"io"
	"math"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"autogif/internal/effects"
	"autogif/internal/frames"
	"autogif/internal/layout"
	"autogif/internal/timing"
)

// prefetchDepth bounds how many decoded frames wait ahead of the compositor.
const prefetchDepth = 2

// FrameSink receives composited frames in order.
type FrameSink interface {
	WriteFrame(img image.Image) error
}

// Stats summarises a compositor run.
type Stats struct {
	Frames         int
	CaptionFrames  int
	FallbackFrames int
	// Hidden lists the indices of captions that were never drawn.
	Hidden []int
}

// Compositor overlays animated captions onto a stream of frames.
type Compositor struct {
	Engine *layout.Engine
	Policy layout.Policy
	// Steps is the effect chain, applied in order on the same layer. When
	// empty, Effect at Intensity is the only step.
	Steps     []effects.Step
	Effect    effects.Effect
	Intensity int
	// WordMode is a resolved effects word mode. The words and active modes
	// apply the first step to each word separately. Empty means caption.
	WordMode string
	Style    effects.Style
	// Workers bounds the parallel layout precompute.
	Workers  int
	Logger   zerolog.Logger
	Progress func(done, total int)
}

type fetched struct {
	frame *image.RGBA
	err   error
}

// wordSlot is one laid out word of a caption.
type wordSlot struct {
	block layout.Block
	// word is the position of the transcript word the block belongs to.
	word int
}

// captionLayout is a caption's block and, in the word modes, its words.
type captionLayout struct {
	block layout.Block
	words []wordSlot
}

func (c *Compositor) chain() ([]effects.Step, error) {
	if len(c.Steps) > 0 {
		return c.Steps, nil
	}
	if c.Effect == nil {
		return nil, errors.New("compositor needs an effect")
	}
	return []effects.Step{{Effect: c.Effect, Descriptor: c.Effect.Descriptor(), Intensity: c.Intensity}}, nil
}

func (c *Compositor) wordMode(first effects.Descriptor) string {
	switch c.WordMode {
	case effects.WordModeWords, effects.WordModeActive:
		if first.WordLevel {
			return c.WordMode
		}
	}
	return effects.WordModeCaption
}

// Run reads every frame from src, draws the caption active at that frame and
// writes the result to sink. Frames without a caption pass through
// unchanged. A failing effect frame is replaced by plain text and counted in
// Stats.FallbackFrames.
func (c *Compositor) Run(ctx context.Context, src frames.Source, captions []timing.Caption, sink FrameSink) (Stats, error) {
	var stats Stats
	if c.Engine == nil {
		return stats, errors.New("compositor needs a layout engine")
	}
	steps, err := c.chain()
	if err != nil {
		return stats, err
	}

	info := src.Info()
	fps := info.FrameRate
	insts := make([]effects.Instance, len(steps))
	for j, st := range steps {
		insts[j] = st.Effect.New()
	}
	mode := c.wordMode(steps[0].Descriptor)
	top, bottom := travelEdges(steps)
	timeline := timing.NewTimeline(captions)
	drawn := make([]bool, len(captions))
	logEvery := max(1, int(math.Round(2*fps)))

	ctx, cancel := context.WithCancel(ctx)
	queue := make(chan fetched, prefetchDepth)
	go prefetch(ctx, src, queue)
	defer func() {
		cancel()
		for range queue {
		}
	}()

	var (
		layouts    []captionLayout
		layer      *image.RGBA
		scratch    *image.RGBA
		warnedFor  = -1
		totalGuess = info.TotalFrames
	)

	for i := 0; ; i++ {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		item, ok := <-queue
		if !ok {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
			break
		}
		if item.err != nil {
			if errors.Is(item.err, io.EOF) {
				break
			}
			if errors.Is(item.err, context.Canceled) || errors.Is(item.err, context.DeadlineExceeded) {
				return stats, item.err
			}
			var resErr *frames.ResourceError
			if errors.As(item.err, &resErr) {
				return stats, item.err
			}
			return stats, &frames.ResourceError{Op: "read", Err: item.err}
		}
		frame := item.frame

		if layouts == nil {
			l, err := c.layoutAll(ctx, captions, frame.Bounds().Dx(), frame.Bounds().Dy(), top, bottom, mode != effects.WordModeCaption)
			if err != nil {
				return stats, err
			}
			layouts = l
			layer = image.NewRGBA(frame.Bounds())
			if mode != effects.WordModeCaption {
				scratch = image.NewRGBA(frame.Bounds())
			}
		}

		if caption, local, ok := timeline.At(i); ok {
			pos := captionPosition(captions, caption.Index)
			block := layouts[pos].block
			face, err := c.Engine.Faces().Face(block.Size)
			if err != nil {
				return stats, fmt.Errorf("font face at %.1fpt: %w", block.Size, err)
			}
			clear(layer.Pix)
			in := effects.Input{
				Version:       effects.ContractVersion,
				Text:          caption.Text,
				Block:         block,
				Anchor:        block.Anchor,
				Local:         local,
				CaptionFrames: caption.Frames(),
				CaptionIndex:  caption.Index,
				Frame:         i,
				Intensity:     steps[0].Intensity,
				FPS:           fps,
				Face:          face,
				Faces:         c.Engine.Faces(),
				Style:         c.Style,
				Seed:          effects.SeedFor(caption.Text, caption.Index),
			}
			var words []wordSlot
			if mode != effects.WordModeCaption {
				words = layouts[pos].words
			}
			if err := c.paint(layer, scratch, steps, insts, mode, caption, words, in); err != nil {
				stats.FallbackFrames++
				if warnedFor != caption.Index {
					c.Logger.Warn().Err(err).Int("caption", caption.Index).Int("frame", i).Msg("effect failed, drawing plain text")
					warnedFor = caption.Index
				}
				clear(layer.Pix)
				effects.DrawText(layer, face, block, c.Style)
			}
			draw.Draw(frame, frame.Bounds(), layer, frame.Bounds().Min, draw.Over)
			stats.CaptionFrames++
			drawn[pos] = true
		}

		if err := sink.WriteFrame(frame); err != nil {
			return stats, err
		}
		stats.Frames++
		if i%logEvery == 0 {
			c.Logger.Debug().Int("frame", i).Int("captioned", stats.CaptionFrames).Msg("composited")
		}
		if c.Progress != nil {
			c.Progress(stats.Frames, max(totalGuess, stats.Frames))
		}
	}
	for pos, caption := range captions {
		if drawn[pos] {
			continue
		}
		stats.Hidden = append(stats.Hidden, caption.Index)
		c.Logger.Warn().
			Int("caption", caption.Index).
			Str("text", caption.Text).
			Float64("start", caption.Start).
			Float64("end", caption.End).
			Int("frames", stats.Frames).
			Msg("caption not shown, it falls after the last frame")
	}
	return stats, nil
}

// paint draws one frame of a caption onto layer. In the word modes the first
// step runs once per word on scratch and the rest of the chain runs over the
// whole caption.
func (c *Compositor) paint(layer, scratch *image.RGBA, steps []effects.Step, insts []effects.Instance, mode string, caption timing.Caption, words []wordSlot, in effects.Input) error {
	rest, restInsts := steps, insts
	switch {
	case len(words) > 0:
		first := steps[0]
		active, start, span := -1, 0, 0
		if mode == effects.WordModeActive {
			active, start, span = activeWord(caption, in.FPS, in.Frame)
		}
		for k, w := range words {
			if mode == effects.WordModeActive && w.word != active {
				effects.DrawText(layer, in.Face, w.block, c.Style)
				continue
			}
			clear(scratch.Pix)
			if first.Descriptor.Capability == effects.Overlay {
				effects.DrawText(scratch, in.Face, w.block, c.Style)
			}
			win := in
			win.Text = w.block.Text()
			win.Block = w.block
			win.Anchor = w.block.Anchor
			win.Intensity = first.Intensity
			win.Seed = effects.WordSeed(caption.Text, caption.Index, k)
			if mode == effects.WordModeActive {
				win.Local = in.Frame - start
				win.CaptionFrames = span
			}
			if err := effects.Apply(insts[0], first.Descriptor.Slug, scratch, win); err != nil {
				return err
			}
			draw.Draw(layer, layer.Bounds(), scratch, layer.Bounds().Min, draw.Over)
		}
		rest, restInsts = steps[1:], insts[1:]
	case steps[0].Descriptor.Capability == effects.Overlay:
		effects.DrawText(layer, in.Face, in.Block, c.Style)
	}
	for j, st := range rest {
		sin := in
		sin.Intensity = st.Intensity
		if err := effects.Apply(restInsts[j], st.Descriptor.Slug, layer, sin); err != nil {
			return err
		}
	}
	return nil
}

// activeWord returns the position of the word being spoken at frame, the
// frame it started on and how many frames it lasts.
func activeWord(caption timing.Caption, fps float64, frame int) (word, start, span int) {
	starts := make([]int, len(caption.Words))
	for k, w := range caption.Words {
		starts[k] = max(caption.StartFrame, timing.FrameIndex(w.Start, fps))
		if k > 0 {
			starts[k] = max(starts[k], starts[k-1])
		}
		if starts[k] <= frame {
			word = k
		}
	}
	if len(starts) == 0 {
		return 0, caption.StartFrame, caption.Frames()
	}
	start = starts[word]
	end := caption.EndFrame
	for k := word + 1; k < len(starts); k++ {
		if starts[k] > start {
			end = min(end, starts[k])
			break
		}
	}
	return word, start, max(1, end-start)
}

// travelEdges returns how far, at a 480 pixel frame height, the chain may
// move text above and below its block.
func travelEdges(steps []effects.Step) (top, bottom int) {
	for _, st := range steps {
		top = max(top, st.Descriptor.Travel, st.Descriptor.Rise)
		bottom = max(bottom, st.Descriptor.Travel)
	}
	return top, bottom
}

// layoutAll lays out every visible caption in parallel and returns the
// layouts in caption order. With words set each caption is also split into
// word blocks.
func (c *Compositor) layoutAll(ctx context.Context, captions []timing.Caption, width, height, top, bottom int, words bool) ([]captionLayout, error) {
	layouts := make([]captionLayout, len(captions))
	scale := float64(height) / 480
	padTop := int(math.Ceil(float64(top) * scale))
	padBottom := int(math.Ceil(float64(bottom) * scale))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, c.Workers))
	for i, caption := range captions {
		if !caption.Visible() {
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			block, err := c.Engine.Layout(caption.Text, width, height, c.Policy)
			if err != nil {
				return fmt.Errorf("layout caption %d: %w", caption.Index, err)
			}
			block = block.KeepInsideEdges(height, padTop, padBottom)
			layouts[i].block = block
			if !words {
				return nil
			}
			slots, err := c.wordSlots(caption, block)
			if err != nil {
				return fmt.Errorf("layout caption %d words: %w", caption.Index, err)
			}
			layouts[i].words = slots
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return layouts, nil
}

// wordSlots splits a caption block into words and ties each one to the
// transcript word it came from.
func (c *Compositor) wordSlots(caption timing.Caption, block layout.Block) ([]wordSlot, error) {
	blocks, err := block.Words(c.Engine.Faces())
	if err != nil {
		return nil, err
	}
	owner := make([]int, 0, len(blocks))
	for k, w := range caption.Words {
		for range strings.Fields(w.Text) {
			owner = append(owner, k)
		}
	}
	slots := make([]wordSlot, len(blocks))
	for k, b := range blocks {
		word := len(caption.Words) - 1
		if k < len(owner) {
			word = owner[k]
		}
		slots[k] = wordSlot{block: b, word: max(0, word)}
	}
	return slots, nil
}

// captionPosition maps a caption index to its slot. Captions are normally
// numbered by position, so the lookup is constant time.
func captionPosition(captions []timing.Caption, index int) int {
	if index >= 0 && index < len(captions) && captions[index].Index == index {
		return index
	}
	for i, c := range captions {
		if c.Index == index {
			return i
		}
	}
	return 0
}

// prefetch decodes ahead of the compositor. Each frame is copied because
// sources may reuse their buffer on the next call.
func prefetch(ctx context.Context, src frames.Source, out chan<- fetched) {
	defer close(out)
	for {
		frame, err := src.Next(ctx)
		if err != nil {
			select {
			case out <- fetched{err: err}:
			case <-ctx.Done():
			}
			return
		}
		select {
		case out <- fetched{frame: cloneFrame(frame)}:
		case <-ctx.Done():
			return
		}
	}
}

func cloneFrame(src *image.RGBA) *image.RGBA {
	dst := image.NewRGBA(src.Rect)
	if src.Stride == dst.Stride {
		copy(dst.Pix, src.Pix)
		return dst
	}
	w := src.Rect.Dx() * 4
	for y := 0; y < src.Rect.Dy(); y++ {
		copy(dst.Pix[y*dst.Stride:y*dst.Stride+w], src.Pix[y*src.Stride:y*src.Stride+w])
	}
	return dst
}
