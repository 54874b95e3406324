package layout

import (
	"fmt"
	"image"
	"math"
	"strings"
)

// Ellipsis marks text removed because it could not fit at the minimum size.
const Ellipsis = "..."

// Position selects where the caption block sits vertically.
type Position string

const (
	PositionBottom Position = "bottom"
	PositionCenter Position = "center"
	PositionTop    Position = "top"
)

// ParsePosition maps a configuration value onto a Position.
func ParsePosition(value string) (Position, error) {
	switch Position(strings.ToLower(strings.TrimSpace(value))) {
	case "", PositionBottom:
		return PositionBottom, nil
	case PositionCenter, "middle":
		return PositionCenter, nil
	case PositionTop:
		return PositionTop, nil
	default:
		return "", fmt.Errorf("unknown caption position %q (want bottom, center or top)", value)
	}
}

// Policy bounds the caption block.
type Policy struct {
	Position      Position
	MaxWidthRatio float64
	MaxLines      int
	LineSpacing   int
	Step          float64
	// BottomRatio places the last baseline of a bottom block at this fraction
	// of the frame height.
	BottomRatio float64
	// MarginRatio is the fraction of the frame height kept clear at the top
	// and bottom edges.
	MarginRatio float64
}

// DefaultPolicy returns the layout used when nothing is configured.
func DefaultPolicy() Policy {
	return Policy{
		Position:      PositionBottom,
		MaxWidthRatio: 0.9,
		MaxLines:      3,
		LineSpacing:   4,
		Step:          2,
		BottomRatio:   0.9,
		MarginRatio:   0.05,
	}
}

func (p Policy) withDefaults() Policy {
	def := DefaultPolicy()
	if p.Position == "" {
		p.Position = def.Position
	}
	if p.MaxWidthRatio <= 0 || p.MaxWidthRatio > 1 {
		p.MaxWidthRatio = def.MaxWidthRatio
	}
	if p.LineSpacing < 0 {
		p.LineSpacing = 0
	}
	if p.Step <= 0 {
		p.Step = def.Step
	}
	if p.BottomRatio <= 0 || p.BottomRatio > 1 {
		p.BottomRatio = def.BottomRatio
	}
	if p.MarginRatio < 0 || p.MarginRatio >= 0.5 {
		p.MarginRatio = def.MarginRatio
	}
	return p
}

// Line is one laid out row of caption text.
type Line struct {
	Text     string
	X        int
	Baseline int
	Width    int
}

// Block is the result of laying out one caption for one frame size.
type Block struct {
	Lines      []Line
	Anchor     image.Point
	Size       float64
	LineHeight int
	Ascent     int
	Descent    int
	Spacing    int
	Bounds     image.Rectangle
	Truncated  bool
}

// Text joins the laid out lines with newlines.
func (b Block) Text() string {
	parts := make([]string, len(b.Lines))
	for i, l := range b.Lines {
		parts[i] = l.Text
	}
	return strings.Join(parts, "\n")
}

// Engine lays out caption text against a frame.
type Engine struct {
	faces   *Faces
	size    float64
	minSize float64
}

// NewEngine builds an engine that starts at spec.Size and never goes below
// spec.MinSize.
func NewEngine(faces *Faces, spec FontSpec) *Engine {
	size := spec.Size
	if size <= 0 {
		size = 48
	}
	minSize := spec.MinSize
	if minSize <= 0 || minSize > size {
		minSize = size
	}
	return &Engine{faces: faces, size: size, minSize: minSize}
}

// Faces exposes the face cache so callers can draw at the chosen size.
func (e *Engine) Faces() *Faces {
	return e.faces
}

// Layout wraps text greedily by measured width and positions the lines. When
// the block does not fit the size shrinks by policy.Step down to the minimum
// size, after which overflowing text is truncated with Ellipsis.
func (e *Engine) Layout(text string, frameW, frameH int, policy Policy) (Block, error) {
	if frameW <= 0 || frameH <= 0 {
		return Block{}, fmt.Errorf("invalid frame size %dx%d", frameW, frameH)
	}
	policy = policy.withDefaults()
	words := strings.Fields(text)
	maxWidth := int(math.Floor(float64(frameW) * policy.MaxWidthRatio))
	available := frameH - 2*int(math.Round(float64(frameH)*policy.MarginRatio))

	size := e.size
	for {
		metrics, err := e.faces.Metrics(size)
		if err != nil {
			return Block{}, err
		}
		lines, err := e.wrap(words, size, maxWidth)
		if err != nil {
			return Block{}, err
		}
		if e.fits(lines, metrics, maxWidth, available, policy) {
			return e.place(lines, size, metrics, frameW, frameH, policy, false), nil
		}
		if size <= e.minSize {
			break
		}
		size = math.Max(size-policy.Step, e.minSize)
	}

	metrics, err := e.faces.Metrics(e.minSize)
	if err != nil {
		return Block{}, err
	}
	lines, err := e.wrap(words, e.minSize, maxWidth)
	if err != nil {
		return Block{}, err
	}
	lines, err = e.truncate(lines, metrics, maxWidth, available, policy)
	if err != nil {
		return Block{}, err
	}
	return e.place(lines, e.minSize, metrics, frameW, frameH, policy, true), nil
}

type measured struct {
	text  string
	width int
}

func (e *Engine) wrap(words []string, size float64, maxWidth int) ([]measured, error) {
	var (
		lines   []measured
		current string
	)
	for _, word := range words {
		candidate := word
		if current != "" {
			candidate = current + " " + word
		}
		width, err := e.faces.Measure(size, candidate)
		if err != nil {
			return nil, err
		}
		if width <= maxWidth || current == "" {
			current = candidate
			continue
		}
		lines = append(lines, measured{text: current})
		current = word
	}
	if current != "" {
		lines = append(lines, measured{text: current})
	}
	for i := range lines {
		width, err := e.faces.Measure(size, lines[i].text)
		if err != nil {
			return nil, err
		}
		lines[i].width = width
	}
	return lines, nil
}

func (e *Engine) fits(lines []measured, m Metrics, maxWidth, available int, policy Policy) bool {
	if policy.MaxLines > 0 && len(lines) > policy.MaxLines {
		return false
	}
	for _, l := range lines {
		if l.width > maxWidth {
			return false
		}
	}
	return blockHeight(len(lines), m, policy.LineSpacing) <= available
}

func (e *Engine) truncate(lines []measured, m Metrics, maxWidth, available int, policy Policy) ([]measured, error) {
	capacity := 1
	for blockHeight(capacity+1, m, policy.LineSpacing) <= available {
		capacity++
	}
	if policy.MaxLines > 0 && capacity > policy.MaxLines {
		capacity = policy.MaxLines
	}
	overflow := len(lines) > capacity
	if overflow {
		lines = lines[:capacity]
	}
	for i := range lines {
		last := i == len(lines)-1
		if lines[i].width <= maxWidth && !(last && overflow) {
			continue
		}
		fitted, width, err := e.ellipsize(lines[i].text, maxWidth)
		if err != nil {
			return nil, err
		}
		lines[i] = measured{text: fitted, width: width}
	}
	return lines, nil
}

// ellipsize removes trailing runes until the text plus Ellipsis fits.
func (e *Engine) ellipsize(text string, maxWidth int) (string, int, error) {
	runes := []rune(strings.TrimSpace(text))
	for {
		candidate := strings.TrimRight(string(runes), " ") + Ellipsis
		width, err := e.faces.Measure(e.minSize, candidate)
		if err != nil {
			return "", 0, err
		}
		if width <= maxWidth || len(runes) == 0 {
			return candidate, width, nil
		}
		runes = runes[:len(runes)-1]
	}
}

func (e *Engine) place(lines []measured, size float64, m Metrics, frameW, frameH int, policy Policy, truncated bool) Block {
	block := Block{
		Size:       size,
		LineHeight: m.LineHeight,
		Ascent:     m.Ascent,
		Descent:    m.Descent,
		Spacing:    policy.LineSpacing,
		Truncated:  truncated,
	}
	if len(lines) == 0 {
		return block
	}

	pitch := m.LineHeight + policy.LineSpacing
	height := blockHeight(len(lines), m, policy.LineSpacing)
	margin := int(math.Round(float64(frameH) * policy.MarginRatio))

	var firstBaseline int
	switch policy.Position {
	case PositionTop:
		firstBaseline = margin + m.Ascent
	case PositionCenter:
		firstBaseline = (frameH-height)/2 + m.Ascent
	default:
		last := int(math.Round(float64(frameH) * policy.BottomRatio))
		if last+m.Descent > frameH-margin {
			last = frameH - margin - m.Descent
		}
		firstBaseline = last - (len(lines)-1)*pitch
		if top := firstBaseline - m.Ascent; top < margin {
			firstBaseline += margin - top
		}
	}

	minX, maxX := frameW, 0
	for i, l := range lines {
		x := (frameW - l.width) / 2
		block.Lines = append(block.Lines, Line{
			Text:     l.text,
			X:        x,
			Baseline: firstBaseline + i*pitch,
			Width:    l.width,
		})
		minX = min(minX, x)
		maxX = max(maxX, x+l.width)
	}
	lastBaseline := block.Lines[len(block.Lines)-1].Baseline
	block.Anchor = image.Pt(frameW/2, lastBaseline)
	block.Bounds = image.Rect(minX, firstBaseline-m.Ascent, maxX, lastBaseline+m.Descent)
	return block
}

func blockHeight(lines int, m Metrics, spacing int) int {
	if lines <= 0 {
		return 0
	}
	return lines*m.LineHeight + (lines-1)*spacing
}

// Shift returns a copy of b moved down by dy pixels.
func (b Block) Shift(dy int) Block {
	if dy == 0 {
		return b
	}
	lines := make([]Line, len(b.Lines))
	for i, l := range b.Lines {
		l.Baseline += dy
		lines[i] = l
	}
	b.Lines = lines
	b.Anchor.Y += dy
	b.Bounds = b.Bounds.Add(image.Pt(0, dy))
	return b
}

// KeepInside moves b vertically so that it stays pad pixels clear of the
// frame edges. The bottom edge wins when the block cannot fit both.
func (b Block) KeepInside(frameH, pad int) Block {
	return b.KeepInsideEdges(frameH, pad, pad)
}

// KeepInsideEdges is KeepInside with separate top and bottom clearances.
func (b Block) KeepInsideEdges(frameH, top, bottom int) Block {
	if len(b.Lines) == 0 || (top <= 0 && bottom <= 0) {
		return b
	}
	top, bottom = max(0, top), max(0, bottom)
	dy := 0
	if over := b.Bounds.Max.Y + bottom - frameH; over > 0 {
		dy = -over
	}
	if gap := b.Bounds.Min.Y + dy - top; gap < 0 && b.Bounds.Dy()+top+bottom <= frameH {
		dy -= gap
	}
	return b.Shift(dy)
}
