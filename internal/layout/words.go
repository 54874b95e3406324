package layout

import (
	"image"
	"strings"
)

// Words splits b into one single line block per word, positioned where the
// word sits inside its line. Words dropped by truncation have no block.
func (b Block) Words(faces *Faces) ([]Block, error) {
	var out []Block
	for _, line := range b.Lines {
		rest := line.Text
		offset := 0
		for _, word := range strings.Fields(line.Text) {
			at := strings.Index(rest, word)
			start := offset + at
			prefix, err := faces.Measure(b.Size, line.Text[:start])
			if err != nil {
				return nil, err
			}
			width, err := faces.Measure(b.Size, word)
			if err != nil {
				return nil, err
			}
			x := line.X + prefix
			out = append(out, Block{
				Lines:      []Line{{Text: word, X: x, Baseline: line.Baseline, Width: width}},
				Anchor:     image.Pt(x+width/2, line.Baseline),
				Size:       b.Size,
				LineHeight: b.LineHeight,
				Ascent:     b.Ascent,
				Descent:    b.Descent,
				Spacing:    b.Spacing,
				Bounds:     image.Rect(x, line.Baseline-b.Ascent, x+width, line.Baseline+b.Descent),
			})
			offset = start + len(word)
			rest = line.Text[offset:]
		}
	}
	if b.Truncated && len(out) > 0 {
		out[len(out)-1].Truncated = true
	}
	return out, nil
}
