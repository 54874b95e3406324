package encode

import (
	"bufio"
	"compress/lzw"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"
	"math"
)

// Loop values for Options.LoopCount.
const (
	LoopForever = 0
	PlayOnce    = -1
)

// Options controls the animation written by Encoder.
type Options struct {
	FPS float64
	// LoopCount is the NETSCAPE2.0 repeat count. Zero loops forever and a
	// negative value omits the extension so the animation plays once.
	LoopCount int
	Quantizer Quantizer
	Dither    bool
}

// Encoder writes a GIF89a stream one frame at a time so memory stays bounded
// by a single frame.
type Encoder struct {
	w      *bufio.Writer
	width  int
	height int
	opts   Options

	count   int
	elapsed int
	err     error
	closed  bool

	paletted *image.Paletted
	lookup   map[uint32]uint8
	buf      [16]byte
}

// NewEncoder writes the GIF header, logical screen and loop extension.
func NewEncoder(w io.Writer, width, height int, opts Options) (*Encoder, error) {
	if width < 0 || height < 0 || width > math.MaxUint16 || height > math.MaxUint16 {
		return nil, &EncodeError{Op: "header", Err: fmt.Errorf("invalid size %dx%d", width, height)}
	}
	if opts.FPS <= 0 || math.IsNaN(opts.FPS) || math.IsInf(opts.FPS, 0) {
		return nil, &EncodeError{Op: "header", Err: fmt.Errorf("invalid frame rate %v", opts.FPS)}
	}
	if opts.Quantizer == nil {
		opts.Quantizer = MedianCut{}
	}
	e := &Encoder{w: bufio.NewWriter(w), width: width, height: height, opts: opts}
	e.writeHeader()
	if e.err != nil {
		return nil, &EncodeError{Op: "header", Err: e.err}
	}
	return e, nil
}

func (e *Encoder) write(p []byte) {
	if e.err != nil {
		return
	}
	_, e.err = e.w.Write(p)
}

func (e *Encoder) writeByte(b byte) {
	if e.err != nil {
		return
	}
	e.err = e.w.WriteByte(b)
}

func (e *Encoder) writeUint16(v int) {
	binary.LittleEndian.PutUint16(e.buf[:2], uint16(v))
	e.write(e.buf[:2])
}

func (e *Encoder) writeHeader() {
	e.write([]byte("GIF89a"))
	e.writeUint16(e.width)
	e.writeUint16(e.height)
	// No global colour table; every frame carries its own.
	e.write([]byte{0x00, 0x00, 0x00})

	if e.opts.LoopCount >= 0 {
		e.write([]byte{0x21, 0xff, 0x0b})
		e.write([]byte("NETSCAPE2.0"))
		e.write([]byte{0x03, 0x01})
		e.writeUint16(e.opts.LoopCount)
		e.writeByte(0x00)
	}
}

// Delay returns the display time in hundredths of a second for frame index
// i. Rounding error is carried so the total tracks the requested rate.
func Delay(i int, fps float64) int {
	end := int(math.Round(float64(i+1) * 100 / fps))
	start := int(math.Round(float64(i) * 100 / fps))
	return max(1, end-start)
}

// WriteFrame quantizes img and appends it to the stream.
func (e *Encoder) WriteFrame(img image.Image) error {
	if e.closed {
		return &EncodeError{Op: "frame", Err: errors.New("encoder is closed")}
	}
	if e.err != nil {
		return &EncodeError{Op: "frame", Err: e.err}
	}
	bounds := img.Bounds()
	if bounds.Dx() != e.width || bounds.Dy() != e.height {
		return &EncodeError{Op: "frame", Err: fmt.Errorf("frame %d is %dx%d, want %dx%d", e.count, bounds.Dx(), bounds.Dy(), e.width, e.height)}
	}

	palette := e.opts.Quantizer.Quantize(img)
	if len(palette) == 0 {
		palette = color.Palette{color.Black}
	}
	if len(palette) > 256 {
		palette = palette[:256]
	}
	paletted := e.palettedFor(palette)
	if e.opts.Dither {
		draw.FloydSteinberg.Draw(paletted, paletted.Rect, img, bounds.Min)
	} else {
		e.mapNearest(paletted, img)
	}

	delay := Delay(e.count, e.opts.FPS)
	e.writeGraphicControl(delay)
	e.writeImage(paletted)
	if e.err != nil {
		return &EncodeError{Op: "frame", Err: e.err}
	}
	e.count++
	e.elapsed += delay
	return nil
}

func (e *Encoder) palettedFor(palette color.Palette) *image.Paletted {
	if e.paletted == nil {
		e.paletted = image.NewPaletted(image.Rect(0, 0, e.width, e.height), palette)
	} else {
		e.paletted.Palette = palette
	}
	if e.lookup == nil {
		e.lookup = make(map[uint32]uint8, 4096)
	} else {
		clear(e.lookup)
	}
	return e.paletted
}

// mapNearest assigns every pixel its closest palette entry, memoising exact
// colours since video frames repeat them heavily.
func (e *Encoder) mapNearest(dst *image.Paletted, img image.Image) {
	origin := img.Bounds().Min
	rgba, _ := img.(*image.RGBA)
	for y := 0; y < e.height; y++ {
		row := dst.Pix[y*dst.Stride : y*dst.Stride+e.width]
		for x := range row {
			var c color.RGBA
			if rgba != nil {
				i := rgba.PixOffset(origin.X+x, origin.Y+y)
				c = color.RGBA{R: rgba.Pix[i], G: rgba.Pix[i+1], B: rgba.Pix[i+2], A: rgba.Pix[i+3]}
			} else {
				c = color.RGBAModel.Convert(img.At(origin.X+x, origin.Y+y)).(color.RGBA)
			}
			key := uint32(c.R)<<24 | uint32(c.G)<<16 | uint32(c.B)<<8 | uint32(c.A)
			idx, ok := e.lookup[key]
			if !ok {
				idx = uint8(dst.Palette.Index(c))
				e.lookup[key] = idx
			}
			row[x] = idx
		}
	}
}

func (e *Encoder) writeGraphicControl(delay int) {
	// Disposal method 1: leave the frame in place.
	e.write([]byte{0x21, 0xf9, 0x04, 0x01 << 2})
	e.writeUint16(delay)
	e.write([]byte{0x00, 0x00})
}

func (e *Encoder) writeImage(img *image.Paletted) {
	bits := paletteBits(len(img.Palette))
	e.writeByte(0x2c)
	e.writeUint16(0)
	e.writeUint16(0)
	e.writeUint16(e.width)
	e.writeUint16(e.height)
	e.writeByte(0x80 | byte(bits-1))

	table := make([]byte, 3<<bits)
	for i, c := range img.Palette {
		r, g, b, _ := c.RGBA()
		table[3*i] = byte(r >> 8)
		table[3*i+1] = byte(g >> 8)
		table[3*i+2] = byte(b >> 8)
	}
	e.write(table)

	litWidth := max(2, bits)
	e.writeByte(byte(litWidth))
	if e.err != nil {
		return
	}
	bw := &blockWriter{w: e.w}
	lw := lzw.NewWriter(bw, lzw.LSB, litWidth)
	for y := 0; y < e.height; y++ {
		if _, err := lw.Write(img.Pix[y*img.Stride : y*img.Stride+e.width]); err != nil {
			e.err = err
			_ = lw.Close()
			return
		}
	}
	if err := lw.Close(); err != nil {
		e.err = err
		return
	}
	e.err = bw.close()
}

// paletteBits returns the colour table size exponent, between 1 and 8.
func paletteBits(n int) int {
	bits := 1
	for 1<<bits < n {
		bits++
	}
	return bits
}

// Count returns the number of frames written.
func (e *Encoder) Count() int {
	return e.count
}

// Elapsed returns the total display time written so far in hundredths of a
// second.
func (e *Encoder) Elapsed() int {
	return e.elapsed
}

// Close writes the trailer and flushes. It does not close the underlying
// writer.
func (e *Encoder) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	e.writeByte(0x3b)
	if e.err == nil {
		e.err = e.w.Flush()
	}
	if e.err != nil {
		return &EncodeError{Op: "close", Err: e.err}
	}
	return nil
}

// blockWriter splits LZW output into GIF data sub-blocks of at most 255
// bytes each.
type blockWriter struct {
	w   *bufio.Writer
	buf [256]byte
	n   int
}

func (b *blockWriter) Write(p []byte) (int, error) {
	written := 0
	for len(p) > 0 {
		c := copy(b.buf[1+b.n:], p)
		b.n += c
		p = p[c:]
		written += c
		if b.n == 255 {
			if err := b.flush(); err != nil {
				return written, err
			}
		}
	}
	return written, nil
}

func (b *blockWriter) flush() error {
	if b.n == 0 {
		return nil
	}
	b.buf[0] = byte(b.n)
	_, err := b.w.Write(b.buf[:1+b.n])
	b.n = 0
	return err
}

func (b *blockWriter) close() error {
	if err := b.flush(); err != nil {
		return err
	}
	return b.w.WriteByte(0x00)
}
