package layout

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// ErrFontNotFound is returned when a configured font file does not exist.
var ErrFontNotFound = errors.New("font file not found")

const defaultDPI = 72

// FontSpec describes the caption font. An empty Path selects the embedded Go
// Regular face.
type FontSpec struct {
	Path    string
	Size    float64
	MinSize float64
	DPI     float64
}

// Metrics holds the vertical metrics of a face at one size, in pixels.
type Metrics struct {
	Ascent     int
	Descent    int
	LineHeight int
}

// Faces parses a font once and hands out one face per point size. Faces from
// x/image/font/opentype are not safe for concurrent use, so measurement goes
// through Measure which serialises access.
type Faces struct {
	mu    sync.Mutex
	font  *opentype.Font
	dpi   float64
	faces map[float64]font.Face
}

// LoadFaces reads and parses the font described by spec.
func LoadFaces(spec FontSpec) (*Faces, error) {
	data := goregular.TTF
	if spec.Path != "" {
		raw, err := os.ReadFile(spec.Path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("%s: %w", spec.Path, ErrFontNotFound)
			}
			return nil, fmt.Errorf("read font %s: %w", spec.Path, err)
		}
		data = raw
	}
	parsed, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font %q: %w", spec.Path, err)
	}
	dpi := spec.DPI
	if dpi <= 0 {
		dpi = defaultDPI
	}
	return &Faces{font: parsed, dpi: dpi, faces: make(map[float64]font.Face)}, nil
}

// Face returns the cached face for size, creating it on first use. The face
// must only be drawn with from one goroutine at a time.
func (f *Faces) Face(size float64) (font.Face, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.faceLocked(size)
}

func (f *Faces) faceLocked(size float64) (font.Face, error) {
	if face, ok := f.faces[size]; ok {
		return face, nil
	}
	face, err := opentype.NewFace(f.font, &opentype.FaceOptions{
		Size:    size,
		DPI:     f.dpi,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("create face at %.1fpt: %w", size, err)
	}
	f.faces[size] = face
	return face, nil
}

// Measure returns the advance width of text in pixels at size.
func (f *Faces) Measure(size float64, text string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	face, err := f.faceLocked(size)
	if err != nil {
		return 0, err
	}
	return font.MeasureString(face, text).Ceil(), nil
}

// Metrics returns the vertical metrics at size.
func (f *Faces) Metrics(size float64) (Metrics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	face, err := f.faceLocked(size)
	if err != nil {
		return Metrics{}, err
	}
	m := face.Metrics()
	ascent := m.Ascent.Ceil()
	descent := m.Descent.Ceil()
	height := m.Height.Ceil()
	if height < ascent+descent {
		height = ascent + descent
	}
	return Metrics{Ascent: ascent, Descent: descent, LineHeight: height}, nil
}

// Close releases every cached face.
func (f *Faces) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var errs []error
	for size, face := range f.faces {
		if err := face.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(f.faces, size)
	}
	return errors.Join(errs...)
}

