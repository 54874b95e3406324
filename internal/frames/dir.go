package frames

import (
	"context"
	"crypto/sha256"
	"fmt"
	"image"
	"image/draw"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/disintegration/imaging"
)

var frameExtensions = map[string]bool{".png": true, ".jpg": true, ".jpeg": true}

// DirSource reads an image sequence from a directory in lexical file order.
// Frames are decoded lazily so only one is held at a time.
type DirSource struct {
	dir   string
	files []string
	info  Info
	next  int
	frame *image.RGBA
}

// OpenDir lists the frames in dir. Every frame is scaled to the size of the
// first one after the optional height cap is applied.
func OpenDir(dir string, fps float64, height int) (*DirSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &ResourceError{Path: dir, Op: "open", Err: err}
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if frameExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)
	if fps <= 0 {
		fps = DefaultFPS
	}

	info := Info{FrameRate: fps, TotalFrames: len(files), Duration: float64(len(files)) / fps}
	if len(files) > 0 {
		first, err := imaging.Open(files[0])
		if err != nil {
			return nil, &ResourceError{Path: files[0], Op: "decode", Err: err}
		}
		b := first.Bounds()
		info.Width, info.Height = scaledSize(b.Dx(), b.Dy(), height)
	}
	info.Fingerprint = dirFingerprint(files, fps, info.Width, info.Height)

	src := &DirSource{dir: dir, files: files, info: info}
	if info.Width > 0 {
		src.frame = image.NewRGBA(image.Rect(0, 0, info.Width, info.Height))
	}
	return src, nil
}

func (s *DirSource) Info() Info { return s.info }

func (s *DirSource) Next(ctx context.Context) (*image.RGBA, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.next >= len(s.files) {
		return nil, io.EOF
	}
	path := s.files[s.next]
	s.next++

	img, err := imaging.Open(path)
	if err != nil {
		return nil, &ResourceError{Path: path, Op: "decode", Err: err}
	}
	if b := img.Bounds(); b.Dx() != s.info.Width || b.Dy() != s.info.Height {
		img = imaging.Resize(img, s.info.Width, s.info.Height, imaging.Lanczos)
	}
	draw.Draw(s.frame, s.frame.Rect, img, img.Bounds().Min, draw.Src)
	return s.frame, nil
}

func (s *DirSource) Close() error { return nil }

func dirFingerprint(files []string, fps float64, width, height int) string {
	h := sha256.New()
	fmt.Fprintf(h, "%g|%dx%d", fps, width, height)
	for _, f := range files {
		stat, err := os.Stat(f)
		if err != nil {
			fmt.Fprintf(h, "|%s", f)
			continue
		}
		fmt.Fprintf(h, "|%s|%d|%d", f, stat.Size(), stat.ModTime().UnixNano())
	}
	return fmt.Sprintf("sha256:%x", h.Sum(nil))
}

// Open picks a source for path: a directory becomes a DirSource, anything
// else is decoded with ffmpeg.
func Open(ctx context.Context, path string, opts FFmpegOptions) (Source, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, &ResourceError{Path: path, Op: "open", Err: err}
	}
	if stat.IsDir() {
		src, err := OpenDir(path, opts.FPS, opts.Height)
		if err != nil {
			return nil, err
		}
		return src, nil
	}
	src, err := OpenVideo(ctx, path, opts)
	if err != nil {
		return nil, err
	}
	return src, nil
}
