// SPDX-License-Identifier: MIT
package camera

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
)

var frameExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// ListFrames returns the image files in dir in lexical order.
func ListFrames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read frame directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !frameExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// Sequence replays still images from a directory as a camera feed, one file per
// ReadFrame call.
type Sequence struct {
	dir  string
	loop bool
}

// NewSequence returns a source over dir. With loop set the sequence restarts after
// the last file; otherwise the stream reports ErrFrameUnavailable once exhausted.
func NewSequence(dir string, loop bool) *Sequence {
	return &Sequence{dir: dir, loop: loop}
}

// Acquire lists the directory; it fails with ErrNoFrames when no image is found.
func (s *Sequence) Acquire(ctx context.Context) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	files, err := ListFrames(s.dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoFrames, s.dir)
	}
	return &sequenceStream{files: files, loop: s.loop}, nil
}

type sequenceStream struct {
	files    []string
	loop     bool
	next     int
	frame    *image.RGBA
	released atomic.Bool
}

func (s *sequenceStream) ReadFrame() (*image.RGBA, error) {
	if s.released.Load() {
		return nil, ErrReleased
	}
	if s.next >= len(s.files) {
		if !s.loop {
			return nil, ErrFrameUnavailable
		}
		s.next = 0
	}

	path := s.files[s.next]
	s.next++

	img, err := decodeFile(path)
	if err != nil {
		return nil, err
	}
	s.frame = toRGBA(s.frame, img)
	return s.frame, nil
}

func (s *sequenceStream) Release() error {
	s.released.Store(true)
	return nil
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open frame: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame %s: %w", filepath.Base(path), err)
	}
	return img, nil
}

// toRGBA converts img into dst, reusing dst when the bounds match.
func toRGBA(dst *image.RGBA, img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	if dst == nil || dst.Rect != b {
		dst = image.NewRGBA(b)
	}
	draw.Draw(dst, b, img, b.Min, draw.Src)
	return dst
}
