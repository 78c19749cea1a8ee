// Package sequence provides an ordered, shareable list of planar frames read
// through a per-handle cursor.
//
// Handles created with Duplicate alias the same immutable frame list and keep
// independent cursors. The list is reference counted so IntoFrames can hand
// the backing slice over without a copy when no other handle is alive.
package sequence

import (
	"errors"
	"fmt"
	"sync/atomic"

	"imager/internal/yuv"
)

var (
	// ErrEmpty is returned when a sequence would hold no frames.
	ErrEmpty = errors.New("sequence: no frames")
	// ErrDimensionMismatch is returned when frames do not share one size.
	ErrDimensionMismatch = errors.New("sequence: frame dimensions differ")
)

type backing struct {
	frames []*yuv.Image
	refs   atomic.Int32
}

// Sequence is one handle onto a frame list. A handle is not safe for
// concurrent use; give each goroutine its own Duplicate.
type Sequence struct {
	width, height int
	shared        *backing
	cursor        int
}

// New builds a sequence from frames, which must be non-empty and uniformly
// sized. The slice is retained; callers must not modify it afterwards.
func New(frames []*yuv.Image) (*Sequence, error) {
	if len(frames) == 0 {
		return nil, ErrEmpty
	}
	w, h := frames[0].Dimensions()
	for i, f := range frames[1:] {
		if fw, fh := f.Dimensions(); fw != w || fh != h {
			return nil, fmt.Errorf("%w: frame %d is %dx%d, want %dx%d", ErrDimensionMismatch, i+1, fw, fh, w, h)
		}
	}
	b := &backing{frames: frames}
	b.refs.Store(1)
	return &Sequence{width: w, height: h, shared: b}, nil
}

// Singleton wraps one frame.
func Singleton(frame *yuv.Image) *Sequence {
	s, err := New([]*yuv.Image{frame})
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Sequence) live() *backing {
	if s.shared == nil {
		panic("sequence: handle used after Release or IntoFrames")
	}
	return s.shared
}

// Width of every frame.
func (s *Sequence) Width() int { return s.width }

// Height of every frame.
func (s *Sequence) Height() int { return s.height }

// Dimensions returns width and height.
func (s *Sequence) Dimensions() (int, int) { return s.width, s.height }

// Len is the number of frames.
func (s *Sequence) Len() int { return len(s.live().frames) }

// Position is the index the next call to Next reads.
func (s *Sequence) Position() int { return s.cursor }

// Next returns the frame under the cursor and advances. Once the cursor is
// past the last frame it returns nil, false and stays there.
func (s *Sequence) Next() (*yuv.Image, bool) {
	frames := s.live().frames
	if s.cursor >= len(frames) {
		return nil, false
	}
	f := frames[s.cursor]
	s.cursor++
	return f, true
}

// SetCursor moves the cursor. Positions at or past Len are valid and make
// Next report the end.
func (s *Sequence) SetCursor(pos int) {
	if pos < 0 {
		panic(fmt.Sprintf("sequence: negative cursor %d", pos))
	}
	s.cursor = pos
}

// Duplicate returns a new handle on the same frames at the same position.
func (s *Sequence) Duplicate() *Sequence {
	b := s.live()
	b.refs.Add(1)
	return &Sequence{width: s.width, height: s.height, shared: b, cursor: s.cursor}
}

// Frames is a read-only, ordered view of all frames.
func (s *Sequence) Frames() []*yuv.Image {
	frames := s.live().frames
	return frames[:len(frames):len(frames)]
}

// IntoFrames ends this handle and returns its frames. When it was the last
// live handle the backing slice is returned as is; otherwise every frame is
// cloned so the caller owns what it gets.
func (s *Sequence) IntoFrames() []*yuv.Image {
	b := s.live()
	s.shared = nil
	if b.refs.Add(-1) == 0 {
		return b.frames
	}
	out := make([]*yuv.Image, len(b.frames))
	for i, f := range b.frames {
		out[i] = f.Clone()
	}
	return out
}

// Release ends this handle without taking the frames. Calling it twice is a no-op.
func (s *Sequence) Release() {
	if s.shared == nil {
		return
	}
	s.shared.refs.Add(-1)
	s.shared = nil
}

// Shared reports how many live handles reference this handle's frames.
func (s *Sequence) Shared() int { return int(s.live().refs.Load()) }
