package stream

import (
	"image"
	"image/color"
	"sync"
	"time"

	"imager/internal/sequence"
	"imager/internal/yuv"
)

// Source produces planar frames of a fixed size for a pipeline.
type Source interface {
	// Next returns the next frame and false once the source is exhausted or stopped.
	Next() (*yuv.Image, bool)
	Stop()
}

// Sized is implemented by sources that know their frame size up front.
type Sized interface {
	Size() (int, int)
}

// SequenceOptions controls how a SequenceSource plays its frames.
type SequenceOptions struct {
	// Loop rewinds to the first frame after the last one.
	Loop bool
	// Width and Height resize every frame when both are set and differ
	// from the sequence.
	Width, Height int
}

// SequenceSource plays a sequence handle. It owns the handle and releases
// it on Stop. Safe for use by one pipeline while another goroutine calls Stop.
type SequenceSource struct {
	mu      sync.Mutex
	seq     *sequence.Sequence
	loop    bool
	w, h    int
	stopped bool
}

// NewSequenceSource takes ownership of seq; pass a Duplicate to keep your own handle.
func NewSequenceSource(seq *sequence.Sequence, opts SequenceOptions) *SequenceSource {
	w, h := seq.Dimensions()
	if opts.Width > 0 && opts.Height > 0 {
		w, h = opts.Width&^1, opts.Height&^1
	}
	return &SequenceSource{seq: seq, loop: opts.Loop, w: w, h: h}
}

// Size reports the size of the frames Next returns.
func (s *SequenceSource) Size() (int, int) { return s.w, s.h }

func (s *SequenceSource) Next() (*yuv.Image, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil, false
	}
	frame, ok := s.seq.Next()
	if !ok {
		if !s.loop {
			return nil, false
		}
		s.seq.SetCursor(0)
		incFramesLooped()
		if frame, ok = s.seq.Next(); !ok {
			return nil, false
		}
	}
	if frame.Width() == s.w && frame.Height() == s.h {
		return frame, true
	}
	resized, err := frame.Resize(s.w, s.h)
	if err != nil {
		return nil, false
	}
	return resized, true
}

// Position reports the index of the next frame.
func (s *SequenceSource) Position() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return 0
	}
	return s.seq.Position()
}

func (s *SequenceSource) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true
	s.seq.Release()
}

// synthetic generates a moving gradient pattern.
type synthetic struct {
	mu   sync.Mutex
	w, h int
	rgb  *image.NRGBA
	t0   time.Time
	stop bool
}

// NewSynthetic returns a moving-gradient source, used when no frames are loaded.
func NewSynthetic(w, h int) Source {
	w, h = max(w&^1, 2), max(h&^1, 2)
	return &synthetic{w: w, h: h, rgb: image.NewNRGBA(image.Rect(0, 0, w, h)), t0: time.Now()}
}

func (s *synthetic) Size() (int, int) { return s.w, s.h }

func (s *synthetic) Next() (*yuv.Image, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop {
		return nil, false
	}
	now := time.Since(s.t0).Seconds()
	for y := 0; y < s.h; y++ {
		for x := 0; x < s.w; x++ {
			s.rgb.SetNRGBA(x, y, color.NRGBA{
				R: byte((x + int(now*120)) % 256),
				G: byte((y + int(now*80)) % 256),
				B: byte((x + y + int(now*100)) % 256),
				A: 255,
			})
		}
	}
	frame, err := yuv.FromImageWithOptions(s.rgb, yuv.Options{Chroma: yuv.ChromaBox})
	if err != nil {
		return nil, false
	}
	return frame, true
}

func (s *synthetic) Stop() {
	s.mu.Lock()
	s.stop = true
	s.mu.Unlock()
}
