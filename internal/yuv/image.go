// Package yuv holds planar YUV 4:2:0 (I420) frames and the conversion between
// them and packed RGB(A) images.
//
// An Image is one contiguous buffer: the full resolution Y plane followed by
// the quarter resolution U and V planes. Images are immutable once built; every
// transform returns a new Image.
package yuv

import (
	"errors"
	"fmt"
	"image"
	"os"
)

// MaxDimension is the largest width or height accepted by the converter.
const MaxDimension = 16383

var (
	// ErrSizeMismatch is matched by *SizeMismatchError.
	ErrSizeMismatch = errors.New("yuv: buffer size does not match dimensions")
	// ErrTooLarge is returned for images wider or taller than MaxDimension.
	ErrTooLarge = errors.New("yuv: image exceeds maximum dimension")
	// ErrTooSmall is returned when an image has no pixels left after trimming to even dimensions.
	ErrTooSmall = errors.New("yuv: image too small")
	// ErrOddDimensions is returned when raw planar data is described with odd dimensions.
	ErrOddDimensions = errors.New("yuv: dimensions must be even")
)

// SizeMismatchError reports raw planar data whose length is not w*h*3/2.
type SizeMismatchError struct {
	Width, Height int
	Want, Got     int
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("yuv: %dx%d frame needs %d bytes, got %d", e.Width, e.Height, e.Want, e.Got)
}

// Is makes errors.Is(err, ErrSizeMismatch) work.
func (e *SizeMismatchError) Is(target error) bool { return target == ErrSizeMismatch }

// Image is a YUV 4:2:0 planar frame with even width and height.
type Image struct {
	width, height int
	data          []byte
}

// FrameSize returns the byte length of a w x h planar frame.
func FrameSize(w, h int) int { return w*h + 2*(w*h/4) }

func newImage(w, h int) *Image {
	return &Image{width: w, height: h, data: make([]byte, FrameSize(w, h))}
}

// FromRaw wraps a raw I420 dump. The bytes are copied.
func FromRaw(data []byte, w, h int) (*Image, error) {
	if err := checkDimensions(w, h); err != nil {
		return nil, err
	}
	if w%2 != 0 || h%2 != 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrOddDimensions, w, h)
	}
	if want := FrameSize(w, h); len(data) != want {
		return nil, &SizeMismatchError{Width: w, Height: h, Want: want, Got: len(data)}
	}
	img := &Image{width: w, height: h, data: make([]byte, len(data))}
	copy(img.data, data)
	return img, nil
}

// OpenRaw reads a headerless I420 file written by Save.
func OpenRaw(path string, w, h int) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read raw frame: %w", err)
	}
	img, err := FromRaw(data, w, h)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

// Open decodes an image file in any registered container format and converts it.
func Open(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	src, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return FromImage(src)
}

func checkDimensions(w, h int) error {
	if w <= 0 || h <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrTooSmall, w, h)
	}
	if w > MaxDimension || h > MaxDimension {
		return fmt.Errorf("%w: %dx%d (max %d)", ErrTooLarge, w, h, MaxDimension)
	}
	return nil
}

// Width of the luma plane in pixels.
func (m *Image) Width() int { return m.width }

// Height of the luma plane in pixels.
func (m *Image) Height() int { return m.height }

// Dimensions returns width and height.
func (m *Image) Dimensions() (int, int) { return m.width, m.height }

// LumaSize is the byte length of the Y plane.
func (m *Image) LumaSize() int { return m.width * m.height }

// ChromaSize is the byte length of each of the U and V planes.
func (m *Image) ChromaSize() int { return m.width * m.height / 4 }

// WellFormed reports whether the buffer length matches the dimensions.
func (m *Image) WellFormed() bool {
	return len(m.data) == m.LumaSize()+2*m.ChromaSize()
}

// Data returns the whole planar buffer. Callers must not modify it.
func (m *Image) Data() []byte { return m.data[:len(m.data):len(m.data)] }

// Y returns the luma plane, stride Width().
func (m *Image) Y() []byte {
	return m.plane("Y", 0, m.LumaSize())
}

// U returns the first chroma plane, stride Width()/2.
func (m *Image) U() []byte {
	l := m.LumaSize()
	return m.plane("U", l, l+m.ChromaSize())
}

// V returns the second chroma plane, stride Width()/2.
func (m *Image) V() []byte {
	l, c := m.LumaSize(), m.ChromaSize()
	return m.plane("V", l+c, l+2*c)
}

// plane panics on a malformed buffer: images are only built by this package,
// so a bad size is a bug here, not bad input.
func (m *Image) plane(name string, from, to int) []byte {
	if !m.WellFormed() {
		panic(fmt.Sprintf("yuv: malformed %dx%d buffer of %d bytes", m.width, m.height, len(m.data)))
	}
	if from < 0 || to > len(m.data) || from > to {
		panic(fmt.Sprintf("yuv: bad (%s) plane range [%d:%d]", name, from, to))
	}
	return m.data[from:to:to]
}

// Clone returns a deep copy.
func (m *Image) Clone() *Image {
	out := &Image{width: m.width, height: m.height, data: make([]byte, len(m.data))}
	copy(out.data, m.data)
	return out
}

// YCbCr returns a stdlib view sharing the planes, useful for image encoders.
func (m *Image) YCbCr() *image.YCbCr {
	return &image.YCbCr{
		Y:              m.Y(),
		Cb:             m.U(),
		Cr:             m.V(),
		YStride:        m.width,
		CStride:        m.width / 2,
		SubsampleRatio: image.YCbCrSubsampleRatio420,
		Rect:           image.Rect(0, 0, m.width, m.height),
	}
}

// Save writes the raw planar bytes with no header. The dimensions must be
// tracked separately, see FFplayHint.
func (m *Image) Save(path string) error {
	if err := os.WriteFile(path, m.data, 0o644); err != nil {
		return fmt.Errorf("save frame: %w", err)
	}
	return nil
}

// FFplayHint returns the command that plays a file written by Save.
func (m *Image) FFplayHint(path string) string {
	return fmt.Sprintf("ffplay -video_size %dx%d -pixel_format yuv420p %s", m.width, m.height, path)
}
