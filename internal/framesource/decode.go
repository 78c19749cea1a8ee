package framesource

import (
	"bytes"
	"fmt"
	"image"
	"os"

	"imager/internal/sequence"
	"imager/internal/yuv"
)

// DecodeError names the file that failed to decode.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("decode %s: %v", e.Path, e.Err) }

func (e *DecodeError) Unwrap() error { return e.Err }

// DecodeImage decodes PNG, JPEG, GIF or WebP data and reports the format name.
func DecodeImage(data []byte) (image.Image, string, error) {
	return image.Decode(bytes.NewReader(data))
}

// OpenFrame reads, decodes and converts one image file.
func OpenFrame(path string, opts yuv.Options) (*yuv.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	img, _, err := DecodeImage(data)
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	frame, err := yuv.FromImageWithOptions(img, opts)
	if err != nil {
		return nil, fmt.Errorf("convert %s: %w", path, err)
	}
	return frame, nil
}

// FromImage wraps one converted image in a sequence.
func FromImage(img image.Image) (*sequence.Sequence, error) {
	frame, err := yuv.FromImage(img)
	if err != nil {
		return nil, err
	}
	return sequence.Singleton(frame), nil
}

// FromPNG decodes PNG data into a one-frame sequence.
func FromPNG(data []byte) (*sequence.Sequence, error) {
	return fromFormat(data, "png")
}

// FromJPEG decodes JPEG data into a one-frame sequence.
func FromJPEG(data []byte) (*sequence.Sequence, error) {
	return fromFormat(data, "jpeg")
}

func fromFormat(data []byte, want string) (*sequence.Sequence, error) {
	img, format, err := DecodeImage(data)
	if err != nil {
		return nil, fmt.Errorf("load %s source: %w", want, err)
	}
	if format != want {
		return nil, fmt.Errorf("load %s source: got %s data", want, format)
	}
	return FromImage(img)
}
