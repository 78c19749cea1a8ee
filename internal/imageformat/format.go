// Package imageformat names the packed image container formats the tools
// read and write, and parses the resolution strings used in configuration.
package imageformat

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/HugoSmits86/nativewebp"
)

// ErrUnsupported is returned for formats that cannot be encoded.
var ErrUnsupported = errors.New("imageformat: unsupported format")

// Format is a packed image container.
type Format int

// Supported formats.
const (
	JPEG Format = iota
	PNG
	WebP
)

func (f Format) String() string {
	switch f {
	case JPEG:
		return "jpeg"
	case PNG:
		return "png"
	case WebP:
		return "webp"
	default:
		return "Format(" + strconv.Itoa(int(f)) + ")"
	}
}

// Ext is the conventional file extension, with the dot.
func (f Format) Ext() string {
	if f == JPEG {
		return ".jpg"
	}
	return "." + f.String()
}

// ParseFormat accepts jpeg, jpg, png and webp in any case.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "jpeg", "jpg":
		return JPEG, nil
	case "png":
		return PNG, nil
	case "webp":
		return WebP, nil
	default:
		return 0, fmt.Errorf("unknown or unsupported output format %s", s)
	}
}

// UnmarshalText lets a Format be read from TOML.
func (f *Format) UnmarshalText(text []byte) error {
	v, err := ParseFormat(string(text))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (f Format) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

// Formats is a whitespace separated list such as "jpeg webp".
type Formats []Format

// DefaultFormats is used when none are configured.
func DefaultFormats() Formats { return Formats{JPEG, WebP} }

// ParseFormats parses every entry and reports all the invalid ones together.
func ParseFormats(s string) (Formats, error) {
	var out Formats
	var invalid []string
	for _, field := range strings.Fields(s) {
		f, err := ParseFormat(field)
		if err != nil {
			invalid = append(invalid, err.Error())
			continue
		}
		out = append(out, f)
	}
	if len(invalid) > 0 {
		return nil, errors.New(strings.Join(invalid, ", "))
	}
	return out, nil
}

func (fs Formats) String() string {
	names := make([]string, len(fs))
	for i, f := range fs {
		names[i] = f.String()
	}
	return strings.Join(names, " ")
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (fs *Formats) UnmarshalText(text []byte) error {
	v, err := ParseFormats(string(text))
	if err != nil {
		return err
	}
	*fs = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (fs Formats) MarshalText() ([]byte, error) { return []byte(fs.String()), nil }

// InferFromPath looks at the file extension only.
func InferFromPath(path string) (Format, bool) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return 0, false
	}
	f, err := ParseFormat(ext)
	return f, err == nil
}

// InferFromContainer sniffs the magic bytes of data.
func InferFromContainer(data []byte) (Format, bool) {
	switch {
	case bytes.HasPrefix(data, []byte{0xff, 0xd8, 0xff}):
		return JPEG, true
	case bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")):
		return PNG, true
	case len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP":
		return WebP, true
	default:
		return 0, false
	}
}

// InferFromFile reads path and sniffs its container.
func InferFromFile(path string) (Format, bool) {
	f, err := os.Open(path)
	if err != nil {
		return 0, false
	}
	defer f.Close()
	head := make([]byte, 12)
	n, _ := io.ReadFull(f, head)
	return InferFromContainer(head[:n])
}

// EncodeOptions tunes Encode.
type EncodeOptions struct {
	// Quality (1-100) applies to JPEG and lossy WebP.
	Quality int
	// Lossless selects lossless WebP.
	Lossless bool
}

// Encode writes img in format f at the given quality.
func Encode(w io.Writer, img image.Image, f Format, quality int) error {
	return EncodeWithOptions(w, img, f, EncodeOptions{Quality: quality})
}

// EncodeWithOptions writes img in format f. Lossy WebP needs cgo; without
// it WebP is always written lossless, see LossyWebPAvailable.
func EncodeWithOptions(w io.Writer, img image.Image, f Format, opts EncodeOptions) error {
	quality := opts.Quality
	if quality <= 0 || quality > 100 {
		quality = jpeg.DefaultQuality
	}
	switch f {
	case JPEG:
		return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
	case PNG:
		return png.Encode(w, img)
	case WebP:
		if opts.Lossless || !LossyWebPAvailable {
			return nativewebp.Encode(w, img, nil)
		}
		return encodeLossyWebP(w, img, quality)
	default:
		return fmt.Errorf("%w: encoding %s", ErrUnsupported, f)
	}
}
