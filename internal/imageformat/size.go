package imageformat

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var errInvalidResolution = errors.New("invalid resolution")

// Resolution is a width and height, written "WxH".
type Resolution struct {
	Width  int
	Height int
}

func (r Resolution) String() string { return fmt.Sprintf("%dx%d", r.Width, r.Height) }

// ParseResolution parses "WxH".
func ParseResolution(s string) (Resolution, error) {
	ws, hs, ok := strings.Cut(s, "x")
	if !ok {
		return Resolution{}, fmt.Errorf("%w: %q", errInvalidResolution, s)
	}
	w, err := strconv.Atoi(ws)
	if err != nil || w < 0 {
		return Resolution{}, fmt.Errorf("%w: %q", errInvalidResolution, s)
	}
	h, err := strconv.Atoi(hs)
	if err != nil || h < 0 {
		return Resolution{}, fmt.Errorf("%w: %q", errInvalidResolution, s)
	}
	return Resolution{Width: w, Height: h}, nil
}

// Size is either the source's own resolution ("full") or an explicit one.
// The zero value is Full.
type Size struct {
	px *Resolution
}

// Full keeps the source resolution.
func Full() Size { return Size{} }

// Px requests an explicit resolution.
func Px(w, h int) Size { return Size{px: &Resolution{Width: w, Height: h}} }

// IsFull reports whether no explicit resolution was requested.
func (s Size) IsFull() bool { return s.px == nil }

// Resolution returns the explicit resolution, if any.
func (s Size) Resolution() (Resolution, bool) {
	if s.px == nil {
		return Resolution{}, false
	}
	return *s.px, true
}

func (s Size) String() string {
	if s.px == nil {
		return "full"
	}
	return s.px.String()
}

// ParseSize parses "full" or "WxH". The empty string means full.
func ParseSize(str string) (Size, error) {
	if str == "" || str == "full" {
		return Full(), nil
	}
	r, err := ParseResolution(str)
	if err != nil {
		return Size{}, err
	}
	return Size{px: &r}, nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Size) UnmarshalText(text []byte) error {
	v, err := ParseSize(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (s Size) MarshalText() ([]byte, error) { return []byte(s.String()), nil }
