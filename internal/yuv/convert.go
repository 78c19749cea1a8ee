package yuv

import (
	"fmt"
	"image"
	"image/color"
	"strings"
)

// ChromaFilter selects how each 2x2 block of pixels is reduced to one chroma pair.
type ChromaFilter int

const (
	// ChromaSharp weights every pixel of the block by the inverse of its
	// local luma gradient, so pixels sitting on hard edges lend less of their
	// colour to the block.
	ChromaSharp ChromaFilter = iota
	// ChromaBox averages the block's RGB values and converts once. Cheaper,
	// but colour bleeds across luma edges.
	ChromaBox
)

func (f ChromaFilter) String() string {
	switch f {
	case ChromaSharp:
		return "sharp"
	case ChromaBox:
		return "box"
	default:
		return fmt.Sprintf("ChromaFilter(%d)", int(f))
	}
}

// ParseChromaFilter parses "sharp" or "box". The empty string means sharp.
func ParseChromaFilter(s string) (ChromaFilter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sharp":
		return ChromaSharp, nil
	case "box":
		return ChromaBox, nil
	default:
		return 0, fmt.Errorf("unknown chroma filter %q", s)
	}
}

// Options tune FromImageWithOptions.
type Options struct {
	Chroma ChromaFilter
}

// FromImage converts a packed image using the sharp chroma filter.
func FromImage(src image.Image) (*Image, error) {
	return FromImageWithOptions(src, Options{})
}

// FromImageWithOptions converts a packed image to planar 4:2:0. An odd right
// column or bottom row is cropped away first. Alpha is discarded.
func FromImageWithOptions(src image.Image, opts Options) (*Image, error) {
	b := src.Bounds()
	w, h := b.Dx()&^1, b.Dy()&^1
	if err := checkDimensions(w, h); err != nil {
		return nil, err
	}
	rgb := packRGB(src, w, h)
	out := newImage(w, h)
	rgbToPlanar(rgb, w, h, out, opts.Chroma)
	return out, nil
}

// packRGB copies the top-left w x h pixels of src into a tight RGB24 buffer.
func packRGB(src image.Image, w, h int) []byte {
	rgb := make([]byte, w*h*3)
	b := src.Bounds()
	switch s := src.(type) {
	case *image.NRGBA:
		for y := 0; y < h; y++ {
			row := s.Pix[s.PixOffset(b.Min.X, b.Min.Y+y):]
			dst := rgb[y*w*3:]
			for x := 0; x < w; x++ {
				dst[x*3+0] = row[x*4+0]
				dst[x*3+1] = row[x*4+1]
				dst[x*3+2] = row[x*4+2]
			}
		}
	case *image.RGBA:
		for y := 0; y < h; y++ {
			row := s.Pix[s.PixOffset(b.Min.X, b.Min.Y+y):]
			dst := rgb[y*w*3:]
			for x := 0; x < w; x++ {
				dst[x*3+0] = row[x*4+0]
				dst[x*3+1] = row[x*4+1]
				dst[x*3+2] = row[x*4+2]
			}
		}
	default:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				c := color.NRGBAModel.Convert(src.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
				off := (y*w + x) * 3
				rgb[off+0] = c.R
				rgb[off+1] = c.G
				rgb[off+2] = c.B
			}
		}
	}
	return rgb
}

// rgbToPlanar fills dst from an RGB24 buffer.
// Simple integer approximation of BT.601 studio range.
func rgbToPlanar(rgb []byte, w, h int, dst *Image, filter ChromaFilter) {
	luma := dst.Y()
	for i := 0; i < w*h; i++ {
		r, g, b := int(rgb[i*3]), int(rgb[i*3+1]), int(rgb[i*3+2])
		luma[i] = clamp8(lumaOf(r, g, b))
	}
	u, v := dst.U(), dst.V()
	switch filter {
	case ChromaBox:
		boxChroma(rgb, w, h, u, v)
	default:
		sharpChroma(rgb, luma, w, h, u, v)
	}
}

func lumaOf(r, g, b int) int { return ((66*r + 129*g + 25*b + 128) >> 8) + 16 }
func uOf(r, g, b int) int    { return ((-38*r - 74*g + 112*b + 128) >> 8) + 128 }
func vOf(r, g, b int) int    { return ((112*r - 94*g - 18*b + 128) >> 8) + 128 }

func boxChroma(rgb []byte, w, h int, u, v []byte) {
	for by := 0; by < h; by += 2 {
		for bx := 0; bx < w; bx += 2 {
			var rSum, gSum, bSum int
			for dy := 0; dy < 2; dy++ {
				for dx := 0; dx < 2; dx++ {
					off := ((by+dy)*w + bx + dx) * 3
					rSum += int(rgb[off+0])
					gSum += int(rgb[off+1])
					bSum += int(rgb[off+2])
				}
			}
			r, g, b := rSum>>2, gSum>>2, bSum>>2
			ci := (by/2)*(w/2) + bx/2
			u[ci] = clamp8(uOf(r, g, b))
			v[ci] = clamp8(vOf(r, g, b))
		}
	}
}

func sharpChroma(rgb, luma []byte, w, h int, u, v []byte) {
	for by := 0; by < h; by += 2 {
		for bx := 0; bx < w; bx += 2 {
			var uSum, vSum, wSum int
			for dy := 0; dy < 2; dy++ {
				for dx := 0; dx < 2; dx++ {
					x, y := bx+dx, by+dy
					off := (y*w + x) * 3
					r, g, b := int(rgb[off+0]), int(rgb[off+1]), int(rgb[off+2])
					wt := edgeWeight(luma, w, h, x, y)
					uSum += wt * uOf(r, g, b)
					vSum += wt * vOf(r, g, b)
					wSum += wt
				}
			}
			ci := (by/2)*(w/2) + bx/2
			u[ci] = clamp8((uSum + wSum/2) / wSum)
			v[ci] = clamp8((vSum + wSum/2) / wSum)
		}
	}
}

// edgeWeight is 4096/(16+g) where g is the central-difference luma gradient
// at (x, y), with neighbours clamped to the image. Range [7, 256].
func edgeWeight(luma []byte, w, h, x, y int) int {
	xl, xr := max(x-1, 0), min(x+1, w-1)
	yu, yd := max(y-1, 0), min(y+1, h-1)
	g := absInt(int(luma[y*w+xr])-int(luma[y*w+xl])) + absInt(int(luma[yd*w+x])-int(luma[yu*w+x]))
	return 4096 / (16 + g)
}

// ToRGBA converts back to a packed, fully opaque image. Chroma is upsampled
// nearest-neighbour.
func (m *Image) ToRGBA() *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, m.width, m.height))
	planarToRGBA(m.Y(), m.U(), m.V(), m.width, m.height, out.Pix)
	return out
}

func planarToRGBA(y, u, v []byte, w, h int, out []byte) {
	for yy := 0; yy < h; yy++ {
		for xx := 0; xx < w; xx++ {
			c := int(y[yy*w+xx]) - 16
			d := int(u[(yy/2)*(w/2)+(xx/2)]) - 128
			e := int(v[(yy/2)*(w/2)+(xx/2)]) - 128
			if c < 0 {
				c = 0
			}
			off := (yy*w + xx) * 4
			out[off+0] = clamp8((298*c + 409*e + 128) >> 8)
			out[off+1] = clamp8((298*c - 100*d - 208*e + 128) >> 8)
			out[off+2] = clamp8((298*c + 516*d + 128) >> 8)
			out[off+3] = 255
		}
	}
}

func clamp8(x int) byte {
	if x < 0 {
		return 0
	}
	if x > 255 {
		return 255
	}
	return byte(x)
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
