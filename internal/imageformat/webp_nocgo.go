//go:build !cgo

package imageformat

import (
	"image"
	"io"

	"github.com/HugoSmits86/nativewebp"
)

// LossyWebPAvailable reports whether WebP can be encoded lossy.
const LossyWebPAvailable = false

func encodeLossyWebP(w io.Writer, img image.Image, _ int) error {
	return nativewebp.Encode(w, img, nil)
}
