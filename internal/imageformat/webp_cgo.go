//go:build cgo

package imageformat

import (
	"image"
	"io"

	"github.com/chai2010/webp"
)

// LossyWebPAvailable reports whether WebP can be encoded lossy.
const LossyWebPAvailable = true

func encodeLossyWebP(w io.Writer, img image.Image, quality int) error {
	return webp.Encode(w, img, &webp.Options{Quality: float32(quality)})
}
