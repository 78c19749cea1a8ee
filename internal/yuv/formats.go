package yuv

// Container formats understood by Open and image.Decode callers in this module.
import (
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)
