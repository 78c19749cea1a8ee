//go:build cgo && (vpx || aom)

package stream

/*
#include <string.h>
*/
import "C"

import "unsafe"

// copyPlane copies a tightly packed plane row by row into a strided one.
func copyPlane(dst unsafe.Pointer, stride int, src []byte, w, h int) {
	for row := 0; row < h; row++ {
		line := src[row*w : row*w+w]
		C.memcpy(unsafe.Add(dst, row*stride), unsafe.Pointer(&line[0]), C.size_t(w))
	}
}
