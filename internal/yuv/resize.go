package yuv

// Resize scales the frame to w x h with nearest-neighbour sampling on each
// plane. Odd target dimensions are trimmed to even.
func (m *Image) Resize(w, h int) (*Image, error) {
	w, h = w&^1, h&^1
	if err := checkDimensions(w, h); err != nil {
		return nil, err
	}
	if w == m.width && h == m.height {
		return m.Clone(), nil
	}
	out := newImage(w, h)
	scalePlane(m.Y(), m.width, m.height, out.Y(), w, h)
	scalePlane(m.U(), m.width/2, m.height/2, out.U(), w/2, h/2)
	scalePlane(m.V(), m.width/2, m.height/2, out.V(), w/2, h/2)
	return out, nil
}

func scalePlane(src []byte, sw, sh int, dst []byte, dw, dh int) {
	for y := 0; y < dh; y++ {
		sy := y * sh / dh
		for x := 0; x < dw; x++ {
			sx := x * sw / dw
			dst[y*dw+x] = src[sy*sw+sx]
		}
	}
}
