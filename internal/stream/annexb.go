package stream

import (
	"bufio"
	"errors"
	"io"
)

const (
	nalTypeIDR = 5
	nalTypeAUD = 9
	maxAULen   = 1 << 20
)

var annexBStartCode = []byte{0x00, 0x00, 0x00, 0x01}

// annexBReader splits an H.264 AnnexB byte stream into access units.
type annexBReader struct {
	r       *bufio.Reader
	started bool   // positioned just after a start code
	pending []byte // NAL read ahead that opens the next unit
}

func newAnnexBReader(r io.Reader) *annexBReader {
	return &annexBReader{r: bufio.NewReaderSize(r, 1<<20)}
}

// ReadAccessUnit groups NAL units into one access unit, each prefixed with a
// 4-byte start code. An access unit delimiter starts a new unit; an IDR
// slice is flushed immediately to keep latency low. At EOF the pending unit
// is returned with a nil error, then io.EOF.
func (a *annexBReader) ReadAccessUnit() ([]byte, error) {
	var au []byte
	for {
		nal, err := a.readNAL()
		if len(nal) > 0 {
			typ := nal[0] & 0x1F
			if typ == nalTypeAUD && len(au) > 0 {
				a.pending = nal
				return au, nil
			}
			au = append(au, annexBStartCode...)
			au = append(au, nal...)
			if typ == nalTypeIDR || len(au) > maxAULen {
				return au, nil
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) && len(au) > 0 {
				return au, nil
			}
			return nil, err
		}
	}
}

// readNAL returns the payload up to the next start code. The final NAL of
// the stream is returned together with io.EOF.
func (a *annexBReader) readNAL() ([]byte, error) {
	if a.pending != nil {
		nal := a.pending
		a.pending = nil
		return nal, nil
	}
	if !a.started {
		zeros := 0
		for {
			b, err := a.r.ReadByte()
			if err != nil {
				return nil, err
			}
			if b == 0 {
				zeros++
				continue
			}
			if b == 1 && zeros >= 2 {
				break
			}
			zeros = 0
		}
		a.started = true
	}
	var buf []byte
	for {
		b, err := a.r.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				a.started = false
				return trimTrailingZeros(buf), io.EOF
			}
			return nil, err
		}
		buf = append(buf, b)
		l := len(buf)
		if l >= 3 && buf[l-3] == 0 && buf[l-2] == 0 && buf[l-1] == 1 {
			return trimTrailingZeros(buf[:l-3]), nil
		}
	}
}

// trimTrailingZeros drops trailing_zero_8bits and the extra zero of a
// 4-byte start code.
func trimTrailingZeros(b []byte) []byte {
	for len(b) > 0 && b[len(b)-1] == 0 {
		b = b[:len(b)-1]
	}
	return b
}
