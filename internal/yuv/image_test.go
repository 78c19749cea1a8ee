package yuv

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func sequentialBytes(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i * 7)
	}
	return b
}

func TestPlanes(t *testing.T) {
	sizes := [][2]int{{2, 2}, {4, 2}, {16, 8}, {100, 100}, {640, 360}}
	for _, s := range sizes {
		w, h := s[0], s[1]
		data := sequentialBytes(w * h * 3 / 2)
		img, err := FromRaw(data, w, h)
		require.NoError(t, err)
		require.True(t, img.WellFormed())

		y, u, v := img.Y(), img.U(), img.V()
		require.Len(t, y, w*h)
		require.Len(t, u, w*h/4)
		require.Len(t, v, w*h/4)

		// Disjoint and jointly covering the buffer, in order.
		joined := append(append(append([]byte{}, y...), u...), v...)
		require.Equal(t, img.Data(), joined)
		require.Equal(t, data[w*h], u[0])
		require.Equal(t, data[w*h+w*h/4], v[0])
	}
}

func TestPlaneAppendDoesNotBleed(t *testing.T) {
	img, err := FromRaw(sequentialBytes(6), 2, 2)
	require.NoError(t, err)
	before := img.U()[0]

	_ = append(img.Y(), 0xff)
	require.Equal(t, before, img.U()[0])
}

func TestFromRaw(t *testing.T) {
	t.Run("exact", func(t *testing.T) {
		data := sequentialBytes(4 * 2 * 3 / 2)
		img, err := FromRaw(data, 4, 2)
		require.NoError(t, err)
		require.Equal(t, data, img.Data())

		data[0] = 0xaa
		require.NotEqual(t, byte(0xaa), img.Data()[0], "input must be copied")
	})
	t.Run("mismatch", func(t *testing.T) {
		for _, n := range []int{0, 11, 13, 24} {
			_, err := FromRaw(make([]byte, n), 4, 2)
			require.ErrorIs(t, err, ErrSizeMismatch)

			var sizeErr *SizeMismatchError
			require.True(t, errors.As(err, &sizeErr))
			require.Equal(t, 12, sizeErr.Want)
			require.Equal(t, n, sizeErr.Got)
		}
	})
	t.Run("odd", func(t *testing.T) {
		_, err := FromRaw(make([]byte, 100), 3, 2)
		require.ErrorIs(t, err, ErrOddDimensions)
	})
	t.Run("tooLarge", func(t *testing.T) {
		_, err := FromRaw(nil, MaxDimension+1, 2)
		require.ErrorIs(t, err, ErrTooLarge)
	})
	t.Run("empty", func(t *testing.T) {
		_, err := FromRaw(nil, 0, 0)
		require.ErrorIs(t, err, ErrTooSmall)
	})
}

func TestMalformedPanics(t *testing.T) {
	img := &Image{width: 4, height: 4, data: make([]byte, 5)}
	require.False(t, img.WellFormed())
	require.Panics(t, func() { img.Y() })
	require.Panics(t, func() { img.U() })
	require.Panics(t, func() { img.V() })
}

func TestSaveOpenRaw(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "frame.yuv")

	img, err := FromRaw(sequentialBytes(8*4*3/2), 8, 4)
	require.NoError(t, err)
	require.NoError(t, img.Save(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, img.Data(), raw)

	back, err := OpenRaw(path, 8, 4)
	require.NoError(t, err)
	require.Equal(t, img.Data(), back.Data())

	_, err = OpenRaw(path, 8, 8)
	require.ErrorIs(t, err, ErrSizeMismatch)

	require.Equal(t, "ffplay -video_size 8x4 -pixel_format yuv420p "+path, img.FFplayHint(path))
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	src := image.NewNRGBA(image.Rect(0, 0, 5, 3))
	for y := range 3 {
		for x := range 5 {
			src.SetNRGBA(x, y, color.NRGBA{R: 255, A: 255})
		}
	}
	path := filepath.Join(dir, "red.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, src))
	require.NoError(t, f.Close())

	img, err := Open(path)
	require.NoError(t, err)
	require.Equal(t, 4, img.Width())
	require.Equal(t, 2, img.Height())
	require.Equal(t, byte(82), img.Y()[0])

	require.NoError(t, os.WriteFile(path, []byte("not an image"), 0o644))
	_, err = Open(path)
	require.Error(t, err)

	_, err = Open(filepath.Join(dir, "missing.png"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestClone(t *testing.T) {
	img, err := FromRaw(sequentialBytes(6), 2, 2)
	require.NoError(t, err)
	c := img.Clone()
	require.Equal(t, img.Data(), c.Data())
	c.data[0]++
	require.NotEqual(t, img.Data()[0], c.Data()[0])
}

func TestYCbCrView(t *testing.T) {
	img, err := FromRaw(sequentialBytes(4*4*3/2), 4, 4)
	require.NoError(t, err)
	view := img.YCbCr()
	require.Equal(t, 4, view.Bounds().Dx())
	require.Equal(t, img.Y(), view.Y)
	require.Equal(t, img.U(), view.Cb)
	require.Equal(t, img.V(), view.Cr)
	require.Equal(t, 2, view.CStride)
}

func TestResize(t *testing.T) {
	img, err := FromRaw(sequentialBytes(4*4*3/2), 4, 4)
	require.NoError(t, err)

	t.Run("down", func(t *testing.T) {
		small, err := img.Resize(2, 2)
		require.NoError(t, err)
		require.True(t, small.WellFormed())
		w, h := small.Dimensions()
		require.Equal(t, 2, w)
		require.Equal(t, 2, h)
		require.Equal(t, []byte{img.Y()[0], img.Y()[2], img.Y()[8], img.Y()[10]}, small.Y())
		require.Equal(t, img.U()[0], small.U()[0])
	})
	t.Run("oddTarget", func(t *testing.T) {
		big, err := img.Resize(9, 7)
		require.NoError(t, err)
		require.Equal(t, 8, big.Width())
		require.Equal(t, 6, big.Height())
		require.True(t, big.WellFormed())
	})
	t.Run("same", func(t *testing.T) {
		same, err := img.Resize(4, 4)
		require.NoError(t, err)
		require.Equal(t, img.Data(), same.Data())
		require.NotSame(t, img, same)
	})
	t.Run("tooSmall", func(t *testing.T) {
		_, err := img.Resize(1, 4)
		require.ErrorIs(t, err, ErrTooSmall)
	})
}
