package framesource

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"imager/internal/sequence"
	"imager/internal/yuv"
)

var (
	red   = color.NRGBA{R: 255, A: 255}
	green = color.NRGBA{G: 255, A: 255}
	blue  = color.NRGBA{B: 255, A: 255}
)

func solid(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func writePNG(t *testing.T, path string, w, h int, c color.Color) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, encodePNG(t, solid(w, h, c)), 0o600))
}

func TestBuildFromDirectory(t *testing.T) {
	ctx := context.Background()

	t.Run("indexOrder", func(t *testing.T) {
		dir := t.TempDir()
		writePNG(t, filepath.Join(dir, "1.png"), 8, 6, red)
		writePNG(t, filepath.Join(dir, "10.png"), 8, 6, blue)
		writePNG(t, filepath.Join(dir, "2.png"), 8, 6, green)
		touch(t, dir, "notes.txt")

		seq, err := BuildFromDirectory(ctx, dir, DirOptions{Workers: 3})
		require.NoError(t, err)
		require.Equal(t, 3, seq.Len())
		w, h := seq.Dimensions()
		require.Equal(t, 8, w)
		require.Equal(t, 6, h)

		var lumas []byte
		for {
			frame, ok := seq.Next()
			if !ok {
				break
			}
			lumas = append(lumas, frame.Y()[0])
		}
		require.Equal(t, []byte{82, 144, 41}, lumas)
	})
	t.Run("manyFramesOneWorker", func(t *testing.T) {
		dir := t.TempDir()
		for i, c := range []color.Color{red, green, blue, red, green} {
			writePNG(t, filepath.Join(dir, string(rune('0'+i))+".png"), 4, 4, c)
		}
		seq, err := BuildFromDirectory(ctx, dir, DirOptions{Workers: 1})
		require.NoError(t, err)
		require.Equal(t, 5, seq.Len())
		frames := seq.Frames()
		require.Equal(t, byte(82), frames[3].Y()[0])
		require.Equal(t, byte(144), frames[4].Y()[0])
	})
	t.Run("oddImagesTrimmed", func(t *testing.T) {
		dir := t.TempDir()
		writePNG(t, filepath.Join(dir, "1.png"), 9, 7, red)

		seq, err := BuildFromDirectory(ctx, dir, DirOptions{})
		require.NoError(t, err)
		w, h := seq.Dimensions()
		require.Equal(t, 8, w)
		require.Equal(t, 6, h)
	})
	t.Run("mixedFormats", func(t *testing.T) {
		dir := t.TempDir()
		writePNG(t, filepath.Join(dir, "1.png"), 8, 8, red)
		var buf bytes.Buffer
		require.NoError(t, jpeg.Encode(&buf, solid(8, 8, green), &jpeg.Options{Quality: 95}))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "2.jpg"), buf.Bytes(), 0o600))

		seq, err := BuildFromDirectory(ctx, dir, DirOptions{})
		require.NoError(t, err)
		require.Equal(t, 2, seq.Len())
	})
	t.Run("corruptFileFailsAll", func(t *testing.T) {
		dir := t.TempDir()
		writePNG(t, filepath.Join(dir, "1.png"), 4, 4, red)
		require.NoError(t, os.WriteFile(filepath.Join(dir, "2.png"), []byte("nope"), 0o600))
		writePNG(t, filepath.Join(dir, "3.png"), 4, 4, red)

		seq, err := BuildFromDirectory(ctx, dir, DirOptions{})
		require.Error(t, err)
		require.Nil(t, seq)
		var decodeErr *DecodeError
		require.True(t, errors.As(err, &decodeErr))
		require.Equal(t, filepath.Join(dir, "2.png"), decodeErr.Path)
	})
	t.Run("dimensionMismatch", func(t *testing.T) {
		dir := t.TempDir()
		writePNG(t, filepath.Join(dir, "1.png"), 4, 4, red)
		writePNG(t, filepath.Join(dir, "2.png"), 6, 4, red)

		_, err := BuildFromDirectory(ctx, dir, DirOptions{})
		require.ErrorIs(t, err, sequence.ErrDimensionMismatch)
	})
	t.Run("tooSmall", func(t *testing.T) {
		dir := t.TempDir()
		writePNG(t, filepath.Join(dir, "1.png"), 1, 1, red)

		_, err := BuildFromDirectory(ctx, dir, DirOptions{})
		require.ErrorIs(t, err, yuv.ErrTooSmall)
	})
	t.Run("empty", func(t *testing.T) {
		dir := t.TempDir()
		touch(t, dir, "readme.md")

		_, err := BuildFromDirectory(ctx, dir, DirOptions{})
		require.ErrorIs(t, err, ErrNoIndexedFiles)
		require.ErrorIs(t, err, sequence.ErrEmpty)
	})
	t.Run("missing", func(t *testing.T) {
		_, err := BuildFromDirectory(ctx, filepath.Join(t.TempDir(), "gone"), DirOptions{})
		require.ErrorIs(t, err, os.ErrNotExist)
	})
	t.Run("canceled", func(t *testing.T) {
		dir := t.TempDir()
		writePNG(t, filepath.Join(dir, "1.png"), 4, 4, red)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := BuildFromDirectory(ctx, dir, DirOptions{})
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestFromPNG(t *testing.T) {
	seq, err := FromPNG(encodePNG(t, solid(4, 2, blue)))
	require.NoError(t, err)
	require.Equal(t, 1, seq.Len())
	frame, ok := seq.Next()
	require.True(t, ok)
	require.Equal(t, byte(41), frame.Y()[0])

	_, err = FromJPEG(encodePNG(t, solid(4, 2, blue)))
	require.Error(t, err)

	_, err = FromPNG([]byte("garbage"))
	require.Error(t, err)
}

func TestFromJPEG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, solid(16, 16, color.Gray{Y: 128}), nil))

	seq, err := FromJPEG(buf.Bytes())
	require.NoError(t, err)
	frame, ok := seq.Next()
	require.True(t, ok)
	require.InDelta(t, 126, int(frame.Y()[0]), 3)
}

func TestOpenFrame(t *testing.T) {
	path := filepath.Join(t.TempDir(), "1.png")
	writePNG(t, path, 6, 4, green)

	frame, err := OpenFrame(path, yuv.Options{Chroma: yuv.ChromaBox})
	require.NoError(t, err)
	require.Equal(t, 6, frame.Width())
	require.Equal(t, byte(144), frame.Y()[0])

	_, err = OpenFrame(filepath.Join(t.TempDir(), "missing.png"), yuv.Options{})
	require.ErrorIs(t, err, os.ErrNotExist)
}
