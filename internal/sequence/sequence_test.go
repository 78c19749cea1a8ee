package sequence

import (
	"testing"

	"imager/internal/yuv"

	"github.com/stretchr/testify/require"
)

func frame(t *testing.T, w, h int, fill byte) *yuv.Image {
	t.Helper()
	data := make([]byte, yuv.FrameSize(w, h))
	for i := range data {
		data[i] = fill
	}
	img, err := yuv.FromRaw(data, w, h)
	require.NoError(t, err)
	return img
}

func threeFrames(t *testing.T) (*Sequence, []*yuv.Image) {
	t.Helper()
	frames := []*yuv.Image{frame(t, 4, 2, 0), frame(t, 4, 2, 1), frame(t, 4, 2, 2)}
	s, err := New(frames)
	require.NoError(t, err)
	return s, frames
}

func TestNext(t *testing.T) {
	s, frames := threeFrames(t)
	require.Equal(t, 3, s.Len())
	require.Equal(t, 4, s.Width())
	require.Equal(t, 2, s.Height())

	for i := 0; i < 3; i++ {
		f, ok := s.Next()
		require.True(t, ok)
		require.Same(t, frames[i], f)
	}
	f, ok := s.Next()
	require.False(t, ok)
	require.Nil(t, f)

	// Terminal: no wraparound and the cursor stays put.
	_, ok = s.Next()
	require.False(t, ok)
	require.Equal(t, 3, s.Position())
}

func TestSetCursor(t *testing.T) {
	s, frames := threeFrames(t)
	s.Next()
	s.Next()

	s.SetCursor(1)
	f, ok := s.Next()
	require.True(t, ok)
	require.Same(t, frames[1], f)

	s.SetCursor(3)
	_, ok = s.Next()
	require.False(t, ok)

	s.SetCursor(100)
	_, ok = s.Next()
	require.False(t, ok)

	s.SetCursor(0)
	f, ok = s.Next()
	require.True(t, ok)
	require.Same(t, frames[0], f)

	require.Panics(t, func() { s.SetCursor(-1) })
}

func TestSingleton(t *testing.T) {
	f := frame(t, 2, 2, 9)
	s := Singleton(f)
	require.Equal(t, 0, s.Position())
	got, ok := s.Next()
	require.True(t, ok)
	require.Same(t, f, got)
	_, ok = s.Next()
	require.False(t, ok)
}

func TestNewErrors(t *testing.T) {
	_, err := New(nil)
	require.ErrorIs(t, err, ErrEmpty)

	_, err = New([]*yuv.Image{frame(t, 4, 2, 0), frame(t, 2, 2, 0)})
	require.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestDuplicateIndependentCursors(t *testing.T) {
	a, frames := threeFrames(t)
	a.Next()

	b := a.Duplicate()
	require.Equal(t, 1, b.Position())
	require.Equal(t, 2, a.Shared())

	fb, ok := b.Next()
	require.True(t, ok)
	require.Same(t, frames[1], fb)
	b.Next()
	require.Equal(t, 3, b.Position())
	require.Equal(t, 1, a.Position())

	fa, ok := a.Next()
	require.True(t, ok)
	require.Same(t, fb, fa)
	require.Equal(t, a.Frames(), b.Frames())
}

func TestFramesView(t *testing.T) {
	s, frames := threeFrames(t)
	view := s.Frames()
	require.Equal(t, frames, view)
	require.Equal(t, len(view), cap(view))
}

func TestIntoFramesSoleOwner(t *testing.T) {
	s, frames := threeFrames(t)
	owned := s.IntoFrames()
	require.Len(t, owned, 3)
	for i := range owned {
		require.Same(t, frames[i], owned[i])
	}
	require.Panics(t, func() { s.Next() })
}

func TestIntoFramesSharedCopies(t *testing.T) {
	s, frames := threeFrames(t)
	other := s.Duplicate()

	owned := s.IntoFrames()
	require.Len(t, owned, 3)
	for i := range owned {
		require.NotSame(t, frames[i], owned[i])
		require.Equal(t, frames[i].Data(), owned[i].Data())
	}

	// The other handle is now the sole owner.
	require.Equal(t, 1, other.Shared())
	last := other.IntoFrames()
	require.Same(t, frames[0], last[0])
}

func TestRelease(t *testing.T) {
	s, frames := threeFrames(t)
	dup := s.Duplicate()
	dup.Release()
	dup.Release()
	require.Equal(t, 1, s.Shared())
	require.Panics(t, func() { dup.Len() })

	owned := s.IntoFrames()
	require.Same(t, frames[2], owned[2])
}
