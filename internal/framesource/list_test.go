package framesource

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o600))
	}
}

func baseNames(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = filepath.Base(p)
	}
	return out
}

func TestListSorted(t *testing.T) {
	t.Run("numericOrder", func(t *testing.T) {
		dir := t.TempDir()
		touch(t, dir, "1.png", "10.png", "2.png", "not_a_number.png")

		paths, err := ListSorted(dir)
		require.NoError(t, err)
		require.Equal(t, []string{"1.png", "2.png", "10.png"}, baseNames(paths))
	})
	t.Run("leadingDigitsOnly", func(t *testing.T) {
		dir := t.TempDir()
		touch(t, dir, "007_intro.jpg", "3frame.png", "frame4.png", "12")

		entries, err := ListIndexed(dir)
		require.NoError(t, err)
		require.Len(t, entries, 3)
		require.Equal(t, uint64(3), entries[0].Index)
		require.Equal(t, uint64(7), entries[1].Index)
		require.Equal(t, uint64(12), entries[2].Index)
		require.Equal(t, filepath.Join(dir, "007_intro.jpg"), entries[1].Path)
	})
	t.Run("skipsDirectories", func(t *testing.T) {
		dir := t.TempDir()
		touch(t, dir, "1.png")
		require.NoError(t, os.Mkdir(filepath.Join(dir, "2"), 0o700))

		paths, err := ListSorted(dir)
		require.NoError(t, err)
		require.Equal(t, []string{"1.png"}, baseNames(paths))
	})
	t.Run("overflowSkipped", func(t *testing.T) {
		dir := t.TempDir()
		touch(t, dir, "99999999999999999999999.png", "5.png")

		paths, err := ListSorted(dir)
		require.NoError(t, err)
		require.Equal(t, []string{"5.png"}, baseNames(paths))
	})
	t.Run("tiesKept", func(t *testing.T) {
		dir := t.TempDir()
		touch(t, dir, "1a.png", "01b.png", "0.png")

		entries, err := ListIndexed(dir)
		require.NoError(t, err)
		require.Len(t, entries, 3)
		require.Equal(t, "0.png", filepath.Base(entries[0].Path))
		require.Equal(t, uint64(1), entries[1].Index)
		require.Equal(t, uint64(1), entries[2].Index)
	})
	t.Run("empty", func(t *testing.T) {
		paths, err := ListSorted(t.TempDir())
		require.NoError(t, err)
		require.Empty(t, paths)
	})
	t.Run("missing", func(t *testing.T) {
		_, err := ListSorted(filepath.Join(t.TempDir(), "nope"))
		require.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestLeadingIndex(t *testing.T) {
	cases := map[string]struct {
		index uint64
		ok    bool
	}{
		"0.png":                {0, true},
		"42":                   {42, true},
		"18446744073709551615": {18446744073709551615, true},
		"18446744073709551616": {0, false},
		"a1.png":               {0, false},
		"":                     {0, false},
		"١٢.png":               {0, false},
	}
	for name, tc := range cases {
		index, ok := leadingIndex(name)
		require.Equal(t, tc.ok, ok, name)
		require.Equal(t, tc.index, index, name)
	}
}
