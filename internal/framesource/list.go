// Package framesource turns directories of numbered images, encoded video
// and single decoded images into frame sequences.
package framesource

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
)

// Entry is one indexed file of a frame directory.
type Entry struct {
	Index uint64
	Path  string
}

// ListIndexed scans dir (not recursively) for regular files whose base name
// starts with ASCII digits, and returns them ordered by that number. Files
// without a leading number, or whose number overflows uint64, are skipped.
// Files sharing an index keep directory order.
func ListIndexed(dir string) ([]Entry, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read frame directory: %w", err)
	}
	var out []Entry
	for _, de := range dirEntries {
		if !de.Type().IsRegular() {
			continue
		}
		index, ok := leadingIndex(de.Name())
		if !ok {
			continue
		}
		out = append(out, Entry{Index: index, Path: filepath.Join(dir, de.Name())})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out, nil
}

// ListSorted is ListIndexed without the indices.
func ListSorted(dir string) ([]string, error) {
	entries, err := ListIndexed(dir)
	if err != nil {
		return nil, err
	}
	paths := make([]string, len(entries))
	for i, e := range entries {
		paths[i] = e.Path
	}
	return paths, nil
}

func leadingIndex(name string) (uint64, bool) {
	n := 0
	for n < len(name) && name[n] >= '0' && name[n] <= '9' {
		n++
	}
	if n == 0 {
		return 0, false
	}
	v, err := strconv.ParseUint(name[:n], 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
