package main

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/gofrs/flock"

	"imager/internal/imageformat"
	"imager/internal/sequence"
	"imager/internal/yuv"
)

const lockFileName = ".imager.lock"

// lockOutputDir creates dir and takes an exclusive lock on it.
func lockOutputDir(dir string) (*flock.Flock, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	lock := flock.New(filepath.Join(dir, lockFileName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("output directory %s is in use by another imager process", dir)
	}
	return lock, nil
}

type exportOptions struct {
	// Raw writes planar .yuv files instead of encoded images.
	Raw     bool
	Formats imageformat.Formats
	Quality int
	// Lossless applies to WebP.
	Lossless bool
	Size     imageformat.Size
}

type exportResult struct {
	Files  int
	Bytes  int64
	Width  int
	Height int
}

// exportSequence writes every frame of seq to dir as NNNN.<ext>, one file per
// format. It ends the handle.
func exportSequence(seq *sequence.Sequence, dir string, opts exportOptions, logger *slog.Logger) (exportResult, error) {
	frames := seq.IntoFrames()
	var res exportResult
	if !opts.Raw && !opts.Lossless && !imageformat.LossyWebPAvailable && slices.Contains(opts.Formats, imageformat.WebP) {
		logger.Warn("lossy webp needs a cgo build, writing lossless webp")
	}
	encode := imageformat.EncodeOptions{Quality: opts.Quality, Lossless: opts.Lossless}
	for i, frame := range frames {
		frame, err := resizeForExport(frame, opts.Size)
		if err != nil {
			return exportResult{}, err
		}
		res.Width, res.Height = frame.Dimensions()
		base := filepath.Join(dir, fmt.Sprintf("%04d", i))

		if opts.Raw {
			path := base + ".yuv"
			if err := frame.Save(path); err != nil {
				return exportResult{}, err
			}
			res.Files++
			res.Bytes += int64(len(frame.Data()))
			if i == 0 {
				logger.Info("raw frames written", slog.String("play", frame.FFplayHint(path)))
			}
			continue
		}

		rgba := frame.ToRGBA()
		for _, format := range opts.Formats {
			var buf bytes.Buffer
			if err := imageformat.EncodeWithOptions(&buf, rgba, format, encode); err != nil {
				return exportResult{}, fmt.Errorf("encode frame %d: %w", i, err)
			}
			if err := os.WriteFile(base+format.Ext(), buf.Bytes(), 0o644); err != nil {
				return exportResult{}, fmt.Errorf("write frame %d: %w", i, err)
			}
			res.Files++
			res.Bytes += int64(buf.Len())
		}
	}
	logger.Debug("export finished", slog.Int("frames", len(frames)), slog.Int("files", res.Files))
	return res, nil
}

func resizeForExport(frame *yuv.Image, size imageformat.Size) (*yuv.Image, error) {
	r, ok := size.Resolution()
	if !ok {
		return frame, nil
	}
	if r.Width == frame.Width() && r.Height == frame.Height() {
		return frame, nil
	}
	return frame.Resize(r.Width, r.Height)
}
