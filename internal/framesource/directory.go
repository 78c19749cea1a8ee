package framesource

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"imager/internal/sequence"
	"imager/internal/yuv"
)

// ErrNoIndexedFiles is returned for a directory with no numbered files.
var ErrNoIndexedFiles = fmt.Errorf("framesource: no indexed image files: %w", sequence.ErrEmpty)

// DirOptions configures BuildFromDirectory.
type DirOptions struct {
	// Workers bounds parallel decoding. Zero means runtime.NumCPU().
	Workers int
	// Convert is passed to the colour converter.
	Convert yuv.Options
	// Logger is optional.
	Logger *slog.Logger
}

// BuildFromDirectory decodes every indexed image in dir, in parallel, and
// returns them as one sequence in index order. Any failure fails the whole
// call; no partial sequence is returned.
func BuildFromDirectory(ctx context.Context, dir string, opts DirOptions) (*sequence.Sequence, error) {
	entries, err := ListIndexed(dir)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%s: %w", dir, ErrNoIndexedFiles)
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	start := time.Now()

	frames := make([]*yuv.Image, len(entries))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, e := range entries {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			frame, err := OpenFrame(e.Path, opts.Convert)
			if err != nil {
				return err
			}
			frames[i] = frame
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seq, err := sequence.New(frames)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", dir, err)
	}
	if opts.Logger != nil {
		opts.Logger.Info("frame directory loaded",
			slog.String("dir", dir),
			slog.Int("frames", seq.Len()),
			slog.Int("width", seq.Width()),
			slog.Int("height", seq.Height()),
			slog.Int("workers", workers),
			slog.Duration("elapsed", time.Since(start)),
		)
	}
	return seq, nil
}
