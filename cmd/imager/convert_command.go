package main

import (
	"fmt"
	"log/slog"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"imager/internal/config"
	"imager/internal/framesource"
	"imager/internal/imageformat"
	"imager/internal/logging"
	"imager/internal/sequence"
	"imager/internal/yuv"
)

// exportFlags are shared by the commands that write frames to a directory.
type exportFlags struct {
	raw      bool
	formats  string
	quality  int
	lossless bool
	size     string
}

func (f *exportFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.raw, "raw", false, "Write planar .yuv files instead of encoded images")
	cmd.Flags().StringVar(&f.formats, "format", "", "Output formats, e.g. \"jpeg png\" (default from config)")
	cmd.Flags().IntVar(&f.quality, "quality", 0, "JPEG and WebP quality 1-100 (default from config)")
	cmd.Flags().BoolVar(&f.lossless, "lossless", false, "Write lossless WebP (default from config)")
	cmd.Flags().StringVar(&f.size, "size", "", "Output size: full or WxH (default from config)")
}

func (f *exportFlags) options(cfg *config.Config) (exportOptions, error) {
	opts := exportOptions{
		Raw:      f.raw,
		Formats:  cfg.Convert.OutputFormats,
		Quality:  cfg.Convert.Quality,
		Lossless: cfg.Convert.Lossless || f.lossless,
		Size:     cfg.Convert.OutputSize,
	}
	if f.formats != "" {
		formats, err := imageformat.ParseFormats(f.formats)
		if err != nil {
			return exportOptions{}, err
		}
		opts.Formats = formats
	}
	if f.quality != 0 {
		if f.quality < 1 || f.quality > 100 {
			return exportOptions{}, fmt.Errorf("quality must be between 1 and 100, got %d", f.quality)
		}
		opts.Quality = f.quality
	}
	if f.size != "" {
		size, err := imageformat.ParseSize(f.size)
		if err != nil {
			return exportOptions{}, err
		}
		opts.Size = size
	}
	return opts, nil
}

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var flags exportFlags
	var chroma string
	var workers int

	cmd := &cobra.Command{
		Use:   "convert <dir> <out-dir>",
		Short: "Convert a directory of numbered images into planar frames",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger(cmd)
			if err != nil {
				return err
			}
			opts, err := flags.options(cfg)
			if err != nil {
				return err
			}
			convert := cfg.ConvertOptions()
			if chroma != "" {
				if convert.Chroma, err = yuv.ParseChromaFilter(chroma); err != nil {
					return err
				}
			}
			if workers == 0 {
				workers = cfg.Convert.Workers
			}

			lock, err := lockOutputDir(args[1])
			if err != nil {
				return err
			}
			defer func() { _ = lock.Unlock() }()

			seq, err := framesource.BuildFromDirectory(cmd.Context(), args[0], framesource.DirOptions{
				Workers: workers,
				Convert: convert,
				Logger:  logging.Component(logger, "framesource"),
			})
			if err != nil {
				return err
			}
			return writeAndReport(cmd, seq, args[1], opts, logger)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&chroma, "chroma", "", "Chroma filter: sharp or box (default from config)")
	cmd.Flags().IntVar(&workers, "workers", 0, "Parallel decoders (default from config, 0 = all CPUs)")
	return cmd
}

func writeAndReport(cmd *cobra.Command, seq *sequence.Sequence, dir string, opts exportOptions, logger *slog.Logger) error {
	frames := seq.Len()
	res, err := exportSequence(seq, dir, opts, logging.Component(logger, "export"))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d frames (%dx%d) as %d files, %s, to %s\n",
		frames, res.Width, res.Height, res.Files, humanize.Bytes(uint64(res.Bytes)), dir)
	return nil
}
