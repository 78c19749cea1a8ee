package main

import (
	"bytes"
	"fmt"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"imager/internal/framesource"
	"imager/internal/imageformat"
	"imager/internal/yuv"
)

func newRawCommand(ctx *commandContext) *cobra.Command {
	rawCmd := &cobra.Command{
		Use:   "raw",
		Short: "Inspect and convert single planar .yuv files",
	}
	rawCmd.AddCommand(newRawInfoCommand())
	rawCmd.AddCommand(newRawExportCommand(ctx))
	rawCmd.AddCommand(newRawImportCommand(ctx))
	return rawCmd
}

type rawDims struct {
	width, height int
}

func (d *rawDims) register(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&d.width, "width", "W", 0, "Frame width")
	cmd.Flags().IntVarP(&d.height, "height", "H", 0, "Frame height")
	_ = cmd.MarkFlagRequired("width")
	_ = cmd.MarkFlagRequired("height")
}

func newRawInfoCommand() *cobra.Command {
	var dims rawDims
	cmd := &cobra.Command{
		Use:         "info <file.yuv>",
		Short:       "Check a raw frame against its dimensions",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		Args:        cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			frame, err := yuv.OpenRaw(args[0], dims.width, dims.height)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"Plane", "Size", "Bytes"},
				[][]string{
					{"Y", fmt.Sprintf("%dx%d", frame.Width(), frame.Height()), strconv.Itoa(frame.LumaSize())},
					{"U", fmt.Sprintf("%dx%d", frame.Width()/2, frame.Height()/2), strconv.Itoa(frame.ChromaSize())},
					{"V", fmt.Sprintf("%dx%d", frame.Width()/2, frame.Height()/2), strconv.Itoa(frame.ChromaSize())},
				},
				[]columnAlignment{alignLeft, alignLeft, alignRight},
			))
			fmt.Fprintf(out, "Total: %s\n", humanize.Bytes(uint64(len(frame.Data()))))
			fmt.Fprintf(out, "Play:  %s\n", frame.FFplayHint(args[0]))
			return nil
		},
	}
	dims.register(cmd)
	return cmd
}

func newRawExportCommand(ctx *commandContext) *cobra.Command {
	var dims rawDims
	var quality int
	var lossless bool
	cmd := &cobra.Command{
		Use:   "export <file.yuv> <out.jpg|out.png|out.webp>",
		Short: "Render a raw frame as an image",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			format, ok := imageformat.InferFromPath(args[1])
			if !ok {
				return fmt.Errorf("cannot infer image format from %q", args[1])
			}
			if quality == 0 {
				quality = cfg.Convert.Quality
			}
			frame, err := yuv.OpenRaw(args[0], dims.width, dims.height)
			if err != nil {
				return err
			}
			var buf bytes.Buffer
			opts := imageformat.EncodeOptions{Quality: quality, Lossless: lossless || cfg.Convert.Lossless}
			if err := imageformat.EncodeWithOptions(&buf, frame.ToRGBA(), format, opts); err != nil {
				return fmt.Errorf("%s output: %w", format, err)
			}
			if err := os.WriteFile(args[1], buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("write image: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%s)\n", args[1], humanize.Bytes(uint64(buf.Len())))
			return nil
		},
	}
	dims.register(cmd)
	cmd.Flags().IntVar(&quality, "quality", 0, "JPEG and WebP quality 1-100 (default from config)")
	cmd.Flags().BoolVar(&lossless, "lossless", false, "Write lossless WebP")
	return cmd
}

func newRawImportCommand(ctx *commandContext) *cobra.Command {
	var chroma string
	cmd := &cobra.Command{
		Use:   "import <image> <out.yuv>",
		Short: "Convert one image to a raw planar frame",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			opts := cfg.ConvertOptions()
			if chroma != "" {
				if opts.Chroma, err = yuv.ParseChromaFilter(chroma); err != nil {
					return err
				}
			}
			frame, err := framesource.OpenFrame(args[0], opts)
			if err != nil {
				return err
			}
			if err := frame.Save(args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %dx%d frame to %s\nPlay: %s\n",
				frame.Width(), frame.Height(), args[1], frame.FFplayHint(args[1]))
			return nil
		},
	}
	cmd.Flags().StringVar(&chroma, "chroma", "", "Chroma filter: sharp or box (default from config)")
	return cmd
}
