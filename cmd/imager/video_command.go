package main

import (
	"github.com/spf13/cobra"

	"imager/internal/framesource"
	"imager/internal/logging"
)

func newVideoCommand(ctx *commandContext) *cobra.Command {
	var flags exportFlags
	var ffmpegBin string

	cmd := &cobra.Command{
		Use:   "video <file> <out-dir>",
		Short: "Decode a video file into planar frames with ffmpeg",
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
			if ffmpegBin == "" {
				ffmpegBin = cfg.FFmpeg.Bin
			}

			lock, err := lockOutputDir(args[1])
			if err != nil {
				return err
			}
			defer func() { _ = lock.Unlock() }()

			dec := framesource.NewFFmpeg(ffmpegBin, logging.Component(logger, "ffmpeg"))
			seq, err := framesource.OpenVideo(cmd.Context(), dec, args[0])
			if err != nil {
				return err
			}
			return writeAndReport(cmd, seq, args[1], opts, logger)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&ffmpegBin, "ffmpeg", "", "ffmpeg binary (default from config)")
	return cmd
}
