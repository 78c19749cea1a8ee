package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"imager/internal/config"
	"imager/internal/framesource"
	"imager/internal/logging"
	"imager/internal/sequence"
	"imager/internal/server"
)

const shutdownTimeout = 3 * time.Second

func newServeCommand(ctx *commandContext) *cobra.Command {
	var (
		dir    string
		video  string
		watch  bool
		host   string
		port   int
		fps    int
		loop   bool
		shared bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Play frames to browsers over WHEP",
		Long: "Serve a frame directory, a decoded video or a synthetic test pattern over WHEP.\n" +
			"Open http://HOST:PORT/ for a minimal player.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger(cmd)
			if err != nil {
				return err
			}
			if dir != "" && video != "" {
				return errors.New("--dir and --video are mutually exclusive")
			}
			if watch && dir == "" {
				return errors.New("--watch requires --dir")
			}

			flags := cmd.Flags()
			if flags.Changed("host") {
				cfg.Server.Host = host
			}
			if flags.Changed("port") {
				cfg.Server.Port = port
			}
			if flags.Changed("fps") {
				cfg.Server.FPS = fps
			}
			if flags.Changed("loop") {
				cfg.Server.Loop = loop
			}
			if flags.Changed("shared") {
				cfg.Server.Shared = shared
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			seq, err := loadServeSequence(runCtx, cfg, dir, video, logger)
			if err != nil {
				return err
			}
			return runServer(runCtx, cfg, seq, dir, watch, logger)
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Frame directory to play")
	cmd.Flags().StringVar(&video, "video", "", "Video file to decode and play")
	cmd.Flags().BoolVar(&watch, "watch", false, "Reload --dir when its files change")
	cmd.Flags().StringVar(&host, "host", "", "Bind host (default from config or HOST)")
	cmd.Flags().IntVar(&port, "port", 0, "Bind port (default from config or PORT)")
	cmd.Flags().IntVar(&fps, "fps", 0, "Playback frame rate (default from config or FPS)")
	cmd.Flags().BoolVar(&loop, "loop", true, "Restart the sequence after its last frame")
	cmd.Flags().BoolVar(&shared, "shared", false, "Feed every viewer from one encoder")
	return cmd
}

// loadServeSequence returns nil when neither dir nor video is set.
func loadServeSequence(ctx context.Context, cfg *config.Config, dir, video string, logger *slog.Logger) (*sequence.Sequence, error) {
	switch {
	case dir != "":
		return loadDirectory(ctx, cfg, dir, logger)
	case video != "":
		dec := framesource.NewFFmpeg(cfg.FFmpeg.Bin, logging.Component(logger, "ffmpeg"))
		return framesource.OpenVideo(ctx, dec, video)
	default:
		logger.Info("no frames given, serving a synthetic pattern",
			slog.Int("width", cfg.Server.Width), slog.Int("height", cfg.Server.Height))
		return nil, nil
	}
}

func loadDirectory(ctx context.Context, cfg *config.Config, dir string, logger *slog.Logger) (*sequence.Sequence, error) {
	return framesource.BuildFromDirectory(ctx, dir, framesource.DirOptions{
		Workers: cfg.Convert.Workers,
		Convert: cfg.ConvertOptions(),
		Logger:  logging.Component(logger, "framesource"),
	})
}

func runServer(ctx context.Context, cfg *config.Config, seq *sequence.Sequence, dir string, watch bool, logger *slog.Logger) error {
	whep := server.NewWhepServer(server.Config{
		Host:        cfg.Server.Host,
		Port:        cfg.Server.Port,
		FPS:         cfg.Server.FPS,
		Width:       cfg.Server.Width,
		Height:      cfg.Server.Height,
		Loop:        cfg.Server.Loop,
		Shared:      cfg.Server.Shared,
		BitrateKbps: cfg.Server.BitrateKbps,
		FFmpegBin:   cfg.FFmpeg.Bin,
	}, seq, logger)
	defer whep.Close()

	mux := http.NewServeMux()
	whep.RegisterRoutes(mux)
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if watch {
		go watchDirectory(ctx, cfg, dir, whep, logger)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("WHEP server listening", slog.String("url", fmt.Sprintf("http://%s", srv.Addr)))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown", slog.Any("err", err))
	}
	logger.Info("server stopped")
	return nil
}

func watchDirectory(ctx context.Context, cfg *config.Config, dir string, whep *server.WhepServer, logger *slog.Logger) {
	log := logging.Component(logger, "watch")
	reload := func() {
		seq, err := loadDirectory(ctx, cfg, dir, logger)
		if err != nil {
			log.Warn("reload failed, keeping current frames", slog.String("dir", dir), slog.Any("err", err))
			return
		}
		whep.SetSequence(seq)
	}
	log.Info("watching frame directory", slog.String("dir", dir), slog.Duration("debounce", cfg.WatchDebounce()))
	if err := framesource.Watch(ctx, dir, cfg.WatchDebounce(), reload); err != nil {
		log.Error("watch stopped", slog.Any("err", err))
	}
}
