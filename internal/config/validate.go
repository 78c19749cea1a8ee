package config

import (
	"errors"
	"fmt"

	"imager/internal/yuv"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateConvert(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func (c *Config) validateConvert() error {
	if c.Convert.Workers < 0 {
		return errors.New("convert.workers must be zero or positive")
	}
	if _, err := yuv.ParseChromaFilter(c.Convert.ChromaFilter); err != nil {
		return fmt.Errorf("convert.chroma_filter: %w", err)
	}
	if c.Convert.Quality < 1 || c.Convert.Quality > 100 {
		return errors.New("convert.quality must be between 1 and 100")
	}
	if len(c.Convert.OutputFormats) == 0 {
		return errors.New("convert.output_formats must name at least one format")
	}
	if r, ok := c.Convert.OutputSize.Resolution(); ok {
		if r.Width > yuv.MaxDimension || r.Height > yuv.MaxDimension {
			return fmt.Errorf("convert.output_size %s exceeds %d", r, yuv.MaxDimension)
		}
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Server.FPS <= 0 || c.Server.FPS > 240 {
		return errors.New("server.fps must be between 1 and 240")
	}
	if c.Server.Width < 2 || c.Server.Height < 2 ||
		c.Server.Width > yuv.MaxDimension || c.Server.Height > yuv.MaxDimension {
		return fmt.Errorf("server size %dx%d out of range", c.Server.Width, c.Server.Height)
	}
	if c.Server.BitrateKbps <= 0 {
		return errors.New("server.bitrate_kbps must be positive")
	}
	if c.Server.WatchDebounceMS < 0 {
		return errors.New("server.watch_debounce_ms must be zero or positive")
	}
	return nil
}
