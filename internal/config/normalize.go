package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	c.normalizeLogging()
	c.normalizeConvert()
	if err := c.applyEnv(); err != nil {
		return err
	}
	c.FFmpeg.Bin = strings.TrimSpace(c.FFmpeg.Bin)
	if c.FFmpeg.Bin == "" {
		c.FFmpeg.Bin = defaultFFmpegBin
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizeConvert() {
	c.Convert.ChromaFilter = strings.ToLower(strings.TrimSpace(c.Convert.ChromaFilter))
	if c.Convert.ChromaFilter == "" {
		c.Convert.ChromaFilter = defaultChromaFilter
	}
	if c.Convert.Quality == 0 {
		c.Convert.Quality = defaultQuality
	}
}

// applyEnv overrides server settings from the environment. Unset or empty
// variables leave the file value alone.
func (c *Config) applyEnv() error {
	if v, ok := lookupEnv("HOST"); ok {
		c.Server.Host = v
	}
	if v, ok := lookupEnv("IMAGER_FFMPEG"); ok {
		c.FFmpeg.Bin = v
	}
	ints := []struct {
		key string
		dst *int
	}{
		{"PORT", &c.Server.Port},
		{"FPS", &c.Server.FPS},
		{"VIDEO_WIDTH", &c.Server.Width},
		{"VIDEO_HEIGHT", &c.Server.Height},
	}
	for _, e := range ints {
		v, ok := lookupEnv(e.key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("env %s: %q is not an integer", e.key, v)
		}
		*e.dst = n
	}
	return nil
}

func lookupEnv(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}
