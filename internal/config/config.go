package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"imager/internal/imageformat"
	"imager/internal/yuv"
)

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Convert contains configuration for image ingestion and export.
type Convert struct {
	// Workers bounds parallel decoding. Zero uses every CPU.
	Workers       int                 `toml:"workers"`
	ChromaFilter  string              `toml:"chroma_filter"`
	OutputFormats imageformat.Formats `toml:"output_formats"`
	Quality       int                 `toml:"quality"`
	// Lossless writes WebP output lossless; Quality is then ignored for WebP.
	Lossless      bool                `toml:"lossless"`
	OutputSize    imageformat.Size    `toml:"output_size"`
}

// Server contains configuration for the WHEP playback server.
type Server struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
	FPS  int    `toml:"fps"`
	// Width and Height size the synthetic source when no frames are loaded.
	Width           int  `toml:"width"`
	Height          int  `toml:"height"`
	Loop            bool `toml:"loop"`
	Shared          bool `toml:"shared"`
	BitrateKbps     int  `toml:"bitrate_kbps"`
	WatchDebounceMS int  `toml:"watch_debounce_ms"`
}

// FFmpeg locates the decoder binary.
type FFmpeg struct {
	Bin string `toml:"bin"`
}

// Config encapsulates all configuration values for imager.
type Config struct {
	Logging Logging `toml:"logging"`
	Convert Convert `toml:"convert"`
	Server  Server  `toml:"server"`
	FFmpeg  FFmpeg  `toml:"ffmpeg"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/imager/config.toml")
}

// Load locates, parses, and validates a configuration file. A missing file
// yields the defaults. It also reports the resolved path and whether the
// file existed.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// Marshal renders the configuration as TOML.
func (c *Config) Marshal() ([]byte, error) {
	return toml.Marshal(c)
}

// ConvertOptions returns the colour converter options. Call after Validate.
func (c *Config) ConvertOptions() yuv.Options {
	filter, _ := yuv.ParseChromaFilter(c.Convert.ChromaFilter)
	return yuv.Options{Chroma: filter}
}

// WatchDebounce returns the directory watch quiet period.
func (c *Config) WatchDebounce() time.Duration {
	return time.Duration(c.Server.WatchDebounceMS) * time.Millisecond
}

// Addr returns the server listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("imager.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}
