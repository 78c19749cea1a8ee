package config

import "imager/internal/imageformat"

const (
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
	defaultChromaFilter    = "sharp"
	defaultQuality         = 90
	defaultHost            = "0.0.0.0"
	defaultPort            = 8000
	defaultFPS             = 30
	defaultWidth           = 1280
	defaultHeight          = 720
	defaultBitrateKbps     = 2500
	defaultWatchDebounceMS = 250
	defaultFFmpegBin       = "ffmpeg"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Convert: Convert{
			ChromaFilter:  defaultChromaFilter,
			OutputFormats: imageformat.DefaultFormats(),
			Quality:       defaultQuality,
			OutputSize:    imageformat.Full(),
		},
		Server: Server{
			Host:            defaultHost,
			Port:            defaultPort,
			FPS:             defaultFPS,
			Width:           defaultWidth,
			Height:          defaultHeight,
			Loop:            true,
			BitrateKbps:     defaultBitrateKbps,
			WatchDebounceMS: defaultWatchDebounceMS,
		},
		FFmpeg: FFmpeg{
			Bin: defaultFFmpegBin,
		},
	}
}
