package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/require"

	"imager/internal/config"
	"imager/internal/imageformat"
	"imager/internal/yuv"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"HOST", "PORT", "FPS", "VIDEO_WIDTH", "VIDEO_HEIGHT", "IMAGER_FFMPEG"} {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "imager.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "absent.toml")

	cfg, resolved, exists, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, path, resolved)
	require.False(t, exists)

	def := config.Default()
	require.Equal(t, def.Server, cfg.Server)
	require.Equal(t, "console", cfg.Logging.Format)
	require.Equal(t, "info", cfg.Logging.Level)
	require.Equal(t, imageformat.Formats{imageformat.JPEG, imageformat.WebP}, cfg.Convert.OutputFormats)
	require.True(t, cfg.Convert.OutputSize.IsFull())
	require.Equal(t, "ffmpeg", cfg.FFmpeg.Bin)
	require.Equal(t, "0.0.0.0:8000", cfg.Addr())
	require.Equal(t, yuv.ChromaSharp, cfg.ConvertOptions().Chroma)
	require.Equal(t, 250*time.Millisecond, cfg.WatchDebounce())
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
[logging]
format = "JSON"
level = "debug"

[convert]
workers = 3
chroma_filter = "box"
output_formats = "png jpeg"
quality = 70
lossless = true
output_size = "320x240"

[server]
port = 9000
fps = 25
shared = true
loop = false

[ffmpeg]
bin = "/opt/ffmpeg/bin/ffmpeg"
`)

	cfg, _, exists, err := config.Load(path)
	require.NoError(t, err)
	require.True(t, exists)
	require.Equal(t, "json", cfg.Logging.Format)
	require.Equal(t, "debug", cfg.Logging.Level)
	require.Equal(t, 3, cfg.Convert.Workers)
	require.Equal(t, yuv.ChromaBox, cfg.ConvertOptions().Chroma)
	require.Equal(t, imageformat.Formats{imageformat.PNG, imageformat.JPEG}, cfg.Convert.OutputFormats)
	require.Equal(t, 70, cfg.Convert.Quality)
	require.True(t, cfg.Convert.Lossless)
	r, ok := cfg.Convert.OutputSize.Resolution()
	require.True(t, ok)
	require.Equal(t, imageformat.Resolution{Width: 320, Height: 240}, r)
	require.Equal(t, 9000, cfg.Server.Port)
	require.Equal(t, 25, cfg.Server.FPS)
	require.True(t, cfg.Server.Shared)
	require.False(t, cfg.Server.Loop)
	require.Equal(t, "/opt/ffmpeg/bin/ffmpeg", cfg.FFmpeg.Bin)
	// Untouched keys keep their defaults.
	require.Equal(t, config.Default().Server.Width, cfg.Server.Width)
}

func TestLoadRejectsInvalid(t *testing.T) {
	clearEnv(t)
	cases := map[string]string{
		"badFormat":   "[convert]\noutput_formats = \"jpeg tiff bmp\"\n",
		"badSize":     "[convert]\noutput_size = \"big\"\n",
		"badChroma":   "[convert]\nchroma_filter = \"lanczos\"\n",
		"badQuality":  "[convert]\nquality = 101\n",
		"badLevel":    "[logging]\nlevel = \"loud\"\n",
		"badLogFmt":   "[logging]\nformat = \"xml\"\n",
		"badPort":     "[server]\nport = 70000\n",
		"badFPS":      "[server]\nfps = -1\n",
		"unknownKey":  "[server]\nbogus = 1\n",
		"hugeSize":    "[convert]\noutput_size = \"20000x10\"\n",
		"noFormats":   "[convert]\noutput_formats = \"\"\n",
		"syntaxError": "[server\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, _, err := config.Load(writeConfig(t, body))
			require.Error(t, err)
		})
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOST", "127.0.0.1")
	t.Setenv("PORT", "8081")
	t.Setenv("FPS", "15")
	t.Setenv("VIDEO_WIDTH", "640")
	t.Setenv("VIDEO_HEIGHT", "480")
	t.Setenv("IMAGER_FFMPEG", "/usr/local/bin/ffmpeg")
	path := writeConfig(t, "[server]\nport = 9000\n")

	cfg, _, _, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:8081", cfg.Addr())
	require.Equal(t, 15, cfg.Server.FPS)
	require.Equal(t, 640, cfg.Server.Width)
	require.Equal(t, 480, cfg.Server.Height)
	require.Equal(t, "/usr/local/bin/ffmpeg", cfg.FFmpeg.Bin)

	t.Setenv("PORT", "eighty")
	_, _, _, err = config.Load(path)
	require.ErrorContains(t, err, "PORT")
}

func TestMarshalRoundTrip(t *testing.T) {
	clearEnv(t)
	cfg := config.Default()
	cfg.Convert.OutputSize = imageformat.Px(64, 48)

	data, err := cfg.Marshal()
	require.NoError(t, err)

	var back config.Config
	require.NoError(t, toml.Unmarshal(data, &back))
	require.Equal(t, cfg.Convert.OutputFormats, back.Convert.OutputFormats)
	require.Equal(t, "64x48", back.Convert.OutputSize.String())
	require.Equal(t, cfg.Server, back.Server)
}
