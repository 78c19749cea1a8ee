// Package config loads, normalizes, and validates imager configuration.
//
// It supplies defaults, reads TOML files, and applies the environment
// overrides the WHEP server has always honoured (HOST, PORT, FPS,
// VIDEO_WIDTH, VIDEO_HEIGHT) plus IMAGER_FFMPEG for the decoder binary.
package config
