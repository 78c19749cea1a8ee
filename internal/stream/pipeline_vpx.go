//go:build cgo && vpx

package stream

const vp8Available = true

// StartVP8Pipeline encodes frames from Source with libvpx and feeds a VP8 track.
func StartVP8Pipeline(cfg PipelineConfig) (*EncoderPipeline, error) {
	cfg.setDefaults()
	e, err := NewVP8Encoder(VP8Config{Width: cfg.Width, Height: cfg.Height, FPS: cfg.FPS, BitrateKbps: cfg.BitrateKbps})
	if err != nil {
		return nil, err
	}
	return startEncoderPipeline("vp8", cfg, e), nil
}
