//go:build cgo && aom

package stream

const av1Available = true

// StartAV1Pipeline encodes frames from Source with libaom and feeds an AV1 track.
func StartAV1Pipeline(cfg PipelineConfig) (*EncoderPipeline, error) {
	cfg.setDefaults()
	e, err := NewAV1Encoder(AV1Config{Width: cfg.Width, Height: cfg.Height, FPS: cfg.FPS, BitrateKbps: cfg.BitrateKbps})
	if err != nil {
		return nil, err
	}
	return startEncoderPipeline("av1", cfg, e), nil
}
