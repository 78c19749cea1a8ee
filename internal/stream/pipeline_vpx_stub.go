//go:build !(cgo && vpx)

package stream

const vp8Available = false

// StartVP8Pipeline is unavailable without cgo and the vpx build tag; use
// StartH264Pipeline instead.
func StartVP8Pipeline(cfg PipelineConfig) (*EncoderPipeline, error) {
	return nil, errPipelineUnavailable
}
