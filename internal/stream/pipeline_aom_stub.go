//go:build !(cgo && aom)

package stream

const av1Available = false

// StartAV1Pipeline is unavailable without cgo and the aom build tag.
func StartAV1Pipeline(cfg PipelineConfig) (*EncoderPipeline, error) {
	return nil, errPipelineUnavailable
}
