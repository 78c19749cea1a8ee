package stream

import "github.com/pion/webrtc/v3"

// PreferredMimeType picks the first codec compiled in: VP8, then AV1, then
// H.264 through ffmpeg. Create the track with this type before calling
// StartPipeline.
func PreferredMimeType() string {
	switch {
	case vp8Available:
		return webrtc.MimeTypeVP8
	case av1Available:
		return webrtc.MimeTypeAV1
	}
	return webrtc.MimeTypeH264
}

// StartPipeline starts the encoder matching mimeType.
func StartPipeline(mimeType string, cfg PipelineConfig) (Pipeline, error) {
	var (
		p   Pipeline
		err error
	)
	switch mimeType {
	case webrtc.MimeTypeVP8:
		p, err = pipelineOrNil(StartVP8Pipeline(cfg))
	case webrtc.MimeTypeAV1:
		p, err = pipelineOrNil(StartAV1Pipeline(cfg))
	default:
		var h *H264Pipeline
		h, err = StartH264Pipeline(cfg)
		if err == nil {
			p = h
		}
	}
	return p, err
}

// pipelineOrNil keeps a nil *EncoderPipeline from becoming a non-nil Pipeline.
func pipelineOrNil(p *EncoderPipeline, err error) (Pipeline, error) {
	if err != nil {
		return nil, err
	}
	return p, nil
}
