package framesource

import (
	"context"
	"fmt"
	"os"

	"imager/internal/sequence"
	"imager/internal/yuv"
)

// VideoDecoder demultiplexes and decodes an encoded video into planar frames
// in decode order.
type VideoDecoder interface {
	DecodeVideo(ctx context.Context, data []byte) ([]*yuv.Image, error)
}

// BuildFromVideo decodes data with dec. The sequence takes its dimensions
// from the first frame.
func BuildFromVideo(ctx context.Context, dec VideoDecoder, data []byte) (*sequence.Sequence, error) {
	frames, err := dec.DecodeVideo(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("decode video: %w", err)
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("decode video: %w", sequence.ErrEmpty)
	}
	return sequence.New(frames)
}

// OpenVideo reads path and calls BuildFromVideo.
func OpenVideo(ctx context.Context, dec VideoDecoder, path string) (*sequence.Sequence, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read video: %w", err)
	}
	return BuildFromVideo(ctx, dec, data)
}
