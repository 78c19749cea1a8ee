package stream

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pion/webrtc/v3"
	"github.com/stretchr/testify/require"

	"imager/internal/yuv"
)

// fakeFrameEncoder emits the frame's first luma byte as a one-byte packet.
type fakeFrameEncoder struct {
	failOn byte
	closed atomic.Bool
}

func (e *fakeFrameEncoder) Encode(frame *yuv.Image) ([][]byte, bool, error) {
	if frame.Y()[0] == e.failOn {
		return nil, false, errors.New("encode failed")
	}
	return [][]byte{{frame.Y()[0]}}, true, nil
}

func (e *fakeFrameEncoder) Close() { e.closed.Store(true) }

func startFakeEncoderPipeline(t *testing.T, enc frameEncoder, track SampleWriter, fills ...byte) *EncoderPipeline {
	t.Helper()
	cfg := PipelineConfig{
		FPS:    100,
		Source: NewSequenceSource(testSequence(t, fills...), SequenceOptions{}),
		Track:  track,
	}
	cfg.setDefaults()
	return startEncoderPipeline("fake", cfg, enc)
}

func waitDone(t *testing.T, p Pipeline) {
	t.Helper()
	select {
	case <-p.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("pipeline did not finish")
	}
}

func TestEncoderPipeline(t *testing.T) {
	ResetCounters()
	enc := &fakeFrameEncoder{}
	track := make(chanTrack, 16)
	p := startFakeEncoderPipeline(t, enc, track, 7, 9)

	require.Equal(t, []byte{7}, receive(t, track).Data)
	require.Equal(t, []byte{9}, receive(t, track).Data)
	waitDone(t, p)
	require.True(t, enc.closed.Load())

	counters := GetCounters()
	require.Equal(t, uint64(2), counters["frames_in"])
	require.Equal(t, uint64(2), counters["frames_encoded"])
	require.Equal(t, uint64(2), counters["samples_sent"])

	p.Stop()
	p.Stop()
}

func TestEncoderPipelineDropsFailedFrames(t *testing.T) {
	ResetCounters()
	track := make(chanTrack, 16)
	p := startFakeEncoderPipeline(t, &fakeFrameEncoder{failOn: 3}, track, 3, 4)

	require.Equal(t, []byte{4}, receive(t, track).Data)
	waitDone(t, p)
	counters := GetCounters()
	require.Equal(t, uint64(1), counters["frames_dropped"])
	require.Equal(t, uint64(1), counters["frames_encoded"])
}

func TestEncoderPipelineStop(t *testing.T) {
	enc := &fakeFrameEncoder{}
	cfg := PipelineConfig{Width: 4, Height: 4, FPS: 100, Track: make(chanTrack, 1024)}
	cfg.setDefaults()
	p := startEncoderPipeline("fake", cfg, enc)

	p.Stop()
	waitDone(t, p)
	require.True(t, enc.closed.Load())
}

func TestAV1PipelineUnavailable(t *testing.T) {
	if av1Available {
		t.Skip("built with libaom")
	}
	_, err := StartAV1Pipeline(PipelineConfig{})
	require.ErrorIs(t, err, errPipelineUnavailable)
	_, err = StartPipeline(webrtc.MimeTypeAV1, PipelineConfig{})
	require.ErrorIs(t, err, errPipelineUnavailable)
	if !vp8Available {
		require.Equal(t, webrtc.MimeTypeH264, PreferredMimeType())
	}
}
