package stream

import (
	"github.com/pion/webrtc/v3/pkg/media"
)

// newAsyncSampleWriter wraps w so encoder loops don't block on network
// backpressure. The returned enqueue reports false when the sample was
// dropped because the queue is full. A nil w yields a no-op writer.
func newAsyncSampleWriter(w SampleWriter) (enqueue func(media.Sample) bool, stop func()) {
	if w == nil {
		return func(media.Sample) bool { return false }, func() {}
	}
	ch := make(chan media.Sample, 4)
	quit := make(chan struct{})
	go func() {
		for {
			select {
			case s := <-ch:
				_ = w.WriteSample(s)
			case <-quit:
				return
			}
		}
	}()
	return func(s media.Sample) bool {
		select {
		case ch <- s:
			return true
		default:
			return false
		}
	}, func() { close(quit) }
}
