package stream

import (
	"sync"

	"github.com/pion/webrtc/v3/pkg/media"
)

// SampleWriter is satisfied by *webrtc.TrackLocalStaticSample.
type SampleWriter interface {
	WriteSample(media.Sample) error
}

// SampleBroadcaster fans encoded samples out to multiple sinks so one
// pipeline can feed every session in shared mode.
// Each sink gets its own small queue so a slow connection doesn't block others.
type SampleBroadcaster struct {
	mu    sync.RWMutex
	sinks map[*sink]struct{}
}

type sink struct {
	ch   chan media.Sample
	quit chan struct{}
	w    SampleWriter
}

// NewSampleBroadcaster creates a broadcaster. Call Close when done.
func NewSampleBroadcaster() *SampleBroadcaster {
	return &SampleBroadcaster{sinks: make(map[*sink]struct{})}
}

// Add registers a sink and returns a function that removes it when the
// session ends.
func (b *SampleBroadcaster) Add(w SampleWriter) (remove func()) {
	s := &sink{ch: make(chan media.Sample, 4), quit: make(chan struct{}), w: w}
	go func() {
		for {
			select {
			case sm := <-s.ch:
				_ = s.w.WriteSample(sm)
			case <-s.quit:
				return
			}
		}
	}()
	b.mu.Lock()
	if b.sinks == nil {
		b.sinks = make(map[*sink]struct{})
	}
	b.sinks[s] = struct{}{}
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		if _, ok := b.sinks[s]; ok {
			delete(b.sinks, s)
			close(s.quit)
		}
		b.mu.Unlock()
	}
}

// Len reports the number of registered sinks.
func (b *SampleBroadcaster) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.sinks)
}

// WriteSample queues sm for every sink, dropping it for sinks whose queue is full.
func (b *SampleBroadcaster) WriteSample(sm media.Sample) error {
	b.mu.RLock()
	for s := range b.sinks {
		select {
		case s.ch <- sm:
		default:
		}
	}
	b.mu.RUnlock()
	return nil
}

// Close stops all sink workers and clears the list.
func (b *SampleBroadcaster) Close() {
	b.mu.Lock()
	for s := range b.sinks {
		close(s.quit)
		delete(b.sinks, s)
	}
	b.mu.Unlock()
}
