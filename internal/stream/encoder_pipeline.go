package stream

import (
	"log/slog"
	"sync"
	"time"

	"github.com/pion/webrtc/v3/pkg/media"

	"imager/internal/yuv"
)

// frameEncoder compresses one I420 frame into zero or more packets.
type frameEncoder interface {
	Encode(frame *yuv.Image) ([][]byte, bool, error)
	Close()
}

// EncoderPipeline drives an in-process encoder from a Source, one frame per
// tick, and writes every packet it returns as a sample.
type EncoderPipeline struct {
	name     string
	cfg      PipelineConfig
	enc      frameEncoder
	quit     chan struct{}
	finished chan struct{}
	once     sync.Once
}

func startEncoderPipeline(name string, cfg PipelineConfig, enc frameEncoder) *EncoderPipeline {
	p := &EncoderPipeline{
		name:     name,
		cfg:      cfg,
		enc:      enc,
		quit:     make(chan struct{}),
		finished: make(chan struct{}),
	}
	go p.loop()
	cfg.Logger.Info(name+" pipeline started",
		slog.Int("width", cfg.Width), slog.Int("height", cfg.Height), slog.Int("fps", cfg.FPS))
	return p
}

func (p *EncoderPipeline) loop() {
	defer close(p.finished)
	defer p.enc.Close()

	ticker := time.NewTicker(time.Second / time.Duration(p.cfg.FPS))
	defer ticker.Stop()
	enqueue, stopWriter := newAsyncSampleWriter(p.cfg.Track)
	defer stopWriter()
	dur := time.Second / time.Duration(p.cfg.FPS)
	for {
		select {
		case <-p.quit:
			return
		case <-ticker.C:
		}
		frame, ok := p.cfg.Source.Next()
		if !ok {
			return
		}
		incFramesIn()
		packets, _, err := p.enc.Encode(frame)
		if err != nil {
			p.cfg.Logger.Debug(p.name+" encode failed", slog.Any("err", err))
			incFramesDropped()
			continue
		}
		if len(packets) == 0 {
			incFramesDropped()
			continue
		}
		incFramesEncoded()
		accepted := 0
		for _, pkt := range packets {
			if enqueue(media.Sample{Data: pkt, Duration: dur, Timestamp: time.Now()}) {
				accepted++
			}
		}
		incSamplesSent(accepted)
	}
}

func (p *EncoderPipeline) Done() <-chan struct{} { return p.finished }

// Stop ends the encode loop and stops the source. Safe to call more than once.
func (p *EncoderPipeline) Stop() {
	p.once.Do(func() {
		close(p.quit)
		<-p.finished
		p.cfg.Source.Stop()
		p.cfg.Logger.Info(p.name + " pipeline stopped")
	})
}
