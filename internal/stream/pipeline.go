// Package stream encodes frame sources into WebRTC media samples.
package stream

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/pion/webrtc/v3/pkg/media"
)

// execCommand is replaced in tests.
var execCommand = exec.Command

// Pipeline is a running encoder feeding a track.
type Pipeline interface {
	// Done is closed once the pipeline has ended, either because its source
	// ran out or because Stop was called. Its encoder has been reaped by then.
	Done() <-chan struct{}
	Stop()
}

// PipelineConfig defines how to encode a Source and feed a track.
type PipelineConfig struct {
	// Width and Height are taken from the source when it implements Sized.
	Width, Height int
	FPS           int
	BitrateKbps   int
	Source        Source
	Track         SampleWriter
	// FFmpegBin is the encoder binary for the H.264 pipeline.
	FFmpegBin string
	Logger    *slog.Logger
}

func (cfg *PipelineConfig) setDefaults() {
	if cfg.FPS <= 0 {
		cfg.FPS = 30
	}
	if cfg.BitrateKbps <= 0 {
		cfg.BitrateKbps = 2500
	}
	if cfg.Source == nil {
		if cfg.Width <= 0 {
			cfg.Width = 1280
		}
		if cfg.Height <= 0 {
			cfg.Height = 720
		}
		cfg.Source = NewSynthetic(cfg.Width, cfg.Height)
	}
	if s, ok := cfg.Source.(Sized); ok {
		cfg.Width, cfg.Height = s.Size()
	}
	// I420 needs even dimensions.
	cfg.Width, cfg.Height = max(cfg.Width&^1, 2), max(cfg.Height&^1, 2)
	if cfg.FFmpegBin == "" {
		cfg.FFmpegBin = "ffmpeg"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
}

// H264Pipeline pipes yuv420p frames through ffmpeg/libx264 and writes the
// AnnexB access units to the track.
type H264Pipeline struct {
	cfg    PipelineConfig
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
	quit   chan struct{}
	once   sync.Once
	done   sync.WaitGroup

	// finished is closed by reap after ffmpeg has exited.
	finished chan struct{}
}

// StartH264Pipeline starts ffmpeg and the goroutines feeding and draining it.
func StartH264Pipeline(cfg PipelineConfig) (*H264Pipeline, error) {
	cfg.setDefaults()
	p := &H264Pipeline{cfg: cfg}
	if err := p.start(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *H264Pipeline) start() error {
	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-f", "rawvideo",
		"-pix_fmt", "yuv420p",
		"-s:v", sizeArg(p.cfg.Width, p.cfg.Height),
		"-r", strconv.Itoa(p.cfg.FPS),
		"-i", "-",
		"-an",
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-tune", "zerolatency",
		"-b:v", strconv.Itoa(p.cfg.BitrateKbps) + "k",
		"-f", "h264",
		"-",
	}
	cmd := execCommand(p.cfg.FFmpegBin, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	cmd.Stderr = &logWriter{logger: p.cfg.Logger}
	if err := cmd.Start(); err != nil {
		return err
	}
	p.cmd, p.stdin, p.stdout = cmd, stdin, stdout
	p.quit = make(chan struct{})
	p.finished = make(chan struct{})
	p.cfg.Logger.Info("h264 pipeline started",
		slog.Int("width", p.cfg.Width), slog.Int("height", p.cfg.Height), slog.Int("fps", p.cfg.FPS))

	p.done.Add(2)
	go p.pump()
	go p.drain()
	go p.reap()
	return nil
}

// reap waits for both pipes to finish, then for ffmpeg itself.
func (p *H264Pipeline) reap() {
	p.done.Wait()
	if err := p.cmd.Wait(); err != nil {
		select {
		case <-p.quit:
		default:
			p.cfg.Logger.Warn("ffmpeg exited", slog.Any("err", err))
		}
	}
	close(p.finished)
}

// pump writes one frame per tick to ffmpeg's stdin.
func (p *H264Pipeline) pump() {
	defer p.done.Done()
	defer p.stdin.Close()
	ticker := time.NewTicker(time.Second / time.Duration(p.cfg.FPS))
	defer ticker.Stop()
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
		if frame.Width() != p.cfg.Width || frame.Height() != p.cfg.Height {
			incFramesDropped()
			p.cfg.Logger.Debug("frame size mismatch",
				slog.Int("width", frame.Width()), slog.Int("height", frame.Height()))
			continue
		}
		if _, err := p.stdin.Write(frame.Data()); err != nil {
			return
		}
	}
}

// drain reads access units from ffmpeg's stdout and writes them as samples.
func (p *H264Pipeline) drain() {
	defer p.done.Done()
	enqueue, stopWriter := newAsyncSampleWriter(p.cfg.Track)
	defer stopWriter()
	r := newAnnexBReader(p.stdout)
	dur := time.Second / time.Duration(p.cfg.FPS)
	for {
		au, err := r.ReadAccessUnit()
		if len(au) > 0 {
			incFramesEncoded()
			if enqueue(media.Sample{Data: au, Duration: dur, Timestamp: time.Now()}) {
				incSamplesSent(1)
			} else {
				p.cfg.Logger.Debug("sample dropped")
			}
		}
		if err != nil {
			return
		}
	}
}

// Stop terminates ffmpeg and stops the source. Safe to call more than once.
func (p *H264Pipeline) Stop() {
	p.once.Do(func() {
		close(p.quit)
		_ = p.cmd.Process.Kill()
		<-p.finished
		p.cfg.Source.Stop()
		p.cfg.Logger.Info("h264 pipeline stopped")
	})
}

func (p *H264Pipeline) Done() <-chan struct{} { return p.finished }

// Wait blocks until the source is exhausted and ffmpeg has flushed its output.
func (p *H264Pipeline) Wait() {
	<-p.finished
}

// logWriter forwards ffmpeg's stderr lines at debug level.
type logWriter struct {
	mu     sync.Mutex
	logger *slog.Logger
	buf    []byte
}

func (w *logWriter) Write(b []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf = append(w.buf, b...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		if line := bytes.TrimSpace(w.buf[:i]); len(line) > 0 {
			w.logger.Debug("ffmpeg", slog.String("line", string(line)))
		}
		w.buf = w.buf[i+1:]
	}
	return len(b), nil
}

func sizeArg(w, h int) string { return strconv.Itoa(w) + "x" + strconv.Itoa(h) }

var errPipelineUnavailable = errors.New("stream: pipeline not available in this build")
