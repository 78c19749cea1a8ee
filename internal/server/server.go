// Package server plays frame sequences to browsers over WHEP (WebRTC-HTTP
// egress) and exposes the loaded frames over plain HTTP.
package server

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v3"

	"imager/internal/logging"
	"imager/internal/sequence"
	"imager/internal/stream"
	"imager/internal/version"
)

type Config struct {
	Host string
	Port int
	FPS  int
	// Width and Height size the synthetic source used when no sequence is loaded.
	Width  int
	Height int
	// Loop replays the sequence from the start after its last frame.
	Loop bool
	// Shared feeds every session from one pipeline instead of one each.
	Shared      bool
	BitrateKbps int
	FFmpegBin   string
}

type startPipelineFunc func(mimeType string, cfg stream.PipelineConfig) (stream.Pipeline, error)

type WhepServer struct {
	cfg      Config
	log      *slog.Logger
	mu       sync.Mutex
	sessions map[string]*session
	// seq is the master handle; sessions play duplicates of it.
	seq           *sequence.Sequence
	feed          *sharedFeed
	startPipeline startPipelineFunc
}

type session struct {
	pc   *webrtc.PeerConnection
	stop func()
}

// sharedFeed is the single pipeline used in shared mode.
type sharedFeed struct {
	mime     string
	bcast    *stream.SampleBroadcaster
	pipeline stream.Pipeline
}

// NewWhepServer takes ownership of seq, which may be nil to serve a
// synthetic pattern.
func NewWhepServer(cfg Config, seq *sequence.Sequence, logger *slog.Logger) *WhepServer {
	return &WhepServer{
		cfg:           cfg,
		log:           logging.Component(logger, "server"),
		sessions:      map[string]*session{},
		seq:           seq,
		startPipeline: stream.StartPipeline,
	}
}

func (s *WhepServer) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/whep", s.handleWHEPPost)
	mux.HandleFunc("/whep/", s.handleWHEPResource)
	mux.HandleFunc("/frames", s.handleFrames)
	mux.HandleFunc("/frames/", s.handleFrame)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, indexHTML)
	})
}

// SetSequence replaces the sequence new sessions play. Running sessions keep
// their own handles. In shared mode the shared pipeline is restarted.
func (s *WhepServer) SetSequence(seq *sequence.Sequence) {
	s.mu.Lock()
	old := s.seq
	s.seq = seq
	feed := s.feed
	s.mu.Unlock()
	if old != nil {
		old.Release()
	}
	if feed != nil {
		if err := s.restartFeed(feed); err != nil {
			s.log.Error("shared pipeline restart failed", slog.Any("err", err))
		}
	}
	if seq != nil {
		s.log.Info("sequence replaced", slog.Int("frames", seq.Len()),
			slog.Int("width", seq.Width()), slog.Int("height", seq.Height()))
	}
}

// Close ends every session and releases the sequence.
func (s *WhepServer) Close() {
	s.mu.Lock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mu.Unlock()
	for _, id := range ids {
		s.closeSession(id)
	}
	s.mu.Lock()
	seq, feed := s.seq, s.feed
	s.seq, s.feed = nil, nil
	var p stream.Pipeline
	if feed != nil {
		p = feed.pipeline
	}
	s.mu.Unlock()
	if feed != nil {
		p.Stop()
		feed.bcast.Close()
	}
	if seq != nil {
		seq.Release()
	}
}

// newSource builds the source for one pipeline. Caller must not hold s.mu.
func (s *WhepServer) newSource() stream.Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seq == nil {
		return stream.NewSynthetic(s.cfg.Width, s.cfg.Height)
	}
	return stream.NewSequenceSource(s.seq.Duplicate(), stream.SequenceOptions{Loop: s.cfg.Loop})
}

func (s *WhepServer) pipelineConfig(track stream.SampleWriter) stream.PipelineConfig {
	return stream.PipelineConfig{
		Width:       s.cfg.Width,
		Height:      s.cfg.Height,
		FPS:         s.cfg.FPS,
		BitrateKbps: s.cfg.BitrateKbps,
		Source:      s.newSource(),
		Track:       track,
		FFmpegBin:   s.cfg.FFmpegBin,
		Logger:      s.log,
	}
}

// attachShared registers track with the shared feed, starting it if needed.
func (s *WhepServer) attachShared(mime string, track stream.SampleWriter) (func(), error) {
	s.mu.Lock()
	feed := s.feed
	s.mu.Unlock()
	if feed == nil {
		bcast := stream.NewSampleBroadcaster()
		p, err := s.startPipeline(mime, s.pipelineConfig(bcast))
		if err != nil {
			return nil, err
		}
		feed = &sharedFeed{mime: mime, bcast: bcast, pipeline: p}
		s.mu.Lock()
		if existing := s.feed; existing != nil {
			// Another session started it first.
			s.mu.Unlock()
			p.Stop()
			bcast.Close()
			feed = existing
		} else {
			s.feed = feed
			s.mu.Unlock()
			go s.watchFeed(feed, p)
			s.log.Info("shared pipeline started", slog.String("codec", mime))
		}
	}
	return feed.bcast.Add(track), nil
}

func (s *WhepServer) restartFeed(feed *sharedFeed) error {
	p, err := s.startPipeline(feed.mime, s.pipelineConfig(feed.bcast))
	if err != nil {
		return err
	}
	s.mu.Lock()
	if s.feed != feed {
		// Closed or replaced while p was starting.
		s.mu.Unlock()
		p.Stop()
		return nil
	}
	old := feed.pipeline
	feed.pipeline = p
	s.mu.Unlock()
	old.Stop()
	go s.watchFeed(feed, p)
	return nil
}

// watchFeed tears the shared feed down, with every session on it, once p
// ends on its own. A restart or Close that replaced p first wins.
func (s *WhepServer) watchFeed(feed *sharedFeed, p stream.Pipeline) {
	<-p.Done()
	s.mu.Lock()
	if s.feed != feed || feed.pipeline != p {
		s.mu.Unlock()
		return
	}
	s.feed = nil
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	p.Stop()
	feed.bcast.Close()
	for _, id := range ids {
		s.closeSession(id)
	}
	s.log.Info("shared pipeline finished", slog.Int("sessions", len(ids)))
}

// watchSession closes session id once its own pipeline ends.
func (s *WhepServer) watchSession(id string, p stream.Pipeline) {
	<-p.Done()
	if s.closeSession(id) {
		s.log.Info("session pipeline finished", slog.String("session", id))
	}
}

func (s *WhepServer) handleWHEPPost(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		allowCORS(w, r)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	offerSDP, err := io.ReadAll(r.Body)
	if err != nil || len(offerSDP) == 0 {
		http.Error(w, "empty offer", http.StatusBadRequest)
		return
	}

	me := webrtc.MediaEngine{}
	if err := me.RegisterDefaultCodecs(); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	api := webrtc.NewAPI(webrtc.WithMediaEngine(&me))
	pc, err := api.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	id := uuid.New().String()
	log := s.log.With(slog.String("session", id))

	mime := stream.PreferredMimeType()
	if s.cfg.Shared {
		s.mu.Lock()
		if s.feed != nil {
			mime = s.feed.mime
		}
		s.mu.Unlock()
	}
	videoTrack, err := webrtc.NewTrackLocalStaticSample(webrtc.RTPCodecCapability{MimeType: mime}, "video", "imager")
	if err != nil {
		_ = pc.Close()
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if _, err := pc.AddTrack(videoTrack); err != nil {
		_ = pc.Close()
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if err := pc.SetRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: string(offerSDP)}); err != nil {
		_ = pc.Close()
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		_ = pc.Close()
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	gatherComplete := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(answer); err != nil {
		_ = pc.Close()
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	<-gatherComplete

	var (
		stop func()
		own  stream.Pipeline
	)
	if s.cfg.Shared {
		stop, err = s.attachShared(mime, videoTrack)
	} else {
		own, err = s.startPipeline(mime, s.pipelineConfig(videoTrack))
		if own != nil {
			stop = own.Stop
		}
	}
	if err != nil {
		_ = pc.Close()
		log.Error("pipeline start failed", slog.Any("err", err))
		http.Error(w, fmt.Sprintf("pipeline error: %v", err), http.StatusInternalServerError)
		return
	}

	s.mu.Lock()
	s.sessions[id] = &session{pc: pc, stop: stop}
	s.mu.Unlock()
	if own != nil {
		go s.watchSession(id, own)
	}
	log.Info("session created", slog.String("codec", mime), slog.Bool("shared", s.cfg.Shared))

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		log.Debug("connection state", slog.String("state", state.String()))
		switch state {
		case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateClosed, webrtc.PeerConnectionStateDisconnected:
			s.closeSession(id)
		}
	})

	allowCORS(w, r)
	w.Header().Set("Content-Type", "application/sdp")
	w.Header().Set("Location", "/whep/"+id)
	w.WriteHeader(http.StatusCreated)
	_, _ = io.WriteString(w, pc.LocalDescription().SDP)
}

func (s *WhepServer) handleWHEPResource(w http.ResponseWriter, r *http.Request) {
	allowCORS(w, r)
	id := strings.TrimPrefix(r.URL.Path, "/whep/")
	switch r.Method {
	case http.MethodPatch:
		// Trickle ICE is not supported; candidates are all in the answer.
		w.WriteHeader(http.StatusNoContent)
	case http.MethodDelete:
		if !s.closeSession(id) {
			http.Error(w, "unknown session", http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case http.MethodOptions:
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *WhepServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	body := map[string]any{
		"status":   "ok",
		"version":  version.String(),
		"sessions": len(s.sessions),
		"shared":   s.feed != nil,
		"counters": stream.GetCounters(),
	}
	if s.seq != nil {
		body["sequence"] = sequenceInfo(s.seq)
	}
	s.mu.Unlock()
	writeJSON(w, body)
}

// closeSession reports whether id was a live session.
func (s *WhepServer) closeSession(id string) bool {
	s.mu.Lock()
	sess := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if sess == nil {
		return false
	}
	if sess.stop != nil {
		sess.stop()
	}
	_ = sess.pc.Close()
	s.log.Info("session closed", slog.String("session", id))
	return true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func allowCORS(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	if origin == "" {
		origin = "*"
	}
	w.Header().Set("Access-Control-Allow-Origin", origin)
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Expose-Headers", "Location")
}
