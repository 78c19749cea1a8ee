package server

import (
	"bytes"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"imager/internal/imageformat"
	"imager/internal/sequence"
)

type frameInfo struct {
	Width  int `json:"width"`
	Height int `json:"height"`
	Count  int `json:"count"`
}

func sequenceInfo(seq *sequence.Sequence) frameInfo {
	return frameInfo{Width: seq.Width(), Height: seq.Height(), Count: seq.Len()}
}

// GET /frames -> {"width":..,"height":..,"count":..}
func (s *WhepServer) handleFrames(w http.ResponseWriter, r *http.Request) {
	allowCORS(w, r)
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.mu.Lock()
	if s.seq == nil {
		s.mu.Unlock()
		http.Error(w, "no frames loaded", http.StatusNotFound)
		return
	}
	info := sequenceInfo(s.seq)
	s.mu.Unlock()
	writeJSON(w, info)
}

// GET /frames/{n}?format=png|jpeg|webp&quality=q&lossless=1 renders one frame as an image.
func (s *WhepServer) handleFrame(w http.ResponseWriter, r *http.Request) {
	allowCORS(w, r)
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	n, err := strconv.Atoi(strings.TrimPrefix(r.URL.Path, "/frames/"))
	if err != nil || n < 0 {
		http.Error(w, "invalid frame index", http.StatusBadRequest)
		return
	}

	format := imageformat.PNG
	if v := r.URL.Query().Get("format"); v != "" {
		if format, err = imageformat.ParseFormat(v); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	quality := 90
	if v := r.URL.Query().Get("quality"); v != "" {
		if quality, err = strconv.Atoi(v); err != nil || quality < 1 || quality > 100 {
			http.Error(w, "quality must be between 1 and 100", http.StatusBadRequest)
			return
		}
	}

	lossless := false
	if v := r.URL.Query().Get("lossless"); v != "" {
		if lossless, err = strconv.ParseBool(v); err != nil {
			http.Error(w, "lossless must be a boolean", http.StatusBadRequest)
			return
		}
	}

	s.mu.Lock()
	if s.seq == nil {
		s.mu.Unlock()
		http.Error(w, "no frames loaded", http.StatusNotFound)
		return
	}
	frames := s.seq.Frames()
	s.mu.Unlock()
	if n >= len(frames) {
		http.Error(w, "frame out of range", http.StatusNotFound)
		return
	}

	var buf bytes.Buffer
	opts := imageformat.EncodeOptions{Quality: quality, Lossless: lossless}
	if err := imageformat.EncodeWithOptions(&buf, frames[n].ToRGBA(), format, opts); err != nil {
		s.log.Error("frame encode failed", slog.Int("frame", n), slog.Any("err", err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/"+format.String())
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = w.Write(buf.Bytes())
}
