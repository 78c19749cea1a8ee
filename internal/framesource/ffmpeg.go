package framesource

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"imager/internal/yuv"
)

// FFmpeg decodes video by running the ffmpeg binary.
type FFmpeg struct {
	command func(ctx context.Context, args ...string) *exec.Cmd
	logger  *slog.Logger
	tempDir string
}

// NewFFmpeg returns a decoder that runs bin. A nil logger discards output.
func NewFFmpeg(bin string, logger *slog.Logger) *FFmpeg {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	command := func(ctx context.Context, args ...string) *exec.Cmd {
		return exec.CommandContext(ctx, bin, args...)
	}
	return &FFmpeg{command: command, logger: logger}
}

// Input "Stream #0:0: Video: h264 (Main) (avc1 / 0x31637661), yuv420p(progressive), 720x1280, 30 fps"
// Output "720", "1280"
// The size is a comma separated field; codec tags such as "/ 0x0024" are not.
var streamSizeRegex = regexp.MustCompile(`(?m)Video: .*?, (\d{1,5})x(\d{1,5})(?:[ ,]|$)`)

// DecodeVideo implements VideoDecoder. The data is spooled to a temporary
// file because containers such as mp4 need a seekable input.
func (f *FFmpeg) DecodeVideo(ctx context.Context, data []byte) ([]*yuv.Image, error) {
	tmp, err := os.CreateTemp(f.tempDir, "imager-video-*")
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, err
	}
	if err := tmp.Close(); err != nil {
		return nil, err
	}

	w, h, err := f.streamSize(ctx, tmp.Name())
	if err != nil {
		return nil, err
	}
	// The decode step crops odd edges away.
	w, h = w&^1, h&^1
	f.logger.Debug("video size read", slog.Int("width", w), slog.Int("height", h))
	return f.decodeRaw(ctx, tmp.Name(), w, h)
}

func (f *FFmpeg) streamSize(ctx context.Context, path string) (int, int, error) {
	cmd := f.command(ctx, "-hide_banner", "-noautorotate", "-i", path, "-f", "ffmetadata", "-")

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return 0, 0, fmt.Errorf("read video size: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	m := streamSizeRegex.FindStringSubmatch(stderr.String())
	if m == nil {
		return 0, 0, fmt.Errorf("read video size: no video stream size in %q", stderr.String())
	}
	w, _ := strconv.Atoi(m[1])
	h, _ := strconv.Atoi(m[2])
	return w, h, nil
}

func (f *FFmpeg) decodeRaw(ctx context.Context, path string, w, h int) ([]*yuv.Image, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("decode video: %w: %dx%d", yuv.ErrTooSmall, w, h)
	}
	cmd := f.command(ctx,
		"-hide_banner", "-loglevel", "error",
		"-noautorotate", "-i", path,
		"-an",
		"-vf", "crop=trunc(iw/2)*2:trunc(ih/2)*2",
		"-f", "rawvideo",
		"-pix_fmt", "yuv420p",
		"-",
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}

	frames, readErr := readFrames(stdout, w, h)
	if readErr != nil {
		// Drain so ffmpeg is not blocked writing when we wait on it.
		_, _ = io.Copy(io.Discard, stdout)
	}
	if err := cmd.Wait(); err != nil {
		return nil, fmt.Errorf("ffmpeg: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	if readErr != nil {
		return nil, readErr
	}
	f.logger.Debug("video decoded", slog.Int("frames", len(frames)))
	return frames, nil
}

func readFrames(r io.Reader, w, h int) ([]*yuv.Image, error) {
	buf := make([]byte, yuv.FrameSize(w, h))
	var frames []*yuv.Image
	for {
		_, err := io.ReadFull(r, buf)
		if errors.Is(err, io.EOF) {
			return frames, nil
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("decode video: truncated frame %d", len(frames))
		}
		if err != nil {
			return nil, err
		}
		frame, err := yuv.FromRaw(buf, w, h)
		if err != nil {
			return nil, err
		}
		frames = append(frames, frame)
	}
}
