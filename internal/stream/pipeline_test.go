package stream

import (
	"io"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/pion/webrtc/v3"
	"github.com/stretchr/testify/require"
)

func TestFakeEncoder(t *testing.T) {
	if os.Getenv("GO_TEST_PROCESS") != "1" {
		return
	}
	os.Stdout.Write(testAnnexBStream())
	_, _ = io.Copy(io.Discard, os.Stdin)
	os.Exit(0)
}

func fakeEncoderCommand(t *testing.T) *[]string {
	var gotArgs []string
	prev := execCommand
	execCommand = func(name string, args ...string) *exec.Cmd {
		gotArgs = append([]string{name}, args...)
		cmd := exec.Command(os.Args[0], "-test.run=^TestFakeEncoder$")
		cmd.Env = []string{"GO_TEST_PROCESS=1"}
		return cmd
	}
	t.Cleanup(func() { execCommand = prev })
	return &gotArgs
}

func TestH264Pipeline(t *testing.T) {
	args := fakeEncoderCommand(t)
	ResetCounters()

	track := make(chanTrack, 16)
	p, err := StartH264Pipeline(PipelineConfig{
		FPS:         100,
		BitrateKbps: 800,
		Source:      NewSequenceSource(testSequence(t, 1, 2), SequenceOptions{}),
		Track:       track,
		FFmpegBin:   "/usr/bin/ffmpeg",
	})
	require.NoError(t, err)
	p.Wait()
	p.Stop()
	p.Stop()

	require.Equal(t, "/usr/bin/ffmpeg", (*args)[0])
	require.Contains(t, *args, "yuv420p")
	require.Contains(t, *args, "4x4")
	require.Contains(t, *args, "800k")

	counters := GetCounters()
	require.Equal(t, uint64(2), counters["frames_in"])
	require.Equal(t, uint64(2), counters["frames_encoded"])
	require.Equal(t, uint64(2), counters["samples_sent"])
}

func TestH264PipelineDoneWhenSourceEnds(t *testing.T) {
	fakeEncoderCommand(t)

	p, err := StartH264Pipeline(PipelineConfig{
		FPS:    100,
		Source: NewSequenceSource(testSequence(t, 1), SequenceOptions{}),
		Track:  make(chanTrack, 16),
	})
	require.NoError(t, err)

	select {
	case <-p.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("pipeline did not finish after its source ended")
	}
	require.NotNil(t, p.cmd.ProcessState)
	require.True(t, p.cmd.ProcessState.Exited())
	p.Stop()
}

func TestStartPipelineFallsBackToH264(t *testing.T) {
	fakeEncoderCommand(t)
	if PreferredMimeType() == webrtc.MimeTypeVP8 {
		t.Skip("built with libvpx")
	}
	require.Equal(t, webrtc.MimeTypeH264, PreferredMimeType())

	_, err := StartVP8Pipeline(PipelineConfig{})
	require.ErrorIs(t, err, errPipelineUnavailable)

	p, err := StartPipeline(PreferredMimeType(), PipelineConfig{
		FPS:    100,
		Source: NewSequenceSource(testSequence(t, 1), SequenceOptions{}),
	})
	require.NoError(t, err)
	p.Stop()
}
