package transcode

import (
	"bytes"
	"context"
	"encoding/binary"
	"math"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/sonido-world/logging"
	"github.com/RyanBlaney/sonido-world/wavio"
)

func TestParseProbeOutput(t *testing.T) {
	t.Parallel()

	out := []byte(`{"streams":[{"codec_type":"audio","codec_name":"mp3","sample_rate":"44100","channels":2,"duration":"1.5","bit_rate":"128000"}]}`)
	md, err := parseProbeOutput(out)
	require.NoError(t, err)
	assert.Equal(t, &Metadata{SampleRate: 44100, Channels: 2, Codec: "mp3", Duration: 1.5, Bitrate: 128000}, md)

	tests := map[string]string{
		"no streams":  `{"streams":[]}`,
		"video":       `{"streams":[{"codec_type":"video"}]}`,
		"bad rate":    `{"streams":[{"codec_type":"audio","sample_rate":"x","channels":1}]}`,
		"bad channel": `{"streams":[{"codec_type":"audio","sample_rate":"8000","channels":0}]}`,
		"not json":    `{`,
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := parseProbeOutput([]byte(in))
			assert.Error(t, err)
		})
	}
}

func TestBytesToFloat64DropsPartialSample(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	for _, v := range []float64{0.5, -0.25} {
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, v))
	}
	buf.Write([]byte{1, 2, 3})
	assert.Equal(t, []float64{0.5, -0.25}, bytesToFloat64(buf.Bytes()))
	assert.Empty(t, bytesToFloat64(nil))
}

func TestBuildArgs(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.MaxDuration = 2500 * time.Millisecond
	args := NewTranscoder(cfg, &logging.NoOpLogger{}).buildArgs(16000)
	assert.Equal(t, []string{"-f", "f64le", "-ac", "1", "-ar", "16000", "-t", "2.50", "-v", "error"}, args)
}

func TestEncodeWAV(t *testing.T) {
	t.Parallel()

	x := make([]float64, 800)
	for i := range x {
		x[i] = 0.5 * math.Sin(2*math.Pi*100*float64(i)/8000)
	}
	data, err := EncodeWAV(x, 8000, 16)
	require.NoError(t, err)
	assert.True(t, IsWAV(data))
	assert.False(t, IsWAV([]byte("RIFF")))

	info, err := wavio.Length(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 800, info.Frames)
	assert.Equal(t, 8000, info.SampleRate)

	_, err = EncodeWAV(x, 8000, 12)
	assert.ErrorIs(t, err, wavio.ErrUnsupportedFormat)
}

func TestUnavailableBinaries(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.FFmpegPath = "/nonexistent/ffmpeg"
	tr := NewTranscoder(cfg, &logging.NoOpLogger{})
	assert.ErrorIs(t, tr.Available(), ErrUnavailable)

	_, err := tr.ToWAV(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoAudio)
	_, err = tr.ToWAV(context.Background(), []byte("not audio"))
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestToWAVResamples(t *testing.T) {
	t.Parallel()

	for _, bin := range []string{"ffmpeg", "ffprobe"} {
		if _, err := exec.LookPath(bin); err != nil {
			t.Skipf("%s not installed", bin)
		}
	}

	x := make([]float64, 8000)
	for i := range x {
		x[i] = 0.5 * math.Sin(2*math.Pi*220*float64(i)/8000)
	}
	in, err := EncodeWAV(x, 8000, 16)
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.SampleRate = 16000
	out, err := NewTranscoder(cfg, &logging.NoOpLogger{}).ToWAV(context.Background(), in)
	require.NoError(t, err)

	info, err := wavio.Length(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 16000, info.SampleRate)
	assert.InDelta(t, 16000, info.Frames, 200)
}
