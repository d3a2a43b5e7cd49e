// Package transcode brings audio in any format ffmpeg can read into the mono
// PCM WAV form accepted by the bridge's audio file role.
package transcode

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/RyanBlaney/sonido-world/logging"
	"github.com/RyanBlaney/sonido-world/wavio"
)

var (
	// ErrNoAudio is returned when the input holds no decodable audio stream.
	ErrNoAudio = errors.New("transcode: no audio stream")
	// ErrUnavailable is returned when ffmpeg or ffprobe cannot be run.
	ErrUnavailable = errors.New("transcode: ffmpeg not available")
)

// Config holds transcoder configuration
type Config struct {
	SampleRate  int           `json:"sample_rate"` // 0 keeps the source rate
	BitDepth    int           `json:"bit_depth"`
	MaxDuration time.Duration `json:"max_duration"`
	FFmpegPath  string        `json:"ffmpeg_path"`
	FFprobePath string        `json:"ffprobe_path"`
	Timeout     time.Duration `json:"timeout"`
}

// DefaultConfig returns default transcoder configuration
func DefaultConfig() *Config {
	return &Config{
		SampleRate:  0,
		BitDepth:    16,
		MaxDuration: 0, // No limit
		FFmpegPath:  "ffmpeg",
		FFprobePath: "ffprobe",
		Timeout:     30 * time.Second,
	}
}

// Metadata holds the stream properties reported by ffprobe
type Metadata struct {
	SampleRate int     `json:"sample_rate"`
	Channels   int     `json:"channels"`
	Codec      string  `json:"codec"`
	Duration   float64 `json:"duration"`
	Bitrate    int     `json:"bitrate"`
}

// Transcoder runs ffprobe and ffmpeg on in-memory audio.
type Transcoder struct {
	config *Config
	logger logging.Logger
}

// NewTranscoder creates a transcoder. A nil config selects DefaultConfig.
func NewTranscoder(config *Config, logger logging.Logger) *Transcoder {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Transcoder{
		config: config,
		logger: logger.WithFields(logging.Fields{"component": "transcode"}),
	}
}

// IsWAV reports whether data is already a PCM WAV file the codec accepts.
func IsWAV(data []byte) bool {
	_, err := wavio.Length(bytes.NewReader(data))
	return err == nil
}

// Available checks that both binaries can be found.
func (t *Transcoder) Available() error {
	for _, bin := range []string{t.config.FFmpegPath, t.config.FFprobePath} {
		if _, err := exec.LookPath(bin); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrUnavailable, bin, err)
		}
	}
	return nil
}

// ToWAV decodes data with ffmpeg and re-encodes it as a mono WAV file.
func (t *Transcoder) ToWAV(ctx context.Context, data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrNoAudio
	}
	if err := t.Available(); err != nil {
		return nil, err
	}
	if t.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.config.Timeout)
		defer cancel()
	}

	metadata, err := t.Probe(ctx, data)
	if err != nil {
		return nil, err
	}
	sampleRate := t.config.SampleRate
	if sampleRate <= 0 {
		sampleRate = metadata.SampleRate
	}

	args := append([]string{"-i", "pipe:0"}, t.buildArgs(sampleRate)...)
	args = append(args, "pipe:1")
	t.logger.Debug("running ffmpeg", logging.Fields{
		"args":        strings.Join(args, " "),
		"input_codec": metadata.Codec,
		"input_rate":  metadata.SampleRate,
	})

	output, err := t.run(ctx, t.config.FFmpegPath, args, data)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg decode failed: %w", err)
	}
	samples := bytesToFloat64(output)
	if len(samples) == 0 {
		return nil, ErrNoAudio
	}

	wav, err := EncodeWAV(samples, sampleRate, t.config.BitDepth)
	if err != nil {
		return nil, err
	}
	t.logger.Debug("transcode completed", logging.Fields{
		"samples":     len(samples),
		"sample_rate": sampleRate,
		"duration":    float64(len(samples)) / float64(sampleRate),
	})
	return wav, nil
}

// Probe reads the first audio stream's properties with ffprobe.
func (t *Transcoder) Probe(ctx context.Context, data []byte) (*Metadata, error) {
	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_streams",
		"-select_streams", "a:0",
		"pipe:0",
	}
	output, err := t.run(ctx, t.config.FFprobePath, args, data)
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}
	return parseProbeOutput(output)
}

func (t *Transcoder) run(ctx context.Context, bin string, args []string, stdin []byte) ([]byte, error) {
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdin = bytes.NewReader(stdin)
	output, err := cmd.Output()
	if err != nil {
		var exitError *exec.ExitError
		if errors.As(err, &exitError) {
			return nil, fmt.Errorf("%w, stderr: %s", err, strings.TrimSpace(string(exitError.Stderr)))
		}
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		return nil, err
	}
	return output, nil
}

// buildArgs asks for mono float64 little-endian samples at sampleRate.
func (t *Transcoder) buildArgs(sampleRate int) []string {
	args := []string{
		"-f", "f64le",
		"-ac", "1",
		"-ar", strconv.Itoa(sampleRate),
	}
	if t.config.MaxDuration > 0 {
		args = append(args, "-t", fmt.Sprintf("%.2f", t.config.MaxDuration.Seconds()))
	}
	return append(args, "-v", "error")
}

// parseProbeOutput parses ffprobe JSON to extract audio metadata
func parseProbeOutput(jsonData []byte) (*Metadata, error) {
	var probe struct {
		Streams []struct {
			CodecType  string `json:"codec_type"`
			CodecName  string `json:"codec_name"`
			SampleRate string `json:"sample_rate"`
			Channels   int    `json:"channels"`
			Duration   string `json:"duration"`
			BitRate    string `json:"bit_rate"`
		} `json:"streams"`
	}
	if err := json.Unmarshal(jsonData, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}
	if len(probe.Streams) == 0 || probe.Streams[0].CodecType != "audio" {
		return nil, ErrNoAudio
	}
	stream := probe.Streams[0]

	sampleRate, err := strconv.Atoi(stream.SampleRate)
	if err != nil || sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %q: %w", stream.SampleRate, ErrNoAudio)
	}
	if stream.Channels <= 0 || stream.Channels > 8 {
		return nil, fmt.Errorf("invalid channel count: %d", stream.Channels)
	}
	duration, _ := strconv.ParseFloat(stream.Duration, 64)
	bitrate, _ := strconv.Atoi(stream.BitRate)

	return &Metadata{
		SampleRate: sampleRate,
		Channels:   stream.Channels,
		Codec:      stream.CodecName,
		Duration:   duration,
		Bitrate:    bitrate,
	}, nil
}

// bytesToFloat64 converts raw float64 bytes to []float64. A trailing partial
// sample is dropped.
func bytesToFloat64(data []byte) []float64 {
	data = data[:len(data)-len(data)%8]
	samples := make([]float64, len(data)/8)
	for i := range samples {
		samples[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[i*8:]))
	}
	return samples
}

// EncodeWAV writes samples as a mono PCM WAV file and returns its bytes.
func EncodeWAV(samples []float64, sampleRate, bitDepth int) ([]byte, error) {
	fs := afero.NewMemMapFs()
	f, err := fs.Create("out.wav")
	if err != nil {
		return nil, err
	}
	if err := wavio.Encode(f, samples, sampleRate, bitDepth); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	return afero.ReadFile(fs, "out.wav")
}
