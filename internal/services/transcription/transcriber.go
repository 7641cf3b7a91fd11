package transcription

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/killallgit/voxscript/internal/host"
	"github.com/killallgit/voxscript/internal/models"
	"github.com/killallgit/voxscript/internal/resample"
	"github.com/rs/zerolog"
)

// DefaultMinTextLength is the shortest combined text treated as speech
const DefaultMinTextLength = 2

const convertChunk = 8192

// Transcriber turns a WAV file into a word-timed sequence using an Engine
type Transcriber struct {
	engine        Engine
	minTextLength int
	logger        zerolog.Logger
}

// Option configures a Transcriber
type Option func(*Transcriber)

// WithMinTextLength sets the silence threshold
func WithMinTextLength(n int) Option {
	return func(t *Transcriber) { t.minTextLength = n }
}

// WithLogger sets the transcriber logger
func WithLogger(l zerolog.Logger) Option {
	return func(t *Transcriber) { t.logger = l }
}

// NewTranscriber creates a transcriber around engine
func NewTranscriber(engine Engine, opts ...Option) *Transcriber {
	t := &Transcriber{
		engine:        engine,
		minTextLength: DefaultMinTextLength,
		logger:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Process transcribes the WAV at path. An empty sequence with a nil error
// means the audio held no usable speech.
func (t *Transcriber) Process(ctx context.Context, path string) (models.Sequence, error) {
	if _, err := os.Stat(path); err != nil {
		return models.Sequence{}, fmt.Errorf("%w: %s", ErrAudioFileMissing, path)
	}

	pcm, err := host.DecodeWAVFile(path)
	if err != nil {
		return models.Sequence{}, fmt.Errorf("read audio: %w", err)
	}

	samples, err := toEngineFormat(ctx, pcm)
	if err != nil {
		return models.Sequence{}, err
	}
	if len(samples) == 0 {
		return models.Sequence{}, nil
	}

	// inference itself is not preemptible
	segments, err := t.engine.Transcribe(context.WithoutCancel(ctx), samples)
	if err != nil {
		return models.Sequence{}, fmt.Errorf("inference: %w", err)
	}
	if len(segments) == 0 {
		t.logger.Debug().Str("path", path).Msg("Engine returned no segments")
		return models.Sequence{}, nil
	}

	texts := make([]string, len(segments))
	for i, seg := range segments {
		texts[i] = seg.Text
	}
	if combined := strings.TrimSpace(strings.Join(texts, "")); len(combined) < t.minTextLength {
		t.logger.Debug().Str("path", path).Str("text", combined).Msg("Treating short output as silence")
		return models.Sequence{}, nil
	}

	seq := models.Sequence{Segments: make([]models.Segment, 0, len(segments))}
	for _, seg := range segments {
		if err := ctx.Err(); err != nil {
			return models.Sequence{}, err
		}
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		seq.Segments = append(seq.Segments, models.Segment{
			Start: seg.Start,
			End:   seg.End,
			Text:  text,
			Words: []models.Word{{Start: seg.Start, End: seg.End, Text: text, Confidence: 1.0}},
		})
	}

	return seq.Normalize(), nil
}

// toEngineFormat downmixes and resamples pcm to 16 kHz mono if needed
func toEngineFormat(ctx context.Context, pcm *host.PCM) ([]float32, error) {
	frames := pcm.Frames()
	if len(pcm.Channels) == 1 && pcm.SampleRate == resample.TargetRate {
		return pcm.Channels[0], nil
	}

	rs, err := resample.New(float64(pcm.SampleRate), resample.TargetRate)
	if err != nil {
		return nil, err
	}

	mono := make([]float32, convertChunk)
	buf := make([]float32, rs.OutputCapacity(convertChunk))
	out := make([]float32, 0, rs.OutputCapacity(frames))
	views := make([][]float32, len(pcm.Channels))

	for pos := 0; pos < frames; pos += convertChunk {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n := min(convertChunk, frames-pos)
		for ch := range views {
			views[ch] = pcm.Channels[ch][pos:]
		}
		resample.Downmix(mono, views, n)

		consumed := 0
		for consumed < n {
			c, p := rs.Process(mono[consumed:n], buf)
			consumed += c
			out = append(out, buf[:p]...)
		}
	}
	return out, nil
}
