package transcription

import (
	"context"
	"errors"
)

var (
	// ErrAudioFileMissing is returned when the job's WAV file is gone
	ErrAudioFileMissing = errors.New("audio file missing")
	// ErrEngineUnavailable is returned when the inference engine cannot be built
	ErrEngineUnavailable = errors.New("inference engine unavailable")
)

// Segment is one engine result span, times in seconds
type Segment struct {
	Start float64
	End   float64
	Text  string
}

// Engine runs speech recognition over 16 kHz mono samples.
//
// Inference is not preemptible: implementations may ignore cancellation
// once a call has started.
type Engine interface {
	Transcribe(ctx context.Context, samples []float32) ([]Segment, error)
}

// EngineFunc adapts a function to Engine
type EngineFunc func(ctx context.Context, samples []float32) ([]Segment, error)

// Transcribe implements Engine
func (f EngineFunc) Transcribe(ctx context.Context, samples []float32) ([]Segment, error) {
	return f(ctx, samples)
}
