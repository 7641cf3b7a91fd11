package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/killallgit/voxscript/internal/host"
	"github.com/killallgit/voxscript/internal/models"
	"github.com/rs/zerolog"
)

var (
	// ErrQueueStopped is returned when enqueueing after Shutdown
	ErrQueueStopped = errors.New("job queue stopped")
	// ErrShutdownTimeout is returned when the worker does not exit in time
	ErrShutdownTimeout = errors.New("timed out waiting for worker to exit")
	// ErrNoAudio is returned for jobs with neither a file nor a source
	ErrNoAudio = errors.New("job has no audio file or source")
)

// DefaultShutdownTimeout bounds how long Shutdown waits for the worker
const DefaultShutdownTimeout = 4 * time.Second

// Job is one unit of transcription work. Exactly one of AudioFile or
// Source is expected; with a Source the worker extracts the audio itself.
type Job struct {
	SourceID   models.SourceID
	AudioFile  string
	Source     host.Source
	RunID      string
	EnqueuedAt time.Time
}

// Processor runs inference over a prepared 16 kHz mono WAV file
type Processor interface {
	Process(ctx context.Context, audioPath string) (models.Sequence, error)
}

// ProcessorFactory builds the processor. It is called once, lazily, on the
// worker goroutine when the first job arrives.
type ProcessorFactory func() (Processor, error)

// Extractor prepares a WAV file for jobs that carry a source handle
type Extractor interface {
	ExtractToTempWAV(ctx context.Context, id models.SourceID, src host.Source) (string, error)
}

// TempFiles deletes job audio files
type TempFiles interface {
	Delete(path string) error
}

// DocumentUpdater receives successful transcriptions
type DocumentUpdater interface {
	UpdateTranscription(id models.SourceID, seq models.Sequence)
}

// CompletionFunc is fired after the document has been updated
type CompletionFunc func(id models.SourceID, seq models.Sequence)

// FailureFunc is fired when a job fails
type FailureFunc func(id models.SourceID, err error)

// Dispatcher runs fn on the owner's serial context
type Dispatcher interface {
	Dispatch(fn func())
}

// DispatchFunc adapts a function to Dispatcher
type DispatchFunc func(fn func())

// Dispatch implements Dispatcher
func (f DispatchFunc) Dispatch(fn func()) { f(fn) }

// inline runs callbacks on the worker goroutine
var inline = DispatchFunc(func(fn func()) { fn() })

// State is the lifecycle state of the queue
type State int

const (
	StateIdle State = iota
	StateProcessing
	StateDraining
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateProcessing:
		return "processing"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

// Stats is a point-in-time view of the queue
type Stats struct {
	State         State           `json:"-"`
	StateName     string          `json:"state"`
	Pending       int             `json:"pending"`
	CurrentSource models.SourceID `json:"current_source,omitempty"`
	Processed     int64           `json:"processed"`
	Failed        int64           `json:"failed"`
	LastError     string          `json:"last_error,omitempty"`
}

// Option configures a Queue
type Option func(*Queue)

// WithLogger sets the queue logger
func WithLogger(l zerolog.Logger) Option {
	return func(q *Queue) { q.logger = l }
}

// WithDocument sets where successful transcriptions are published
func WithDocument(doc DocumentUpdater) Option {
	return func(q *Queue) { q.document = doc }
}

// WithOnComplete sets the completion callback
func WithOnComplete(fn CompletionFunc) Option {
	return func(q *Queue) { q.onComplete = fn }
}

// WithOnFailure sets the failure callback
func WithOnFailure(fn FailureFunc) Option {
	return func(q *Queue) { q.onFailure = fn }
}

// WithDispatcher sets where publication runs. Defaults to the worker goroutine.
func WithDispatcher(d Dispatcher) Option {
	return func(q *Queue) { q.dispatcher = d }
}

// WithAliveToken shares the owner's liveness flag. Publication is skipped
// once it reads false.
func WithAliveToken(alive *atomic.Bool) Option {
	return func(q *Queue) { q.alive = alive }
}

// WithExtractor enables jobs that carry a source handle
func WithExtractor(e Extractor) Option {
	return func(q *Queue) { q.extractor = e }
}

// WithTempFiles sets how job audio files are removed
func WithTempFiles(tf TempFiles) Option {
	return func(q *Queue) { q.tempFiles = tf }
}

// WithRecorder persists job history
func WithRecorder(r Repository) Option {
	return func(q *Queue) { q.recorder = r }
}
