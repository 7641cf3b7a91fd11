// Package jobs runs transcription jobs one at a time on a background worker
// and publishes results back to the document.
package jobs

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/killallgit/voxscript/internal/models"
	"github.com/rs/zerolog"
)

// Queue is a single-worker FIFO of transcription jobs where the latest job
// for a source supersedes any pending one.
type Queue struct {
	mu   sync.Mutex
	cond *sync.Cond

	pending       []*Job
	state         State
	current       *Job
	cancelCurrent context.CancelFunc
	stopRequested bool
	started       bool
	done          chan struct{}

	processed atomic.Int64
	failed    atomic.Int64
	lastErr   string

	factory   ProcessorFactory
	processor Processor // worker goroutine only

	document   DocumentUpdater
	onComplete CompletionFunc
	onFailure  FailureFunc
	dispatcher Dispatcher
	alive      *atomic.Bool
	extractor  Extractor
	tempFiles  TempFiles
	recorder   Repository
	logger     zerolog.Logger
}

// NewQueue creates a queue. Call Start to launch the worker.
func NewQueue(factory ProcessorFactory, opts ...Option) *Queue {
	q := &Queue{
		factory:    factory,
		dispatcher: inline,
		done:       make(chan struct{}),
		logger:     zerolog.Nop(),
	}
	q.cond = sync.NewCond(&q.mu)
	for _, opt := range opts {
		opt(q)
	}
	if q.alive == nil {
		q.alive = &atomic.Bool{}
		q.alive.Store(true)
	}
	return q
}

// Start launches the worker goroutine. Calling it more than once is a no-op.
func (q *Queue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started || q.stopRequested {
		return
	}
	q.started = true
	go q.run()
}

// Enqueue appends a job, dropping any pending job for the same source
func (q *Queue) Enqueue(job *Job) error {
	if job.RunID == "" {
		job.RunID = uuid.NewString()
	}
	job.EnqueuedAt = time.Now()

	q.mu.Lock()
	if q.stopRequested {
		q.mu.Unlock()
		q.deleteFile(job.AudioFile)
		return ErrQueueStopped
	}
	superseded := q.removePendingLocked(job.SourceID)
	q.pending = append(q.pending, job)
	q.cond.Signal()
	q.mu.Unlock()

	q.discard(superseded, models.JobStatusSuperseded)
	q.logger.Debug().
		Stringer("source_id", job.SourceID).
		Str("run_id", job.RunID).
		Int("superseded", len(superseded)).
		Msg("Enqueued transcription job")
	return nil
}

// CancelForSource drops pending jobs for id. The in-flight job is left alone.
func (q *Queue) CancelForSource(id models.SourceID) int {
	q.mu.Lock()
	removed := q.removePendingLocked(id)
	q.mu.Unlock()

	q.discard(removed, models.JobStatusCancelled)
	return len(removed)
}

// CancelAll drops every pending job and asks the in-flight job to stop
func (q *Queue) CancelAll() {
	q.mu.Lock()
	drained := q.pending
	q.pending = nil
	if q.cancelCurrent != nil {
		q.cancelCurrent()
	}
	q.mu.Unlock()

	q.discard(drained, models.JobStatusCancelled)
}

// Shutdown stops the worker and waits up to timeout for it to exit.
// A non-positive timeout uses DefaultShutdownTimeout.
func (q *Queue) Shutdown(timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultShutdownTimeout
	}

	q.mu.Lock()
	if q.stopRequested {
		q.mu.Unlock()
		return q.wait(timeout)
	}
	q.stopRequested = true
	q.state = StateDraining
	drained := q.pending
	q.pending = nil
	if q.cancelCurrent != nil {
		q.cancelCurrent()
	}
	started := q.started
	if !started {
		q.state = StateStopped
		close(q.done)
	}
	q.cond.Broadcast()
	q.mu.Unlock()

	q.discard(drained, models.JobStatusCancelled)
	if !started {
		return nil
	}
	return q.wait(timeout)
}

func (q *Queue) wait(timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-q.done:
		return nil
	case <-timer.C:
		q.logger.Warn().Dur("timeout", timeout).Msg("Transcription worker did not exit in time")
		return ErrShutdownTimeout
	}
}

// Stats returns a snapshot of the queue state and counters
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()

	s := Stats{
		State:     q.state,
		StateName: q.state.String(),
		Pending:   len(q.pending),
		Processed: q.processed.Load(),
		Failed:    q.failed.Load(),
		LastError: q.lastErr,
	}
	if q.current != nil {
		s.CurrentSource = q.current.SourceID
	}
	return s
}

// IsPending reports whether a job for id is waiting or running
func (q *Queue) IsPending(id models.SourceID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.current != nil && q.current.SourceID == id {
		return true
	}
	for _, j := range q.pending {
		if j.SourceID == id {
			return true
		}
	}
	return false
}

// UsesFile reports whether a queued or running job owns the audio file at path
func (q *Queue) UsesFile(path string) bool {
	path = filepath.Clean(path)
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.current != nil && q.current.AudioFile != "" && filepath.Clean(q.current.AudioFile) == path {
		return true
	}
	for _, j := range q.pending {
		if j.AudioFile != "" && filepath.Clean(j.AudioFile) == path {
			return true
		}
	}
	return false
}

func (q *Queue) removePendingLocked(id models.SourceID) []*Job {
	var removed []*Job
	kept := q.pending[:0]
	for _, j := range q.pending {
		if j.SourceID == id {
			removed = append(removed, j)
			continue
		}
		kept = append(kept, j)
	}
	clear(q.pending[len(kept):])
	q.pending = kept
	return removed
}

// discard deletes the audio of jobs that will never run
func (q *Queue) discard(jobs []*Job, status models.JobStatus) {
	for _, j := range jobs {
		q.deleteFile(j.AudioFile)
		q.recordTerminal(j, status)
	}
}

func (q *Queue) deleteFile(path string) {
	if path == "" {
		return
	}
	var err error
	if q.tempFiles != nil {
		err = q.tempFiles.Delete(path)
	} else if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
		err = rmErr
	}
	if err != nil {
		q.logger.Warn().Err(err).Str("path", path).Msg("Failed to delete job audio")
	}
}

func (q *Queue) setLastError(err error) {
	q.mu.Lock()
	q.lastErr = err.Error()
	q.mu.Unlock()
}
