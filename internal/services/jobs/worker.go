package jobs

import (
	"context"
	"time"

	"github.com/killallgit/voxscript/internal/models"
	apperrors "github.com/killallgit/voxscript/pkg/errors"
)

// run is the main worker loop
func (q *Queue) run() {
	defer close(q.done)

	q.logger.Info().Msg("Transcription worker starting")
	defer q.logger.Info().Msg("Transcription worker stopped")

	for {
		q.mu.Lock()
		for len(q.pending) == 0 && !q.stopRequested {
			q.cond.Wait()
		}
		if q.stopRequested {
			q.state = StateStopped
			q.mu.Unlock()
			return
		}

		job := q.pending[0]
		q.pending[0] = nil
		q.pending = q.pending[1:]
		ctx, cancel := context.WithCancel(context.Background())
		q.current = job
		q.cancelCurrent = cancel
		q.state = StateProcessing
		q.mu.Unlock()

		q.processJob(ctx, job)
		cancel()

		q.mu.Lock()
		q.current = nil
		q.cancelCurrent = nil
		if !q.stopRequested {
			q.state = StateIdle
		}
		q.mu.Unlock()
	}
}

// processJob runs one job to completion. The audio file is always removed.
func (q *Queue) processJob(ctx context.Context, job *Job) {
	log := q.logger.With().Stringer("source_id", job.SourceID).Str("run_id", job.RunID).Logger()
	started := time.Now()
	record := q.recordStart(job, started)

	path := job.AudioFile
	defer func() { q.deleteFile(path) }()

	if path == "" {
		if job.Source == nil || q.extractor == nil {
			q.fail(job, record, ErrNoAudio)
			return
		}
		extracted, err := q.extractor.ExtractToTempWAV(ctx, job.SourceID, job.Source)
		if err != nil {
			if ctx.Err() != nil {
				q.cancelled(record)
				return
			}
			q.fail(job, record, apperrors.ExtractionError(uint64(job.SourceID), err))
			return
		}
		path = extracted
		if record != nil {
			record.AudioFile = path
		}
	}

	if ctx.Err() != nil {
		q.cancelled(record)
		return
	}

	if q.processor == nil {
		p, err := q.factory()
		if err != nil {
			q.fail(job, record, apperrors.InferenceError(uint64(job.SourceID), err))
			return
		}
		q.processor = p
	}

	seq, err := q.processor.Process(ctx, path)
	if err != nil && ctx.Err() != nil {
		log.Debug().Err(err).Msg("Job cancelled during processing")
		q.cancelled(record)
		return
	}
	if err != nil {
		q.fail(job, record, apperrors.InferenceError(uint64(job.SourceID), err))
		return
	}
	if ctx.Err() != nil {
		log.Debug().Msg("Job cancelled during inference, discarding result")
		q.cancelled(record)
		return
	}

	q.processed.Add(1)
	log.Info().
		Int("segments", len(seq.Segments)).
		Int("words", seq.WordCount()).
		Dur("elapsed", time.Since(started)).
		Msg("Transcription job finished")

	if seq.IsEmpty() {
		q.finish(record, models.JobStatusEmpty, seq)
		return
	}

	q.publish(job.SourceID, seq)
	q.finish(record, models.JobStatusCompleted, seq)
}

// publish hands the result to the dispatcher. Both steps are skipped once
// the owner is gone.
func (q *Queue) publish(id models.SourceID, seq models.Sequence) {
	alive := q.alive
	document := q.document
	onComplete := q.onComplete
	q.dispatcher.Dispatch(func() {
		if !alive.Load() {
			return
		}
		if document != nil {
			document.UpdateTranscription(id, seq)
		}
		if !alive.Load() {
			return
		}
		if onComplete != nil {
			onComplete(id, seq)
		}
	})
}

func (q *Queue) fail(job *Job, record *models.JobRecord, err error) {
	q.failed.Add(1)
	q.setLastError(err)
	q.logger.Error().Err(err).Stringer("source_id", job.SourceID).Str("run_id", job.RunID).Msg("Transcription job failed")

	if onFailure := q.onFailure; onFailure != nil {
		alive, id := q.alive, job.SourceID
		q.dispatcher.Dispatch(func() {
			if alive.Load() {
				onFailure(id, err)
			}
		})
	}

	if record == nil {
		return
	}
	code := string(apperrors.GetCode(err))
	record.SetErrorDetails(code, err.Error())
	q.finish(record, models.JobStatusFailed, models.Sequence{})
}

func (q *Queue) cancelled(record *models.JobRecord) {
	if record != nil {
		q.finish(record, models.JobStatusCancelled, models.Sequence{})
	}
}

func (q *Queue) recordStart(job *Job, started time.Time) *models.JobRecord {
	if q.recorder == nil {
		return nil
	}
	record := &models.JobRecord{
		RunID:     job.RunID,
		SourceID:  job.SourceID,
		AudioFile: job.AudioFile,
		Status:    models.JobStatusProcessing,
		StartedAt: &started,
	}
	if err := q.recorder.Create(context.Background(), record); err != nil {
		q.logger.Warn().Err(err).Msg("Failed to record job start")
		return nil
	}
	return record
}

func (q *Queue) finish(record *models.JobRecord, status models.JobStatus, seq models.Sequence) {
	if record == nil {
		return
	}
	now := time.Now()
	record.Status = status
	record.CompletedAt = &now
	record.Segments = len(seq.Segments)
	record.Words = seq.WordCount()
	record.Duration = seq.TotalDuration()
	if err := q.recorder.Update(context.Background(), record); err != nil {
		q.logger.Warn().Err(err).Str("run_id", record.RunID).Msg("Failed to record job result")
	}
}

// recordTerminal stores a job that never reached the worker
func (q *Queue) recordTerminal(job *Job, status models.JobStatus) {
	if q.recorder == nil {
		return
	}
	now := time.Now()
	record := &models.JobRecord{
		RunID:       job.RunID,
		SourceID:    job.SourceID,
		AudioFile:   job.AudioFile,
		Status:      status,
		CompletedAt: &now,
	}
	if err := q.recorder.Create(context.Background(), record); err != nil {
		q.logger.Warn().Err(err).Str("run_id", job.RunID).Str("status", string(status)).Msg("Failed to record dropped job")
	}
}
