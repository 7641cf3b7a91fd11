package types

import (
	"github.com/killallgit/voxscript/internal/coordinator"
	"github.com/killallgit/voxscript/internal/models"
	"github.com/killallgit/voxscript/internal/services/audiocache"
	"github.com/killallgit/voxscript/internal/services/jobs"
)

// Status constants for API responses
const (
	StatusOK     = "ok"
	StatusError  = "error"
	StatusQueued = "queued"
)

// BaseResponse contains fields common to all API responses
type BaseResponse struct {
	Status  string `json:"status"`  // One of the Status constants above
	Message string `json:"message"` // Human-readable message
}

// ErrorResponse is returned for every failed request
type ErrorResponse struct {
	Status  string      `json:"status"`
	Code    string      `json:"code,omitempty"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// StatusResponse is the polling surface a UI refreshes from
type StatusResponse struct {
	BaseResponse
	Ready bool                  `json:"ready"`
	Dirty bool                  `json:"dirty"`
	Queue jobs.Stats            `json:"queue"`
	Cache audiocache.CacheStats `json:"cache"`
}

// Transcript is one source's transcription
type Transcript struct {
	SourceID models.SourceID `json:"source_id"`
	Text     string          `json:"text"`
	Words    int             `json:"words"`
	Duration float64         `json:"duration"`
	Sequence models.Sequence `json:"sequence"`
}

// NewTranscript builds a Transcript from a stored sequence
func NewTranscript(id models.SourceID, seq models.Sequence) Transcript {
	return Transcript{
		SourceID: id,
		Text:     seq.FullText(),
		Words:    seq.WordCount(),
		Duration: seq.TotalDuration(),
		Sequence: seq,
	}
}

// SnapshotResponse lists every transcription in the document
type SnapshotResponse struct {
	BaseResponse
	Transcripts []Transcript `json:"transcripts"`
	Count       int          `json:"count"`
}

// SourcesResponse lists registered sources
type SourcesResponse struct {
	BaseResponse
	Sources []coordinator.SourceInfo `json:"sources"`
	Count   int                      `json:"count"`
}

// SourceResponse is one source with its transcription, if any
type SourceResponse struct {
	BaseResponse
	Source     coordinator.SourceInfo `json:"source"`
	Transcript *Transcript            `json:"transcript,omitempty"`
}

// AddSourceRequest registers an audio file or URL as a source
type AddSourceRequest struct {
	Path       string `json:"path" binding:"required"`
	Transcribe bool   `json:"transcribe"`
}

// EnqueueResponse reports the outcome of a transcription request
type EnqueueResponse struct {
	BaseResponse
	SourceID models.SourceID `json:"source_id"`
	Enqueued bool            `json:"enqueued"`
}

// JobsResponse lists job history records
type JobsResponse struct {
	BaseResponse
	Jobs  []*models.JobRecord `json:"jobs"`
	Count int                 `json:"count"`
}

// JobCountsResponse groups job history by status
type JobCountsResponse struct {
	BaseResponse
	Counts map[models.JobStatus]int64 `json:"counts"`
}
