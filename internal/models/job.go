package models

import (
	"time"

	"gorm.io/gorm"
)

// JobStatus represents the outcome of a transcription job run
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusEmpty      JobStatus = "empty"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
	JobStatusSuperseded JobStatus = "superseded"
)

// JobRecord is the persisted history of one transcription job
type JobRecord struct {
	gorm.Model
	RunID       string     `json:"run_id" gorm:"uniqueIndex;size:36"`
	SourceID    SourceID   `json:"source_id" gorm:"index"`
	AudioFile   string     `json:"audio_file"`
	Status      JobStatus  `json:"status" gorm:"default:'pending';index"`
	Segments    int        `json:"segments"`
	Words       int        `json:"words"`
	Duration    float64    `json:"duration"`
	Error       string     `json:"error,omitempty"`
	ErrorCode   string     `json:"error_code,omitempty"`
	StartedAt   *time.Time `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
}

// IsTerminal returns true if the job will not change status again
func (j *JobRecord) IsTerminal() bool {
	switch j.Status {
	case JobStatusCompleted, JobStatusEmpty, JobStatusFailed, JobStatusCancelled, JobStatusSuperseded:
		return true
	}
	return false
}

// SetErrorDetails sets error classification information
func (j *JobRecord) SetErrorDetails(code, msg string) {
	j.ErrorCode = code
	j.Error = msg
}

// TableName specifies the table name for GORM
func (JobRecord) TableName() string {
	return "transcription_jobs"
}
