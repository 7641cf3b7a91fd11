package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/killallgit/voxscript/internal/models"
	"gorm.io/gorm"
)

// Repository errors
var (
	ErrJobNotFound = errors.New("job not found")
)

// Repository defines the interface for job history persistence
type Repository interface {
	// Create operations
	Create(ctx context.Context, record *models.JobRecord) error

	// Read operations
	GetByRunID(ctx context.Context, runID string) (*models.JobRecord, error)
	ListBySource(ctx context.Context, sourceID models.SourceID, limit int) ([]*models.JobRecord, error)
	ListRecent(ctx context.Context, limit int) ([]*models.JobRecord, error)
	CountByStatus(ctx context.Context) (map[models.JobStatus]int64, error)

	// Update operations
	Update(ctx context.Context, record *models.JobRecord) error

	// Delete operations
	DeleteOlderThan(ctx context.Context, olderThan time.Time) (int64, error)
}

// repository implements Repository interface
type repository struct {
	db *gorm.DB
}

// NewRepository creates a new job history repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{
		db: db,
	}
}

// Create inserts a new job record
func (r *repository) Create(ctx context.Context, record *models.JobRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// GetByRunID retrieves a job record by its run ID
func (r *repository) GetByRunID(ctx context.Context, runID string) (*models.JobRecord, error) {
	var record models.JobRecord
	err := r.db.WithContext(ctx).Where("run_id = ?", runID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("getting job: %w", err)
	}
	return &record, nil
}

// ListBySource returns the newest records for a source first
func (r *repository) ListBySource(ctx context.Context, sourceID models.SourceID, limit int) ([]*models.JobRecord, error) {
	var records []*models.JobRecord
	err := r.db.WithContext(ctx).
		Where("source_id = ?", sourceID).
		Order("id DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("listing jobs for source: %w", err)
	}
	return records, nil
}

// ListRecent returns the newest records first
func (r *repository) ListRecent(ctx context.Context, limit int) ([]*models.JobRecord, error) {
	var records []*models.JobRecord
	err := r.db.WithContext(ctx).
		Order("id DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("listing jobs: %w", err)
	}
	return records, nil
}

// CountByStatus groups job records by status
func (r *repository) CountByStatus(ctx context.Context) (map[models.JobStatus]int64, error) {
	var rows []struct {
		Status models.JobStatus
		Count  int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.JobRecord{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("counting jobs: %w", err)
	}

	counts := make(map[models.JobStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// Update saves all fields of an existing record
func (r *repository) Update(ctx context.Context, record *models.JobRecord) error {
	result := r.db.WithContext(ctx).Save(record)
	if result.Error != nil {
		return fmt.Errorf("updating job: %w", result.Error)
	}
	return nil
}

// DeleteOlderThan removes finished records created before olderThan
func (r *repository) DeleteOlderThan(ctx context.Context, olderThan time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Unscoped().
		Where("created_at < ?", olderThan.UTC()).
		Where("status NOT IN ?", []models.JobStatus{models.JobStatusPending, models.JobStatusProcessing}).
		Delete(&models.JobRecord{})
	if result.Error != nil {
		return 0, fmt.Errorf("deleting old jobs: %w", result.Error)
	}
	return result.RowsAffected, nil
}
