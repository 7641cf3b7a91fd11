package archive

import (
	"context"
	"errors"
	"fmt"

	"github.com/killallgit/voxscript/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SQLiteArchive keeps blobs in the document_archives table
type SQLiteArchive struct {
	db *gorm.DB
}

// NewSQLite creates an archive on db. The table must already be migrated.
func NewSQLite(db *gorm.DB) *SQLiteArchive {
	return &SQLiteArchive{db: db}
}

// Save upserts the blob for key
func (a *SQLiteArchive) Save(ctx context.Context, key string, data []byte) error {
	record := &models.DocumentArchive{Name: key, Data: data, Size: len(data)}
	err := a.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"data", "size", "updated_at"}),
		}).
		Create(record).Error
	if err != nil {
		return fmt.Errorf("saving document %q: %w", key, err)
	}
	return nil
}

// Load returns the blob stored for key
func (a *SQLiteArchive) Load(ctx context.Context, key string) ([]byte, error) {
	var record models.DocumentArchive
	err := a.db.WithContext(ctx).Where("name = ?", key).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBlobNotFound
		}
		return nil, fmt.Errorf("loading document %q: %w", key, err)
	}
	return record.Data, nil
}

// Delete removes the blob for key
func (a *SQLiteArchive) Delete(ctx context.Context, key string) error {
	result := a.db.WithContext(ctx).Where("name = ?", key).Delete(&models.DocumentArchive{})
	if result.Error != nil {
		return fmt.Errorf("deleting document %q: %w", key, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrBlobNotFound
	}
	return nil
}

// Keys lists stored keys in name order
func (a *SQLiteArchive) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	err := a.db.WithContext(ctx).Model(&models.DocumentArchive{}).Order("name").Pluck("name", &keys).Error
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	return keys, nil
}

// Close is a no-op; the database is owned by the caller
func (a *SQLiteArchive) Close() error { return nil }
