package models

import (
	"strconv"
	"time"
)

// SourceID is the stable per-session handle of an audio source.
// Zero is never minted and means "no source".
type SourceID uint64

// String implements fmt.Stringer
func (id SourceID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// ParseSourceID parses the decimal form produced by String
func ParseSourceID(s string) (SourceID, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return SourceID(v), nil
}

// DocumentArchive stores a serialized document blob under a name
type DocumentArchive struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;not null" json:"name"`
	Data      []byte    `json:"-"`
	Size      int       `json:"size"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (DocumentArchive) TableName() string {
	return "document_archives"
}
