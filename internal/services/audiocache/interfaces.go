package audiocache

import (
	"context"

	"github.com/killallgit/voxscript/internal/host"
	"github.com/killallgit/voxscript/internal/models"
)

// Service defines the interface for in-memory audio snapshot caching
type Service interface {
	// EnsureCached snapshots all samples of src under id. It returns false
	// without error when the source cannot be read yet (no access, empty).
	EnsureCached(ctx context.Context, id models.SourceID, src host.Source) (bool, error)

	// Get returns the snapshot for id. It never blocks: contention with a
	// writer is reported as a miss.
	Get(id models.SourceID) (*CachedAudio, bool)

	// Remove drops the snapshot for id. Holders of the snapshot keep it.
	Remove(id models.SourceID)

	// Clear drops every snapshot
	Clear()

	Len() int
	Stats() CacheStats
}

// CacheStats represents cache statistics
type CacheStats struct {
	Entries   int   `json:"entries"`
	Frames    int64 `json:"frames"`
	Bytes     int64 `json:"bytes"`
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Contended int64 `json:"contended"`
}
