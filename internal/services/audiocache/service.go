package audiocache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/killallgit/voxscript/internal/host"
	"github.com/killallgit/voxscript/internal/models"
	"github.com/rs/zerolog"
)

const readChunk = 65536

// CachedAudio is an immutable planar snapshot of a source
type CachedAudio struct {
	sampleRate float64
	channels   [][]float32
	length     int64
	cachedAt   time.Time
}

func (a *CachedAudio) SampleRate() float64 { return a.sampleRate }
func (a *CachedAudio) NumChannels() int    { return len(a.channels) }
func (a *CachedAudio) Length() int64       { return a.length }
func (a *CachedAudio) CachedAt() time.Time { return a.cachedAt }

// Channel returns the samples of channel i. Callers must not modify them.
func (a *CachedAudio) Channel(i int) []float32 { return a.channels[i] }

// Read copies n frames starting at start into dst, one slice per channel
func (a *CachedAudio) Read(dst [][]float32, start int64, n int) error {
	if start < 0 || n < 0 || start+int64(n) > a.length {
		return fmt.Errorf("%w: [%d, %d) of %d", host.ErrOutOfRange, start, start+int64(n), a.length)
	}
	for ch, data := range a.channels {
		copy(dst[ch][:n], data[start:start+int64(n)])
	}
	return nil
}

// ServiceImpl implements the Service interface
type ServiceImpl struct {
	mu      sync.RWMutex
	entries map[models.SourceID]*CachedAudio

	hits      atomic.Int64
	misses    atomic.Int64
	contended atomic.Int64

	logger zerolog.Logger
}

// Option configures the cache
type Option func(*ServiceImpl)

// WithLogger sets the cache logger
func WithLogger(l zerolog.Logger) Option {
	return func(s *ServiceImpl) { s.logger = l }
}

// NewService creates a new audio cache service
func NewService(opts ...Option) *ServiceImpl {
	s := &ServiceImpl{
		entries: make(map[models.SourceID]*CachedAudio),
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureCached implements Service
func (s *ServiceImpl) EnsureCached(ctx context.Context, id models.SourceID, src host.Source) (bool, error) {
	if src == nil {
		return false, nil
	}

	s.mu.RLock()
	_, ok := s.entries[id]
	s.mu.RUnlock()
	if ok {
		return true, nil
	}

	if !src.SampleAccessEnabled() {
		s.logger.Debug().Stringer("source_id", id).Msg("Sample access unavailable, not caching")
		return false, nil
	}
	length := src.Length()
	if length <= 0 {
		return false, nil
	}

	audio, err := snapshot(ctx, src, length)
	if err != nil {
		return false, fmt.Errorf("snapshot source %s: %w", id, err)
	}

	s.mu.Lock()
	s.entries[id] = audio
	s.mu.Unlock()

	s.logger.Debug().
		Stringer("source_id", id).
		Int64("frames", length).
		Int("channels", audio.NumChannels()).
		Msg("Cached source audio")
	return true, nil
}

func snapshot(ctx context.Context, src host.Source, length int64) (*CachedAudio, error) {
	r, err := src.NewReader()
	if err != nil {
		return nil, err
	}
	defer r.Close()

	numChans := src.NumChannels()
	channels := make([][]float32, numChans)
	for ch := range channels {
		channels[ch] = make([]float32, length)
	}

	views := make([][]float32, numChans)
	for pos := int64(0); pos < length; pos += readChunk {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n := int(min(readChunk, length-pos))
		for ch := range views {
			views[ch] = channels[ch][pos:]
		}
		if err := r.Read(views, pos, n); err != nil {
			return nil, err
		}
	}

	return &CachedAudio{
		sampleRate: src.SampleRate(),
		channels:   channels,
		length:     length,
		cachedAt:   time.Now(),
	}, nil
}

// Get implements Service
func (s *ServiceImpl) Get(id models.SourceID) (*CachedAudio, bool) {
	if !s.mu.TryRLock() {
		s.contended.Add(1)
		s.misses.Add(1)
		return nil, false
	}
	audio, ok := s.entries[id]
	s.mu.RUnlock()

	if ok {
		s.hits.Add(1)
	} else {
		s.misses.Add(1)
	}
	return audio, ok
}

// Remove implements Service
func (s *ServiceImpl) Remove(id models.SourceID) {
	s.mu.Lock()
	delete(s.entries, id)
	s.mu.Unlock()
}

// Clear implements Service
func (s *ServiceImpl) Clear() {
	s.mu.Lock()
	s.entries = make(map[models.SourceID]*CachedAudio)
	s.mu.Unlock()
}

// Len implements Service
func (s *ServiceImpl) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Stats implements Service
func (s *ServiceImpl) Stats() CacheStats {
	s.mu.RLock()
	stats := CacheStats{Entries: len(s.entries)}
	for _, a := range s.entries {
		stats.Frames += a.length
		stats.Bytes += a.length * int64(len(a.channels)) * 4
	}
	s.mu.RUnlock()

	stats.Hits = s.hits.Load()
	stats.Misses = s.misses.Load()
	stats.Contended = s.contended.Load()
	return stats
}
