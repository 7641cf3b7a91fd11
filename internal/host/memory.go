package host

import (
	"fmt"
	"math"
	"sync/atomic"
)

// MemorySource is a Source over planar samples held in memory
type MemorySource struct {
	name         string
	persistentID string
	rate         float64
	channels     [][]float32
	length       int64

	alive  atomic.Bool
	access atomic.Bool

	// invalidateAfter > 0 makes the source die after that many reads
	invalidateAfter atomic.Int64
	reads           atomic.Int64
}

// NewMemorySource creates a live source with sample access enabled.
// All channels must have the same length.
func NewMemorySource(name string, rate float64, channels [][]float32) *MemorySource {
	s := &MemorySource{
		name:         name,
		persistentID: name,
		rate:         rate,
		channels:     channels,
	}
	if len(channels) > 0 {
		s.length = int64(len(channels[0]))
	}
	s.alive.Store(true)
	s.access.Store(true)
	return s
}

// NewSineSource generates a sine tone, handy for exercising the pipeline
func NewSineSource(name string, rate float64, numChannels int, frames int64, freq float64) *MemorySource {
	chans := make([][]float32, numChannels)
	for ch := range chans {
		chans[ch] = make([]float32, frames)
		for i := range chans[ch] {
			chans[ch][i] = float32(0.5 * math.Sin(2*math.Pi*freq*float64(i)/rate))
		}
	}
	return NewMemorySource(name, rate, chans)
}

func (s *MemorySource) Name() string              { return s.name }
func (s *MemorySource) SampleRate() float64       { return s.rate }
func (s *MemorySource) NumChannels() int          { return len(s.channels) }
func (s *MemorySource) Length() int64             { return s.length }
func (s *MemorySource) IsAlive() bool             { return s.alive.Load() }
func (s *MemorySource) SampleAccessEnabled() bool { return s.access.Load() }
func (s *MemorySource) PersistentID() string      { return s.persistentID }

// SetPersistentID overrides the persistent identifier (defaults to the name)
func (s *MemorySource) SetPersistentID(id string) { s.persistentID = id }

// SetSampleAccess toggles whether readers may be created
func (s *MemorySource) SetSampleAccess(enabled bool) { s.access.Store(enabled) }

// Invalidate marks the source dead; in-progress readers fail on their next read
func (s *MemorySource) Invalidate() { s.alive.Store(false) }

// InvalidateAfter makes the source die once n reads have completed
func (s *MemorySource) InvalidateAfter(n int64) { s.invalidateAfter.Store(n) }

// NewReader implements Source
func (s *MemorySource) NewReader() (Reader, error) {
	if !s.access.Load() {
		return nil, ErrAccessDisabled
	}
	if !s.alive.Load() {
		return nil, ErrInvalidated
	}
	return &memoryReader{src: s}, nil
}

type memoryReader struct {
	src *MemorySource
}

func (r *memoryReader) Read(dst [][]float32, start int64, n int) error {
	s := r.src
	if !s.alive.Load() {
		return ErrInvalidated
	}
	if start < 0 || n < 0 || start+int64(n) > s.length {
		return fmt.Errorf("%w: [%d, %d) of %d", ErrOutOfRange, start, start+int64(n), s.length)
	}
	if len(dst) < len(s.channels) {
		return fmt.Errorf("destination has %d channels, need %d", len(dst), len(s.channels))
	}
	for ch, data := range s.channels {
		copy(dst[ch][:n], data[start:start+int64(n)])
	}
	if limit := s.invalidateAfter.Load(); limit > 0 && s.reads.Add(1) >= limit {
		s.alive.Store(false)
	}
	return nil
}

func (r *memoryReader) Close() error { return nil }
