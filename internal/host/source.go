// Package host defines the contract the pipeline expects from whatever
// integration layer owns the raw audio, plus two concrete sources: an
// in-memory one and one backed by a WAV file on disk.
package host

import "errors"

var (
	// ErrInvalidated is returned by a Reader once its source is gone
	ErrInvalidated = errors.New("audio source invalidated")
	// ErrAccessDisabled is returned when sample access has not been enabled
	ErrAccessDisabled = errors.New("sample access not enabled")
	// ErrOutOfRange is returned for reads past the end of the source
	ErrOutOfRange = errors.New("read out of range")
)

// Source is one logical unit of host audio.
//
// Implementations are used as map keys for identity, so they must be
// comparable; pointer types are.
type Source interface {
	// SampleRate in Hz
	SampleRate() float64
	NumChannels() int
	// Length in sample frames
	Length() int64
	// IsAlive reports whether the host still backs this source. It may flip
	// to false at any time from another goroutine.
	IsAlive() bool
	SampleAccessEnabled() bool
	// PersistentID is a stable host-supplied identifier that survives
	// save/load, or "" if the host has none.
	PersistentID() string
	// NewReader creates a reader owned by the calling goroutine. Readers
	// must not be shared.
	NewReader() (Reader, error)
}

// Reader reads planar float samples from a Source
type Reader interface {
	// Read fills dst[ch][:n] for every channel with n frames starting at start
	Read(dst [][]float32, start int64, n int) error
	Close() error
}

// Name returns a human-readable label for a source when it has one
func Name(src Source) string {
	if n, ok := src.(interface{ Name() string }); ok {
		return n.Name()
	}
	if id := src.PersistentID(); id != "" {
		return id
	}
	return "unnamed"
}
