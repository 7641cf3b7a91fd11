// Package document holds the transcription results of every known audio
// source and maps runtime source handles to stable IDs.
package document

import (
	"slices"
	"sync"

	"github.com/killallgit/voxscript/internal/host"
	"github.com/killallgit/voxscript/internal/models"
	"github.com/rs/zerolog"
)

// Store is the single owner of the handle/ID maps and the sequences.
// All methods are safe for concurrent use.
type Store struct {
	mu         sync.Mutex
	handles    map[host.Source]models.SourceID
	owners     map[models.SourceID]host.Source // live handle bound to each ID
	persistent map[string]models.SourceID
	sequences  map[models.SourceID]models.Sequence
	nextID     models.SourceID

	logger zerolog.Logger
}

// Option configures a Store
type Option func(*Store)

// WithLogger sets the store logger
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// NewStore creates an empty store. The first minted ID is 1.
func NewStore(opts ...Option) *Store {
	s := &Store{
		handles:    make(map[host.Source]models.SourceID),
		owners:     make(map[models.SourceID]host.Source),
		persistent: make(map[string]models.SourceID),
		sequences:  make(map[models.SourceID]models.Sequence),
		nextID:     1,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetOrCreateID returns the ID bound to src, minting one if needed. A
// handle seen for the first time is rebound to a restored ID when its
// persistent identifier matches one no other live handle holds. Nil
// yields 0.
func (s *Store) GetOrCreateID(src host.Source) models.SourceID {
	if src == nil {
		return 0
	}
	pid := src.PersistentID()

	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.handles[src]; ok {
		return id
	}
	if id, ok := s.unclaimed(pid); ok {
		s.bind(src, id)
		s.logger.Debug().Stringer("source_id", id).Str("persistent_id", pid).Msg("Rebound source to restored ID")
		return id
	}

	id := s.nextID
	s.nextID++
	s.bind(src, id)
	if _, taken := s.persistent[pid]; pid != "" && !taken {
		s.persistent[pid] = id
	}
	return id
}

// FindID looks up the ID for src without minting one
func (s *Store) FindID(src host.Source) (models.SourceID, bool) {
	if src == nil {
		return 0, false
	}
	pid := src.PersistentID()

	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.handles[src]; ok {
		return id, true
	}
	return s.unclaimed(pid)
}

// unclaimed returns the ID mapped to pid when no live handle owns it.
// Callers hold s.mu.
func (s *Store) unclaimed(pid string) (models.SourceID, bool) {
	if pid == "" {
		return 0, false
	}
	id, ok := s.persistent[pid]
	if !ok {
		return 0, false
	}
	if _, owned := s.owners[id]; owned {
		return 0, false
	}
	return id, true
}

func (s *Store) bind(src host.Source, id models.SourceID) {
	s.handles[src] = id
	s.owners[id] = src
}

// RemoveByID erases the sequence and every mapping for id. Unknown IDs
// are ignored.
func (s *Store) RemoveByID(id models.SourceID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sequences, id)
	if src, ok := s.owners[id]; ok {
		delete(s.handles, src)
		delete(s.owners, id)
	}
	for pid, bound := range s.persistent {
		if bound == id {
			delete(s.persistent, pid)
		}
	}

	// another live handle with the same persistent identifier takes over
	// the mapping
	for src, bound := range s.handles {
		pid := src.PersistentID()
		if _, taken := s.persistent[pid]; pid != "" && !taken {
			s.persistent[pid] = bound
		}
	}
}

// UpdateTranscription replaces the sequence stored for id
func (s *Store) UpdateTranscription(id models.SourceID, seq models.Sequence) {
	if id == 0 {
		return
	}
	stored := seq.Clone()

	s.mu.Lock()
	s.sequences[id] = stored
	s.mu.Unlock()
}

// Transcription returns a copy of the sequence for id
func (s *Store) Transcription(id models.SourceID) (models.Sequence, bool) {
	s.mu.Lock()
	seq, ok := s.sequences[id]
	s.mu.Unlock()
	if !ok {
		return models.Sequence{}, false
	}
	return seq.Clone(), true
}

// Len returns the number of stored sequences
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sequences)
}

// MakeSnapshot deep-copies every sequence for lock-free reading
func (s *Store) MakeSnapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{sequences: make(map[models.SourceID]models.Sequence, len(s.sequences))}
	for id, seq := range s.sequences {
		snap.sequences[id] = seq.Clone()
	}
	return snap
}

// Snapshot is an immutable copy of the store's sequences
type Snapshot struct {
	sequences map[models.SourceID]models.Sequence
}

// Sequence returns the sequence for id
func (s Snapshot) Sequence(id models.SourceID) (models.Sequence, bool) {
	seq, ok := s.sequences[id]
	return seq, ok
}

// IDs returns every ID in ascending order
func (s Snapshot) IDs() []models.SourceID {
	ids := make([]models.SourceID, 0, len(s.sequences))
	for id := range s.sequences {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Len returns the number of sequences
func (s Snapshot) Len() int { return len(s.sequences) }
