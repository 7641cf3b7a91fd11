package document

import (
	"cmp"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/killallgit/voxscript/internal/host"
	"github.com/killallgit/voxscript/internal/models"
)

const (
	// BlobType tags every serialized document
	BlobType = "VOXSCRIPT_DOC"
	// BlobVersion is the only blob layout this build reads and writes
	BlobVersion = 1
)

type blob struct {
	Type     string          `json:"type"`
	Version  int             `json:"version"`
	NextID   models.SourceID `json:"next_id"`
	Sources  []blobSource    `json:"sources"`
	Mappings []blobMapping   `json:"mappings"`
}

type blobSource struct {
	ID       models.SourceID `json:"id"`
	Sequence models.Sequence `json:"sequence"`
}

type blobMapping struct {
	PersistentID string          `json:"persistent_id"`
	ID           models.SourceID `json:"id"`
}

// Serialize writes the store as a versioned blob
func (s *Store) Serialize() ([]byte, error) {
	s.mu.Lock()
	b := blob{
		Type:     BlobType,
		Version:  BlobVersion,
		NextID:   s.nextID,
		Sources:  make([]blobSource, 0, len(s.sequences)),
		Mappings: make([]blobMapping, 0, len(s.persistent)),
	}
	for id, seq := range s.sequences {
		b.Sources = append(b.Sources, blobSource{ID: id, Sequence: seq.Clone()})
	}
	for pid, id := range s.persistent {
		b.Mappings = append(b.Mappings, blobMapping{PersistentID: pid, ID: id})
	}
	s.mu.Unlock()

	slices.SortFunc(b.Sources, func(a, c blobSource) int { return cmp.Compare(a.ID, c.ID) })
	slices.SortFunc(b.Mappings, func(a, c blobMapping) int { return strings.Compare(a.PersistentID, c.PersistentID) })

	data, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	return data, nil
}

// Deserialize replaces the store contents with data. It returns false and
// leaves the store untouched when the blob is corrupt or of an unknown
// type or version. Runtime handles are dropped; live sources rebind
// through their persistent identifiers on the next GetOrCreateID.
func (s *Store) Deserialize(data []byte) bool {
	b, err := decodeBlob(data)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Rejected document blob")
		return false
	}

	sequences := make(map[models.SourceID]models.Sequence, len(b.Sources))
	maxID := models.SourceID(0)
	for _, src := range b.Sources {
		sequences[src.ID] = src.Sequence
		maxID = max(maxID, src.ID)
	}
	persistent := make(map[string]models.SourceID, len(b.Mappings))
	for _, m := range b.Mappings {
		persistent[m.PersistentID] = m.ID
		maxID = max(maxID, m.ID)
	}
	nextID := max(b.NextID, maxID+1)

	s.mu.Lock()
	s.sequences = sequences
	s.persistent = persistent
	s.handles = make(map[host.Source]models.SourceID)
	s.owners = make(map[models.SourceID]host.Source)
	s.nextID = nextID
	s.mu.Unlock()

	s.logger.Info().Int("sources", len(sequences)).Int("mappings", len(persistent)).Msg("Loaded document")
	return true
}

func decodeBlob(data []byte) (*blob, error) {
	var b blob
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if b.Type != BlobType {
		return nil, fmt.Errorf("unknown blob type %q", b.Type)
	}
	if b.Version != BlobVersion {
		return nil, fmt.Errorf("unsupported blob version %d", b.Version)
	}

	seen := make(map[models.SourceID]bool, len(b.Sources))
	for _, src := range b.Sources {
		if src.ID == 0 {
			return nil, fmt.Errorf("source with zero id")
		}
		if seen[src.ID] {
			return nil, fmt.Errorf("duplicate source id %d", src.ID)
		}
		seen[src.ID] = true
	}
	for _, m := range b.Mappings {
		if m.ID == 0 || m.PersistentID == "" {
			return nil, fmt.Errorf("invalid mapping %q -> %d", m.PersistentID, m.ID)
		}
	}
	return &b, nil
}
