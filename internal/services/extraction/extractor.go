// Package extraction turns host audio into 16 kHz mono 16-bit WAV files
// ready for the inference engine.
package extraction

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/killallgit/voxscript/internal/host"
	"github.com/killallgit/voxscript/internal/models"
	"github.com/killallgit/voxscript/internal/resample"
	"github.com/killallgit/voxscript/internal/services/audiocache"
	"github.com/rs/zerolog"
)

// DefaultChunkSize is the number of frames read per iteration
const DefaultChunkSize = 8192

var (
	ErrNilSource          = errors.New("no audio source")
	ErrAccessUnavailable  = errors.New("sample access unavailable")
	ErrNoSamples          = errors.New("source has no samples")
	ErrInvalidSampleRate  = errors.New("invalid sample rate")
	ErrSourceInvalidated  = errors.New("source invalidated during extraction")
	ErrInsufficientOutput = errors.New("resampler made no progress")
)

// SnapshotGetter is the read side of the audio cache
type SnapshotGetter interface {
	Get(id models.SourceID) (*audiocache.CachedAudio, bool)
}

// frameReader is satisfied by both host readers and cached snapshots
type frameReader interface {
	Read(dst [][]float32, start int64, n int) error
}

// Extractor converts sources into temporary WAV files
type Extractor struct {
	storage   *TempStorage
	cache     SnapshotGetter
	chunkSize int
	logger    zerolog.Logger
}

// Option configures an Extractor
type Option func(*Extractor)

// WithCache makes the extractor prefer cached snapshots over host reads
func WithCache(cache SnapshotGetter) Option {
	return func(e *Extractor) { e.cache = cache }
}

// WithChunkSize overrides DefaultChunkSize
func WithChunkSize(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.chunkSize = n
		}
	}
}

// WithLogger sets the extractor logger
func WithLogger(l zerolog.Logger) Option {
	return func(e *Extractor) { e.logger = l }
}

// NewExtractor creates an extractor writing into storage
func NewExtractor(storage *TempStorage, opts ...Option) *Extractor {
	e := &Extractor{
		storage:   storage,
		chunkSize: DefaultChunkSize,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Storage returns the temp storage files are written to
func (e *Extractor) Storage() *TempStorage { return e.storage }

// ExtractToTempWAV writes the whole of src as a 16 kHz mono WAV and returns
// its path. The caller owns the file. On any failure the partial file is
// removed.
func (e *Extractor) ExtractToTempWAV(ctx context.Context, id models.SourceID, src host.Source) (string, error) {
	if src == nil {
		return "", ErrNilSource
	}

	var (
		reader     frameReader
		rate       float64
		numChans   int
		length     int64
		fromCache  bool
		hostReader host.Reader
	)

	if e.cache != nil {
		if snap, ok := e.cache.Get(id); ok {
			reader, rate, numChans, length = snap, snap.SampleRate(), snap.NumChannels(), snap.Length()
			fromCache = true
		}
	}
	if !fromCache {
		if !src.SampleAccessEnabled() {
			return "", ErrAccessUnavailable
		}
		rate, numChans, length = src.SampleRate(), src.NumChannels(), src.Length()
	}

	if length <= 0 || numChans <= 0 {
		return "", ErrNoSamples
	}
	if rate <= 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return "", fmt.Errorf("%w: %v", ErrInvalidSampleRate, rate)
	}

	rs, err := resample.New(rate, resample.TargetRate)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSampleRate, err)
	}

	if !fromCache {
		hostReader, err = src.NewReader()
		if err != nil {
			return "", fmt.Errorf("open source reader: %w", err)
		}
		defer hostReader.Close()
		reader = hostReader
	}

	file, err := e.storage.Create()
	if err != nil {
		return "", err
	}
	path := file.Name()

	if err := e.write(ctx, file, src, reader, rs, numChans, length); err != nil {
		file.Close()
		if rmErr := e.storage.Delete(path); rmErr != nil {
			e.logger.Warn().Err(rmErr).Str("path", path).Msg("Failed to remove partial WAV")
		}
		return "", err
	}
	if err := file.Close(); err != nil {
		_ = e.storage.Delete(path)
		return "", fmt.Errorf("close wav: %w", err)
	}

	e.logger.Debug().
		Stringer("source_id", id).
		Str("path", path).
		Bool("from_cache", fromCache).
		Int64("frames", length).
		Float64("rate", rate).
		Msg("Extracted source to WAV")
	return path, nil
}

func (e *Extractor) write(ctx context.Context, file *os.File, src host.Source, reader frameReader, rs *resample.Resampler, numChans int, length int64) error {
	chunk := e.chunkSize
	planar := make([][]float32, numChans)
	for ch := range planar {
		planar[ch] = make([]float32, chunk)
	}
	mono := make([]float32, chunk)
	out := make([]float32, rs.OutputCapacity(chunk))
	pcm := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: resample.TargetRate},
		Data:           make([]int, 0, len(out)),
		SourceBitDepth: 16,
	}

	enc := wav.NewEncoder(file, resample.TargetRate, 16, 1, 1)
	written := 0

	for pos := int64(0); pos < length; pos += int64(chunk) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !src.IsAlive() {
			return ErrSourceInvalidated
		}

		n := int(min(int64(chunk), length-pos))
		if err := reader.Read(planar, pos, n); err != nil {
			if errors.Is(err, host.ErrInvalidated) {
				return ErrSourceInvalidated
			}
			return fmt.Errorf("read samples at %d: %w", pos, err)
		}
		resample.Downmix(mono, planar, n)

		consumed := 0
		for consumed < n {
			c, p := rs.Process(mono[consumed:n], out)
			if c == 0 && p == 0 {
				return ErrInsufficientOutput
			}
			consumed += c
			pcm.Data = pcm.Data[:0]
			for _, v := range out[:p] {
				pcm.Data = append(pcm.Data, host.FloatToPCM16(v))
			}
			if len(pcm.Data) > 0 {
				if err := enc.Write(pcm); err != nil {
					return fmt.Errorf("write wav: %w", err)
				}
				written += len(pcm.Data)
			}
		}
	}

	if written == 0 {
		return ErrNoSamples
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalize wav: %w", err)
	}
	return nil
}
