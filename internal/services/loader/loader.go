// Package loader turns a file path or URL into an in-memory audio source.
// WAV files are decoded directly; anything else goes through a converter.
package loader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/killallgit/voxscript/internal/host"
	"github.com/killallgit/voxscript/pkg/download"
	"github.com/rs/zerolog"
)

var (
	// ErrUnsupportedFormat is returned for non-WAV input without a converter
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	// ErrRemoteDisabled is returned for URLs when no fetcher is configured
	ErrRemoteDisabled = errors.New("remote sources are disabled")
)

// Converter decodes any supported container into a PCM WAV file
type Converter interface {
	ConvertToWAV(ctx context.Context, input, output string) error
}

// Fetcher downloads a remote file into a temp file the caller removes
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*download.Result, error)
}

// Loader opens audio references as sources
type Loader struct {
	converter Converter
	fetcher   Fetcher
	tempDir   string
	logger    zerolog.Logger
}

// Option configures a Loader
type Option func(*Loader)

// WithConverter enables non-WAV input
func WithConverter(c Converter) Option {
	return func(l *Loader) { l.converter = c }
}

// WithFetcher enables http and https references
func WithFetcher(f Fetcher) Option {
	return func(l *Loader) { l.fetcher = f }
}

// WithTempDir sets where intermediate WAV files are written
func WithTempDir(dir string) Option {
	return func(l *Loader) { l.tempDir = dir }
}

// WithLogger sets the loader logger
func WithLogger(log zerolog.Logger) Option {
	return func(l *Loader) { l.logger = log }
}

// New creates a Loader. Without options it only opens local WAV files.
func New(opts ...Option) *Loader {
	l := &Loader{tempDir: os.TempDir(), logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Open decodes ref into a live source. The source's persistent ID is the
// absolute path or the URL, never an intermediate file.
func (l *Loader) Open(ctx context.Context, ref string) (*host.WAVSource, error) {
	if !download.IsURL(ref) {
		abs, err := filepath.Abs(ref)
		if err != nil {
			return nil, err
		}
		return l.openFile(ctx, abs, abs)
	}

	if l.fetcher == nil {
		return nil, fmt.Errorf("%w: %s", ErrRemoteDisabled, ref)
	}
	res, err := l.fetcher.Fetch(ctx, ref)
	if err != nil {
		return nil, err
	}
	defer l.remove(res.FilePath)

	return l.openFile(ctx, res.FilePath, ref)
}

func (l *Loader) openFile(ctx context.Context, path, origin string) (*host.WAVSource, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	src, err := host.OpenWAVAs(path, origin)
	if err == nil {
		return src, nil
	}
	if !errors.Is(err, host.ErrNotWAV) {
		return nil, err
	}
	if l.converter == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, origin)
	}

	tmp, err := os.CreateTemp(l.tempDir, "voxscript_decode_*.wav")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer l.remove(tmpPath)

	if err := l.converter.ConvertToWAV(ctx, path, tmpPath); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	src, err = host.OpenWAVAs(tmpPath, origin)
	if err != nil {
		return nil, err
	}

	l.logger.Debug().Str("origin", origin).Int64("frames", src.Length()).Msg("Decoded non-WAV input")
	return src, nil
}

func (l *Loader) remove(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		l.logger.Warn().Err(err).Str("path", path).Msg("Failed to remove intermediate file")
	}
}
