package cleanup

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// TempFiles is the storage whose orphaned files get swept
type TempFiles interface {
	List() ([]string, error)
	Delete(path string) error
}

// HistoryPruner removes old job history
type HistoryPruner interface {
	DeleteOlderThan(ctx context.Context, olderThan time.Time) (int64, error)
}

// Service handles cleanup of orphaned temp WAV files and old job history
type Service struct {
	files           TempFiles
	maxAge          time.Duration
	cleanupInterval time.Duration

	history   HistoryPruner
	retention time.Duration
	inUse     func(path string) bool

	logger zerolog.Logger
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures the cleanup service
type Option func(*Service)

// WithLogger sets the service logger
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithHistory also prunes job history older than retention on every sweep
func WithHistory(p HistoryPruner, retention time.Duration) Option {
	return func(s *Service) {
		s.history = p
		s.retention = retention
	}
}

// WithInUse skips files the predicate reports as still needed, whatever
// their age
func WithInUse(fn func(path string) bool) Option {
	return func(s *Service) { s.inUse = fn }
}

// NewService creates a new cleanup service
func NewService(files TempFiles, maxAge, cleanupInterval time.Duration, opts ...Option) *Service {
	s := &Service{
		files:           files,
		maxAge:          maxAge,
		cleanupInterval: cleanupInterval,
		logger:          zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start runs one sweep immediately and then one per interval until Stop
func (s *Service) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.Sweep(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.cleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Sweep(ctx)
			case <-ctx.Done():
				s.logger.Info().Msg("Cleanup service stopped")
				return
			}
		}
	}()

	s.logger.Info().
		Dur("interval", s.cleanupInterval).
		Dur("max_age", s.maxAge).
		Msg("Cleanup service started")
}

// Stop stops the cleanup service and waits for the sweeper to exit
func (s *Service) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

// Sweep removes temp files older than maxAge and returns how many went
func (s *Service) Sweep(ctx context.Context) int {
	paths, err := s.files.List()
	if err != nil {
		s.logger.Error().Err(err).Msg("Cleanup listing failed")
		return 0
	}

	removed := 0
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		if time.Since(info.ModTime()) <= s.maxAge {
			continue
		}
		if s.inUse != nil && s.inUse(path) {
			s.logger.Debug().Str("path", path).Msg("Keeping temp file owned by a queued job")
			continue
		}
		if err := s.files.Delete(path); err != nil {
			s.logger.Warn().Err(err).Str("path", path).Msg("Failed to remove temp file")
			continue
		}
		s.logger.Debug().Str("path", path).Msg("Removed orphaned temp file")
		removed++
	}

	if s.history != nil && s.retention > 0 {
		n, err := s.history.DeleteOlderThan(ctx, time.Now().Add(-s.retention))
		if err != nil {
			s.logger.Warn().Err(err).Msg("Failed to prune job history")
		} else if n > 0 {
			s.logger.Debug().Int64("records", n).Msg("Pruned job history")
		}
	}
	return removed
}
