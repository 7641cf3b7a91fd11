package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/killallgit/voxscript/internal/coordinator"
	"github.com/killallgit/voxscript/internal/database"
	"github.com/killallgit/voxscript/internal/services/archive"
	"github.com/killallgit/voxscript/internal/services/audiocache"
	"github.com/killallgit/voxscript/internal/services/cleanup"
	"github.com/killallgit/voxscript/internal/services/document"
	"github.com/killallgit/voxscript/internal/services/extraction"
	"github.com/killallgit/voxscript/internal/services/jobs"
	"github.com/killallgit/voxscript/internal/services/loader"
	"github.com/killallgit/voxscript/internal/services/transcription"
	"github.com/killallgit/voxscript/pkg/config"
	"github.com/killallgit/voxscript/pkg/download"
	apperrors "github.com/killallgit/voxscript/pkg/errors"
	"github.com/killallgit/voxscript/pkg/ffmpeg"
	"github.com/killallgit/voxscript/pkg/logger"
	"github.com/rs/zerolog"
)

// pipeline owns every long-lived component a command needs
type pipeline struct {
	db          *database.DB
	archive     archive.Archive
	storage     *extraction.TempStorage
	history     jobs.Repository
	coordinator *coordinator.Coordinator
	cleanup     *cleanup.Service
	loader      *loader.Loader
	logger      zerolog.Logger
}

// buildPipeline wires storage, extraction, inference and the coordinator
// from configuration. The caller owns the result and must Close it.
func buildPipeline(cfg *config.Config, log zerolog.Logger) (_ *pipeline, err error) {
	p := &pipeline{logger: log}
	defer func() {
		if err != nil {
			p.Close()
		}
	}()

	if cfg.Database.Path != "" {
		p.db, err = database.InitializeWithMigrations(cfg.Database.Path, cfg.Database.Verbose)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		if cfg.Queue.RecordHistory {
			p.history = jobs.NewRepository(p.db.DB)
		}
	}

	switch strings.ToLower(cfg.Storage.Archive) {
	case "badger":
		store, err := archive.NewBadger(cfg.Storage.BadgerPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open badger archive: %w", err)
		}
		p.archive = store
	default:
		if p.db == nil {
			return nil, apperrors.ConfigError("database.path", "required for the sqlite archive")
		}
		p.archive = archive.NewSQLite(p.db.DB)
	}

	p.storage, err = extraction.NewTempStorage(cfg.Storage.TempDir, cfg.Extraction.TempPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare temp storage: %w", err)
	}

	cache := audiocache.NewService(audiocache.WithLogger(logger.Component(log, "cache")))
	extractor := extraction.NewExtractor(p.storage,
		extraction.WithCache(cache),
		extraction.WithChunkSize(cfg.Extraction.ChunkSize),
		extraction.WithLogger(logger.Component(log, "extraction")),
	)

	opts := []coordinator.Option{
		coordinator.WithLogger(logger.Component(log, "coordinator")),
		coordinator.WithArchive(p.archive, cfg.Storage.DocumentKey),
		coordinator.WithAutoSave(cfg.Coordinator.AutoSave),
		coordinator.WithDeferredExtraction(cfg.Coordinator.DeferExtraction),
		coordinator.WithShutdownTimeout(cfg.Queue.ShutdownTimeout),
	}
	if p.history != nil {
		opts = append(opts, coordinator.WithRecorder(p.history))
	}

	p.coordinator, err = coordinator.New(coordinator.Deps{
		Store:      document.NewStore(document.WithLogger(logger.Component(log, "document"))),
		Cache:      cache,
		Extractor:  extractor,
		TempFiles:  p.storage,
		Processors: whisperProcessors(cfg, log),
	}, opts...)
	if err != nil {
		return nil, err
	}

	p.loader = newLoader(cfg, log)

	cleanupOpts := []cleanup.Option{
		cleanup.WithLogger(logger.Component(log, "cleanup")),
		cleanup.WithInUse(p.coordinator.FileInUse),
	}
	if p.history != nil {
		cleanupOpts = append(cleanupOpts, cleanup.WithHistory(p.history, cfg.Queue.HistoryRetention))
	}
	p.cleanup = cleanup.NewService(p.storage, cfg.Storage.MaxTempAge, cfg.Storage.CleanupInterval, cleanupOpts...)

	return p, nil
}

// whisperProcessors defers model loading to the first job. A missing
// binary or model fails that job and is retried on the next one.
func whisperProcessors(cfg *config.Config, log zerolog.Logger) jobs.ProcessorFactory {
	return func() (jobs.Processor, error) {
		engine, err := transcription.NewWhisperCLI(transcription.WhisperConfig{
			CLIPath:   cfg.Whisper.CLIPath,
			ModelPath: cfg.Whisper.ModelPath,
			Language:  cfg.Whisper.Language,
			Threads:   cfg.Whisper.Threads,
			TempDir:   cfg.Storage.TempDir,
		}, logger.Component(log, "whisper"))
		if err != nil {
			return nil, err
		}
		return transcription.NewTranscriber(engine,
			transcription.WithMinTextLength(cfg.Whisper.MinTextLength),
			transcription.WithLogger(logger.Component(log, "transcriber")),
		), nil
	}
}

// newLoader opens WAV natively, other formats through ffmpeg and, when
// allowed, http and https references through the downloader
func newLoader(cfg *config.Config, log zerolog.Logger) *loader.Loader {
	decoder := ffmpeg.New(cfg.Input.FFmpegPath, cfg.Input.FFprobePath, cfg.Input.DecodeTimeout).
		WithMaxDuration(cfg.Input.MaxDuration)
	if err := decoder.ValidateBinaries(); err != nil {
		log.Warn().Err(err).Msg("Only WAV input will be accepted")
	}

	opts := []loader.Option{
		loader.WithConverter(decoder),
		loader.WithTempDir(cfg.Storage.TempDir),
		loader.WithLogger(logger.Component(log, "loader")),
	}
	if cfg.Input.AllowRemote {
		dl := download.DefaultOptions()
		dl.TempDir = cfg.Storage.TempDir
		dl.Timeout = cfg.Input.DownloadTimeout
		dl.MaxSize = cfg.Input.MaxDownloadSize
		opts = append(opts, loader.WithFetcher(download.NewDownloader(dl, logger.Component(log, "download"))))
	}
	return loader.New(opts...)
}

// restore loads the archived document if there is one
func (p *pipeline) restore(ctx context.Context) error {
	err := p.coordinator.Load(ctx)
	if err == nil {
		p.logger.Info().Msg("Restored archived document")
		return nil
	}
	if apperrors.Is(err, apperrors.ErrCodeNotFound) {
		p.logger.Debug().Msg("No archived document to restore")
		return nil
	}
	return err
}

// Close tears components down in reverse dependency order
func (p *pipeline) Close() {
	if p.cleanup != nil {
		p.cleanup.Stop()
	}
	if p.coordinator != nil {
		if err := p.coordinator.Close(); err != nil {
			p.logger.Warn().Err(err).Msg("Coordinator did not stop cleanly")
		}
	}
	if p.archive != nil {
		if err := p.archive.Close(); err != nil {
			p.logger.Warn().Err(err).Msg("Failed to close archive")
		}
	}
	if p.db != nil {
		if err := p.db.Close(); err != nil {
			p.logger.Warn().Err(err).Msg("Failed to close database")
		}
	}
}
