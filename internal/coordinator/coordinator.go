// Package coordinator ties host lifecycle events to the cache, the
// extraction pipeline, the job queue and the document store.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/killallgit/voxscript/internal/host"
	"github.com/killallgit/voxscript/internal/models"
	"github.com/killallgit/voxscript/internal/services/archive"
	"github.com/killallgit/voxscript/internal/services/audiocache"
	"github.com/killallgit/voxscript/internal/services/document"
	"github.com/killallgit/voxscript/internal/services/extraction"
	"github.com/killallgit/voxscript/internal/services/jobs"
	apperrors "github.com/killallgit/voxscript/pkg/errors"
	"github.com/rs/zerolog"
)

var (
	ErrNotReady           = apperrors.New(apperrors.ErrCodeNotReady, "coordinator is not accepting work")
	ErrNoArchive          = apperrors.New(apperrors.ErrCodePersistence, "no document archive configured")
	ErrUnknownSource      = apperrors.New(apperrors.ErrCodeNotFound, "source not registered")
	ErrNilSource          = apperrors.ValidationError("source", "must not be nil")
	ErrEmptyTranscription = apperrors.ValidationError("transcription", "has no segments")
	errBadDocument        = errors.New("document blob rejected")
)

const autoSaveTimeout = 10 * time.Second

type readiness int32

const (
	notReady readiness = iota
	ready
	closed
)

// Deps are the components a Coordinator drives
type Deps struct {
	Store      *document.Store
	Cache      audiocache.Service
	Extractor  jobs.Extractor
	TempFiles  jobs.TempFiles
	Processors jobs.ProcessorFactory
}

// EventType names what changed in the document
type EventType string

const (
	EventSourceAdded   EventType = "source_added"
	EventSourceRemoved EventType = "source_removed"
	EventCompleted     EventType = "transcription_completed"
	EventFailed        EventType = "transcription_failed"
	EventLoaded        EventType = "document_loaded"
)

// Event is delivered to listeners on the dispatcher goroutine
type Event struct {
	Type     EventType       `json:"type"`
	SourceID models.SourceID `json:"source_id,omitempty"`
	Message  string          `json:"message,omitempty"`
}

// Listener receives document events
type Listener func(Event)

// SourceInfo describes a registered source
type SourceInfo struct {
	ID          models.SourceID `json:"id"`
	Name        string          `json:"name"`
	SampleRate  float64         `json:"sample_rate"`
	Channels    int             `json:"channels"`
	Frames      int64           `json:"frames"`
	Alive       bool            `json:"alive"`
	Transcribed bool            `json:"transcribed"`
	Pending     bool            `json:"pending"`
}

// Coordinator owns the background pipeline. Its entry points are safe to
// call from any goroutine; results are published on a single dispatcher
// goroutine.
type Coordinator struct {
	state    atomic.Int32
	initOnce sync.Once
	initErr  error

	alive atomic.Bool
	dirty atomic.Bool
	// set while listeners run on the dispatcher goroutine
	inListener atomic.Bool

	store      *document.Store
	cache      audiocache.Service
	extractor  jobs.Extractor
	tempFiles  jobs.TempFiles
	processors jobs.ProcessorFactory
	queue      *jobs.Queue
	dispatcher *serialDispatcher

	archive         archive.Archive
	documentKey     string
	autoSave        bool
	deferExtraction bool
	shutdownTimeout time.Duration
	recorder        jobs.Repository

	mu           sync.RWMutex
	sources      map[models.SourceID]host.Source
	message      string
	listeners    map[int]Listener
	nextListener int

	logger zerolog.Logger
}

// Option configures a Coordinator
type Option func(*Coordinator)

// WithLogger sets the coordinator logger. Child components get a derived one.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

// WithArchive enables Save and Load under key
func WithArchive(a archive.Archive, key string) Option {
	return func(c *Coordinator) {
		c.archive = a
		c.documentKey = key
	}
}

// WithAutoSave saves the document after every completed transcription
func WithAutoSave(enabled bool) Option {
	return func(c *Coordinator) { c.autoSave = enabled }
}

// WithDeferredExtraction moves extraction onto the queue worker instead of
// the calling goroutine
func WithDeferredExtraction(enabled bool) Option {
	return func(c *Coordinator) { c.deferExtraction = enabled }
}

// WithShutdownTimeout bounds how long Close waits for the worker
func WithShutdownTimeout(d time.Duration) Option {
	return func(c *Coordinator) { c.shutdownTimeout = d }
}

// WithRecorder persists job history
func WithRecorder(r jobs.Repository) Option {
	return func(c *Coordinator) { c.recorder = r }
}

// New creates a coordinator. Nothing runs until the first lifecycle event.
func New(deps Deps, opts ...Option) (*Coordinator, error) {
	if deps.Store == nil || deps.Cache == nil || deps.Extractor == nil || deps.Processors == nil {
		return nil, apperrors.New(apperrors.ErrCodeConfigInvalid, "coordinator requires store, cache, extractor and processors")
	}

	c := &Coordinator{
		store:           deps.Store,
		cache:           deps.Cache,
		extractor:       deps.Extractor,
		tempFiles:       deps.TempFiles,
		processors:      deps.Processors,
		shutdownTimeout: jobs.DefaultShutdownTimeout,
		sources:         make(map[models.SourceID]host.Source),
		listeners:       make(map[int]Listener),
		logger:          zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.alive.Store(true)
	c.dispatcher = newSerialDispatcher()
	return c, nil
}

// ensureReady performs the one-time NotReady -> Ready transition
func (c *Coordinator) ensureReady() error {
	if readiness(c.state.Load()) == closed {
		return ErrNotReady
	}
	c.initOnce.Do(func() {
		opts := []jobs.Option{
			jobs.WithLogger(c.logger.With().Str("component", "jobs").Logger()),
			jobs.WithDocument(documentFunc(c.publish)),
			jobs.WithOnComplete(c.onComplete),
			jobs.WithOnFailure(c.onFailure),
			jobs.WithDispatcher(c.dispatcher),
			jobs.WithAliveToken(&c.alive),
			jobs.WithExtractor(c.extractor),
		}
		if c.tempFiles != nil {
			opts = append(opts, jobs.WithTempFiles(c.tempFiles))
		}
		if c.recorder != nil {
			opts = append(opts, jobs.WithRecorder(c.recorder))
		}
		q := jobs.NewQueue(c.processors, opts...)
		q.Start()
		c.queue = q

		if !c.state.CompareAndSwap(int32(notReady), int32(ready)) {
			// closed while initialising
			_ = q.Shutdown(c.shutdownTimeout)
			c.initErr = ErrNotReady
			return
		}
		c.logger.Info().Msg("Coordinator ready")
	})
	if c.initErr != nil {
		return c.initErr
	}
	if readiness(c.state.Load()) != ready {
		return ErrNotReady
	}
	return nil
}

// IsReady reports whether background work can be scheduled
func (c *Coordinator) IsReady() bool {
	return readiness(c.state.Load()) == ready
}

// SourceAdded registers src and snapshots its audio when readable
func (c *Coordinator) SourceAdded(ctx context.Context, src host.Source) (models.SourceID, error) {
	if src == nil {
		return 0, ErrNilSource
	}
	if err := c.ensureReady(); err != nil {
		return 0, err
	}

	id := c.register(src)
	if src.SampleAccessEnabled() {
		if _, err := c.cache.EnsureCached(ctx, id, src); err != nil {
			c.logger.Warn().Err(err).Stringer("source_id", id).Msg("Failed to cache source audio")
		}
	}

	c.logger.Info().Stringer("source_id", id).Str("name", host.Name(src)).Msg("Source added")
	c.markDirty()
	c.notify(Event{Type: EventSourceAdded, SourceID: id})
	return id, nil
}

// RegionCreated enqueues a transcription unless the source already has
// words or a job in flight. It reports whether a job was enqueued.
func (c *Coordinator) RegionCreated(ctx context.Context, src host.Source) (bool, error) {
	if src == nil {
		return false, ErrNilSource
	}
	if err := c.ensureReady(); err != nil {
		return false, err
	}

	id := c.register(src)
	if seq, ok := c.store.Transcription(id); ok && seq.WordCount() > 0 {
		return false, nil
	}
	if c.queue.IsPending(id) {
		return false, nil
	}
	if _, err := c.EnqueueTranscription(ctx, src); err != nil {
		return false, err
	}
	return true, nil
}

// EnqueueTranscription prepares src for inference and queues a job,
// replacing any pending job for the same source
func (c *Coordinator) EnqueueTranscription(ctx context.Context, src host.Source) (models.SourceID, error) {
	if src == nil {
		return 0, ErrNilSource
	}
	if err := c.ensureReady(); err != nil {
		return 0, err
	}

	id := c.register(src)
	log := c.logger.With().Stringer("source_id", id).Logger()

	if !src.SampleAccessEnabled() {
		if _, ok := c.cache.Get(id); !ok {
			c.setMessage(fmt.Sprintf("Waiting for sample access on source %d", id))
			log.Info().Msg("Sample access unavailable, transcription deferred")
			return id, apperrors.Wrap(extraction.ErrAccessUnavailable, apperrors.ErrCodeAccessUnavailable, "sample access unavailable").
				WithDetail("source_id", uint64(id))
		}
	}

	job := &jobs.Job{SourceID: id}
	if c.deferExtraction {
		job.Source = src
	} else {
		if _, err := c.cache.EnsureCached(ctx, id, src); err != nil {
			log.Warn().Err(err).Msg("Failed to cache source audio")
		}
		path, err := c.extractor.ExtractToTempWAV(ctx, id, src)
		if err != nil {
			c.setMessage(fmt.Sprintf("Extraction failed for source %d: %v", id, err))
			log.Error().Err(err).Msg("Extraction failed")
			return id, apperrors.ExtractionError(uint64(id), err)
		}
		job.AudioFile = path
	}

	if err := c.queue.Enqueue(job); err != nil {
		return id, apperrors.Wrap(err, apperrors.ErrCodeNotReady, "transcription queue stopped")
	}
	c.setMessage("")
	log.Info().Str("run_id", job.RunID).Msg("Transcription enqueued")
	return id, nil
}

// SourceRemoved forgets src. Unknown sources are ignored and never get an ID.
func (c *Coordinator) SourceRemoved(src host.Source) bool {
	if src == nil || !c.IsReady() {
		return false
	}

	id, ok := c.store.FindID(src)
	if !ok {
		id, ok = c.lookup(src)
	}
	if !ok {
		return false
	}

	c.RemoveByID(id)
	return true
}

// ImportTranscription stores an externally produced transcription for a
// registered source. A queued job for the source is cancelled so it cannot
// overwrite the import.
func (c *Coordinator) ImportTranscription(id models.SourceID, seq models.Sequence) error {
	if readiness(c.state.Load()) == closed {
		return ErrNotReady
	}
	if _, ok := c.Source(id); !ok {
		return ErrUnknownSource
	}
	if seq.IsEmpty() {
		return ErrEmptyTranscription
	}
	if c.IsReady() {
		c.queue.CancelForSource(id)
	}

	seq = seq.Normalize()
	c.dispatcher.Dispatch(func() {
		if c.alive.Load() {
			c.publish(id, seq)
		}
	})
	// a listener runs on the dispatcher, so waiting there would block it;
	// the publish still lands before any later callback
	if !c.inListener.Load() {
		c.dispatcher.flush()
	}

	c.setMessage(fmt.Sprintf("Imported transcription for source %d (%d words)", id, seq.WordCount()))
	c.markDirty()
	c.notify(Event{Type: EventCompleted, SourceID: id, Message: "imported"})
	return nil
}

// FileInUse reports whether a queued or running job still needs the temp
// WAV at path
func (c *Coordinator) FileInUse(path string) bool {
	if !c.IsReady() {
		return false
	}
	return c.queue.UsesFile(path)
}

// RemoveByID drops everything held for id
func (c *Coordinator) RemoveByID(id models.SourceID) {
	if c.IsReady() {
		c.queue.CancelForSource(id)
	}
	c.cache.Remove(id)
	c.store.RemoveByID(id)

	c.mu.Lock()
	delete(c.sources, id)
	c.mu.Unlock()

	c.logger.Info().Stringer("source_id", id).Msg("Source removed")
	c.markDirty()
	c.notify(Event{Type: EventSourceRemoved, SourceID: id})
}

// Status is the one-line text a UI polls
func (c *Coordinator) Status() string {
	switch readiness(c.state.Load()) {
	case notReady:
		return "Not ready"
	case closed:
		return "Stopped"
	}

	st := c.queue.Stats()
	if st.CurrentSource != 0 {
		return fmt.Sprintf("Transcribing source %d (%d pending)", st.CurrentSource, st.Pending)
	}
	if st.Pending > 0 {
		return fmt.Sprintf("Queued (%d pending)", st.Pending)
	}

	c.mu.RLock()
	msg := c.message
	c.mu.RUnlock()
	if msg != "" {
		return msg
	}
	return "Idle"
}

// QueueStats returns the worker counters. Zero before the first event.
func (c *Coordinator) QueueStats() jobs.Stats {
	if !c.IsReady() {
		return jobs.Stats{StateName: "not_ready"}
	}
	return c.queue.Stats()
}

// CacheStats returns the audio cache counters
func (c *Coordinator) CacheStats() audiocache.CacheStats {
	return c.cache.Stats()
}

// Snapshot returns an immutable copy of every transcription
func (c *Coordinator) Snapshot() document.Snapshot {
	return c.store.MakeSnapshot()
}

// ConsumeDirty reports whether the document changed since the last call
func (c *Coordinator) ConsumeDirty() bool {
	return c.dirty.Swap(false)
}

// Subscribe registers l for document events and returns its cancel func.
// Listeners run on the dispatcher goroutine one at a time. They may call
// back into the coordinator, but an ImportTranscription made from a
// listener is published after the listener returns.
func (c *Coordinator) Subscribe(l Listener) func() {
	c.mu.Lock()
	key := c.nextListener
	c.nextListener++
	c.listeners[key] = l
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, key)
		c.mu.Unlock()
	}
}

// Source returns the registered source for id
func (c *Coordinator) Source(id models.SourceID) (host.Source, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	src, ok := c.sources[id]
	return src, ok
}

// Sources lists registered sources ordered by ID
func (c *Coordinator) Sources() []SourceInfo {
	c.mu.RLock()
	infos := make([]SourceInfo, 0, len(c.sources))
	for id, src := range c.sources {
		infos = append(infos, describe(id, src))
	}
	c.mu.RUnlock()

	for i := range infos {
		c.fillProgress(&infos[i])
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// Info describes one registered source
func (c *Coordinator) Info(id models.SourceID) (SourceInfo, bool) {
	src, ok := c.Source(id)
	if !ok {
		return SourceInfo{}, false
	}
	info := describe(id, src)
	c.fillProgress(&info)
	return info, true
}

func describe(id models.SourceID, src host.Source) SourceInfo {
	return SourceInfo{
		ID:         id,
		Name:       host.Name(src),
		SampleRate: src.SampleRate(),
		Channels:   src.NumChannels(),
		Frames:     src.Length(),
		Alive:      src.IsAlive(),
	}
}

func (c *Coordinator) fillProgress(info *SourceInfo) {
	if seq, ok := c.store.Transcription(info.ID); ok {
		info.Transcribed = !seq.IsEmpty()
	}
	if c.IsReady() {
		info.Pending = c.queue.IsPending(info.ID)
	}
}

// Save writes the document blob to the archive
func (c *Coordinator) Save(ctx context.Context) error {
	if c.archive == nil {
		return ErrNoArchive
	}
	data, err := c.store.Serialize()
	if err != nil {
		return apperrors.PersistenceError("save", err)
	}
	if err := c.archive.Save(ctx, c.documentKey, data); err != nil {
		return apperrors.PersistenceError("save", err)
	}
	c.logger.Debug().Str("key", c.documentKey).Int("bytes", len(data)).Msg("Document saved")
	return nil
}

// Load replaces the document with the archived blob. Pending work is
// cancelled and live sources are rebound to their restored IDs.
func (c *Coordinator) Load(ctx context.Context) error {
	if c.archive == nil {
		return ErrNoArchive
	}
	data, err := c.archive.Load(ctx, c.documentKey)
	if err != nil {
		if errors.Is(err, archive.ErrBlobNotFound) {
			return apperrors.NotFound("document", c.documentKey)
		}
		return apperrors.PersistenceError("load", err)
	}
	if !c.store.Deserialize(data) {
		return apperrors.PersistenceError("load", errBadDocument)
	}

	if c.IsReady() {
		c.queue.CancelAll()
	}
	c.cache.Clear()

	c.mu.Lock()
	live := c.sources
	c.sources = make(map[models.SourceID]host.Source, len(live))
	for _, src := range live {
		c.sources[c.store.GetOrCreateID(src)] = src
	}
	c.mu.Unlock()

	c.logger.Info().Str("key", c.documentKey).Int("sources", c.store.Len()).Msg("Document loaded")
	c.markDirty()
	c.notify(Event{Type: EventLoaded})
	return nil
}

// Close stops the worker and the dispatcher. Results still in flight are
// discarded.
func (c *Coordinator) Close() error {
	prev := readiness(c.state.Swap(int32(closed)))
	if prev == closed {
		return nil
	}
	c.alive.Store(false)

	var err error
	if prev == ready {
		err = c.queue.Shutdown(c.shutdownTimeout)
	}
	c.dispatcher.stop()
	c.logger.Info().Msg("Coordinator closed")
	return err
}

func (c *Coordinator) register(src host.Source) models.SourceID {
	id := c.store.GetOrCreateID(src)
	c.mu.Lock()
	c.sources[id] = src
	c.mu.Unlock()
	return id
}

func (c *Coordinator) lookup(src host.Source) (models.SourceID, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for id, s := range c.sources {
		if s == src {
			return id, true
		}
	}
	return 0, false
}

func (c *Coordinator) setMessage(msg string) {
	c.mu.Lock()
	c.message = msg
	c.mu.Unlock()
}

func (c *Coordinator) markDirty() {
	c.dirty.Store(true)
}

// publish runs on the dispatcher. Results for sources removed meanwhile
// are dropped.
func (c *Coordinator) publish(id models.SourceID, seq models.Sequence) {
	if _, ok := c.Source(id); !ok {
		c.logger.Debug().Stringer("source_id", id).Msg("Dropping result for removed source")
		return
	}
	c.store.UpdateTranscription(id, seq)
}

func (c *Coordinator) onComplete(id models.SourceID, seq models.Sequence) {
	if _, ok := c.Source(id); !ok {
		return
	}
	c.setMessage(fmt.Sprintf("Transcribed source %d (%d words)", id, seq.WordCount()))
	c.markDirty()
	c.emit(Event{Type: EventCompleted, SourceID: id})

	if c.autoSave && c.archive != nil {
		ctx, cancel := context.WithTimeout(context.Background(), autoSaveTimeout)
		defer cancel()
		if err := c.Save(ctx); err != nil {
			c.logger.Error().Err(err).Msg("Auto-save failed")
		}
	}
}

func (c *Coordinator) onFailure(id models.SourceID, err error) {
	msg := fmt.Sprintf("Transcription failed for source %d: %v", id, err)
	c.setMessage(msg)
	c.emit(Event{Type: EventFailed, SourceID: id, Message: msg})
}

// notify queues ev for listeners on the dispatcher goroutine
func (c *Coordinator) notify(ev Event) {
	c.dispatcher.Dispatch(func() {
		if c.alive.Load() {
			c.emit(ev)
		}
	})
}

// emit calls listeners directly; dispatcher goroutine only
func (c *Coordinator) emit(ev Event) {
	c.mu.RLock()
	ls := make([]Listener, 0, len(c.listeners))
	for _, l := range c.listeners {
		ls = append(ls, l)
	}
	c.mu.RUnlock()
	if len(ls) == 0 {
		return
	}

	c.inListener.Store(true)
	defer c.inListener.Store(false)
	for _, l := range ls {
		l(ev)
	}
}

// documentFunc adapts a function to jobs.DocumentUpdater
type documentFunc func(id models.SourceID, seq models.Sequence)

func (f documentFunc) UpdateTranscription(id models.SourceID, seq models.Sequence) { f(id, seq) }
