package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/docparser"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/scanner"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/snapshot"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/metrics"
)

// State is the lifecycle phase of the Engine.
type State int32

const (
	StateUninitialized State = iota
	StateLoadedFromCache
	StateIndexing
	StateReady
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoadedFromCache:
		return "loaded_from_cache"
	case StateIndexing:
		return "indexing"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Run status values reported to run hooks.
const (
	RunCompleted = "completed"
	RunPartial   = "partial"
	RunFailed    = "failed"
	// RunSaveFailed means the store was rebuilt but the final snapshot
	// could not be written; the on-disk cache is still the previous one.
	RunSaveFailed = "save_failed"
)

var errFinalSave = errors.New("saving final snapshot")

// Run describes one indexing run.
type Run struct {
	ID         string    `json:"id"`
	Trigger    string    `json:"trigger"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Status     string    `json:"status"`
	Files      int       `json:"files"`
	Indexed    int64     `json:"indexed"`
	Failed     int64     `json:"failed"`
	Bytes      int64     `json:"bytes"`
	Documents  int       `json:"documents"`
	Error      string    `json:"error,omitempty"`
}

// RunHook is called after every indexing run, successful or not.
type RunHook func(ctx context.Context, run Run)

// Stats is the health/status view of the index.
type Stats struct {
	TotalDocuments     int              `json:"totalDocuments"`
	LastUpdate         time.Time        `json:"lastUpdate"`
	Sections           map[string]int   `json:"sections"`
	Version            string           `json:"version"`
	Source             string           `json:"source"`
	Metrics            snapshot.Metrics `json:"metrics"`
	State              string           `json:"state"`
	IndexingInProgress bool             `json:"indexingInProgress"`
	Generation         int64            `json:"generation"`
}

type Option func(*Engine)

// WithClock replaces time.Now, mainly for staleness tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithRunHook registers a callback invoked after each indexing run.
func WithRunHook(h RunHook) Option {
	return func(e *Engine) { e.hooks = append(e.hooks, h) }
}

// Engine owns the document index. It loads the last snapshot at start-up,
// decides whether the corpus must be re-indexed, and runs the
// scan→parse→persist pipeline in the background without blocking queries.
type Engine struct {
	cfg       config.IndexerConfig
	store     *index.Store
	snapshots *snapshot.Store
	scanner   *scanner.Scanner
	parser    *docparser.Parser
	metrics   *metrics.Metrics
	hooks     []RunHook
	now       func() time.Time
	logger    *slog.Logger

	state              atomic.Int32
	indexingInProgress atomic.Bool
	generation         atomic.Int64

	lastUpdateMu sync.RWMutex
	lastUpdate   time.Time

	totalFiles     atomic.Int64
	processedFiles atomic.Int64
	failedFiles    atomic.Int64
	bytesProcessed atomic.Int64

	startOnce sync.Once
	started   chan error
	baseCtx   context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

func NewEngine(cfg config.IndexerConfig, opts ...Option) (*Engine, error) {
	snapshots, err := snapshot.NewStore(cfg.CacheDir, cfg.CorpusVersion)
	if err != nil {
		return nil, fmt.Errorf("initializing snapshot store: %w", err)
	}
	if cfg.SaveEvery <= 0 {
		cfg.SaveEvery = 50
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		cfg:       cfg,
		store:     index.NewStore(),
		snapshots: snapshots,
		scanner:   scanner.New(scanner.DefaultExtensions, cfg.MaxFileSize),
		parser:    docparser.New(cfg.MinContentLength, cfg.MaxContentLength),
		now:       time.Now,
		logger:    slog.Default().With("component", "indexer"),
		baseCtx:   ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.metrics == nil {
		e.metrics = metrics.New(prometheus.NewRegistry())
	}
	return e, nil
}

// Start loads any existing snapshot synchronously and, when the index is
// stale or absent, launches a background re-index. The returned channel
// yields the background run's error (nil when no run was needed or it
// succeeded) and is then closed. Repeated calls return the same channel.
func (e *Engine) Start() <-chan error {
	e.startOnce.Do(func() {
		e.started = make(chan error, 1)
		e.loadSnapshot()

		if err := e.checkCorpus(); err != nil {
			e.logger.Error("documentation corpus is missing; serving cached index only",
				"corpus_path", e.cfg.CorpusPath,
				"error", err,
				"remediation", "clone or copy the documentation sources into corpusPath (or set DS_CORPUS_PATH) and restart",
			)
			e.started <- err
			close(e.started)
			return
		}

		if !e.NeedsRefresh(e.now()) {
			e.logger.Info("index is fresh, skipping re-index",
				"last_update", e.LastUpdate(),
				"update_interval", e.cfg.UpdateInterval,
			)
			e.state.Store(int32(StateReady))
			e.started <- nil
			close(e.started)
			return
		}

		if !e.indexingInProgress.CompareAndSwap(false, true) {
			e.started <- apperrors.ErrIndexingInProgress
			close(e.started)
			return
		}
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			err := e.run(e.baseCtx, "startup")
			e.started <- err
			close(e.started)
		}()
	})
	return e.started
}

// NeedsRefresh reports whether the index has never been built or is older
// than the configured update interval.
func (e *Engine) NeedsRefresh(now time.Time) bool {
	last := e.LastUpdate()
	if last.IsZero() {
		return true
	}
	return now.Sub(last) > e.cfg.UpdateInterval
}

// Refresh runs a full re-index synchronously. It returns
// ErrIndexingInProgress if another run is active.
func (e *Engine) Refresh(ctx context.Context, trigger string) error {
	if !e.indexingInProgress.CompareAndSwap(false, true) {
		return apperrors.ErrIndexingInProgress
	}
	e.wg.Add(1)
	defer e.wg.Done()
	return e.run(ctx, trigger)
}

// RefreshAsync starts a re-index in the background and returns immediately.
func (e *Engine) RefreshAsync(trigger string) error {
	if !e.indexingInProgress.CompareAndSwap(false, true) {
		return apperrors.ErrIndexingInProgress
	}
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		if err := e.run(e.baseCtx, trigger); err != nil {
			e.logger.Error("background indexing failed", "trigger", trigger, "error", err)
		}
	}()
	return nil
}

// Close cancels any in-flight run and waits for it to stop.
func (e *Engine) Close() error {
	e.cancel()
	e.wg.Wait()
	return nil
}

func (e *Engine) Store() *index.Store {
	return e.store
}

// Generation increases after every run that changed the store.
func (e *Engine) Generation() int64 {
	return e.generation.Load()
}

func (e *Engine) State() State {
	return State(e.state.Load())
}

func (e *Engine) IndexingInProgress() bool {
	return e.indexingInProgress.Load()
}

func (e *Engine) LastUpdate() time.Time {
	e.lastUpdateMu.RLock()
	defer e.lastUpdateMu.RUnlock()
	return e.lastUpdate
}

func (e *Engine) setLastUpdate(t time.Time) {
	e.lastUpdateMu.Lock()
	e.lastUpdate = t
	e.lastUpdateMu.Unlock()
}

// Stats never fails; it reports whatever the index currently holds.
func (e *Engine) Stats() Stats {
	return Stats{
		TotalDocuments:     e.store.Size(),
		LastUpdate:         e.LastUpdate(),
		Sections:           e.store.Sections(),
		Version:            e.cfg.CorpusVersion,
		Source:             snapshot.Source,
		Metrics:            e.counters(),
		State:              e.State().String(),
		IndexingInProgress: e.IndexingInProgress(),
		Generation:         e.Generation(),
	}
}

func (e *Engine) counters() snapshot.Metrics {
	return snapshot.Metrics{
		TotalFiles:          e.totalFiles.Load(),
		ProcessedFiles:      e.processedFiles.Load(),
		FailedFiles:         e.failedFiles.Load(),
		TotalBytesProcessed: e.bytesProcessed.Load(),
	}
}

func (e *Engine) checkCorpus() error {
	info, err := os.Stat(e.cfg.CorpusPath)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", apperrors.ErrCorpusMissing, e.cfg.CorpusPath, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", apperrors.ErrCorpusMissing, e.cfg.CorpusPath)
	}
	return nil
}

// loadSnapshot fills the store from disk. Every failure is a cache miss.
func (e *Engine) loadSnapshot() {
	snap, err := e.snapshots.Load()
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrSnapshotNotFound):
			e.logger.Info("no index snapshot found, a full index build is required")
		case errors.Is(err, apperrors.ErrSnapshotIncompatible):
			e.logger.Info("index snapshot incompatible, discarding", "reason", err)
		default:
			e.logger.Warn("index snapshot unreadable, discarding", "error", err)
		}
		return
	}
	for _, entry := range snap.Documents {
		if entry.Document == nil {
			continue
		}
		e.store.Set(entry.ID, entry.Document)
	}
	e.setLastUpdate(snap.LastUpdate)
	e.state.Store(int32(StateLoadedFromCache))
	e.metrics.IndexDocuments.Set(float64(e.store.Size()))
	e.logger.Info("index loaded from snapshot",
		"documents", e.store.Size(),
		"last_update", snap.LastUpdate,
	)
}

// runState is the per-run bookkeeping shared by parse workers.
type runState struct {
	Run
	seen    sync.Map
	indexed atomic.Int64
	failed  atomic.Int64
	bytes   atomic.Int64

	// slots holds parse results by scan position until the prefix before
	// them is complete; next is the first position not yet committed.
	mu    sync.Mutex
	slots []parsed
	next  int
}

type parsed struct {
	done bool
	doc  *index.Document
}

// run executes the pipeline. The caller must have set indexingInProgress.
func (e *Engine) run(ctx context.Context, trigger string) (err error) {
	rs := &runState{Run: Run{
		ID:        uuid.NewString(),
		Trigger:   trigger,
		StartedAt: e.now().UTC(),
	}}
	prevState := e.State()
	e.state.Store(int32(StateIndexing))
	e.metrics.IndexingInProgress.Set(1)
	log := e.logger.With("run_id", rs.ID, "trigger", trigger)
	log.Info("indexing run started", "corpus_path", e.cfg.CorpusPath)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("indexing run panicked: %v", r)
		}
		e.finish(ctx, rs, prevState, err, log)
	}()

	root, absErr := filepath.Abs(e.cfg.CorpusPath)
	if absErr != nil {
		root = e.cfg.CorpusPath
	}
	files := e.scanner.Scan(root)
	rs.Files = len(files)
	e.totalFiles.Add(int64(len(files)))
	e.metrics.FilesScannedTotal.Add(float64(len(files)))

	rs.slots = make([]parsed, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)
	for i, path := range files {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			e.commit(rs, i, e.indexFile(root, path, rs, log), log)
			return nil
		})
	}
	_ = g.Wait()

	if ctx.Err() == nil && len(files) > 0 {
		e.pruneMissing(rs, log)
	}
	e.enrich()

	// lastUpdate only moves once the snapshot carrying it is on disk, so a
	// failed save leaves the index due for another refresh.
	updated := e.now().UTC()
	if saveErr := e.save(updated); saveErr != nil {
		return fmt.Errorf("%w: %w", errFinalSave, saveErr)
	}
	e.setLastUpdate(updated)
	if ctx.Err() != nil {
		return fmt.Errorf("indexing interrupted: %w", ctx.Err())
	}
	return nil
}

// indexFile reads and parses one file. It returns nil when the file failed
// or produced no document.
func (e *Engine) indexFile(root, path string, rs *runState, log *slog.Logger) *index.Document {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = filepath.Base(path)
	}
	fail := func(err error) {
		rs.failed.Add(1)
		e.failedFiles.Add(1)
		e.metrics.FilesFailedTotal.Inc()
		log.Warn("skipping document", "path", rel, "error", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		fail(fmt.Errorf("stat: %w", err))
		return nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		fail(fmt.Errorf("read: %w", err))
		return nil
	}
	rs.bytes.Add(int64(len(raw)))
	e.bytesProcessed.Add(int64(len(raw)))
	e.metrics.BytesProcessedTotal.Add(float64(len(raw)))

	doc, err := e.parser.Parse(docparser.Source{
		RelPath:  rel,
		FullPath: path,
		Content:  raw,
		Size:     info.Size(),
		ModTime:  info.ModTime(),
	})
	if err != nil {
		fail(err)
		return nil
	}
	e.processedFiles.Add(1)
	e.metrics.FilesProcessedTotal.Inc()
	if doc == nil {
		log.Debug("document below minimum content length", "path", rel)
	}
	return doc
}

// commit records the result for scan position i and stores every document
// of the completed prefix, so insertion order follows scan order whichever
// worker finishes first.
func (e *Engine) commit(rs *runState, i int, doc *index.Document, log *slog.Logger) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.slots[i] = parsed{done: true, doc: doc}
	for rs.next < len(rs.slots) && rs.slots[rs.next].done {
		ready := rs.slots[rs.next].doc
		rs.slots[rs.next].doc = nil
		rs.next++
		if ready != nil {
			e.add(rs, ready, log)
		}
	}
}

func (e *Engine) add(rs *runState, doc *index.Document, log *slog.Logger) {
	if prev, dup := rs.seen.LoadOrStore(doc.ID, doc.FilePath); dup {
		log.Warn("duplicate document id, later file wins",
			"id", doc.ID,
			"kept", doc.FilePath,
			"overwritten", prev,
		)
	}
	e.store.Set(doc.ID, doc)
	e.metrics.IndexDocuments.Set(float64(e.store.Size()))

	if n := rs.indexed.Add(1); n%int64(e.cfg.SaveEvery) == 0 {
		if err := e.save(e.LastUpdate()); err != nil {
			log.Warn("progressive snapshot failed", "indexed", n, "error", err)
		} else {
			log.Info("progressive snapshot saved", "indexed", n, "total_files", rs.Files)
		}
	}
}

// pruneMissing drops corpus documents that were not produced by this run,
// e.g. files deleted since the snapshot was written.
func (e *Engine) pruneMissing(rs *runState, log *slog.Logger) {
	removed := 0
	for _, doc := range e.store.All() {
		if doc.Synthetic() {
			continue
		}
		if _, ok := rs.seen.Load(doc.ID); !ok {
			e.store.Delete(doc.ID)
			removed++
		}
	}
	if removed > 0 {
		log.Info("removed documents no longer in corpus", "removed", removed)
	}
}

func (e *Engine) enrich() {
	for _, doc := range SyntheticDocuments(e.now()) {
		e.store.Set(doc.ID, doc)
	}
	e.metrics.IndexDocuments.Set(float64(e.store.Size()))
}

func (e *Engine) save(lastUpdate time.Time) error {
	docs := e.store.All()
	snap := e.snapshots.Build(docs, lastUpdate)
	meta := snapshot.Meta{
		CreatedAt: e.now().UTC(),
		Stats: snapshot.Stats{
			TotalDocuments: len(docs),
			Sections:       e.store.Sections(),
		},
		Metrics:    e.counters(),
		CorpusPath: e.cfg.CorpusPath,
	}
	if err := e.snapshots.Save(snap, meta); err != nil {
		e.metrics.SnapshotSavesTotal.WithLabelValues("error").Inc()
		return err
	}
	e.metrics.SnapshotSavesTotal.WithLabelValues("ok").Inc()
	return nil
}

func (e *Engine) finish(ctx context.Context, rs *runState, prevState State, err error, log *slog.Logger) {
	rs.FinishedAt = e.now().UTC()
	rs.Indexed = rs.indexed.Load()
	rs.Failed = rs.failed.Load()
	rs.Bytes = rs.bytes.Load()
	rs.Documents = e.store.Size()

	switch {
	case err == nil:
		rs.Status = RunCompleted
		e.generation.Add(1)
		e.state.Store(int32(StateReady))
	case errors.Is(err, errFinalSave):
		rs.Status = RunSaveFailed
		rs.Error = err.Error()
		e.generation.Add(1)
		e.state.Store(int32(StateReady))
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		rs.Status = RunPartial
		rs.Error = err.Error()
		e.generation.Add(1)
		e.state.Store(int32(StateReady))
	default:
		rs.Status = RunFailed
		rs.Error = err.Error()
		if rs.Indexed > 0 {
			e.generation.Add(1)
		}
		if prevState == StateIndexing || prevState == StateUninitialized {
			prevState = StateReady
		}
		e.state.Store(int32(prevState))
	}

	duration := rs.FinishedAt.Sub(rs.StartedAt)
	e.metrics.IndexRunsTotal.WithLabelValues(rs.Status).Inc()
	e.metrics.IndexRunDuration.Observe(duration.Seconds())
	e.metrics.IndexingInProgress.Set(0)
	e.indexingInProgress.Store(false)

	if err != nil {
		log.Error("indexing run finished with error",
			"status", rs.Status,
			"indexed", rs.Indexed,
			"failed", rs.Failed,
			"duration", duration,
			"error", err,
		)
	} else {
		log.Info("indexing run completed",
			"files", rs.Files,
			"indexed", rs.Indexed,
			"failed", rs.Failed,
			"bytes", rs.Bytes,
			"documents", rs.Documents,
			"duration", duration,
		)
	}

	hookCtx := context.WithoutCancel(ctx)
	for _, h := range e.hooks {
		h(hookCtx, rs.Run)
	}
}
