package indexer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/snapshot"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
)

var fixedNow = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

const leaveMD = `---
title: Leave Configuration
---
Configure leave types, allocations and approval rules so employees can request
time off. Each leave type decides whether an allocation is required and who
validates the request before it reaches the calendar.
`

const quotationsRST = `Quotations
==========

Create a quotation from the Sales application, add products and send it to the
customer by email. Once confirmed, the quotation becomes a sales order.
`

func writeCorpus(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string][]byte{
		"hr/leave_configuration.md": []byte(leaveMD),
		"sales/quotations.rst":      []byte(quotationsRST),
		"hr/stub.md":                []byte("# Stub\n\nToo short."),
		"broken.md":                 {0xff, 0xfe, 0xfd},
		"notes.txt":                 []byte("ignored"),
	}
	for rel, data := range files {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, data, 0o644))
	}
	return root
}

func testConfig(t *testing.T, corpus string) config.IndexerConfig {
	return config.IndexerConfig{
		CorpusPath:     corpus,
		CacheDir:       t.TempDir(),
		CorpusVersion:  "17.0",
		UpdateInterval: 24 * time.Hour,
		SaveEvery:      1,
		Workers:        2,
	}
}

type hookRecorder struct {
	mu   sync.Mutex
	runs []Run
}

func (h *hookRecorder) hook(_ context.Context, run Run) {
	h.mu.Lock()
	h.runs = append(h.runs, run)
	h.mu.Unlock()
}

func (h *hookRecorder) last(t *testing.T) Run {
	t.Helper()
	h.mu.Lock()
	defer h.mu.Unlock()
	require.NotEmpty(t, h.runs)
	return h.runs[len(h.runs)-1]
}

func newTestEngine(t *testing.T, cfg config.IndexerConfig, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	e, err := NewEngine(cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

func TestNeedsRefresh(t *testing.T) {
	e := newTestEngine(t, testConfig(t, t.TempDir()))

	assert.True(t, e.NeedsRefresh(fixedNow), "never indexed")

	e.setLastUpdate(fixedNow.Add(-25 * time.Hour))
	assert.True(t, e.NeedsRefresh(fixedNow))

	e.setLastUpdate(fixedNow.Add(-1 * time.Hour))
	assert.False(t, e.NeedsRefresh(fixedNow))
}

func TestRefresh_IndexesCorpusAndSynthetic(t *testing.T) {
	rec := &hookRecorder{}
	cfg := testConfig(t, writeCorpus(t))
	e := newTestEngine(t, cfg, WithRunHook(rec.hook))

	require.NoError(t, e.Refresh(context.Background(), "test"))

	store := e.Store()
	leave, ok := store.Get("hr_leave_configuration")
	require.True(t, ok)
	assert.Equal(t, "Leave Configuration", leave.Title)
	assert.Equal(t, "hr", leave.Section)

	_, ok = store.Get("sales_quotations")
	assert.True(t, ok)
	_, ok = store.Get("hr_stub")
	assert.False(t, ok, "short documents are not indexed")

	synthetic := SyntheticDocuments(fixedNow)
	for _, doc := range synthetic {
		got, ok := store.Get(doc.ID)
		require.True(t, ok, doc.ID)
		assert.True(t, got.Synthetic())
	}
	assert.Equal(t, 2+len(synthetic), store.Size())

	assert.Equal(t, StateReady, e.State())
	assert.False(t, e.IndexingInProgress())
	assert.Equal(t, int64(1), e.Generation())
	assert.Equal(t, fixedNow, e.LastUpdate())

	stats := e.Stats()
	assert.Equal(t, store.Size(), stats.TotalDocuments)
	assert.Equal(t, "17.0", stats.Version)
	assert.Equal(t, snapshot.Source, stats.Source)
	assert.Equal(t, "ready", stats.State)
	assert.Equal(t, int64(4), stats.Metrics.TotalFiles)
	assert.Equal(t, int64(3), stats.Metrics.ProcessedFiles)
	assert.Equal(t, int64(1), stats.Metrics.FailedFiles)
	assert.Positive(t, stats.Metrics.TotalBytesProcessed)

	run := rec.last(t)
	assert.Equal(t, RunCompleted, run.Status)
	assert.Equal(t, "test", run.Trigger)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, 4, run.Files)
	assert.Equal(t, int64(2), run.Indexed)
	assert.Equal(t, int64(1), run.Failed)
	assert.Equal(t, store.Size(), run.Documents)

	snaps, err := snapshot.NewStore(cfg.CacheDir, cfg.CorpusVersion)
	require.NoError(t, err)
	snap, err := snaps.Load()
	require.NoError(t, err)
	assert.Equal(t, store.Size(), snap.TotalDocuments)
	assert.True(t, fixedNow.Equal(snap.LastUpdate))
}

func TestRefresh_RejectsConcurrentRun(t *testing.T) {
	e := newTestEngine(t, testConfig(t, writeCorpus(t)))
	e.indexingInProgress.Store(true)

	assert.ErrorIs(t, e.Refresh(context.Background(), "test"), apperrors.ErrIndexingInProgress)
	assert.ErrorIs(t, e.RefreshAsync("test"), apperrors.ErrIndexingInProgress)
	assert.Zero(t, e.Store().Size())
}

func TestRefresh_PrunesDeletedFiles(t *testing.T) {
	corpus := writeCorpus(t)
	e := newTestEngine(t, testConfig(t, corpus))
	require.NoError(t, e.Refresh(context.Background(), "first"))
	_, ok := e.Store().Get("sales_quotations")
	require.True(t, ok)

	require.NoError(t, os.Remove(filepath.Join(corpus, "sales", "quotations.rst")))
	require.NoError(t, e.Refresh(context.Background(), "second"))

	_, ok = e.Store().Get("sales_quotations")
	assert.False(t, ok)
	_, ok = e.Store().Get("hr_leave_configuration")
	assert.True(t, ok)
	_, ok = e.Store().Get("synthetic_leave_management_overview")
	assert.True(t, ok)
	assert.Equal(t, int64(2), e.Generation())
}

func TestRefresh_CanceledRunIsPartial(t *testing.T) {
	rec := &hookRecorder{}
	e := newTestEngine(t, testConfig(t, writeCorpus(t)), WithRunHook(rec.hook))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := e.Refresh(ctx, "test")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, RunPartial, rec.last(t).Status)
	assert.Equal(t, StateReady, e.State())
	assert.False(t, e.IndexingInProgress())
}

func TestRefresh_InsertionOrderFollowsScanOrder(t *testing.T) {
	corpus := t.TempDir()
	var want []string
	for i := range 40 {
		name := fmt.Sprintf("topic_%02d", i)
		body := fmt.Sprintf("# Stock Topic %02d\n\n"+
			"Every warehouse operation moves products between locations and records the\n"+
			"quantities on hand so replenishment rules can trigger new purchase orders.\n", i)
		path := filepath.Join(corpus, "inventory", name+".md")
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
		want = append(want, "inventory_"+name)
	}

	build := func() []string {
		cfg := testConfig(t, corpus)
		cfg.Workers = 4
		cfg.SaveEvery = 7
		e := newTestEngine(t, cfg)
		require.NoError(t, e.Refresh(context.Background(), "test"))
		var ids []string
		for _, doc := range e.Store().All() {
			if !doc.Synthetic() {
				ids = append(ids, doc.ID)
			}
		}
		return ids
	}

	first := build()
	assert.Equal(t, want, first)
	assert.Equal(t, first, build())
}

func TestRefresh_FailedFinalSaveStillPublishes(t *testing.T) {
	rec := &hookRecorder{}
	cfg := testConfig(t, writeCorpus(t))
	e := newTestEngine(t, cfg, WithRunHook(rec.hook))

	// A non-empty directory at the snapshot path makes the rename fail.
	require.NoError(t, os.MkdirAll(filepath.Join(cfg.CacheDir, snapshot.IndexFile, "blocker"), 0o755))

	err := e.Refresh(context.Background(), "test")
	require.Error(t, err)
	assert.ErrorIs(t, err, errFinalSave)

	run := rec.last(t)
	assert.Equal(t, RunSaveFailed, run.Status)
	assert.NotEmpty(t, run.Error)
	assert.Equal(t, int64(2), run.Indexed)

	_, ok := e.Store().Get("hr_leave_configuration")
	assert.True(t, ok)
	assert.Equal(t, int64(1), e.Generation())
	assert.Equal(t, StateReady, e.State())
	assert.False(t, e.IndexingInProgress())
	assert.True(t, e.LastUpdate().IsZero())
	assert.True(t, e.NeedsRefresh(fixedNow))
}

func TestStart_LoadsFreshSnapshotWithoutReindex(t *testing.T) {
	cfg := testConfig(t, writeCorpus(t))
	first := newTestEngine(t, cfg)
	require.NoError(t, first.Refresh(context.Background(), "seed"))
	want := first.Store().Size()

	rec := &hookRecorder{}
	second := newTestEngine(t, cfg, WithRunHook(rec.hook))
	require.NoError(t, <-second.Start())

	assert.Equal(t, want, second.Store().Size())
	assert.Equal(t, StateReady, second.State())
	assert.Empty(t, rec.runs, "a fresh snapshot must not trigger a run")
	assert.Equal(t, second.Start(), second.Start())
}

func TestStart_StaleSnapshotReindexes(t *testing.T) {
	cfg := testConfig(t, writeCorpus(t))
	first := newTestEngine(t, cfg)
	require.NoError(t, first.Refresh(context.Background(), "seed"))

	later := fixedNow.Add(48 * time.Hour)
	rec := &hookRecorder{}
	second, err := NewEngine(cfg, WithClock(func() time.Time { return later }), WithRunHook(rec.hook))
	require.NoError(t, err)
	defer second.Close()

	require.NoError(t, <-second.Start())
	assert.Equal(t, "startup", rec.last(t).Trigger)
	assert.Equal(t, later, second.LastUpdate())
}

func TestStart_MissingCorpusServesCache(t *testing.T) {
	cfg := testConfig(t, writeCorpus(t))
	first := newTestEngine(t, cfg)
	require.NoError(t, first.Refresh(context.Background(), "seed"))
	want := first.Store().Size()

	cfg.CorpusPath = filepath.Join(t.TempDir(), "gone")
	second := newTestEngine(t, cfg)
	err := <-second.Start()
	assert.ErrorIs(t, err, apperrors.ErrCorpusMissing)
	assert.Equal(t, want, second.Store().Size())
	assert.Equal(t, StateLoadedFromCache, second.State())
}

func TestStart_NoCorpusNoCache(t *testing.T) {
	cfg := testConfig(t, filepath.Join(t.TempDir(), "gone"))
	e := newTestEngine(t, cfg)
	assert.ErrorIs(t, <-e.Start(), apperrors.ErrCorpusMissing)
	assert.Zero(t, e.Store().Size())
	assert.Equal(t, StateUninitialized, e.State())
}

func TestSyntheticDocuments(t *testing.T) {
	docs := SyntheticDocuments(fixedNow)
	require.Len(t, docs, 5)
	seen := map[string]bool{}
	for _, d := range docs {
		assert.True(t, strings.HasPrefix(d.ID, "synthetic_"), d.ID)
		assert.False(t, seen[d.ID], "duplicate id %s", d.ID)
		seen[d.ID] = true
		assert.Equal(t, "synthetic", d.FileType)
		assert.True(t, d.Synthetic())
		assert.Equal(t, fixedNow, d.LastUpdated)
		assert.Positive(t, d.WordCount)
		assert.NotEmpty(t, d.Title)
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "uninitialized", StateUninitialized.String())
	assert.Equal(t, "loaded_from_cache", StateLoadedFromCache.String())
	assert.Equal(t, "indexing", StateIndexing.String())
	assert.Equal(t, "ready", StateReady.String())
}
