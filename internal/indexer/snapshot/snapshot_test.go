package snapshot

import (
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
)

func sampleDocs() []*index.Document {
	updated := time.Date(2025, 1, 15, 8, 30, 0, 0, time.UTC)
	return []*index.Document{
		{
			ID:          "hr_leave_configuration",
			FilePath:    "hr/leave_configuration.md",
			Title:       "Leave Configuration",
			Description: "Configure leave types.",
			Content:     "Configure leave types and allocations for employees.",
			Section:     "hr",
			Keywords:    []string{"leave", "configuration", "hr"},
			WordCount:   7,
			ReadingTime: 1,
			FileSize:    512,
			FileType:    "md",
			LastUpdated: updated,
			Metadata:    index.Metadata{Parser: "markdown", Source: index.SourceCorpus},
		},
		{
			ID:          "synthetic_getting_started_first_steps",
			Title:       "First Steps",
			Content:     "Start here.",
			Section:     "getting_started",
			FileType:    "synthetic",
			LastUpdated: updated,
			Metadata:    index.Metadata{Parser: "synthetic", Source: index.SourceSynthetic},
		},
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	store, err := NewStore(t.TempDir(), "17.0")
	require.NoError(t, err)

	last := time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)
	snap := store.Build(sampleDocs(), last)
	meta := Meta{
		CreatedAt:  last,
		Stats:      Stats{TotalDocuments: 2, Sections: map[string]int{"hr": 1, "getting_started": 1}},
		Metrics:    Metrics{TotalFiles: 3, ProcessedFiles: 1, FailedFiles: 1, TotalBytesProcessed: 512},
		CorpusPath: "/corpus",
	}
	require.NoError(t, store.Save(snap, meta))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, FormatVersion, loaded.FormatVersion)
	assert.Equal(t, "17.0", loaded.CorpusVersion)
	assert.Equal(t, Source, loaded.Source)
	assert.True(t, last.Equal(loaded.LastUpdate))
	assert.Equal(t, 2, loaded.TotalDocuments)
	require.Len(t, loaded.Documents, 2)

	want := sampleDocs()
	for i, entry := range loaded.Documents {
		assert.Equal(t, want[i].ID, entry.ID)
		assert.Equal(t, want[i].Title, entry.Document.Title)
		assert.Equal(t, want[i].Keywords, entry.Document.Keywords)
		assert.Equal(t, want[i].Metadata, entry.Document.Metadata)
		assert.True(t, want[i].LastUpdated.Equal(entry.Document.LastUpdated))
	}

	loadedMeta, err := store.LoadMeta()
	require.NoError(t, err)
	assert.Equal(t, meta.Metrics, loadedMeta.Metrics)
	assert.Equal(t, meta.Stats, loadedMeta.Stats)
	assert.Equal(t, "/corpus", loadedMeta.CorpusPath)
}

func TestEntry_EncodesAsPair(t *testing.T) {
	data, err := json.Marshal(Entry{ID: "x", Document: &index.Document{ID: "x", Title: "T"}})
	require.NoError(t, err)

	var pair []json.RawMessage
	require.NoError(t, json.Unmarshal(data, &pair))
	require.Len(t, pair, 2)
	assert.JSONEq(t, `"x"`, string(pair[0]))

	var e Entry
	assert.Error(t, json.Unmarshal([]byte(`["only-id"]`), &e))
}

func TestLoad_NotFound(t *testing.T) {
	store, err := NewStore(t.TempDir(), "")
	require.NoError(t, err)

	_, err = store.Load()
	assert.ErrorIs(t, err, apperrors.ErrSnapshotNotFound)
	_, err = store.LoadMeta()
	assert.ErrorIs(t, err, apperrors.ErrSnapshotNotFound)
}

func TestLoad_Incompatible(t *testing.T) {
	dir := t.TempDir()

	t.Run("format version", func(t *testing.T) {
		store, err := NewStore(dir, "")
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(store.IndexPath(),
			[]byte(`{"formatVersion":1,"source":"docsearch-corpus","documents":[]}`), 0o644))
		_, err = store.Load()
		assert.ErrorIs(t, err, apperrors.ErrSnapshotIncompatible)
	})

	t.Run("source", func(t *testing.T) {
		store, err := NewStore(dir, "")
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(store.IndexPath(),
			[]byte(`{"formatVersion":2,"source":"someone-else","documents":[]}`), 0o644))
		_, err = store.Load()
		assert.ErrorIs(t, err, apperrors.ErrSnapshotIncompatible)
	})

	t.Run("corpus version", func(t *testing.T) {
		old, err := NewStore(dir, "16.0")
		require.NoError(t, err)
		require.NoError(t, old.Save(old.Build(sampleDocs(), time.Now()), Meta{}))

		current, err := NewStore(dir, "17.0")
		require.NoError(t, err)
		_, err = current.Load()
		assert.ErrorIs(t, err, apperrors.ErrSnapshotIncompatible)
	})

	t.Run("corrupt json", func(t *testing.T) {
		store, err := NewStore(dir, "")
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(store.IndexPath(), []byte(`{not json`), 0o644))
		_, err = store.Load()
		assert.ErrorIs(t, err, apperrors.ErrSnapshotIncompatible)
	})
}

func TestSave_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, "")
	require.NoError(t, err)
	require.NoError(t, store.Save(store.Build(sampleDocs(), time.Now()), Meta{}))
	require.NoError(t, store.Save(store.Build(sampleDocs()[:1], time.Now()), Meta{}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{IndexFile, MetaFile}, names)

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.TotalDocuments)
}
