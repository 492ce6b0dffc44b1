// Package snapshot persists the in-memory document index to a versioned JSON
// file plus a small metadata companion. Files are written to a temporary
// path and renamed into place so a crash never corrupts the previous
// snapshot.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
)

const (
	// FormatVersion is bumped whenever the on-disk layout changes.
	FormatVersion = 2
	// Source identifies snapshots written by this indexer.
	Source = "docsearch-corpus"

	IndexFile = "docs-index.json"
	MetaFile  = "docs-index.meta.json"
)

// Snapshot is the primary persisted record.
type Snapshot struct {
	FormatVersion  int       `json:"formatVersion"`
	CorpusVersion  string    `json:"corpusVersion"`
	Source         string    `json:"source"`
	LastUpdate     time.Time `json:"lastUpdate"`
	TotalDocuments int       `json:"totalDocuments"`
	Documents      []Entry   `json:"documents"`
}

// Entry is one id/record pair, encoded as a two-element JSON array.
type Entry struct {
	ID       string
	Document *index.Document
}

func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{e.ID, e.Document})
}

func (e *Entry) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("snapshot entry has %d elements, want 2", len(pair))
	}
	if err := json.Unmarshal(pair[0], &e.ID); err != nil {
		return fmt.Errorf("decoding entry id: %w", err)
	}
	e.Document = &index.Document{}
	if err := json.Unmarshal(pair[1], e.Document); err != nil {
		return fmt.Errorf("decoding entry %q: %w", e.ID, err)
	}
	return nil
}

// Metrics are the indexing counters accumulated during the process lifetime.
type Metrics struct {
	TotalFiles          int64 `json:"totalFiles"`
	ProcessedFiles      int64 `json:"processedFiles"`
	FailedFiles         int64 `json:"failedFiles"`
	TotalBytesProcessed int64 `json:"totalBytesProcessed"`
}

// Stats summarises the index contents for quick inspection.
type Stats struct {
	TotalDocuments int            `json:"totalDocuments"`
	Sections       map[string]int `json:"sections"`
}

// Meta is the companion metadata record.
type Meta struct {
	CreatedAt  time.Time `json:"createdAt"`
	Stats      Stats     `json:"stats"`
	Metrics    Metrics   `json:"metrics"`
	CorpusPath string    `json:"corpusPath"`
}

// Store reads and writes snapshots in a cache directory.
type Store struct {
	dir           string
	corpusVersion string
	mu            sync.Mutex
	logger        *slog.Logger
}

// NewStore creates the cache directory if needed.
func NewStore(dir, corpusVersion string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	return &Store{
		dir:           dir,
		corpusVersion: corpusVersion,
		logger:        slog.Default().With("component", "snapshot-store"),
	}, nil
}

// Build assembles a Snapshot from the store contents.
func (s *Store) Build(docs []*index.Document, lastUpdate time.Time) *Snapshot {
	entries := make([]Entry, 0, len(docs))
	for _, doc := range docs {
		entries = append(entries, Entry{ID: doc.ID, Document: doc})
	}
	return &Snapshot{
		FormatVersion:  FormatVersion,
		CorpusVersion:  s.corpusVersion,
		Source:         Source,
		LastUpdate:     lastUpdate.UTC(),
		TotalDocuments: len(entries),
		Documents:      entries,
	}
}

// Save writes the snapshot and its metadata. Concurrent calls are
// serialised; each file is replaced atomically.
func (s *Store) Save(snap *Snapshot, meta Meta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}
	if err := writeAtomic(s.IndexPath(), data); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	metaData, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling snapshot metadata: %w", err)
	}
	if err := writeAtomic(s.MetaPath(), metaData); err != nil {
		return fmt.Errorf("writing snapshot metadata: %w", err)
	}
	s.logger.Debug("snapshot saved",
		"documents", snap.TotalDocuments,
		"bytes", len(data),
	)
	return nil
}

// Load reads the primary snapshot. It returns ErrSnapshotNotFound when no
// file exists and ErrSnapshotIncompatible when the version, source or corpus
// tags differ from this build's expectations.
func (s *Store) Load() (*Snapshot, error) {
	data, err := os.ReadFile(s.IndexPath())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrSnapshotIncompatible, err)
	}
	if snap.FormatVersion != FormatVersion || snap.Source != Source {
		return nil, fmt.Errorf("%w: format=%d source=%q", apperrors.ErrSnapshotIncompatible, snap.FormatVersion, snap.Source)
	}
	if s.corpusVersion != "" && snap.CorpusVersion != s.corpusVersion {
		return nil, fmt.Errorf("%w: corpus version %q, want %q", apperrors.ErrSnapshotIncompatible, snap.CorpusVersion, s.corpusVersion)
	}
	return &snap, nil
}

// LoadMeta reads the metadata companion without touching the full index.
func (s *Store) LoadMeta() (*Meta, error) {
	data, err := os.ReadFile(s.MetaPath())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("reading snapshot metadata: %w", err)
	}
	var meta Meta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parsing snapshot metadata: %w", err)
	}
	return &meta, nil
}

func (s *Store) IndexPath() string {
	return filepath.Join(s.dir, IndexFile)
}

func (s *Store) MetaPath() string {
	return filepath.Join(s.dir, MetaFile)
}

// writeAtomic writes data to a temp file in the target directory, syncs it
// and renames it over path.
func writeAtomic(path string, data []byte) error {
	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := f.Name()
	cleanup := func() {
		f.Close()
		os.Remove(tmpPath)
	}
	if _, err := f.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
