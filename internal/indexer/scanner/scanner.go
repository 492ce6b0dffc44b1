// Package scanner walks the documentation corpus and returns the files the
// indexer should parse.
package scanner

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// DefaultExtensions are the two documentation dialects the parser understands.
var DefaultExtensions = []string{".rst", ".md"}

// DefaultMaxFileSize is the largest file the scanner will return.
const DefaultMaxFileSize int64 = 1 << 20

type Scanner struct {
	extensions  map[string]struct{}
	maxFileSize int64
	logger      *slog.Logger
}

// New creates a Scanner accepting the given extensions (case-insensitive,
// with leading dot). A non-positive maxFileSize selects DefaultMaxFileSize.
func New(extensions []string, maxFileSize int64) *Scanner {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	exts := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		exts[strings.ToLower(ext)] = struct{}{}
	}
	return &Scanner{
		extensions:  exts,
		maxFileSize: maxFileSize,
		logger:      slog.Default().With("component", "corpus-scanner"),
	}
}

// Scan returns the absolute paths of eligible files under root in walk
// order. A missing or unreadable root yields an empty list.
func (s *Scanner) Scan(root string) []string {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		s.logger.Warn("cannot resolve corpus root", "root", root, "error", err)
		return []string{}
	}
	info, err := os.Stat(absRoot)
	if err != nil || !info.IsDir() {
		s.logger.Warn("corpus root not readable, nothing to scan", "root", absRoot, "error", err)
		return []string{}
	}

	files := make([]string, 0, 256)
	oversized := 0
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == absRoot {
				return err
			}
			s.logger.Warn("skipping unreadable path", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !s.Accepts(path) {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			s.logger.Warn("skipping file without stat", "path", path, "error", err)
			return nil
		}
		if fi.Size() > s.maxFileSize {
			oversized++
			s.logger.Info("skipping oversized file",
				"path", path,
				"size", fi.Size(),
				"limit", s.maxFileSize,
			)
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		s.logger.Warn("corpus walk aborted", "root", absRoot, "error", err)
		return []string{}
	}
	s.logger.Info("corpus scan complete",
		"root", absRoot,
		"eligible", len(files),
		"oversized", oversized,
	)
	return files
}

// Accepts reports whether path has a supported extension.
func (s *Scanner) Accepts(path string) bool {
	_, ok := s.extensions[strings.ToLower(filepath.Ext(path))]
	return ok
}
