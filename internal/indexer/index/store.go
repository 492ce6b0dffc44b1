package index

import (
	"sort"
	"sync"
)

// Store maps document ids to documents. Readers and the indexing run share
// it; writes overwrite in place so a query during a rebuild sees a mix of
// fresh and stale records but never a cleared index.
type Store struct {
	mu    sync.RWMutex
	docs  map[string]*Document
	order map[string]int
	seq   int
}

func NewStore() *Store {
	return &Store{
		docs:  make(map[string]*Document),
		order: make(map[string]int),
	}
}

// Set stores doc under id and returns the record it replaced, if any.
func (s *Store) Set(id string, doc *Document) (replaced *Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	replaced = s.docs[id]
	s.docs[id] = doc
	if _, ok := s.order[id]; !ok {
		s.order[id] = s.seq
		s.seq++
	}
	return replaced
}

func (s *Store) Get(id string) (*Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	return doc, ok
}

func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, id)
	delete(s.order, id)
}

// All returns every document in first-insertion order.
func (s *Store) All() []*Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.docs))
	for id := range s.docs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return s.order[ids[i]] < s.order[ids[j]]
	})
	result := make([]*Document, len(ids))
	for i, id := range ids {
		result[i] = s.docs[id]
	}
	return result
}

func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// Sections counts documents per section.
func (s *Store) Sections() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[string]int)
	for _, doc := range s.docs {
		counts[doc.Section]++
	}
	return counts
}

func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = make(map[string]*Document)
	s.order = make(map[string]int)
	s.seq = 0
}
