package index

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SetGetReplace(t *testing.T) {
	s := NewStore()
	first := &Document{ID: "a", Title: "first", Section: "hr"}
	second := &Document{ID: "a", Title: "second", Section: "hr"}

	assert.Nil(t, s.Set("a", first))
	assert.Same(t, first, s.Set("a", second))

	got, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, "second", got.Title)
	assert.Equal(t, 1, s.Size())

	_, ok = s.Get("missing")
	assert.False(t, ok)
}

func TestStore_AllKeepsInsertionOrder(t *testing.T) {
	s := NewStore()
	for _, id := range []string{"c", "a", "b"} {
		s.Set(id, &Document{ID: id})
	}
	// Replacing keeps the original position.
	s.Set("c", &Document{ID: "c", Title: "updated"})

	var ids []string
	for _, d := range s.All() {
		ids = append(ids, d.ID)
	}
	assert.Equal(t, []string{"c", "a", "b"}, ids)

	s.Delete("c")
	s.Set("c", &Document{ID: "c"})
	ids = ids[:0]
	for _, d := range s.All() {
		ids = append(ids, d.ID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestStore_SectionsAndReset(t *testing.T) {
	s := NewStore()
	s.Set("1", &Document{ID: "1", Section: "hr"})
	s.Set("2", &Document{ID: "2", Section: "hr"})
	s.Set("3", &Document{ID: "3", Section: "sales"})

	assert.Equal(t, map[string]int{"hr": 2, "sales": 1}, s.Sections())

	s.Reset()
	assert.Zero(t, s.Size())
	assert.Empty(t, s.All())
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(2)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				id := fmt.Sprintf("doc-%d-%d", w, i)
				s.Set(id, &Document{ID: id})
			}
		}(w)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				_ = s.All()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 400, s.Size())
}

func TestDocument_Synthetic(t *testing.T) {
	assert.True(t, (&Document{Metadata: Metadata{Source: SourceSynthetic}}).Synthetic())
	assert.False(t, (&Document{Metadata: Metadata{Source: SourceCorpus}}).Synthetic())
}
