package executor

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/docparser"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
)

var fixedNow = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

const leaveSource = `---
title: Leave Configuration
---
Configure leave types, allocations and approval rules so employees can request
time off. Each leave type decides whether an allocation is required and who
validates the leave request. Approved leave appears in the shared calendar and
the remaining leave balance is updated.
`

const pipelineSource = `Sales Pipeline
==============

Track opportunities through the stages of the pipeline. Each opportunity moves
from qualification to won when the customer signs the quotation and pays.
`

func newExecutor(source DocumentSource, cfg config.SearchConfig) *Executor {
	return New(source, cfg, WithClock(func() time.Time { return fixedNow }))
}

func parsedStore(t *testing.T) *index.Store {
	t.Helper()
	p := docparser.New(0, 0)
	store := index.NewStore()
	sources := []docparser.Source{
		{RelPath: "hr/leave_configuration.md", Content: []byte(leaveSource), ModTime: fixedNow.AddDate(0, -1, 0)},
		{RelPath: "sales/pipeline.rst", Content: []byte(pipelineSource), ModTime: fixedNow.AddDate(0, -1, 0)},
		{RelPath: "hr/stub.md", Content: []byte("# Stub\n\nToo short."), ModTime: fixedNow},
	}
	for _, src := range sources {
		doc, err := p.Parse(src)
		require.NoError(t, err)
		if doc != nil {
			store.Set(doc.ID, doc)
		}
	}
	require.Equal(t, 2, store.Size())
	return store
}

func testDoc(id, section, title, content string) *index.Document {
	return &index.Document{
		ID:        id,
		FilePath:  id + ".rst",
		FullPath:  "/corpus/" + id + ".rst",
		Title:     title,
		Content:   content,
		Section:   section,
		Keywords:  []string{section},
		WordCount: 300,
		Metadata:  index.Metadata{Parser: "rst", Source: index.SourceCorpus},
	}
}

func storeOf(docs ...*index.Document) *index.Store {
	s := index.NewStore()
	for _, d := range docs {
		s.Set(d.ID, d)
	}
	return s
}

func TestSearch_FrenchQueryFindsEnglishDoc(t *testing.T) {
	resp := newExecutor(parsedStore(t), config.SearchConfig{}).Search(context.Background(), "congé", Options{})

	assert.Equal(t, "congé", resp.Query)
	assert.Contains(t, resp.Terms, "leave")
	require.Equal(t, 1, resp.TotalMatches)
	require.Len(t, resp.Results, 1)

	top := resp.Results[0]
	assert.Equal(t, "Leave Configuration", top.Title)
	assert.Equal(t, "hr", top.Section)
	assert.Greater(t, top.Score, DefaultQualityFloor)
	assert.Contains(t, strings.ToLower(top.Excerpt), "leave")

	require.Len(t, resp.SourcesSummary, 1)
	assert.Equal(t, "hr documentation (1 result): Leave Configuration", resp.SourcesSummary[0])
}

func TestSearch_QualityFloorDropsWeakMatches(t *testing.T) {
	weak := testDoc("weak", "general", "Rules", "this page mentions payroll once")
	weak.WordCount = 20

	resp := newExecutor(storeOf(weak), config.SearchConfig{}).Search(context.Background(), "payroll zzzz", Options{})
	assert.Zero(t, resp.TotalMatches)
	assert.Empty(t, resp.Results)
	assert.NotNil(t, resp.Results)
}

func TestSearch_SectionFilter(t *testing.T) {
	store := storeOf(
		testDoc("hr_payroll", "hr", "Payroll", "payroll settings for employees"),
		testDoc("acc_payroll", "accounting", "Payroll", "payroll journal entries"),
	)
	resp := newExecutor(store, config.SearchConfig{}).Search(context.Background(), "payroll", Options{Section: "accounting"})
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "acc_payroll", resp.Results[0].ID)
}

func TestSearch_LimitAndTotalMatches(t *testing.T) {
	var docs []*index.Document
	for i := range 5 {
		docs = append(docs, testDoc(fmt.Sprintf("doc%d", i), "hr", "Payroll", "payroll rules"))
	}
	store := storeOf(docs...)

	resp := newExecutor(store, config.SearchConfig{MaxResults: 3}).Search(context.Background(), "payroll", Options{Limit: 2})
	assert.Equal(t, 5, resp.TotalMatches)
	assert.Len(t, resp.Results, 2)

	resp = newExecutor(store, config.SearchConfig{MaxResults: 3}).Search(context.Background(), "payroll", Options{Limit: 10})
	assert.Equal(t, 5, resp.TotalMatches)
	assert.Len(t, resp.Results, 3)
}

func TestSearch_TiesKeepInsertionOrder(t *testing.T) {
	store := storeOf(
		testDoc("c", "hr", "Payroll", "payroll rules"),
		testDoc("a", "hr", "Payroll", "payroll rules"),
		testDoc("b", "hr", "Payroll", "payroll rules"),
	)
	exec := newExecutor(store, config.SearchConfig{})
	for range 5 {
		resp := exec.Search(context.Background(), "payroll", Options{})
		require.Len(t, resp.Results, 3)
		assert.Equal(t, "c", resp.Results[0].ID)
		assert.Equal(t, "a", resp.Results[1].ID)
		assert.Equal(t, "b", resp.Results[2].ID)
	}
}

func TestSearch_OrderedByScore(t *testing.T) {
	store := storeOf(
		testDoc("content", "general", "Rules", "payroll payroll rules"),
		testDoc("title", "general", "Payroll", "payroll rules"),
	)
	resp := newExecutor(store, config.SearchConfig{}).Search(context.Background(), "payroll", Options{})
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "title", resp.Results[0].ID)
	assert.GreaterOrEqual(t, resp.Results[0].Score, resp.Results[1].Score)
}

func TestSearch_MinScore(t *testing.T) {
	store := storeOf(testDoc("p", "hr", "Payroll", "payroll rules"))
	exec := newExecutor(store, config.SearchConfig{})

	assert.Len(t, exec.Search(context.Background(), "payroll", Options{}).Results, 1)
	assert.Empty(t, exec.Search(context.Background(), "payroll", Options{MinScore: 999}).Results)
}

func TestSearch_OmitMetadata(t *testing.T) {
	store := storeOf(testDoc("p", "hr", "Payroll", "payroll rules"))
	resp := newExecutor(store, config.SearchConfig{}).Search(context.Background(), "payroll", Options{OmitMetadata: true})
	require.Len(t, resp.Results, 1)

	r := resp.Results[0]
	assert.Equal(t, "Payroll", r.Title)
	assert.Empty(t, r.FilePath)
	assert.Empty(t, r.FullPath)
	assert.Nil(t, r.Keywords)
	assert.Equal(t, index.Metadata{}, r.Metadata)

	orig, _ := store.Get("p")
	assert.Equal(t, "p.rst", orig.FilePath, "stored document must not be modified")
}

func TestSearch_EmptyQuery(t *testing.T) {
	store := storeOf(testDoc("p", "hr", "Payroll", "payroll rules"))
	for _, q := range []string{"", "   ", "le la de", "?!"} {
		resp := newExecutor(store, config.SearchConfig{}).Search(context.Background(), q, Options{})
		assert.Zero(t, resp.TotalMatches, "query %q", q)
		assert.NotNil(t, resp.Results)
		assert.NotNil(t, resp.SourcesSummary)
	}
}

func TestSearch_EmptyIndex(t *testing.T) {
	resp := newExecutor(index.NewStore(), config.SearchConfig{}).Search(context.Background(), "payroll", Options{})
	assert.Zero(t, resp.TotalMatches)
	assert.Empty(t, resp.Results)
}

type sliceSource []*index.Document

func (s sliceSource) All() []*index.Document { return s }

func TestSearch_UnscorableRecordIsExcluded(t *testing.T) {
	source := sliceSource{nil, testDoc("p", "hr", "Payroll", "payroll rules")}
	resp := newExecutor(source, config.SearchConfig{}).Search(context.Background(), "payroll", Options{})
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "p", resp.Results[0].ID)

	resp = newExecutor(source, config.SearchConfig{}).Search(context.Background(), "payroll", Options{Section: "hr"})
	assert.Len(t, resp.Results, 1)
}

func TestSourcesSummary(t *testing.T) {
	results := []Result{
		{Document: index.Document{Title: "Payslips", Section: "hr"}},
		{Document: index.Document{Title: "Invoices", Section: "accounting"}},
		{Document: index.Document{Title: "Leaves", Section: "hr"}},
		{Document: index.Document{Title: "Misc"}},
	}
	assert.Equal(t, []string{
		"hr documentation (2 results): Payslips, Leaves",
		"accounting documentation (1 result): Invoices",
		"general documentation (1 result): Misc",
	}, SourcesSummary(results))
	assert.Empty(t, SourcesSummary(nil))
}
