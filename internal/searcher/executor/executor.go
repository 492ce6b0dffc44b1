package executor

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/classifier"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/tracing"
)

const (
	DefaultLimit = 20
	// DefaultQualityFloor is the score at or below which a match is never
	// returned, whatever MinScore the caller asks for.
	DefaultQualityFloor = 10.0
)

// DocumentSource is the read side of the index store.
type DocumentSource interface {
	All() []*index.Document
}

// Options tune a single search. The zero value searches every section with
// the default limit and includes document metadata.
type Options struct {
	Limit           int      `json:"limit,omitempty"`
	Section         string   `json:"section,omitempty"`
	MinScore        float64  `json:"min_score,omitempty"`
	OmitMetadata    bool     `json:"omit_metadata,omitempty"`
	ContextualTerms []string `json:"contextual_terms,omitempty"`
}

// Result is a document with its score and best matching excerpt.
type Result struct {
	index.Document
	Score   float64 `json:"score"`
	Excerpt string  `json:"excerpt"`
}

type Response struct {
	Query          string   `json:"query"`
	Terms          []string `json:"terms"`
	Tags           []string `json:"tags"`
	TotalMatches   int      `json:"total_matches"`
	Results        []Result `json:"results"`
	SourcesSummary []string `json:"sources_summary"`
}

type Option func(*Executor)

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Executor) { e.metrics = m }
}

// WithClock sets the time used for recency bonuses.
func WithClock(now func() time.Time) Option {
	return func(e *Executor) { e.now = now }
}

type Executor struct {
	source       DocumentSource
	scorer       *ranker.Scorer
	defaultLimit int
	maxResults   int
	qualityFloor float64
	metrics      *metrics.Metrics
	now          func() time.Time
	logger       *slog.Logger
}

func New(source DocumentSource, cfg config.SearchConfig, opts ...Option) *Executor {
	e := &Executor{
		source:       source,
		scorer:       ranker.NewScorer(cfg.Weights, cfg.ImportantSections),
		defaultLimit: cfg.DefaultLimit,
		maxResults:   cfg.MaxResults,
		qualityFloor: cfg.QualityFloor,
		now:          time.Now,
		logger:       slog.Default().With("component", "query-executor"),
	}
	if e.defaultLimit <= 0 {
		e.defaultLimit = DefaultLimit
	}
	if e.qualityFloor <= 0 {
		e.qualityFloor = DefaultQualityFloor
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type candidate struct {
	doc   *index.Document
	score float64
}

// Search ranks the current index against query. It never fails: an empty
// query or an empty index yields an empty response, and a record that
// cannot be scored is left out.
func (e *Executor) Search(ctx context.Context, query string, opts Options) *Response {
	limit := opts.Limit
	if limit <= 0 {
		limit = e.defaultLimit
	}
	if e.maxResults > 0 && limit > e.maxResults {
		limit = e.maxResults
	}

	_, span := tracing.StartChildSpan(ctx, "search.preprocess")
	q := parser.Preprocess(query)
	span.SetAttr("terms", len(q.Terms))
	span.End()

	_, span = tracing.StartChildSpan(ctx, "search.classify")
	tags := classifier.Classify(query)
	span.End()

	resp := &Response{
		Query:          query,
		Terms:          q.Terms,
		Tags:           tagStrings(tags),
		Results:        []Result{},
		SourcesSummary: []string{},
	}
	if q.Empty() && len(opts.ContextualTerms) == 0 {
		e.observe(resp)
		return resp
	}

	_, span = tracing.StartChildSpan(ctx, "search.score")
	in := ranker.Input{
		Query:           q,
		Tags:            tags,
		ContextualTerms: opts.ContextualTerms,
		Now:             e.now(),
	}
	candidates := make([]candidate, 0, 64)
	for _, doc := range e.source.All() {
		if opts.Section != "" && (doc == nil || doc.Section != opts.Section) {
			continue
		}
		score, ok := e.scoreOne(doc, in)
		if !ok || score <= e.qualityFloor || score < opts.MinScore {
			continue
		}
		candidates = append(candidates, candidate{doc: doc, score: score})
	}
	span.SetAttr("candidates", len(candidates))
	span.End()

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	resp.TotalMatches = len(candidates)
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	for _, c := range candidates {
		result := Result{
			Document: *c.doc,
			Score:    c.score,
			Excerpt:  ranker.Excerpt(c.doc.Content, q.Terms),
		}
		if opts.OmitMetadata {
			result.Metadata = index.Metadata{}
			result.Keywords = nil
			result.FilePath = ""
			result.FullPath = ""
		}
		resp.Results = append(resp.Results, result)
	}
	resp.SourcesSummary = SourcesSummary(resp.Results)

	e.logger.Debug("query executed",
		"query", query,
		"terms", q.Terms,
		"tags", resp.Tags,
		"matches", resp.TotalMatches,
		"results", len(resp.Results),
	)
	e.observe(resp)
	return resp
}

// scoreOne excludes a record whose scoring panics instead of failing the
// whole search.
func (e *Executor) scoreOne(doc *index.Document, in ranker.Input) (score float64, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			id := "<nil>"
			if doc != nil {
				id = doc.ID
			}
			e.logger.Warn("excluding document that failed to score", "id", id, "panic", r)
			score, ok = 0, false
		}
	}()
	return e.scorer.Score(doc, in)
}

func (e *Executor) observe(resp *Response) {
	if e.metrics == nil {
		return
	}
	resultType := "hit"
	if len(resp.Results) == 0 {
		resultType = "zero_result"
	}
	e.metrics.SearchQueriesTotal.WithLabelValues(resultType).Inc()
	e.metrics.SearchResultsCount.Observe(float64(len(resp.Results)))
}

// SourcesSummary describes, once per section in first-seen order, which
// documentation area the results came from.
func SourcesSummary(results []Result) []string {
	var order []string
	titles := make(map[string][]string)
	for _, r := range results {
		section := r.Section
		if section == "" {
			section = "general"
		}
		if _, ok := titles[section]; !ok {
			order = append(order, section)
		}
		titles[section] = append(titles[section], r.Title)
	}
	summary := make([]string, 0, len(order))
	for _, section := range order {
		t := titles[section]
		noun := "result"
		if len(t) > 1 {
			noun = "results"
		}
		summary = append(summary, fmt.Sprintf("%s documentation (%d %s): %s",
			section, len(t), noun, strings.Join(t, ", ")))
	}
	return summary
}

func tagStrings(tags []classifier.Tag) []string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = string(t)
	}
	return out
}
