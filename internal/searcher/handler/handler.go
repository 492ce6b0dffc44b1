package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/executor"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/tracing"
)

type Searcher interface {
	Search(ctx context.Context, query string, opts executor.Options) *executor.Response
}

// IndexEngine is the part of the indexing engine the API exposes.
type IndexEngine interface {
	Stats() indexer.Stats
	RefreshAsync(trigger string) error
	IndexingInProgress() bool
}

type RunLister interface {
	Recent(ctx context.Context, limit int) ([]indexer.Run, error)
}

type Option func(*Handler)

func WithCache(c *cache.QueryCache) Option {
	return func(h *Handler) { h.cache = c }
}

func WithCollector(c *analytics.Collector) Option {
	return func(h *Handler) { h.collector = c }
}

func WithAggregator(a *analytics.Aggregator) Option {
	return func(h *Handler) { h.aggregator = a }
}

func WithRunLog(r RunLister) Option {
	return func(h *Handler) { h.runs = r }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) { h.metrics = m }
}

// WithTracing logs a span tree for a sampled fraction of searches.
func WithTracing(sampleRate float64) Option {
	return func(h *Handler) { h.traceSampleRate = sampleRate }
}

type Handler struct {
	searcher        Searcher
	engine          IndexEngine
	cache           *cache.QueryCache
	collector       *analytics.Collector
	aggregator      *analytics.Aggregator
	runs            RunLister
	metrics         *metrics.Metrics
	traceSampleRate float64
	traceCount      atomic.Uint64
	defaultLimit    int
	maxResults      int
	logger          *slog.Logger
}

func New(searcher Searcher, engine IndexEngine, defaultLimit, maxResults int, opts ...Option) *Handler {
	h := &Handler{
		searcher:     searcher,
		engine:       engine,
		defaultLimit: defaultLimit,
		maxResults:   maxResults,
		logger:       slog.Default().With("component", "search-handler"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts every endpoint on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/stats", h.Stats)
	mux.HandleFunc("POST /api/v1/reindex", h.Reindex)
	mux.HandleFunc("GET /api/v1/runs", h.Runs)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
	if h.aggregator != nil {
		mux.HandleFunc("GET /api/v1/analytics", analytics.NewHandler(h.aggregator).Stats)
	}
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		h.writeError(w, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "query parameter 'q' is required"))
		return
	}
	opts, err := h.parseOptions(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var span *tracing.Span
	if h.sampled() {
		ctx, span = tracing.StartSpan(ctx, "search", logger.RequestID(ctx))
	}

	var resp *executor.Response
	cacheHit := false
	cacheStatus := "bypass"
	compute := func() *executor.Response { return h.searcher.Search(ctx, query, opts) }
	if h.cache != nil && !h.engine.IndexingInProgress() {
		resp, cacheHit = h.cache.GetOrCompute(ctx, query, opts, compute)
		cacheStatus = "miss"
		if cacheHit {
			cacheStatus = "hit"
		}
	} else {
		resp = compute()
	}

	if span != nil {
		span.SetAttr("cache", cacheStatus)
		span.SetAttr("results", len(resp.Results))
		span.End()
		span.Log()
	}

	latency := time.Since(start)
	if h.metrics != nil {
		h.metrics.SearchLatency.WithLabelValues(cacheStatus).Observe(latency.Seconds())
		if cacheHit {
			h.metrics.CacheHitsTotal.Inc()
		} else if cacheStatus == "miss" {
			h.metrics.CacheMissesTotal.Inc()
		}
	}
	log.Info("search completed",
		"query", query,
		"tags", resp.Tags,
		"matches", resp.TotalMatches,
		"returned", len(resp.Results),
		"cache", cacheStatus,
		"latency_ms", latency.Milliseconds(),
	)
	h.track(ctx, resp, opts, cacheHit, latency)
	w.Header().Set("X-Cache", cacheStatus)
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) parseOptions(r *http.Request) (executor.Options, error) {
	q := r.URL.Query()
	opts := executor.Options{
		Limit:   h.defaultLimit,
		Section: strings.TrimSpace(q.Get("section")),
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return opts, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "limit must be a positive integer")
		}
		opts.Limit = min(n, h.maxResults)
	}
	if v := q.Get("min_score"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			return opts, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "min_score must be a non-negative number")
		}
		opts.MinScore = f
	}
	if v := q.Get("metadata"); v != "" {
		include, err := strconv.ParseBool(v)
		if err != nil {
			return opts, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "metadata must be a boolean")
		}
		opts.OmitMetadata = !include
	}
	for _, v := range q["context"] {
		for _, term := range strings.Split(v, ",") {
			if term = strings.TrimSpace(term); term != "" {
				opts.ContextualTerms = append(opts.ContextualTerms, term)
			}
		}
	}
	return opts, nil
}

func (h *Handler) track(ctx context.Context, resp *executor.Response, opts executor.Options, cacheHit bool, latency time.Duration) {
	if h.collector == nil && h.aggregator == nil {
		return
	}
	eventType := analytics.EventCacheMiss
	switch {
	case len(resp.Results) == 0:
		eventType = analytics.EventZeroResult
	case cacheHit:
		eventType = analytics.EventCacheHit
	}
	event := analytics.SearchEvent{
		Type:         eventType,
		Query:        resp.Query,
		Terms:        resp.Terms,
		Tags:         resp.Tags,
		Section:      opts.Section,
		TotalMatches: resp.TotalMatches,
		Returned:     len(resp.Results),
		LatencyMs:    latency.Milliseconds(),
		CacheHit:     cacheHit,
		Timestamp:    time.Now().UTC(),
		RequestID:    logger.RequestID(ctx),
	}
	if h.aggregator != nil {
		h.aggregator.RecordSearch(event)
	}
	if h.collector != nil {
		h.collector.Track(event)
	}
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.engine.Stats())
}

// Reindex starts a background run and answers 202, or 409 when one is
// already running.
func (h *Handler) Reindex(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.RefreshAsync("api"); err != nil {
		if !errors.Is(err, apperrors.ErrIndexingInProgress) {
			logger.FromContext(r.Context()).Error("reindex request failed", "error", err)
		}
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusAccepted, map[string]string{"status": "indexing started"})
}

func (h *Handler) Runs(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = min(n, 200)
		}
	}
	runs, err := h.runs.Recent(r.Context(), limit)
	if err != nil {
		logger.FromContext(r.Context()).Error("listing index runs failed", "error", err)
		h.writeError(w, fmt.Errorf("%w: listing index runs", apperrors.ErrInternal))
		return
	}
	h.writeJSON(w, http.StatusOK, runs)
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, apperrors.New(apperrors.ErrInvalidInput, http.StatusServiceUnavailable, "caching is disabled"))
		return
	}
	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, fmt.Errorf("%w: cache invalidation failed", apperrors.ErrInternal))
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) sampled() bool {
	if h.traceSampleRate <= 0 {
		return false
	}
	if h.traceSampleRate >= 1 {
		return true
	}
	every := uint64(1 / h.traceSampleRate)
	return every > 0 && h.traceCount.Add(1)%every == 0
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	message := err.Error()
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
	}
	h.writeJSON(w, apperrors.HTTPStatusCode(err), map[string]string{"error": message})
}
