package analytics

import "time"

type EventType string

const (
	EventSearch     EventType = "search"
	EventCacheHit   EventType = "cache_hit"
	EventCacheMiss  EventType = "cache_miss"
	EventZeroResult EventType = "zero_result"
	EventIndexRun   EventType = "index_run"
)

type SearchEvent struct {
	Type         EventType `json:"type"`
	Query        string    `json:"query"`
	Terms        []string  `json:"terms"`
	Tags         []string  `json:"tags"`
	Section      string    `json:"section,omitempty"`
	TotalMatches int       `json:"total_matches"`
	Returned     int       `json:"returned"`
	LatencyMs    int64     `json:"latency_ms"`
	CacheHit     bool      `json:"cache_hit"`
	Timestamp    time.Time `json:"timestamp"`
	RequestID    string    `json:"request_id,omitempty"`
}

// IndexEvent is published once per indexing run.
type IndexEvent struct {
	Type       EventType `json:"type"`
	RunID      string    `json:"run_id"`
	Trigger    string    `json:"trigger"`
	Status     string    `json:"status"`
	Files      int       `json:"files"`
	Indexed    int64     `json:"indexed"`
	Failed     int64     `json:"failed"`
	Bytes      int64     `json:"bytes"`
	Documents  int       `json:"documents"`
	DurationMs int64     `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}
