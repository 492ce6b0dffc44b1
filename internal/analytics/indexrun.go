package analytics

import (
	"context"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/resilience"
)

// NewIndexEvent converts an indexing run into its published form.
func NewIndexEvent(run indexer.Run) IndexEvent {
	return IndexEvent{
		Type:       EventIndexRun,
		RunID:      run.ID,
		Trigger:    run.Trigger,
		Status:     run.Status,
		Files:      run.Files,
		Indexed:    run.Indexed,
		Failed:     run.Failed,
		Bytes:      run.Bytes,
		Documents:  run.Documents,
		DurationMs: run.FinishedAt.Sub(run.StartedAt).Milliseconds(),
		Error:      run.Error,
		Timestamp:  run.FinishedAt,
	}
}

// IndexRunHook records each run in agg (when non-nil) and publishes it
// through publisher (when non-nil).
func IndexRunHook(agg *Aggregator, publisher Publisher) indexer.RunHook {
	logger := slog.Default().With("component", "index-run-publisher")
	return func(ctx context.Context, run indexer.Run) {
		event := NewIndexEvent(run)
		if agg != nil {
			agg.RecordIndexRun(event)
		}
		if publisher == nil {
			return
		}
		err := resilience.Retry(ctx, "publish-index-event", resilience.RetryConfig{MaxAttempts: 3}, func() error {
			return publisher.Publish(ctx, kafka.Event{Key: run.ID, Value: event})
		})
		if err != nil {
			logger.Error("failed to publish index event", "run_id", run.ID, "error", err)
		}
	}
}
