// Package trigger starts re-indexing runs in response to requests published
// on the reindex Kafka topic.
package trigger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/kafka"
)

const triggerPrefix = "kafka"

// ReindexRequest is the message payload on the reindex topic.
type ReindexRequest struct {
	Reason      string    `json:"reason"`
	RequestedBy string    `json:"requested_by,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

// Refresher starts a background indexing run.
type Refresher interface {
	RefreshAsync(trigger string) error
}

// Trigger wraps a Kafka consumer whose handler is HandleMessage.
type Trigger struct {
	consumer *kafka.Consumer
	logger   *slog.Logger
}

func New(consumer *kafka.Consumer) *Trigger {
	return &Trigger{
		consumer: consumer,
		logger:   slog.Default().With("component", "reindex-trigger"),
	}
}

// Start consumes reindex requests until ctx is cancelled.
func (t *Trigger) Start(ctx context.Context) error {
	t.logger.Info("reindex trigger starting")
	return t.consumer.Start(ctx)
}

// HandleMessage returns a handler that starts a run per request. A request
// arriving while a run is active is absorbed by that run and acknowledged.
func HandleMessage(r Refresher) kafka.MessageHandler {
	logger := slog.Default().With("component", "reindex-trigger")
	return func(ctx context.Context, key []byte, value []byte) error {
		req, err := kafka.DecodeJSON[ReindexRequest](value)
		if err != nil {
			logger.Error("dropping malformed reindex request", "key", string(key), "error", err)
			return nil
		}
		trigger := triggerPrefix
		if req.Reason != "" {
			trigger = fmt.Sprintf("%s:%s", triggerPrefix, req.Reason)
		}
		if err := r.RefreshAsync(trigger); err != nil {
			if errors.Is(err, apperrors.ErrIndexingInProgress) {
				logger.Info("reindex request coalesced into running indexing run",
					"reason", req.Reason,
					"requested_by", req.RequestedBy,
				)
				return nil
			}
			return fmt.Errorf("starting reindex: %w", err)
		}
		logger.Info("reindex started from request",
			"reason", req.Reason,
			"requested_by", req.RequestedBy,
		)
		return nil
	}
}
