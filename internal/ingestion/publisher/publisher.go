// Package publisher turns catalog source updates into messages on the
// catalog-updates topic. Every daemon consuming the topic applies them to
// its own catalog, so one upload reaches all of them.
package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/launchrank/internal/catalog"
	apperrors "github.com/Adithya-Monish-Kumar-K/launchrank/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/launchrank/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/launchrank/pkg/resilience"
)

// Producer writes events to Kafka. *kafka.Producer implements it.
type Producer interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// Publisher is a catalog.Sink that validates updates and publishes them
// keyed by source id, so updates to one source stay ordered.
type Publisher struct {
	producer Producer
	retry    resilience.RetryConfig
	now      func() time.Time
	logger   *slog.Logger
}

var _ catalog.Sink = (*Publisher)(nil)

// New creates a Publisher. Failed writes are retried according to retry.
func New(producer Producer, retry resilience.RetryConfig) *Publisher {
	return &Publisher{
		producer: producer,
		retry:    retry,
		now:      time.Now,
		logger:   slog.Default().With("component", "catalog-publisher"),
	}
}

// Apply validates update, stamps it and publishes it.
func (p *Publisher) Apply(ctx context.Context, update catalog.SourceUpdate) error {
	if err := catalog.Validate(&update); err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrInvalidInput, err)
	}
	if update.UpdatedAt.IsZero() {
		update.UpdatedAt = p.now().UTC()
	}

	event := kafka.Event{Key: update.Source, Value: update}
	err := resilience.Retry(ctx, "publish-source-update", p.retry, func(ctx context.Context) error {
		return p.producer.Publish(ctx, event)
	})
	if err != nil {
		p.logger.Error("failed to publish source update",
			"source", update.Source,
			"deleted", update.Deleted,
			"error", err,
		)
		return fmt.Errorf("publishing update for %q: %w: %w", update.Source, apperrors.ErrStoreUnavailable, err)
	}
	p.logger.Info("source update published",
		"source", update.Source,
		"deleted", update.Deleted,
		"items", len(update.Items),
	)
	return nil
}
