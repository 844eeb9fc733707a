package catalog

import (
	"context"
	"errors"
	"log/slog"

	apperrors "github.com/Adithya-Monish-Kumar-K/launchrank/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/launchrank/pkg/kafka"
)

// HandleUpdate returns a Kafka MessageHandler that applies catalog-updates
// messages to sink. Messages that can never succeed (bad JSON, invalid
// updates, deletes of unknown sources) are logged and committed.
func HandleUpdate(sink Sink) kafka.MessageHandler {
	logger := slog.Default().With("component", "catalog-consumer")
	return func(ctx context.Context, key []byte, value []byte) error {
		update, err := kafka.DecodeJSON[SourceUpdate](value)
		if err != nil {
			logger.Error("failed to decode source update", "error", err, "key", string(key))
			return nil
		}
		if err := sink.Apply(ctx, update); err != nil {
			if errors.Is(err, apperrors.ErrInvalidInput) || errors.Is(err, apperrors.ErrSourceNotFound) {
				logger.Warn("source update rejected", "source", update.Source, "error", err)
				return nil
			}
			return err
		}
		logger.Debug("source update applied", "source", update.Source, "deleted", update.Deleted, "items", len(update.Items))
		return nil
	}
}
