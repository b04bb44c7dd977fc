package events

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/simaogato/shiftescrow-backend/internal/domain"
)

// OutboxWorker relays stored events to a Publisher.
// Delivery is at least once: an event is marked published only after the publisher accepted it.
type OutboxWorker struct {
	logger      *slog.Logger
	txm         domain.TxManager
	outbox      domain.OutboxRepository
	publisher   Publisher
	interval    time.Duration
	batchSize   int
	maxAttempts int
	now         func() time.Time
}

func NewOutboxWorker(logger *slog.Logger, txm domain.TxManager, outbox domain.OutboxRepository, publisher Publisher, interval time.Duration, batchSize int) *OutboxWorker {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &OutboxWorker{
		logger: logger, txm: txm, outbox: outbox, publisher: publisher,
		interval: interval, batchSize: batchSize, maxAttempts: 10, now: time.Now,
	}
}

func (w *OutboxWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		if _, err := w.ProcessOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.logger.ErrorContext(ctx, "outbox iteration failed",
				"module", "events.outbox_worker",
				"layer", "adapter",
				"operation", "process_once",
				"outcome", "failure",
				"error", err,
			)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// ProcessOnce relays one batch and returns how many events were published.
// Records that exhausted their attempts stay in the outbox for manual replay.
func (w *OutboxWorker) ProcessOnce(ctx context.Context) (int, error) {
	published := 0
	err := w.txm.WithinTx(ctx, func(ctx context.Context) error {
		records, err := w.outbox.FetchPending(ctx, w.batchSize, w.maxAttempts)
		if err != nil {
			return err
		}
		for _, rec := range records {
			if err := w.publisher.Publish(ctx, rec.Event); err != nil {
				w.logger.WarnContext(ctx, "event relay failed",
					"module", "events.outbox_worker",
					"layer", "adapter",
					"operation", "publish",
					"outcome", "failure",
					"event_id", rec.Event.ID.String(),
					"event_type", string(rec.Event.Type),
					"attempt", rec.Attempts+1,
					"error", err,
				)
				if err := w.outbox.MarkFailed(ctx, rec.Event.ID, err.Error()); err != nil {
					return err
				}
				continue
			}
			if err := w.outbox.MarkPublished(ctx, rec.Event.ID, w.now().UTC()); err != nil {
				return err
			}
			published++
		}
		return nil
	})
	return published, err
}
