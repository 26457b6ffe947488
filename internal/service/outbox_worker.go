package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/iyhunko/product-catalog/internal/metrics"
	"github.com/iyhunko/product-catalog/internal/model"
	"github.com/iyhunko/product-catalog/internal/repository"
	"github.com/iyhunko/product-catalog/internal/sqs"
)

// ProductPublisher delivers product messages to the queue.
type ProductPublisher interface {
	PublishProductMessage(ctx context.Context, msg sqs.ProductMessage) error
}

// OutboxWorker polls the events table and publishes pending events
type OutboxWorker struct {
	events    repository.EventRepository
	publisher ProductPublisher
	interval  time.Duration
	batchSize int
	stopChan  chan struct{}
	done      chan struct{}
}

// NewOutboxWorker creates a new OutboxWorker
func NewOutboxWorker(events repository.EventRepository, publisher ProductPublisher, interval time.Duration, batchSize int) *OutboxWorker {
	return &OutboxWorker{
		events:    events,
		publisher: publisher,
		interval:  interval,
		batchSize: batchSize,
		stopChan:  make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start processes events every interval until the context is cancelled or Stop is called.
func (w *OutboxWorker) Start(ctx context.Context) {
	defer close(w.done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	slog.Info("Outbox worker started", slog.Duration("interval", w.interval), slog.Int("batch_size", w.batchSize))

	for {
		select {
		case <-ctx.Done():
			slog.Info("Outbox worker stopped by context")
			return
		case <-w.stopChan:
			slog.Info("Outbox worker stopped")
			return
		case <-ticker.C:
			w.ProcessEvents(ctx)
		}
	}
}

// Stop asks the worker to return after the batch in flight.
func (w *OutboxWorker) Stop() {
	close(w.stopChan)
}

// Done is closed once Start has returned.
func (w *OutboxWorker) Done() <-chan struct{} {
	return w.done
}

// ProcessEvents publishes one batch of pending events and returns how many were published.
// A publish failure leaves the event pending and ends the batch, so later events
// are not delivered ahead of it. Events whose payload cannot be decoded are marked failed.
func (w *OutboxWorker) ProcessEvents(ctx context.Context) int {
	events, err := w.events.ListPending(ctx, w.batchSize)
	if err != nil {
		slog.Error("Failed to retrieve pending events", slog.Any("err", err))
		return 0
	}

	if len(events) == 0 {
		return 0
	}

	slog.Debug("Processing pending events", slog.Int("count", len(events)))

	published := 0
	for _, event := range events {
		var msg sqs.ProductMessage
		if err := json.Unmarshal(event.EventData, &msg); err != nil {
			slog.Error("Failed to decode event",
				slog.String("event_id", event.ID.String()),
				slog.String("event_type", event.EventType),
				slog.Any("err", err))
			metrics.OutboxEventsFailed.Inc()
			w.markEvent(ctx, event, model.EventStatusFailed)
			continue
		}

		if err := w.publisher.PublishProductMessage(ctx, msg); err != nil {
			slog.Warn("Failed to publish event, will retry",
				slog.String("event_id", event.ID.String()),
				slog.String("event_type", event.EventType),
				slog.Any("err", err))
			metrics.OutboxEventsFailed.Inc()
			break
		}

		metrics.OutboxEventsPublished.Inc()
		published++
		w.markEvent(ctx, event, model.EventStatusProcessed)
	}

	return published
}

func (w *OutboxWorker) markEvent(ctx context.Context, event *model.Event, status model.EventStatus) {
	if err := w.events.UpdateStatus(ctx, event.ID, status); err != nil {
		slog.Error("Failed to update event status",
			slog.String("event_id", event.ID.String()),
			slog.String("status", string(status)),
			slog.Any("err", err))
	}
}
