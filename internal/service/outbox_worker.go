package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/iyhunko/catalog-service/internal/model"
	"github.com/iyhunko/catalog-service/internal/repository"
	"github.com/iyhunko/catalog-service/internal/sqs"
)

const (
	outboxBatchSize = 100
	// maxPublishAttempts is how many relay passes may fail before an event is given up as failed.
	maxPublishAttempts = 5
)

var errUndecodable = errors.New("event data is undecodable")

// EventPublisher delivers catalog messages to subscribers.
type EventPublisher interface {
	PublishCatalogMessage(ctx context.Context, msg sqs.CatalogMessage) error
}

// OutboxPublisher is an EventPublisher that records messages in the outbox instead of sending them.
type OutboxPublisher struct {
	events repository.EventStore
}

// NewOutboxPublisher creates a new OutboxPublisher.
func NewOutboxPublisher(events repository.EventStore) *OutboxPublisher {
	return &OutboxPublisher{events: events}
}

// PublishCatalogMessage stores msg as a pending event.
func (p *OutboxPublisher) PublishCatalogMessage(ctx context.Context, msg sqs.CatalogMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	event := &model.Event{
		EventType: msg.Action,
		EventData: data,
		Status:    model.EventStatusPending,
	}
	if err := p.events.Create(ctx, event); err != nil {
		return fmt.Errorf("failed to store outbox event: %w", err)
	}
	return nil
}

// OutboxWorker polls the events table and relays pending events to the queue.
type OutboxWorker struct {
	events    repository.EventStore
	publisher EventPublisher
	interval  time.Duration
	stopChan  chan struct{}
	stopOnce  sync.Once
}

// NewOutboxWorker creates a new OutboxWorker.
func NewOutboxWorker(events repository.EventStore, publisher EventPublisher, interval time.Duration) *OutboxWorker {
	return &OutboxWorker{
		events:    events,
		publisher: publisher,
		interval:  interval,
		stopChan:  make(chan struct{}),
	}
}

// Start begins processing events from the outbox. It blocks until ctx is done or Stop is called.
func (w *OutboxWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	slog.Info("Outbox worker started", slog.Duration("interval", w.interval))

	for {
		select {
		case <-ctx.Done():
			slog.Info("Outbox worker stopped by context")
			return
		case <-w.stopChan:
			slog.Info("Outbox worker stopped")
			return
		case <-ticker.C:
			w.ProcessPending(ctx)
		}
	}
}

// Stop stops the outbox worker. It is safe to call more than once.
func (w *OutboxWorker) Stop() {
	w.stopOnce.Do(func() { close(w.stopChan) })
}

// ProcessPending relays one batch of pending events and returns how many were published.
func (w *OutboxWorker) ProcessPending(ctx context.Context) int {
	events, err := w.events.ListPending(ctx, outboxBatchSize)
	if err != nil {
		slog.Error("Failed to retrieve pending events", slog.Any("err", err))
		return 0
	}

	if len(events) == 0 {
		return 0
	}

	slog.Info("Processing pending events", slog.Int("count", len(events)))

	published := 0
	for _, event := range events {
		if err := w.processEvent(ctx, event); err != nil {
			slog.Error("Failed to process event",
				slog.String("event_id", event.ID.String()),
				slog.String("event_type", event.EventType),
				slog.Int("attempt", event.Attempts+1),
				slog.Any("err", err))
			w.recordFailure(ctx, event, err)
			continue
		}

		published++
		if updateErr := w.events.UpdateStatus(ctx, event.ID, model.EventStatusProcessed); updateErr != nil {
			slog.Error("Failed to update event status to processed",
				slog.String("event_id", event.ID.String()),
				slog.Any("err", updateErr))
		} else {
			slog.Debug("Event processed successfully",
				slog.String("event_id", event.ID.String()),
				slog.String("event_type", event.EventType))
		}
	}
	return published
}

// recordFailure leaves a failed delivery pending for the next pass until maxPublishAttempts.
// Events that cannot be decoded are marked failed at once.
func (w *OutboxWorker) recordFailure(ctx context.Context, event *model.Event, cause error) {
	if errors.Is(cause, errUndecodable) {
		if err := w.events.UpdateStatus(ctx, event.ID, model.EventStatusFailed); err != nil {
			slog.Error("Failed to update event status to failed",
				slog.String("event_id", event.ID.String()),
				slog.Any("err", err))
		}
		return
	}

	status, err := w.events.RecordFailure(ctx, event.ID, maxPublishAttempts)
	if err != nil {
		slog.Error("Failed to record event failure",
			slog.String("event_id", event.ID.String()),
			slog.Any("err", err))
		return
	}
	if status == model.EventStatusFailed {
		slog.Warn("Event gave up after repeated failures",
			slog.String("event_id", event.ID.String()),
			slog.Int("attempts", maxPublishAttempts))
	}
}

func (w *OutboxWorker) processEvent(ctx context.Context, event *model.Event) error {
	var msg sqs.CatalogMessage
	if err := json.Unmarshal(event.EventData, &msg); err != nil {
		return fmt.Errorf("%w: %w", errUndecodable, err)
	}
	if msg.Action == "" {
		msg.Action = event.EventType
	}

	return w.publisher.PublishCatalogMessage(ctx, msg)
}
