// Package worker consumes ledger events outside the request path.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"backoffice/internal/amqp"
	"backoffice/internal/core"
	"backoffice/internal/ports"
)

// AuditStore persists ledger events once per message id.
type AuditStore interface {
	RecordLedgerEvent(ctx context.Context, messageID string, ev ports.LedgerEvent) (bool, error)
}

// EventConsumer delivers ledger event messages to a handler until ctx ends.
type EventConsumer interface {
	ConsumeLedgerEvents(ctx context.Context, handler func(context.Context, *amqp.LedgerEventMessage) error) error
}

// AuditWorker writes every published ledger event to the audit trail.
type AuditWorker struct {
	store AuditStore
}

func NewAuditWorker(store AuditStore) *AuditWorker {
	return &AuditWorker{store: store}
}

// Run blocks consuming events until ctx is cancelled or the consumer fails.
func (w *AuditWorker) Run(ctx context.Context, consumer EventConsumer) error {
	return consumer.ConsumeLedgerEvents(ctx, w.HandleLedgerEvent)
}

// HandleLedgerEvent records one event. Events that can never be stored are
// reported as amqp.ErrPermanent so they are not redelivered forever.
func (w *AuditWorker) HandleLedgerEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error {
	ev := msg.Event
	if err := ev.Transaction.ToTransaction().Validate(); err != nil {
		return fmt.Errorf("ledger event %s: %w: %v", msg.MessageID, amqp.ErrPermanent, err)
	}
	if ev.Transaction.Source != core.SourceManual {
		return fmt.Errorf("ledger event %s for %s transaction: %w", msg.MessageID, ev.Transaction.Source, amqp.ErrPermanent)
	}

	inserted, err := w.store.RecordLedgerEvent(ctx, msg.MessageID, ev)
	if err != nil {
		return fmt.Errorf("record ledger event: %w", err)
	}
	if !inserted {
		slog.DebugContext(ctx, "Duplicate ledger event skipped", "message_id", msg.MessageID)
		return nil
	}

	slog.InfoContext(ctx, "Ledger event recorded",
		"message_id", msg.MessageID,
		"kind", ev.Kind,
		"transaction_id", ev.Transaction.ID,
		"type", ev.Transaction.Type,
		"amount", ev.Transaction.Amount.String())
	return nil
}
