package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"backoffice/internal/ports"
)

// AuditEntry is one stored ledger event.
type AuditEntry struct {
	ID         int64
	MessageID  string
	Event      ports.LedgerEvent
	ReceivedAt time.Time
}

// RecordLedgerEvent stores an event once per message id. It reports false when
// the message was already recorded.
func (r *SQLiteRepository) RecordLedgerEvent(ctx context.Context, messageID string, ev ports.LedgerEvent) (bool, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return false, fmt.Errorf("encode ledger event: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO ledger_events (message_id, kind, transaction_id, payload, occurred_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(message_id) DO NOTHING`,
		messageID, ev.Kind, ev.Transaction.ID, string(payload), formatTime(ev.OccurredAt))
	if err != nil {
		return false, fmt.Errorf("record ledger event %s: %w", messageID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("record ledger event %s: %w", messageID, err)
	}
	return n == 1, nil
}

// LedgerEvents returns the audit trail of one transaction, oldest first.
func (r *SQLiteRepository) LedgerEvents(ctx context.Context, transactionID string) ([]AuditEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, message_id, payload, received_at
		FROM ledger_events
		WHERE transaction_id = ?
		ORDER BY id`, transactionID)
	if err != nil {
		return nil, fmt.Errorf("list ledger events: %w", err)
	}
	defer rows.Close()

	var out []AuditEntry
	for rows.Next() {
		var (
			e       AuditEntry
			payload string
		)
		if err := rows.Scan(&e.ID, &e.MessageID, &payload, &e.ReceivedAt); err != nil {
			return nil, fmt.Errorf("scan ledger event: %w", err)
		}
		if err := json.Unmarshal([]byte(payload), &e.Event); err != nil {
			return nil, fmt.Errorf("decode ledger event %d: %w", e.ID, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
