package amqp

import (
	"encoding/json"
	"fmt"

	"backoffice/internal/ports"

	"github.com/google/uuid"
)

// RoutingPrefix namespaces every ledger routing key.
const RoutingPrefix = "ledger."

// LedgerEventMessage wraps a committed ledger write for the event exchange.
// MessageID lets consumers drop redeliveries.
type LedgerEventMessage struct {
	MessageID string            `json:"message_id"`
	Event     ports.LedgerEvent `json:"event"`
}

func NewLedgerEventMessage(ev ports.LedgerEvent) *LedgerEventMessage {
	return &LedgerEventMessage{MessageID: uuid.NewString(), Event: ev}
}

// RoutingKey is "ledger.<kind>", e.g. "ledger.transaction.recorded".
func (m *LedgerEventMessage) RoutingKey() string {
	return RoutingPrefix + m.Event.Kind
}

func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func LedgerEventMessageFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.MessageID == "" {
		return nil, fmt.Errorf("message without message_id")
	}
	if msg.Event.Kind != ports.EventTransactionRecorded && msg.Event.Kind != ports.EventTransactionDeleted {
		return nil, fmt.Errorf("unknown event kind %q", msg.Event.Kind)
	}
	return &msg, nil
}
