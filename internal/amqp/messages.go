package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"clinica/internal/core"
)

// EventKind names what happened to a transaction.
type EventKind string

const (
	EventCreated EventKind = "transaction.created"
	EventDeleted EventKind = "transaction.deleted"
)

// TransactionEvent is published after the store accepts a change. Created
// events carry the full record so consumers never need to read the store.
type TransactionEvent struct {
	Kind        EventKind         `json:"kind"`
	ID          string            `json:"id"`
	Transaction *core.Transaction `json:"transaction,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}

// NewCreatedEvent builds the event for a stored transaction.
func NewCreatedEvent(t core.Transaction) *TransactionEvent {
	return &TransactionEvent{
		Kind:        EventCreated,
		ID:          t.ID,
		Transaction: &t,
		Timestamp:   time.Now(),
	}
}

// NewDeletedEvent builds the event for a removed transaction id.
func NewDeletedEvent(id string) *TransactionEvent {
	return &TransactionEvent{
		Kind:      EventDeleted,
		ID:        id,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionEventFromJSON decodes and checks an event body.
func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var msg TransactionEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ID == "" {
		return nil, errors.New("event without transaction id")
	}
	switch msg.Kind {
	case EventCreated:
		if msg.Transaction == nil {
			return nil, errors.New("created event without transaction")
		}
		msg.Transaction.ID = msg.ID
	case EventDeleted:
	default:
		return nil, fmt.Errorf("unknown event kind %q", msg.Kind)
	}
	return &msg, nil
}
