package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"billbook/internal/core"
)

// EventType names the mutation a BillEvent reports.
type EventType string

const (
	EventCreated EventType = "bill.created"
	EventUpdated EventType = "bill.updated"
	EventDeleted EventType = "bill.deleted"
)

func (t EventType) IsValid() bool {
	switch t {
	case EventCreated, EventUpdated, EventDeleted:
		return true
	}
	return false
}

// BillEvent is published after a mutation has been committed to the store.
// Created and updated events carry the full bill; deleted events only the id.
type BillEvent struct {
	Type      EventType  `json:"type"`
	ID        int64      `json:"id"`
	Bill      *core.Bill `json:"bill,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// NewBillEvent stamps an event with the current time.
func NewBillEvent(t EventType, id int64, bill *core.Bill) *BillEvent {
	return &BillEvent{
		Type:      t,
		ID:        id,
		Bill:      bill,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *BillEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// Validate rejects events the mirror cannot apply.
func (m *BillEvent) Validate() error {
	if !m.Type.IsValid() {
		return fmt.Errorf("unknown event type %q", m.Type)
	}
	if m.ID <= 0 {
		return fmt.Errorf("invalid bill id %d", m.ID)
	}
	if m.Type != EventDeleted && m.Bill == nil {
		return fmt.Errorf("%s event without bill payload", m.Type)
	}
	return nil
}

// BillEventFromJSON decodes and validates a message body.
func BillEventFromJSON(data []byte) (*BillEvent, error) {
	var msg BillEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
