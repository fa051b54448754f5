package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Op is the kind of change a sync message announces.
type Op string

const (
	OpUpsert Op = "upsert"
	OpDelete Op = "delete"
)

// BillingSyncMessage announces a change to one billing entry.
// It carries only the ID; the worker reads the current row from the store.
type BillingSyncMessage struct {
	ID        string    `json:"id"`
	Op        Op        `json:"op"`
	Timestamp time.Time `json:"timestamp"`
}

func NewBillingSyncMessage(id string, op Op) *BillingSyncMessage {
	return &BillingSyncMessage{
		ID:        id,
		Op:        op,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *BillingSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// BillingSyncMessageFromJSON decodes and checks a message body.
func BillingSyncMessageFromJSON(data []byte) (*BillingSyncMessage, error) {
	var msg BillingSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ID == "" {
		return nil, fmt.Errorf("message has no id")
	}
	switch msg.Op {
	case OpUpsert, OpDelete:
	default:
		return nil, fmt.Errorf("unknown op %q", msg.Op)
	}
	return &msg, nil
}
