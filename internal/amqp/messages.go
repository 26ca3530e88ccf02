package amqp

import (
	"encoding/json"
	"time"
)

// Message types carried in the AMQP Type property. One queue transports
// both; consumers dispatch on the type.
const (
	TypeRecordSync   = "record.sync"
	TypeRecordDelete = "record.delete"
)

// RecordSyncMessage asks the worker to mirror one record to the spreadsheet.
// It carries only the ID; the worker fetches the full record from the
// database, so a message can never go stale.
type RecordSyncMessage struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

// NewRecordSyncMessage creates a sync message for a stored record
func NewRecordSyncMessage(id string) *RecordSyncMessage {
	return &RecordSyncMessage{
		ID:        id,
		Timestamp: time.Now(),
	}
}

// ToJSON renders the message for publishing.
func (m *RecordSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RecordSyncMessageFromJSON creates a message from JSON bytes
func RecordSyncMessageFromJSON(data []byte) (*RecordSyncMessage, error) {
	var msg RecordSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// RecordDeleteMessage asks the worker to remove one record from the
// spreadsheet. The worker locates the row by record ID.
type RecordDeleteMessage struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

// NewRecordDeleteMessage creates a delete message for a removed record
func NewRecordDeleteMessage(id string) *RecordDeleteMessage {
	return &RecordDeleteMessage{
		ID:        id,
		Timestamp: time.Now(),
	}
}

// ToJSON renders the message for publishing.
func (m *RecordDeleteMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RecordDeleteMessageFromJSON creates a message from JSON bytes
func RecordDeleteMessageFromJSON(data []byte) (*RecordDeleteMessage, error) {
	var msg RecordDeleteMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
