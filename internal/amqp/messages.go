package amqp

import (
	"encoding/json"
	"time"
)

// TransactionSyncMessage is the lightweight message queued for the
// export worker. It carries only identifiers; the worker fetches the
// full transaction from the database.
type TransactionSyncMessage struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewTransactionSyncMessage(id, userID string) *TransactionSyncMessage {
	return &TransactionSyncMessage{
		ID:        id,
		UserID:    userID,
		Timestamp: time.Now(),
	}
}

func (m *TransactionSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TransactionSyncMessageFromJSON(data []byte) (*TransactionSyncMessage, error) {
	var msg TransactionSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
