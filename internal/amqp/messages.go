package amqp

import (
	"encoding/json"
	"time"
)

// StagedTransactionMessage carries one externally-sourced candidate row
// into the staging queue. Amount travels as a string so no decimal
// precision is lost in transit.
type StagedTransactionMessage struct {
	TxRef       string    `json:"tx_ref,omitempty"`
	Date        string    `json:"date"`
	Type        string    `json:"type"`
	Amount      string    `json:"amount"`
	Description string    `json:"description"`
	Category    string    `json:"category,omitempty"`
	Source      string    `json:"source"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewStagedTransactionMessage creates a message stamped with the current time.
func NewStagedTransactionMessage(txRef, date, txType, amount, description, source string) *StagedTransactionMessage {
	return &StagedTransactionMessage{
		TxRef:       txRef,
		Date:        date,
		Type:        txType,
		Amount:      amount,
		Description: description,
		Source:      source,
		Timestamp:   time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *StagedTransactionMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// StagedTransactionMessageFromJSON creates a message from JSON bytes.
func StagedTransactionMessageFromJSON(data []byte) (*StagedTransactionMessage, error) {
	var msg StagedTransactionMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
