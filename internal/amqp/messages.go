package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// OccurrenceMessage announces a recurring occurrence that has just been materialised.
// It carries the full row so consumers never need to read the ledger back.
type OccurrenceMessage struct {
	TransactionID int64           `json:"transaction_id"`
	UserID        int64           `json:"user_id"`
	SeriesID      int64           `json:"series_id"`
	OccurredOn    string          `json:"occurred_on"`
	Amount        decimal.Decimal `json:"amount"`
	Category      string          `json:"category"`
	Description   string          `json:"description,omitempty"`
	PaymentMethod string          `json:"payment_method"`
	Recurrence    string          `json:"recurrence"`
	Timestamp     time.Time       `json:"timestamp"`
}

func NewOccurrenceMessage(t core.Transaction) *OccurrenceMessage {
	return &OccurrenceMessage{
		TransactionID: t.ID,
		UserID:        t.UserID,
		SeriesID:      t.SeriesID,
		OccurredOn:    t.OccurredOn.String(),
		Amount:        t.Amount,
		Category:      t.Category,
		Description:   t.Description,
		PaymentMethod: t.PaymentMethod,
		Recurrence:    string(t.Recurrence),
		Timestamp:     time.Now().UTC(),
	}
}

func (m *OccurrenceMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// OccurrenceMessageFromJSON decodes and sanity-checks a message body.
func OccurrenceMessageFromJSON(data []byte) (*OccurrenceMessage, error) {
	var msg OccurrenceMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.TransactionID <= 0 || msg.UserID <= 0 {
		return nil, errors.New("occurrence message without transaction or user id")
	}
	return &msg, nil
}

// Transaction rebuilds the ledger row the message describes.
func (m *OccurrenceMessage) Transaction() (core.Transaction, error) {
	on, err := core.ParseDate(m.OccurredOn)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("occurrence %d: %w", m.TransactionID, err)
	}
	return core.Transaction{
		ID:            m.TransactionID,
		UserID:        m.UserID,
		SeriesID:      m.SeriesID,
		Amount:        m.Amount,
		Category:      m.Category,
		Description:   m.Description,
		OccurredOn:    on,
		PaymentMethod: m.PaymentMethod,
		Recurrence:    core.Recurrence(m.Recurrence),
	}, nil
}
