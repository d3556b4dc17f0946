package amqp

import (
	"encoding/json"
	"time"

	"bachat/internal/core"
)

// LedgerChangedMessage tells the report worker that a ledger's input
// changed. It carries only the recompute scope; the worker re-reads the
// full transaction list from the store.
type LedgerChangedMessage struct {
	Ledger     core.Ledger     `json:"ledger"`
	MemberID   string          `json:"memberId,omitempty"`
	FiscalYear core.FiscalYear `json:"fiscalYear"`
	Timestamp  time.Time       `json:"timestamp"`
}

func NewLedgerChangedMessage(l core.Ledger, memberID string, fy core.FiscalYear) *LedgerChangedMessage {
	return &LedgerChangedMessage{
		Ledger:     l,
		MemberID:   memberID,
		FiscalYear: fy,
		Timestamp:  time.Now(),
	}
}

func (m *LedgerChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func LedgerChangedMessageFromJSON(data []byte) (*LedgerChangedMessage, error) {
	var msg LedgerChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
