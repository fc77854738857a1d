package ledger

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// AccountEntry is one credit or debit of a transfer.
type AccountEntry struct {
	Account          string          `json:"account" validate:"required"`
	Amount           decimal.Decimal `json:"amount"`
	Memo             json.RawMessage `json:"memo,omitempty"`
	Invoice          string          `json:"invoice,omitempty"`
	Authorized       bool            `json:"authorized,omitempty"`
	Rejected         bool            `json:"rejected,omitempty"`
	RejectionMessage string          `json:"rejection_message,omitempty"`
}

// Transfer is a ledger transfer as carried by transfer notifications.
type Transfer struct {
	ID                    string         `json:"id" validate:"required"`
	Ledger                string         `json:"ledger,omitempty" validate:"omitempty,url"`
	Credits               []AccountEntry `json:"credits" validate:"dive"`
	Debits                []AccountEntry `json:"debits" validate:"dive"`
	ExecutionCondition    string         `json:"execution_condition,omitempty"`
	CancellationCondition string         `json:"cancellation_condition,omitempty"`
	ExpiresAt             *time.Time     `json:"expires_at,omitempty"`
	State                 string         `json:"state,omitempty"`
}

// Amount returns the sum of the debited amounts.
func (t Transfer) Amount() decimal.Decimal {
	total := decimal.Zero
	for _, d := range t.Debits {
		total = total.Add(d.Amount)
	}
	return total
}

// Message is an opaque message routed through the ledger between two
// accounts.
type Message struct {
	Ledger string          `json:"ledger,omitempty" validate:"omitempty,url"`
	From   string          `json:"from,omitempty" validate:"omitempty,url"`
	To     string          `json:"to,omitempty" validate:"omitempty,url"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// TransferEvent is raised for every converted transfer notification.
type TransferEvent struct {
	Event            string
	Transfer         Transfer
	RelatedResources json.RawMessage
}

// MessageEvent is raised for every converted message notification.
type MessageEvent struct {
	Event   string
	Message Message
}
