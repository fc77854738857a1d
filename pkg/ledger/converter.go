package ledger

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// JSONConverter decodes five-bells style transfer and message resources and
// validates them.
type JSONConverter struct {
	validate *validator.Validate
}

// NewJSONConverter returns a converter for the ledger's JSON resources.
func NewJSONConverter() *JSONConverter {
	return &JSONConverter{validate: validator.New()}
}

// ToTransfer decodes and validates a transfer resource. Negative amounts are rejected.
func (c *JSONConverter) ToTransfer(resource json.RawMessage) (Transfer, error) {
	var t Transfer
	if err := json.Unmarshal(resource, &t); err != nil {
		return Transfer{}, fmt.Errorf("failed to decode transfer: %w", err)
	}
	if err := c.validate.Struct(t); err != nil {
		return Transfer{}, fmt.Errorf("invalid transfer: %w", err)
	}

	for _, entries := range [][]AccountEntry{t.Credits, t.Debits} {
		for _, e := range entries {
			if e.Amount.IsNegative() {
				return Transfer{}, fmt.Errorf("invalid transfer: negative amount %s for %s", e.Amount, e.Account)
			}
		}
	}
	return t, nil
}

// ToMessage decodes and validates a message resource.
func (c *JSONConverter) ToMessage(resource json.RawMessage) (Message, error) {
	var m Message
	if err := json.Unmarshal(resource, &m); err != nil {
		return Message{}, fmt.Errorf("failed to decode message: %w", err)
	}
	if err := c.validate.Struct(m); err != nil {
		return Message{}, fmt.Errorf("invalid message: %w", err)
	}
	return m, nil
}
