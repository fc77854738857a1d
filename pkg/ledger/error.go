package ledger

import (
	"errors"
	"fmt"
)

var (
	ErrConversion         = errors.New("error converting notification payload")
	ErrSubscriptionFailed = errors.New("account subscription failed")
	ErrNoAccounts         = errors.New("no accounts to subscribe")
	ErrInvalidScheme      = errors.New("websocket url must use ws or wss")
	ErrAuthToken          = errors.New("error retrieving auth token")
	ErrNilSink            = errors.New("nil event sink")
)

// UnrecognizedMessageError carries a frame no route accepted.
type UnrecognizedMessageError struct {
	Raw string
	Err error
}

// Error quotes the raw frame.
func (e *UnrecognizedMessageError) Error() string {
	return fmt.Sprintf("unrecognized message: %s", e.Raw)
}

// Unwrap returns the decode or routing error behind e.
func (e *UnrecognizedMessageError) Unwrap() error {
	return e.Err
}
