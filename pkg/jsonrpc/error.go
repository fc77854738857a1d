package jsonrpc

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedFrame      = errors.New("malformed json-rpc frame")
	ErrUnrecognizedMessage = errors.New("unrecognized message")
	ErrUnsupportedVersion  = errors.New("unsupported json-rpc version")
	ErrInvalidID           = errors.New("invalid json-rpc id")
)

// DecodeError reports a frame that could not be turned into a Message.
// Raw keeps the frame text for diagnosis.
type DecodeError struct {
	Raw   []byte
	Kind  error // one of the Err* sentinels above
	Cause error
}

func newDecodeError(raw []byte, kind, cause error) *DecodeError {
	return &DecodeError{Raw: raw, Kind: kind, Cause: cause}
}

// Error describes the failure and quotes the raw frame.
func (e *DecodeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Cause, e.Raw)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Raw)
}

// Unwrap exposes both the failure kind and its cause to errors.Is.
func (e *DecodeError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}
