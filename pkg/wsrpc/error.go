package wsrpc

import "errors"

var (
	// Connection errors
	ErrNotConnected       = errors.New("channel not connected")
	ErrChannelClosed      = errors.New("channel closed")
	ErrReconnectExhausted = errors.New("reconnect attempts exhausted")
	ErrDialingWebsocket   = errors.New("error dialing websocket server")
	ErrConnectionTimeout  = errors.New("websocket connection timeout")
	ErrConnectionClosed   = errors.New("websocket closed by peer")
	ErrReadingMessage     = errors.New("error reading message")

	// Request/response errors
	ErrNilRequest        = errors.New("nil request")
	ErrMissingRequestID  = errors.New("request id required when a response handler is given")
	ErrEmptyResponseID   = errors.New("response has no id")
	ErrMarshalingRequest = errors.New("error marshaling request")
	ErrSendingRequest    = errors.New("error sending request")
	ErrUnexpectedRequest = errors.New("unexpected request from server")

	// Construction errors
	ErrInvalidConfig = errors.New("invalid channel config")
	ErrNilHandler    = errors.New("nil handler")
)
