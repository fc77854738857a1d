package jsonrpc

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Version is the only JSON-RPC version spoken on the socket.
const Version = "2.0"

const (
	NotifyMethod           = "notify"
	ConnectMethod          = "connect"
	SubscribeAccountMethod = "subscribe_account"

	// EventTypeAll subscribes to every event type of an account.
	EventTypeAll = "*"
)

const (
	// CodeTimeout is the code of responses synthesized when a request expires.
	// The ledger protocol reserves no code for it, so 0 is used and the
	// message text tells timeouts apart.
	CodeTimeout = 0
	// CodeChannelClosed is the code of responses synthesized when the channel
	// is closed with requests still pending.
	CodeChannelClosed = 0

	timeoutMessagePrefix = "Timed out waiting for response to request. id: "
	closedMessagePrefix  = "Channel closed before response to request. id: "
)

// Message is a decoded frame: *Request, *Response or *Notification.
type Message interface {
	isMessage()
}

// Request is a call frame. Outbound requests carry typed Params (for example
// SubscribeAccountParams); decoded inbound requests carry json.RawMessage.
type Request struct {
	ID     string
	Method string
	Params any
}

func (*Request) isMessage() {}

// NewRequest builds a request. An empty id makes it fire-and-forget.
func NewRequest(id, method string, params any) *Request {
	return &Request{ID: id, Method: method, Params: params}
}

// NewRequestID returns a fresh random request id.
func NewRequestID() string {
	return uuid.NewString()
}

type wireRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id,omitempty"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// MarshalJSON emits the compact wire form including the version member.
func (r *Request) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireRequest{
		JSONRPC: Version,
		ID:      r.ID,
		Method:  r.Method,
		Params:  r.Params,
	})
}

// TranslateParams decodes the request params into v.
func (r *Request) TranslateParams(v any) error {
	data, err := json.Marshal(r.Params)
	if err != nil {
		return fmt.Errorf("error marshalling params: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("error unmarshalling params: %w", err)
	}
	return nil
}

// SubscribeAccountParams are the params of a subscribe_account request.
type SubscribeAccountParams struct {
	EventType string   `json:"eventType"`
	Accounts  []string `json:"accounts"`
}

// ErrorObject is the error member of a response.
type ErrorObject struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Error formats the code and message of e.
func (e *ErrorObject) Error() string {
	return fmt.Sprintf("json-rpc error %d: %s", e.Code, e.Message)
}

// Response answers a Request with the same ID. At most one of Result and
// Error is set; a response carrying neither counts as an empty success.
type Response struct {
	ID     string
	Result json.RawMessage
	Error  *ErrorObject
}

func (*Response) isMessage() {}

// NewErrorResponse builds a failed response for id.
func NewErrorResponse(id string, code int, message string) *Response {
	return &Response{ID: id, Error: &ErrorObject{Code: code, Message: message}}
}

// NewTimeoutResponse builds the response delivered to a handler whose request
// was evicted without an answer.
func NewTimeoutResponse(id string) *Response {
	return NewErrorResponse(id, CodeTimeout, timeoutMessagePrefix+id)
}

// NewChannelClosedResponse builds the response delivered to a handler whose
// request was still pending when the channel was closed.
func NewChannelClosedResponse(id string) *Response {
	return NewErrorResponse(id, CodeChannelClosed, closedMessagePrefix+id)
}

// IsSuccess reports whether r carries no error. A response with neither
// result nor error is a success.
func (r *Response) IsSuccess() bool {
	return r.Error == nil
}

// IsTimeout reports whether r was synthesized by request expiry.
func (r *Response) IsTimeout() bool {
	return r.Error != nil && r.Error.Code == CodeTimeout &&
		strings.HasPrefix(r.Error.Message, timeoutMessagePrefix)
}

// IsChannelClosed reports whether r was synthesized by closing the channel.
func (r *Response) IsChannelClosed() bool {
	return r.Error != nil && r.Error.Code == CodeChannelClosed &&
		strings.HasPrefix(r.Error.Message, closedMessagePrefix)
}

// Err returns the error member as an error, or nil on success.
func (r *Response) Err() error {
	if r.Error == nil {
		return nil
	}
	return r.Error
}

type wireResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      string          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ErrorObject    `json:"error,omitempty"`
}

// MarshalJSON emits the wire form of r, including the version member.
func (r *Response) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireResponse{
		JSONRPC: Version,
		ID:      r.ID,
		Result:  r.Result,
		Error:   r.Error,
	})
}

// Notification is an unsolicited server frame.
type Notification struct {
	Method string
	Params NotificationParams
}

func (*Notification) isMessage() {}

// NotificationParams is one of TransferNotification, MessageNotification,
// ConnectNotification or GenericNotification.
type NotificationParams interface {
	EventName() string
	isNotificationParams()
}

// TransferNotification reports a created or updated transfer. Resource is the
// ledger's transfer payload, left for a converter to interpret.
type TransferNotification struct {
	Event            string
	Resource         json.RawMessage
	RelatedResources json.RawMessage
}

// MessageNotification reports a message delivered to a subscribed account.
type MessageNotification struct {
	Event    string
	Resource json.RawMessage
}

// ConnectNotification is the ledger's acknowledgement of a new socket.
type ConnectNotification struct{}

// GenericNotification is any notification whose resource matched no known shape.
type GenericNotification struct {
	Event    string
	Resource json.RawMessage
}

// EventName returns the ledger event, for example "transfer.update".
func (n TransferNotification) EventName() string {
	return n.Event
}

// EventName returns the ledger event, for example "message.send".
func (n MessageNotification) EventName() string {
	return n.Event
}

// EventName returns ConnectMethod.
func (ConnectNotification) EventName() string {
	return ConnectMethod
}

// EventName returns the event member, which may be empty.
func (n GenericNotification) EventName() string {
	return n.Event
}

func (TransferNotification) isNotificationParams() {}

func (MessageNotification) isNotificationParams() {}

func (ConnectNotification) isNotificationParams() {}

func (GenericNotification) isNotificationParams() {}
