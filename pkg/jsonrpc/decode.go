package jsonrpc

import (
	"bytes"
	"encoding/json"
	"strings"
)

// frame is a JSON object split into its top-level members, with id and method
// already extracted because every shape predicate looks at them.
type frame struct {
	raw     []byte
	members map[string]json.RawMessage
	id      string
	method  string
}

// has reports whether key is present with a non-null value.
func (f *frame) has(key string) bool {
	v, ok := f.members[key]
	return ok && !isNull(v)
}

// emptyParams reports whether params is absent, null or {}.
func (f *frame) emptyParams() bool {
	if !f.has("params") {
		return true
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(f.members["params"], &obj); err != nil {
		return false
	}
	return len(obj) == 0
}

// shape is one entry of the ordered classification table.
type shape struct {
	name  string
	match func(*frame) bool
	build func(*frame) (Message, error)
}

// shapes is evaluated top to bottom; the first match wins. Responses come
// first so that an id plus result/error is never mistaken for a notification.
var shapes = []shape{
	{name: "response", match: isResponse, build: buildResponse},
	{name: "connect", match: isConnect, build: buildConnect},
	{name: "notification", match: isNotification, build: buildNotification},
	{name: "request", match: isRequest, build: buildRequest},
}

// Decode turns one raw frame into a Message. Failures are always returned as
// a *DecodeError.
func Decode(data []byte) (Message, error) {
	f, err := parseFrame(data)
	if err != nil {
		return nil, err
	}

	for _, s := range shapes {
		if s.match(f) {
			return s.build(f)
		}
	}
	return nil, newDecodeError(data, ErrUnrecognizedMessage, nil)
}

// ShapeOf names the variant of msg for metrics labels and logs.
func ShapeOf(msg Message) string {
	switch m := msg.(type) {
	case *Response:
		return "response"
	case *Request:
		return "request"
	case *Notification:
		switch m.Params.(type) {
		case TransferNotification:
			return "transfer"
		case MessageNotification:
			return "message"
		case ConnectNotification:
			return "connect"
		default:
			return "notification"
		}
	}
	return ""
}

func parseFrame(data []byte) (*frame, error) {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(data, &members); err != nil {
		return nil, newDecodeError(data, ErrMalformedFrame, err)
	}
	if members == nil {
		return nil, newDecodeError(data, ErrMalformedFrame, nil)
	}

	f := &frame{raw: data, members: members}

	if f.has("jsonrpc") {
		var version string
		if err := json.Unmarshal(members["jsonrpc"], &version); err != nil || version != Version {
			return nil, newDecodeError(data, ErrUnsupportedVersion, err)
		}
	}

	id, err := parseID(members["id"])
	if err != nil {
		return nil, newDecodeError(data, ErrInvalidID, err)
	}
	f.id = id

	if f.has("method") {
		if err := json.Unmarshal(members["method"], &f.method); err != nil {
			return nil, newDecodeError(data, ErrMalformedFrame, err)
		}
	}

	return f, nil
}

// parseID normalises a string or number id to text. Absent and null ids are "".
func parseID(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || isNull(raw) {
		return "", nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}

func isResponse(f *frame) bool {
	if f.id == "" {
		return false
	}
	if f.has("result") || f.has("error") {
		return true
	}
	// {"id": "7"} and {"id": "7", "result": null}: an empty success.
	return f.method == "" && !f.has("params")
}

func isConnect(f *frame) bool {
	return f.method == ConnectMethod && f.emptyParams()
}

func isNotification(f *frame) bool {
	if f.has("result") || f.has("error") {
		return false
	}
	if f.method == NotifyMethod {
		return true
	}
	return f.id == "" && f.method != "" && hasEventShape(f.members["params"])
}

func isRequest(f *frame) bool {
	return f.method != "" && f.id != ""
}

func buildResponse(f *frame) (Message, error) {
	res := &Response{ID: f.id}
	if f.has("result") {
		res.Result = f.members["result"]
	}
	if f.has("error") {
		var e ErrorObject
		if err := json.Unmarshal(f.members["error"], &e); err != nil {
			return nil, newDecodeError(f.raw, ErrMalformedFrame, err)
		}
		res.Error = &e
	}
	return res, nil
}

func buildConnect(f *frame) (Message, error) {
	return &Notification{Method: f.method, Params: ConnectNotification{}}, nil
}

type notificationParams struct {
	Event            string          `json:"event"`
	Resource         json.RawMessage `json:"resource"`
	RelatedResources json.RawMessage `json:"related_resources"`
}

func buildNotification(f *frame) (Message, error) {
	var p notificationParams
	if f.has("params") {
		if err := json.Unmarshal(f.members["params"], &p); err != nil {
			return nil, newDecodeError(f.raw, ErrMalformedFrame, err)
		}
	}

	return &Notification{Method: f.method, Params: classifyResource(p)}, nil
}

func buildRequest(f *frame) (Message, error) {
	req := &Request{ID: f.id, Method: f.method}
	if f.has("params") {
		req.Params = f.members["params"]
	}
	return req, nil
}

// classifyResource picks the notification variant from the resource's shape,
// falling back to the event name when the resource is too sparse to tell.
func classifyResource(p notificationParams) NotificationParams {
	keys := objectKeys(p.Resource)

	switch {
	case keys["credits"] || keys["debits"] || keys["execution_condition"]:
		return TransferNotification{Event: p.Event, Resource: p.Resource, RelatedResources: p.RelatedResources}
	case keys["data"] || (keys["from"] && keys["to"]):
		return MessageNotification{Event: p.Event, Resource: p.Resource}
	case keys != nil && strings.HasPrefix(p.Event, "transfer."):
		return TransferNotification{Event: p.Event, Resource: p.Resource, RelatedResources: p.RelatedResources}
	case keys != nil && strings.HasPrefix(p.Event, "message."):
		return MessageNotification{Event: p.Event, Resource: p.Resource}
	default:
		return GenericNotification{Event: p.Event, Resource: p.Resource}
	}
}

// hasEventShape reports whether params is an object with an event or resource member.
func hasEventShape(params json.RawMessage) bool {
	keys := objectKeys(params)
	return keys["event"] || keys["resource"]
}

// objectKeys returns the non-null member names of a JSON object, or nil when
// raw is not an object.
func objectKeys(raw json.RawMessage) map[string]bool {
	if len(raw) == 0 || isNull(raw) {
		return nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return nil
	}

	keys := make(map[string]bool, len(obj))
	for k, v := range obj {
		if !isNull(v) {
			keys[k] = true
		}
	}
	return keys
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
