// Package envelope normalizes the response shapes returned by the rental backend.
//
// Three shapes are observed:
//   - a raw array or object with no envelope (passed through unchanged),
//   - {"success": true, "data": ...} (data is returned),
//   - {"success": false, "error": "...", "message": "..."} (an *Error is returned).
//
// All functions are pure.
package envelope

import (
	"bytes"
	"encoding/json"
)

// DefaultMessage is used when a failed envelope carries neither error nor message.
const DefaultMessage = "Request failed"

// Shape is the declared shape of an endpoint's payload.
type Shape int

const (
	// ShapeObject payloads default to {} when data is absent.
	ShapeObject Shape = iota
	// ShapeList payloads default to [] when data is absent.
	ShapeList
)

// Empty returns the zero payload for the shape.
func (s Shape) Empty() json.RawMessage {
	if s == ShapeList {
		return json.RawMessage(`[]`)
	}
	return json.RawMessage(`{}`)
}

func (s Shape) String() string {
	if s == ShapeList {
		return "list"
	}
	return "object"
}

// Envelope is the {success, data, error, message} wrapper.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
	Message string          `json:"message,omitempty"`
}

// Error is returned when the backend answers success=false.
type Error struct {
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Unwrap converts a raw response body into the payload callers decode.
func Unwrap(raw []byte, shape Shape) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return shape.Empty(), nil
	}

	if trimmed[0] != '{' {
		return json.RawMessage(trimmed), nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		// Not an object we understand; the decoder reports the real problem.
		return json.RawMessage(trimmed), nil
	}

	rawSuccess, ok := fields["success"]
	if !ok {
		return json.RawMessage(trimmed), nil
	}

	var success bool
	if err := json.Unmarshal(rawSuccess, &success); err != nil {
		return json.RawMessage(trimmed), nil
	}

	if !success {
		return nil, &Error{Message: failureMessage(fields)}
	}

	data, ok := fields["data"]
	if !ok || isNull(data) {
		return shape.Empty(), nil
	}
	return data, nil
}

// Wrap builds a success envelope around data. The inverse of Unwrap, used by fakes.
func Wrap(data any) ([]byte, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Success: true, Data: payload})
}

// Fail builds a failure envelope.
func Fail(errMsg, message string) []byte {
	b, _ := json.Marshal(Envelope{Success: false, Error: errMsg, Message: message})
	return b
}

func failureMessage(fields map[string]json.RawMessage) string {
	for _, key := range []string{"error", "message"} {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && s != "" {
			return s
		}
	}
	return DefaultMessage
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
