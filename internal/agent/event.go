package agent

import (
	"encoding/json"

	"github.com/tidwall/gjson"
)

// Event is one decoded upstream agent event. Data holds the raw JSON
// payload; the Elastic wrapper object ({"data": {...}}) is already removed.
type Event struct {
	Type string
	Data json.RawMessage
}

// Reasoning returns the reasoning text of a reasoning event.
func (e Event) Reasoning() string {
	return gjson.GetBytes(e.Data, "reasoning").String()
}

// TextChunk returns the partial text of a message_chunk event.
func (e Event) TextChunk() string {
	return gjson.GetBytes(e.Data, "text_chunk").String()
}

// MessageContent returns the full text of a message_complete event.
func (e Event) MessageContent() string {
	return gjson.GetBytes(e.Data, "message_content").String()
}

// ErrorMessage returns the message of an error event, with a generic
// fallback when the payload carries none.
func (e Event) ErrorMessage() string {
	if msg := gjson.GetBytes(e.Data, "message").String(); msg != "" {
		return msg
	}
	return "agent error"
}

// unwrap removes the outer {"data": {...}} envelope the converse API puts
// around event payloads. Non-JSON or unwrapped payloads pass through.
func unwrap(data []byte) json.RawMessage {
	if inner := gjson.GetBytes(data, "data"); inner.IsObject() {
		return json.RawMessage(inner.Raw)
	}
	return json.RawMessage(data)
}
