// Package sse implements the minimal server-sent-events framing used on both
// sides of litrev: decoding the upstream converse stream and encoding the
// outbound event stream.
package sse

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Event is one decoded SSE event.
type Event struct {
	Name string
	Data []byte
}

// Decoder reads SSE events from a stream.
type Decoder struct {
	scanner *bufio.Scanner
}

// maxLineSize bounds a single SSE line; report chunks can be large.
const maxLineSize = 1024 * 1024

// NewDecoder creates a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, maxLineSize), maxLineSize)
	return &Decoder{scanner: scanner}
}

// Next returns the next complete event. It returns io.EOF when the stream
// ends cleanly and the underlying read error otherwise. An event is emitted
// as soon as a data line follows an event line; a blank line resets any
// half-read frame.
func (d *Decoder) Next() (Event, error) {
	var name string
	for d.scanner.Scan() {
		line := d.scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimSpace(line[len("event: "):])
		case strings.HasPrefix(line, "data: ") && name != "":
			return Event{Name: name, Data: []byte(line[len("data: "):])}, nil
		case strings.TrimSpace(line) == "":
			name = ""
		}
	}
	if err := d.scanner.Err(); err != nil {
		return Event{}, err
	}
	return Event{}, io.EOF
}

// Marshal renders one wire frame: "event: <name>\ndata: <json>\n\n".
func Marshal(name string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", name, err)
	}
	return fmt.Appendf(nil, "event: %s\ndata: %s\n\n", name, data), nil
}
