package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/litrev/litrev/internal/protocol"
)

func testConfig(baseURL string) Config {
	return Config{
		BaseURL:        baseURL,
		APIKey:         "test-key",
		ConnectTimeout: 5 * time.Second,
		CallTimeout:    5 * time.Second,
	}
}

func collect(ch <-chan Event) []Event {
	var events []Event
	for ev := range ch {
		events = append(events, ev)
	}
	return events
}

func writeFrame(t *testing.T, w http.ResponseWriter, name, data string) {
	t.Helper()
	_, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)
	require.NoError(t, err)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func TestOpenRelaysEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/agent_builder/converse/async", r.URL.Path)
		assert.Equal(t, "ApiKey test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "true", r.Header.Get("kbn-xsrf"))
		assert.Equal(t, "Kibana", r.Header.Get("x-elastic-internal-origin"))
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "research_agent", body["agent_id"])
		assert.Equal(t, "the topic", body["input"])
		assert.NotContains(t, body, "conversation_id")

		w.Header().Set("Content-Type", "text/event-stream")
		writeFrame(t, w, "reasoning", `{"data":{"reasoning":"thinking about it"}}`)
		writeFrame(t, w, "message_chunk", `{"data":{"text_chunk":"Hello"}}`)
		writeFrame(t, w, "message_complete", `{"data":{"message_content":"Hello world"}}`)
	}))
	defer srv.Close()

	client := New(testConfig(srv.URL))
	events := collect(client.Open(context.Background(), "research_agent", "the topic", ""))

	require.Len(t, events, 3)
	assert.Equal(t, protocol.UpstreamReasoning, events[0].Type)
	assert.Equal(t, "thinking about it", events[0].Reasoning())
	assert.Equal(t, protocol.UpstreamMessageChunk, events[1].Type)
	assert.Equal(t, "Hello", events[1].TextChunk())
	assert.Equal(t, protocol.UpstreamMessageComplete, events[2].Type)
	assert.Equal(t, "Hello world", events[2].MessageContent())
}

func TestOpenIncludesConversationID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "conv-42", body["conversation_id"])
		w.Header().Set("Content-Type", "text/event-stream")
	}))
	defer srv.Close()

	client := New(testConfig(srv.URL))
	collect(client.Open(context.Background(), "a", "input", "conv-42"))
}

func TestOpenNon200BecomesErrorEvent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"message":"invalid api key"}`)
	}))
	defer srv.Close()

	client := New(testConfig(srv.URL))
	events := collect(client.Open(context.Background(), "a", "input", ""))

	require.Len(t, events, 1)
	assert.Equal(t, protocol.UpstreamError, events[0].Type)
	assert.Contains(t, events[0].ErrorMessage(), "401")
	assert.Contains(t, events[0].ErrorMessage(), "invalid api key")
}

func TestOpenConnectionRefusedBecomesErrorEvent(t *testing.T) {
	// Reserve a port, then close it so nothing is listening.
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := New(testConfig(url))
	events := collect(client.Open(context.Background(), "a", "input", ""))

	require.Len(t, events, 1)
	assert.Equal(t, protocol.UpstreamError, events[0].Type)
	assert.Contains(t, events[0].ErrorMessage(), "agent connection error")
}

func TestOpenMidStreamEventsSurviveTruncation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		writeFrame(t, w, "message_chunk", `{"data":{"text_chunk":"partial"}}`)
		// Connection drops without a message_complete; the decoder sees a
		// clean EOF and the channel just closes.
	}))
	defer srv.Close()

	client := New(testConfig(srv.URL))
	events := collect(client.Open(context.Background(), "a", "input", ""))

	require.Len(t, events, 1)
	assert.Equal(t, "partial", events[0].TextChunk())
}

func TestOpenCancelledContextClosesSilently(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		writeFrame(t, w, "reasoning", `{"data":{"reasoning":"first"}}`)
		<-release
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	client := New(testConfig(srv.URL))
	ch := client.Open(ctx, "a", "input", "")

	ev, ok := <-ch
	require.True(t, ok)
	assert.Equal(t, "first", ev.Reasoning())

	cancel()

	deadline := time.After(3 * time.Second)
	for {
		select {
		case _, open := <-ch:
			if !open {
				return
			}
		case <-deadline:
			t.Fatal("channel did not close after cancellation")
		}
	}
}

func TestUnwrap(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"enveloped object", `{"data":{"reasoning":"x"}}`, `{"reasoning":"x"}`},
		{"already flat", `{"reasoning":"x"}`, `{"reasoning":"x"}`},
		{"data field not an object", `{"data":"just a string"}`, `{"data":"just a string"}`},
		{"not json", `plain text`, `plain text`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, string(unwrap([]byte(tt.in))))
		})
	}
}

func TestErrorMessageFallback(t *testing.T) {
	ev := Event{Type: protocol.UpstreamError, Data: json.RawMessage(`{}`)}
	assert.Equal(t, "agent error", ev.ErrorMessage())

	ev = Event{Type: protocol.UpstreamError, Data: json.RawMessage(`{"message":"boom"}`)}
	assert.Equal(t, "boom", ev.ErrorMessage())
}

func TestBuildPayload(t *testing.T) {
	body, err := buildPayload("agent-1", "the input", "")
	require.NoError(t, err)
	assert.Equal(t, "agent-1", gjson.Get(body, "agent_id").String())
	assert.Equal(t, "the input", gjson.Get(body, "input").String())
	assert.False(t, gjson.Get(body, "conversation_id").Exists())

	body, err = buildPayload("agent-1", "more", "conv-7")
	require.NoError(t, err)
	assert.Equal(t, "conv-7", gjson.Get(body, "conversation_id").String())
}
