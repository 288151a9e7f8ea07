// Package agent provides the streaming HTTP client for the Elastic Agent
// Builder converse API. One call opens one SSE connection; faults never
// surface as errors, they become error events on the stream.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/sjson"

	"github.com/litrev/litrev/internal/debug"
	"github.com/litrev/litrev/internal/protocol"
	"github.com/litrev/litrev/internal/sse"
)

// conversePath is the streaming converse endpoint, relative to the base URL.
const conversePath = "/api/agent_builder/converse/async"

// errorBodyLimit caps how much of a non-2xx response body is carried into
// the error event.
const errorBodyLimit = 500

// Config holds the connection settings for a Client.
type Config struct {
	// BaseURL is the Kibana base URL, without trailing slash.
	BaseURL string

	// APIKey authenticates requests (Authorization: ApiKey <key>).
	APIKey string

	// ConnectTimeout bounds connection establishment.
	ConnectTimeout time.Duration

	// CallTimeout bounds one whole converse call, open to exhaustion.
	CallTimeout time.Duration
}

// Client streams conversations with Agent Builder agents.
type Client struct {
	cfg  Config
	http *http.Client
}

// New creates a Client from cfg.
func New(cfg Config) *Client {
	return &Client{
		cfg: cfg,
		http: &http.Client{
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout: cfg.ConnectTimeout,
				}).DialContext,
				TLSHandshakeTimeout: cfg.ConnectTimeout,
			},
		},
	}
}

// Open starts a converse call and returns a forward-only event stream. The
// channel is closed when the upstream stream ends, a fault is reported, or
// ctx is cancelled. Exactly one connection is opened per call and released
// on every exit path. Open never returns transport errors; they arrive as
// error events on the channel.
func (c *Client) Open(ctx context.Context, agentID, input, conversationID string) <-chan Event {
	ch := make(chan Event, 32)

	go func() {
		defer close(ch)

		callCtx := ctx
		if c.cfg.CallTimeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, c.cfg.CallTimeout)
			defer cancel()
		}

		body, err := buildPayload(agentID, input, conversationID)
		if err != nil {
			send(ctx, ch, errorEvent(fmt.Sprintf("build converse payload: %v", err)))
			return
		}

		req, err := http.NewRequestWithContext(callCtx, http.MethodPost,
			c.cfg.BaseURL+conversePath, strings.NewReader(body))
		if err != nil {
			send(ctx, ch, errorEvent(fmt.Sprintf("create converse request: %v", err)))
			return
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "text/event-stream")
		req.Header.Set("kbn-xsrf", "true")
		req.Header.Set("x-elastic-internal-origin", "Kibana")
		req.Header.Set("Authorization", "ApiKey "+c.cfg.APIKey)

		debug.Logf("agent: converse call agent_id=%s conversation_id=%q", agentID, conversationID)

		resp, err := c.http.Do(req)
		if err != nil {
			if callCtx.Err() != nil && ctx.Err() != nil {
				return // caller went away, nothing to report
			}
			send(ctx, ch, errorEvent(fmt.Sprintf("agent connection error: %v", err)))
			return
		}
		defer resp.Body.Close()

		debug.Logf("agent: converse response status=%d agent_id=%s", resp.StatusCode, agentID)

		if resp.StatusCode != http.StatusOK {
			detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			send(ctx, ch, errorEvent(fmt.Sprintf(
				"agent API returned %d: %s", resp.StatusCode, truncate(string(detail), errorBodyLimit))))
			return
		}

		c.relay(ctx, callCtx, resp.Body, ch)
	}()

	return ch
}

// relay decodes SSE frames from body and forwards them as events until
// exhaustion, fault, or cancellation.
func (c *Client) relay(ctx, callCtx context.Context, body io.Reader, ch chan<- Event) {
	dec := sse.NewDecoder(body)
	for {
		frame, err := dec.Next()
		if err == io.EOF {
			return
		}
		if err != nil {
			if ctx.Err() != nil {
				return // consumer-initiated close, stay silent
			}
			msg := fmt.Sprintf("agent stream error: %v", err)
			if callCtx.Err() == context.DeadlineExceeded {
				msg = "agent call timed out"
			}
			send(ctx, ch, errorEvent(msg))
			return
		}
		if !send(ctx, ch, Event{Type: frame.Name, Data: unwrap(frame.Data)}) {
			return
		}
	}
}

// buildPayload renders the converse request body. conversation_id is only
// present when continuing an existing conversation.
func buildPayload(agentID, input, conversationID string) (string, error) {
	body, err := sjson.Set("", "input", input)
	if err != nil {
		return "", err
	}
	body, err = sjson.Set(body, "agent_id", agentID)
	if err != nil {
		return "", err
	}
	if conversationID != "" {
		body, err = sjson.Set(body, "conversation_id", conversationID)
		if err != nil {
			return "", err
		}
	}
	return body, nil
}

// send delivers ev unless the caller has gone away.
func send(ctx context.Context, ch chan<- Event, ev Event) bool {
	select {
	case ch <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func errorEvent(message string) Event {
	data, _ := json.Marshal(map[string]string{"message": message})
	return Event{Type: protocol.UpstreamError, Data: data}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
