package loop

import (
	"context"
	"strings"

	"github.com/litrev/litrev/internal/debug"
	"github.com/litrev/litrev/internal/event"
	"github.com/litrev/litrev/internal/protocol"
)

// runRound drives one agent call to completion: it opens a fresh converse
// stream, forwards upstream events in the output vocabulary, and returns the
// agent's accumulated final text. agent_start is always emitted first and
// agent_end last. A single upstream error event does not end the round; the
// stream is drained to exhaustion. The ok result is false only when the
// consumer went away, in which case nothing further may be emitted.
func (c *Controller) runRound(ctx context.Context, agentID, label, input string, iteration int, out chan<- event.Event) (final string, ok bool) {
	if !emit(ctx, out, event.AgentStart(label, agentID, iteration)) {
		return "", false
	}

	var acc strings.Builder

	for ev := range c.client.Open(ctx, agentID, input, "") {
		switch ev.Type {
		case protocol.UpstreamError:
			if !emit(ctx, out, event.AgentError(label, iteration, ev.ErrorMessage())) {
				return "", false
			}

		case protocol.UpstreamReasoning:
			if !emit(ctx, out, event.Reasoning(label, iteration, ev.Reasoning())) {
				return "", false
			}

		case protocol.UpstreamToolCall:
			if !emit(ctx, out, event.ToolCall(label, iteration, ev.Data)) {
				return "", false
			}

		case protocol.UpstreamToolResult:
			if !emit(ctx, out, event.ToolResult(label, iteration, ev.Data)) {
				return "", false
			}

		case protocol.UpstreamMessageChunk:
			text := ev.TextChunk()
			if !emit(ctx, out, event.Fragment(label, iteration, text)) {
				return "", false
			}
			acc.WriteString(text)

		case protocol.UpstreamMessageComplete:
			// The complete payload is authoritative over fragment
			// accumulation.
			if text := ev.MessageContent(); text != "" {
				acc.Reset()
				acc.WriteString(text)
			}

		case protocol.UpstreamToolProgress:
			// Progress ticks have no place in the output vocabulary.

		default:
			if !protocol.IsLifecycle(ev.Type) {
				debug.Logf("round: unknown event type from %s: %s", agentID, ev.Type)
			}
		}
	}

	if ctx.Err() != nil {
		return "", false
	}

	if !emit(ctx, out, event.AgentEnd(label, iteration)) {
		return "", false
	}
	return acc.String(), true
}
