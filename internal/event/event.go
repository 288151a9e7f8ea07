// Package event defines the typed output events streamed to consumers of a
// research or verification run. One flat struct with omitempty fields keeps
// the SSE payloads minimal while staying a single channel element type.
package event

import (
	"encoding/json"

	"github.com/litrev/litrev/internal/protocol"
)

// Type identifies the kind of output event.
type Type string

const (
	// TypeAgentStart marks the beginning of one agent round.
	TypeAgentStart Type = "agent_start"
	// TypeReasoning is a fragment of the agent's reasoning trace.
	TypeReasoning Type = "reasoning"
	// TypeToolCall is a tool invocation made by the agent.
	TypeToolCall Type = "tool_call"
	// TypeToolResult is the result of a tool invocation.
	TypeToolResult Type = "tool_result"
	// TypeContentFragment is a partial chunk of the agent's answer text.
	TypeContentFragment Type = "content_fragment"
	// TypeVerdict carries the parsed reviewer verdict for an iteration.
	TypeVerdict Type = "verdict"
	// TypeAgentEnd marks the end of one agent round.
	TypeAgentEnd Type = "agent_end"
	// TypeResult carries the final report. At most one per run.
	TypeResult Type = "result"
	// TypeError reports a failure. Errors are data, not panics.
	TypeError Type = "error"
	// TypeDone terminates the stream. Exactly one per run, always last.
	TypeDone Type = "done"
)

// Event is a single output event. Type is carried out of band (SSE event
// name); the remaining fields form the JSON payload.
type Event struct {
	Type Type `json:"-"`

	Agent     string `json:"agent,omitempty"`
	AgentID   string `json:"agent_id,omitempty"`
	Iteration int    `json:"iteration,omitempty"`

	// Text is the payload of reasoning and content_fragment events.
	Text string `json:"text,omitempty"`

	// Payload is the raw upstream body of tool_call / tool_result events.
	Payload json.RawMessage `json:"payload,omitempty"`

	// Verdict is set on verdict events.
	Verdict protocol.Verdict `json:"verdict,omitempty"`

	// Message is the human-readable text of error events.
	Message string `json:"message,omitempty"`

	// Result fields, set only on result events.
	Report        string   `json:"report,omitempty"`
	Review        string   `json:"review,omitempty"`
	IterationInfo string   `json:"iteration_info,omitempty"`
	Iterations    []string `json:"iterations,omitempty"`
}

// IsTerminal reports whether e ends the stream.
func (e Event) IsTerminal() bool { return e.Type == TypeDone }

// AgentStart creates an agent_start event.
func AgentStart(agent, agentID string, iteration int) Event {
	return Event{Type: TypeAgentStart, Agent: agent, AgentID: agentID, Iteration: iteration}
}

// AgentEnd creates an agent_end event.
func AgentEnd(agent string, iteration int) Event {
	return Event{Type: TypeAgentEnd, Agent: agent, Iteration: iteration}
}

// Reasoning creates a reasoning event.
func Reasoning(agent string, iteration int, text string) Event {
	return Event{Type: TypeReasoning, Agent: agent, Iteration: iteration, Text: text}
}

// ToolCall creates a tool_call event carrying the upstream payload verbatim.
func ToolCall(agent string, iteration int, payload json.RawMessage) Event {
	return Event{Type: TypeToolCall, Agent: agent, Iteration: iteration, Payload: payload}
}

// ToolResult creates a tool_result event carrying the upstream payload verbatim.
func ToolResult(agent string, iteration int, payload json.RawMessage) Event {
	return Event{Type: TypeToolResult, Agent: agent, Iteration: iteration, Payload: payload}
}

// Fragment creates a content_fragment event.
func Fragment(agent string, iteration int, text string) Event {
	return Event{Type: TypeContentFragment, Agent: agent, Iteration: iteration, Text: text}
}

// VerdictEvent creates a verdict event.
func VerdictEvent(iteration int, v protocol.Verdict) Event {
	return Event{Type: TypeVerdict, Iteration: iteration, Verdict: v}
}

// Error creates an error event.
func Error(message string) Event {
	return Event{Type: TypeError, Message: message}
}

// AgentError creates an error event attributed to a specific agent round.
func AgentError(agent string, iteration int, message string) Event {
	return Event{Type: TypeError, Agent: agent, Iteration: iteration, Message: message}
}

// Done creates the terminal event.
func Done() Event { return Event{Type: TypeDone} }

// Result creates the final result event.
func Result(report, review, iterationInfo string, iterations []string) Event {
	return Event{
		Type:          TypeResult,
		Report:        report,
		Review:        review,
		IterationInfo: iterationInfo,
		Iterations:    iterations,
	}
}
