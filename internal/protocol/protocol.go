// Package protocol defines the cross-package vocabulary for litrev:
// verdict values, the verdict marker, upstream agent event types, and the
// agent labels used in outbound events.
package protocol

// Verdict is the reviewer's judgement for one iteration.
type Verdict string

const (
	VerdictPass           Verdict = "PASS"
	VerdictRevisionNeeded Verdict = "REVISION_NEEDED"
)

func (v Verdict) String() string { return string(v) }

// IsValid reports whether v is a recognised verdict value.
func (v Verdict) IsValid() bool {
	switch v {
	case VerdictPass, VerdictRevisionNeeded:
		return true
	default:
		return false
	}
}

// VerdictMarker is the token the reviewer agent is instructed to emit
// before its verdict word.
const VerdictMarker = "VERDICT:"

// Upstream event types produced by the converse API stream.
const (
	UpstreamReasoning       = "reasoning"
	UpstreamToolCall        = "tool_call"
	UpstreamToolResult      = "tool_result"
	UpstreamToolProgress    = "tool_progress"
	UpstreamMessageChunk    = "message_chunk"
	UpstreamMessageComplete = "message_complete"
	UpstreamError           = "error"
)

// Upstream lifecycle event types. These are internal to the conversation
// protocol and are consumed without being forwarded.
const (
	UpstreamConversationIDSet   = "conversation_id_set"
	UpstreamConversationCreated = "conversation_created"
	UpstreamThinkingComplete    = "thinking_complete"
	UpstreamRoundComplete       = "round_complete"
)

// IsLifecycle reports whether t is an internal lifecycle event type.
func IsLifecycle(t string) bool {
	switch t {
	case UpstreamConversationIDSet, UpstreamConversationCreated,
		UpstreamThinkingComplete, UpstreamRoundComplete:
		return true
	default:
		return false
	}
}

// Human-readable agent labels carried on outbound events.
const (
	LabelResearcher = "Research Agent"
	LabelReviewer   = "Peer Review Agent"
	LabelVerifier   = "Claim Verification Agent"
)

// Iteration summary entry markers used when review is skipped or the
// verifier runs (no verdict is parsed for these).
const (
	SummaryResearchOnly      = "RESEARCH_ONLY"
	SummaryClaimVerification = "CLAIM_VERIFICATION"
)
