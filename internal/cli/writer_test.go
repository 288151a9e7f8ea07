package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/litrev/litrev/internal/event"
	"github.com/litrev/litrev/internal/protocol"
)

func writeAll(events ...event.Event) string {
	var buf bytes.Buffer
	w := NewWriter(&buf, false, 80)
	for _, ev := range events {
		w.WriteEvent(ev)
	}
	return buf.String()
}

func TestWriterAgentLifecycle(t *testing.T) {
	out := writeAll(
		event.AgentStart(protocol.LabelResearcher, "researcher-agent", 1),
		event.AgentEnd(protocol.LabelResearcher, 1),
	)

	assert.Contains(t, out, "▶ Research Agent (iteration 1)")
}

func TestWriterFragmentsStreamWithoutNewlines(t *testing.T) {
	out := writeAll(
		event.Fragment("Research Agent", 1, "Hello"),
		event.Fragment("Research Agent", 1, ", world"),
	)

	assert.Equal(t, "Hello, world", out)
}

func TestWriterLineEventClosesFragmentRun(t *testing.T) {
	out := writeAll(
		event.Fragment("Research Agent", 1, "partial text"),
		event.Error("something broke"),
	)

	assert.Contains(t, out, "partial text\n")
	assert.Contains(t, out, "✗ something broke")
}

func TestWriterVerdict(t *testing.T) {
	out := writeAll(event.VerdictEvent(2, protocol.VerdictPass))
	assert.Contains(t, out, "Verdict (iteration 2): PASS")

	out = writeAll(event.VerdictEvent(1, protocol.VerdictRevisionNeeded))
	assert.Contains(t, out, "Verdict (iteration 1): REVISION_NEEDED")
}

func TestWriterToolCall(t *testing.T) {
	payload := json.RawMessage(`{"tool_id":"search_papers","params":{"q":"crispr"}}`)
	out := writeAll(event.ToolCall("Research Agent", 1, payload))

	assert.Contains(t, out, "⚙ search_papers")
	assert.Contains(t, out, `"q": "crispr"`)
}

func TestWriterToolCallUnnamed(t *testing.T) {
	out := writeAll(event.ToolCall("Research Agent", 1, json.RawMessage(`{"params":{}}`)))
	assert.Contains(t, out, "⚙ tool call")
}

func TestWriterToolResultPreviewTruncated(t *testing.T) {
	long := bytes.Repeat([]byte("a"), 500)
	out := writeAll(event.ToolResult("Research Agent", 1, json.RawMessage(long)))

	assert.Contains(t, out, "→ ")
	assert.Contains(t, out, "…")
	assert.Less(t, len(out), 300)
}

func TestWriterResult(t *testing.T) {
	out := writeAll(event.Result(
		"# Report\n\nBody.",
		"review text",
		"Iteration 2 (verdict: PASS)",
		[]string{"Iteration 1: REVISION_NEEDED", "Iteration 2: PASS"},
	))

	assert.Contains(t, out, "Final report ─ Iteration 2 (verdict: PASS)")
	assert.Contains(t, out, "# Report")
	assert.Contains(t, out, "Iteration 1: REVISION_NEEDED")
	assert.Contains(t, out, "Iteration 2: PASS")
}

func TestWriterDonePrintsNothing(t *testing.T) {
	assert.Empty(t, writeAll(event.Done()))
}
