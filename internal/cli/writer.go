package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"

	"github.com/litrev/litrev/internal/event"
	"github.com/litrev/litrev/internal/protocol"
)

// toolResultPreview caps how much of a tool result payload is shown.
const toolResultPreview = 200

var (
	styleAgent   = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	styleTool    = lipgloss.NewStyle().Foreground(lipgloss.Color("117"))
	styleDim     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	stylePass    = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	styleFail    = lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Bold(true)
	styleError   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	styleSection = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
)

// Writer prints output events to a terminal or plain stream. Content
// fragments are streamed as-is; everything else is line-oriented.
type Writer struct {
	out      io.Writer
	isTTY    bool
	renderer *glamour.TermRenderer

	// midFragment tracks whether the last write was a raw fragment, so
	// line-oriented events can terminate the line first.
	midFragment bool
}

// NewWriter creates a Writer. If width is <= 0, defaults to 80.
func NewWriter(out io.Writer, isTTY bool, width int) *Writer {
	if width <= 0 {
		width = 80
	}

	w := &Writer{out: out, isTTY: isTTY}

	if isTTY {
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle("dark"),
			glamour.WithWordWrap(max(width-4, 40)),
		)
		if err == nil {
			w.renderer = r
		}
	}

	return w
}

// WriteEvent prints a single event.
func (w *Writer) WriteEvent(ev event.Event) {
	switch ev.Type {
	case event.TypeAgentStart:
		w.line(w.render(styleAgent, fmt.Sprintf("▶ %s (iteration %d)", ev.Agent, ev.Iteration)))

	case event.TypeAgentEnd:
		w.line("")

	case event.TypeReasoning:
		w.line(w.render(styleDim, ev.Text))

	case event.TypeToolCall:
		w.line(w.render(styleTool, "⚙ "+toolName(ev.Payload)))
		if len(ev.Payload) > 0 {
			w.line(w.render(styleDim, strings.TrimSpace(string(pretty.Pretty(ev.Payload)))))
		}

	case event.TypeToolResult:
		w.line(w.render(styleDim, "  → "+preview(string(ev.Payload), toolResultPreview)))

	case event.TypeContentFragment:
		fmt.Fprint(w.out, ev.Text)
		w.midFragment = true

	case event.TypeVerdict:
		style := styleFail
		if ev.Verdict == protocol.VerdictPass {
			style = stylePass
		}
		w.line(w.render(style, fmt.Sprintf("Verdict (iteration %d): %s", ev.Iteration, ev.Verdict)))

	case event.TypeError:
		w.line(w.render(styleError, "✗ "+ev.Message))

	case event.TypeResult:
		w.writeResult(ev)

	case event.TypeDone:
		// Terminal marker, nothing to print.
	}
}

// writeResult prints the final report, rendered as markdown on a TTY.
func (w *Writer) writeResult(ev event.Event) {
	w.line("")
	w.line(w.render(styleSection, "── Final report ─ "+ev.IterationInfo+" ──"))

	report := ev.Report
	if w.renderer != nil {
		if rendered, err := w.renderer.Render(report); err == nil {
			report = rendered
		}
	}
	w.line(report)

	if len(ev.Iterations) > 0 {
		w.line(w.render(styleSection, "Iterations:"))
		for _, it := range ev.Iterations {
			w.line(w.render(styleDim, "  "+it))
		}
	}
}

// line prints s on its own line, closing a fragment run first if needed.
func (w *Writer) line(s string) {
	if w.midFragment {
		fmt.Fprintln(w.out)
		w.midFragment = false
	}
	fmt.Fprintln(w.out, s)
}

func (w *Writer) render(style lipgloss.Style, s string) string {
	if !w.isTTY {
		return s
	}
	return style.Render(s)
}

// toolName pulls a displayable tool identifier out of a tool_call payload.
func toolName(payload []byte) string {
	for _, path := range []string{"tool_id", "tool_name", "name"} {
		if v := gjson.GetBytes(payload, path).String(); v != "" {
			return v
		}
	}
	return "tool call"
}

func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
