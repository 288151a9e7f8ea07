package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/litrev/litrev/internal/agent"
	"github.com/litrev/litrev/internal/config"
	"github.com/litrev/litrev/internal/event"
	"github.com/litrev/litrev/internal/loop"
)

var (
	researchSkipReview    bool
	researchMaxIterations int
	researchTimeout       int
)

var researchCmd = &cobra.Command{
	Use:   "research [topic]",
	Short: "Run the research-review loop for a topic",
	Long: `Run the full research-review loop: the researcher agent drafts a
literature review, the peer-review agent evaluates it, and the draft is
revised until the review passes or the iteration cap is reached.

The topic can be provided as an argument or piped via stdin.

Examples:
  litrev research "transformer architectures for protein folding"
  litrev research --skip-review "a quick single-pass draft"
  echo "CRISPR off-target effects" | litrev research`,
	RunE: runResearch,
}

func init() {
	researchCmd.Flags().BoolVar(&researchSkipReview, "skip-review", false, "Run a single researcher round without peer review")
	researchCmd.Flags().IntVar(&researchMaxIterations, "max-iterations", 0, "Maximum researcher/reviewer iteration pairs (overrides config)")
	researchCmd.Flags().IntVar(&researchTimeout, "timeout", 0, "Per-call agent timeout in seconds (overrides config)")
}

// buildTopic assembles the topic from CLI args or stdin.
func buildTopic(args []string, stdin *os.File) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}

	stat, err := stdin.Stat()
	if err == nil && (stat.Mode()&os.ModeCharDevice) == 0 {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read from stdin: %w", err)
		}
		if t := strings.TrimSpace(string(data)); t != "" {
			return t, nil
		}
	}

	return "", fmt.Errorf("no topic provided. Usage: litrev research \"your topic here\"")
}

func runResearch(_ *cobra.Command, args []string) error {
	topic, err := buildTopic(args, os.Stdin)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.ApplyCLIFlags(researchMaxIterations, researchTimeout)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	ctrl := loop.New(cfg.ToLoopConfig(researchSkipReview), agent.New(cfg.ToAgentConfig()))
	return streamToTerminal(func(ctx context.Context) <-chan event.Event {
		return ctrl.Run(ctx, topic)
	})
}

// streamToTerminal runs an event stream to completion, printing every event
// and interrupting cleanly on SIGINT/SIGTERM. It returns an error when the
// stream ended on an error without a result.
func streamToTerminal(start func(context.Context) <-chan event.Event) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	isTTY := term.IsTerminal(int(os.Stdout.Fd()))
	width := 0
	if isTTY {
		width, _, _ = term.GetSize(int(os.Stdout.Fd()))
	}
	w := NewWriter(os.Stdout, isTTY, width)

	var lastError string
	sawResult := false
	for ev := range loop.Guard(ctx, start(ctx)) {
		w.WriteEvent(ev)
		switch ev.Type {
		case event.TypeError:
			lastError = ev.Message
		case event.TypeResult:
			sawResult = true
		}
	}

	if ctx.Err() != nil {
		return fmt.Errorf("interrupted")
	}
	if !sawResult && lastError != "" {
		return fmt.Errorf("run failed: %s", lastError)
	}
	return nil
}
