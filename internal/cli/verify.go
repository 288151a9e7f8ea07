package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/litrev/litrev/internal/agent"
	"github.com/litrev/litrev/internal/config"
	"github.com/litrev/litrev/internal/event"
	"github.com/litrev/litrev/internal/loop"
)

var verifyTimeout int

var verifyCmd = &cobra.Command{
	Use:   "verify [claim]",
	Short: "Verify a single scientific claim",
	Long: `Verify a scientific claim in a single pass against the literature.
No peer-review loop runs in this mode.

Examples:
  litrev verify "sleep deprivation impairs hippocampal memory consolidation"
  echo "the claim" | litrev verify`,
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().IntVar(&verifyTimeout, "timeout", 0, "Per-call agent timeout in seconds (overrides config)")
}

func runVerify(_ *cobra.Command, args []string) error {
	claim, err := buildTopic(args, os.Stdin)
	if err != nil {
		return fmt.Errorf("no claim provided. Usage: litrev verify \"the claim to check\"")
	}
	claim = strings.TrimSpace(claim)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.ApplyCLIFlags(0, verifyTimeout)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	ctrl := loop.New(cfg.ToLoopConfig(false), agent.New(cfg.ToAgentConfig()))
	return streamToTerminal(func(ctx context.Context) <-chan event.Event {
		return ctrl.Verify(ctx, claim)
	})
}
