package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/litrev/litrev/internal/config"
	"github.com/litrev/litrev/internal/event"
	"github.com/litrev/litrev/internal/workflow"
)

var (
	workflowID       string
	workflowYAMLPath string
	workflowInterval int
)

var workflowCmd = &cobra.Command{
	Use:   "workflow [topic]",
	Short: "Run the review loop through the workflow engine",
	Long: `Run the research-review loop as a server-side workflow execution
instead of streaming it locally. The command triggers the workflow, polls
the execution until it settles, and prints the final report.

Examples:
  litrev workflow "graph neural networks for drug discovery"
  litrev workflow --poll-interval 5 "a topic"`,
	RunE: runWorkflow,
}

func init() {
	workflowCmd.Flags().StringVar(&workflowID, "workflow-id", "", "Workflow identifier (overrides config)")
	workflowCmd.Flags().StringVar(&workflowYAMLPath, "workflow-yaml", "", "Path to a workflow definition to submit inline")
	workflowCmd.Flags().IntVar(&workflowInterval, "poll-interval", 0, "Poll interval in seconds (overrides config)")
}

func runWorkflow(_ *cobra.Command, args []string) error {
	topic, err := buildTopic(args, os.Stdin)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	id := cfg.Workflow.ID
	if workflowID != "" {
		id = workflowID
	}
	yamlPath := cfg.Workflow.YAMLPath
	if workflowYAMLPath != "" {
		yamlPath = workflowYAMLPath
	}

	var workflowYAML string
	if yamlPath != "" {
		data, err := os.ReadFile(yamlPath) //nolint:gosec // user-supplied path
		if err != nil {
			return fmt.Errorf("read workflow definition: %w", err)
		}
		workflowYAML = string(data)
	}
	if id == "" && workflowYAML == "" {
		return fmt.Errorf("no workflow configured (set workflow.id or --workflow-yaml)")
	}

	interval := workflow.DefaultPollInterval
	if workflowInterval > 0 {
		interval = time.Duration(workflowInterval) * time.Second
	} else if cfg.Workflow.PollInterval > 0 {
		interval = time.Duration(cfg.Workflow.PollInterval) * time.Second
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := workflow.NewClient(cfg.KibanaURL, cfg.APIKey)

	executionID, err := client.Trigger(ctx, id, workflowYAML, topic)
	if err != nil {
		return fmt.Errorf("trigger workflow: %w", err)
	}
	fmt.Printf("Workflow execution started: %s\n", executionID)

	lastStatus := ""
	exec, err := client.WaitForCompletion(ctx, executionID, interval, func(e workflow.Execution) {
		if s := e.Status(); s != lastStatus {
			fmt.Printf("  status: %s (%d steps)\n", s, e.StepCount())
			lastStatus = s
		}
	})
	if err != nil {
		return fmt.Errorf("wait for workflow: %w", err)
	}

	if exec.Status() != "completed" {
		return fmt.Errorf("workflow execution ended with status %q", exec.Status())
	}

	report, review, iterationInfo := exec.FinalReport()
	if report == "" {
		return fmt.Errorf("workflow completed but produced no report")
	}

	isTTY := term.IsTerminal(int(os.Stdout.Fd()))
	width := 0
	if isTTY {
		width, _, _ = term.GetSize(int(os.Stdout.Fd()))
	}
	w := NewWriter(os.Stdout, isTTY, width)

	ev := event.Result(report, review, iterationInfo, exec.IterationSummary())
	w.WriteEvent(ev)
	return nil
}
