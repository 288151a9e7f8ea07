package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/litrev/litrev/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage litrev configuration",
	Long:  `View and manage litrev configuration.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show resolved configuration with source annotations",
	Long: `Show the fully resolved configuration with annotations indicating
where each value came from.

Configuration is loaded from multiple sources with the following precedence:
  1. Embedded defaults (built into binary)
  2. Global config (~/.config/litrev/config.yaml)
  3. Environment variables
  4. CLI flags (highest precedence)`,
	RunE: runConfigShow,
}

func init() {
	configCmd.AddCommand(configShowCmd)
}

func runConfigShow(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	fmt.Println("# Litrev Configuration")
	fmt.Println()
	fmt.Println("## Sources (in order of precedence)")
	for _, src := range cfg.Sources() {
		fmt.Printf("  - %s\n", src)
	}
	fmt.Println()

	fmt.Println("## Backend")
	fmt.Printf("  kibana_url: %s\n", cfg.KibanaURL)
	if cfg.APIKey != "" {
		fmt.Printf("  api_key:    (set)\n")
	} else {
		fmt.Printf("  api_key:    (not set)\n")
	}
	fmt.Println()

	fmt.Println("## Loop Settings")
	fmt.Printf("  max_iterations:  %d\n", cfg.MaxIterations)
	fmt.Printf("  agent_timeout:   %ds\n", cfg.AgentTimeout)
	fmt.Printf("  connect_timeout: %ds\n", cfg.ConnectTimeout)
	fmt.Println()

	fmt.Println("## Agents")
	fmt.Printf("  researcher: %s\n", cfg.Agents.Researcher)
	fmt.Printf("  reviewer:   %s\n", cfg.Agents.Reviewer)
	fmt.Printf("  verifier:   %s\n", cfg.Agents.Verifier)
	fmt.Println()

	fmt.Println("## Server")
	fmt.Printf("  listen_addr: %s\n", cfg.ListenAddr)
	fmt.Println()

	fmt.Println("## Workflow")
	if cfg.Workflow.ID != "" {
		fmt.Printf("  id:            %s\n", cfg.Workflow.ID)
	} else {
		fmt.Printf("  id:            (none)\n")
	}
	if cfg.Workflow.YAMLPath != "" {
		fmt.Printf("  yaml_path:     %s\n", cfg.Workflow.YAMLPath)
	} else {
		fmt.Printf("  yaml_path:     (none)\n")
	}
	fmt.Printf("  poll_interval: %ds\n", cfg.Workflow.PollInterval)

	return nil
}
