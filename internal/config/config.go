// Package config provides unified configuration management for litrev.
// Configuration is loaded from multiple sources with the following
// precedence: embedded defaults → global file → env vars → CLI flags.
package config

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/litrev/litrev/internal/agent"
	"github.com/litrev/litrev/internal/loop"
)

//go:embed defaults/config.yaml
var defaultsFS embed.FS

// AgentsConfig names the three Agent Builder agent identities.
type AgentsConfig struct {
	Researcher string `yaml:"researcher"`
	Reviewer   string `yaml:"reviewer"`
	Verifier   string `yaml:"verifier"`
}

// WorkflowConfig holds the workflow-engine execution surface settings.
type WorkflowConfig struct {
	ID           string `yaml:"id"`
	YAMLPath     string `yaml:"yaml_path"`
	PollInterval int    `yaml:"poll_interval"` // seconds
}

// Config holds all configuration settings for litrev.
type Config struct {
	KibanaURL string `yaml:"kibana_url"`
	APIKey    string `yaml:"api_key"`

	MaxIterations  int `yaml:"max_iterations"`
	AgentTimeout   int `yaml:"agent_timeout"`   // seconds
	ConnectTimeout int `yaml:"connect_timeout"` // seconds

	ListenAddr string `yaml:"listen_addr"`

	Agents   AgentsConfig   `yaml:"agents"`
	Workflow WorkflowConfig `yaml:"workflow"`

	// sources is the ordered list of places that contributed values.
	sources []string
}

// Sources returns where this config was loaded from, in order.
func (c *Config) Sources() []string { return c.sources }

// Load loads configuration from the default global directory.
func Load() (*Config, error) {
	return LoadWithDir(DefaultConfigDir())
}

// LoadWithDir loads configuration with an explicit global directory,
// installing the embedded defaults there on first run.
func LoadWithDir(configDir string) (*Config, error) {
	if err := InstallDefaults(configDir); err != nil {
		return nil, fmt.Errorf("install defaults: %w", err)
	}

	cfg, err := loadEmbedded()
	if err != nil {
		return nil, fmt.Errorf("load embedded defaults: %w", err)
	}
	cfg.sources = append(cfg.sources, "embedded")

	path := filepath.Join(configDir, "config.yaml")
	if fileCfg, err := loadFile(path); err == nil {
		cfg.mergeFrom(fileCfg)
		cfg.sources = append(cfg.sources, path)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("load config file: %w", err)
	}

	cfg.applyEnv()
	return cfg, nil
}

// DefaultConfigDir returns the default global configuration directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "litrev")
	}
	return filepath.Join(home, ".config", "litrev")
}

// InstallDefaults creates the config directory and installs the default
// config file if not present.
func InstallDefaults(configDir string) error {
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	configPath := filepath.Join(configDir, "config.yaml")
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		data, err := defaultsFS.ReadFile("defaults/config.yaml")
		if err != nil {
			return fmt.Errorf("read embedded config: %w", err)
		}
		if err := os.WriteFile(configPath, data, 0o600); err != nil {
			return fmt.Errorf("write config file: %w", err)
		}
	}

	return nil
}

func loadEmbedded() (*Config, error) {
	data, err := defaultsFS.ReadFile("defaults/config.yaml")
	if err != nil {
		return nil, fmt.Errorf("read embedded defaults: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

func loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user's config file
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

// mergeFrom merges non-zero values from src into c.
func (c *Config) mergeFrom(src *Config) {
	if src.KibanaURL != "" {
		c.KibanaURL = src.KibanaURL
	}
	if src.APIKey != "" {
		c.APIKey = src.APIKey
	}
	if src.MaxIterations > 0 {
		c.MaxIterations = src.MaxIterations
	}
	if src.AgentTimeout > 0 {
		c.AgentTimeout = src.AgentTimeout
	}
	if src.ConnectTimeout > 0 {
		c.ConnectTimeout = src.ConnectTimeout
	}
	if src.ListenAddr != "" {
		c.ListenAddr = src.ListenAddr
	}
	if src.Agents.Researcher != "" {
		c.Agents.Researcher = src.Agents.Researcher
	}
	if src.Agents.Reviewer != "" {
		c.Agents.Reviewer = src.Agents.Reviewer
	}
	if src.Agents.Verifier != "" {
		c.Agents.Verifier = src.Agents.Verifier
	}
	if src.Workflow.ID != "" {
		c.Workflow.ID = src.Workflow.ID
	}
	if src.Workflow.YAMLPath != "" {
		c.Workflow.YAMLPath = src.Workflow.YAMLPath
	}
	if src.Workflow.PollInterval > 0 {
		c.Workflow.PollInterval = src.Workflow.PollInterval
	}
}

// applyEnv applies environment variables to the config. Env vars sit
// between the config file and CLI flags in precedence.
func (c *Config) applyEnv() {
	if v := os.Getenv("KIBANA_URL"); v != "" {
		c.KibanaURL = v
		c.sources = append(c.sources, "env:KIBANA_URL")
	}
	if v := os.Getenv("ELASTIC_API_KEY"); v != "" {
		c.APIKey = v
		c.sources = append(c.sources, "env:ELASTIC_API_KEY")
	}
	if v := os.Getenv("LITREV_MAX_ITERATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxIterations = n
			c.sources = append(c.sources, "env:LITREV_MAX_ITERATIONS")
		}
	}
	if v := os.Getenv("LITREV_AGENT_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.AgentTimeout = n
			c.sources = append(c.sources, "env:LITREV_AGENT_TIMEOUT")
		}
	}
	if v := os.Getenv("LITREV_LISTEN_ADDR"); v != "" {
		c.ListenAddr = v
		c.sources = append(c.sources, "env:LITREV_LISTEN_ADDR")
	}
}

// ApplyCLIFlags applies CLI flag overrides. CLI flags have the highest
// precedence.
func (c *Config) ApplyCLIFlags(maxIterations, timeout int) {
	if maxIterations > 0 {
		c.MaxIterations = maxIterations
		c.sources = append(c.sources, "cli:max-iterations")
	}
	if timeout > 0 {
		c.AgentTimeout = timeout
		c.sources = append(c.sources, "cli:timeout")
	}
}

// Validate checks that the config can reach the agent backend.
func (c *Config) Validate() error {
	if c.KibanaURL == "" {
		return errors.New("kibana_url is required (set KIBANA_URL or edit the config file)")
	}
	if c.APIKey == "" {
		return errors.New("api_key is required (set ELASTIC_API_KEY or edit the config file)")
	}
	if c.MaxIterations < 1 {
		return fmt.Errorf("max_iterations must be >= 1, got %d", c.MaxIterations)
	}
	return nil
}

// ToAgentConfig builds the streaming client configuration.
func (c *Config) ToAgentConfig() agent.Config {
	return agent.Config{
		BaseURL:        c.KibanaURL,
		APIKey:         c.APIKey,
		ConnectTimeout: time.Duration(c.ConnectTimeout) * time.Second,
		CallTimeout:    time.Duration(c.AgentTimeout) * time.Second,
	}
}

// ToLoopConfig builds the loop controller configuration.
func (c *Config) ToLoopConfig(skipReview bool) loop.Config {
	return loop.Config{
		ResearcherAgentID: c.Agents.Researcher,
		ReviewerAgentID:   c.Agents.Reviewer,
		VerifierAgentID:   c.Agents.Verifier,
		MaxIterations:     c.MaxIterations,
		SkipReview:        skipReview,
	}
}
