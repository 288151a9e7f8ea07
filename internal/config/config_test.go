package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"KIBANA_URL", "ELASTIC_API_KEY",
		"LITREV_MAX_ITERATIONS", "LITREV_AGENT_TIMEOUT", "LITREV_LISTEN_ADDR",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadEmbeddedDefaults(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	cfg, err := LoadWithDir(dir)
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.MaxIterations)
	assert.Equal(t, 600, cfg.AgentTimeout)
	assert.Equal(t, 30, cfg.ConnectTimeout)
	assert.Equal(t, "127.0.0.1:8000", cfg.ListenAddr)
	assert.Equal(t, "research_literature_review_agent", cfg.Agents.Researcher)
	assert.Equal(t, "peer_review_agent", cfg.Agents.Reviewer)
	assert.Equal(t, "claim_verification_agent", cfg.Agents.Verifier)
	assert.Contains(t, cfg.Sources(), "embedded")
}

func TestLoadInstallsDefaultConfigFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	_, err := LoadWithDir(dir)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	content := `kibana_url: https://kibana.example.com
api_key: file-key
max_iterations: 5
agents:
  researcher: custom_researcher
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o600))

	cfg, err := LoadWithDir(dir)
	require.NoError(t, err)

	assert.Equal(t, "https://kibana.example.com", cfg.KibanaURL)
	assert.Equal(t, "file-key", cfg.APIKey)
	assert.Equal(t, 5, cfg.MaxIterations)
	assert.Equal(t, "custom_researcher", cfg.Agents.Researcher)
	// Values the file does not set keep their defaults.
	assert.Equal(t, "peer_review_agent", cfg.Agents.Reviewer)
	assert.Equal(t, 600, cfg.AgentTimeout)
}

func TestEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	content := `kibana_url: https://from-file.example.com
max_iterations: 5
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o600))

	t.Setenv("KIBANA_URL", "https://from-env.example.com")
	t.Setenv("ELASTIC_API_KEY", "env-key")
	t.Setenv("LITREV_MAX_ITERATIONS", "3")

	cfg, err := LoadWithDir(dir)
	require.NoError(t, err)

	assert.Equal(t, "https://from-env.example.com", cfg.KibanaURL)
	assert.Equal(t, "env-key", cfg.APIKey)
	assert.Equal(t, 3, cfg.MaxIterations)
	assert.Contains(t, cfg.Sources(), "env:KIBANA_URL")
}

func TestApplyCLIFlagsHighestPrecedence(t *testing.T) {
	clearEnv(t)
	t.Setenv("LITREV_MAX_ITERATIONS", "3")

	cfg, err := LoadWithDir(t.TempDir())
	require.NoError(t, err)

	cfg.ApplyCLIFlags(7, 120)
	assert.Equal(t, 7, cfg.MaxIterations)
	assert.Equal(t, 120, cfg.AgentTimeout)

	// Zero values mean the flag was not set.
	cfg.ApplyCLIFlags(0, 0)
	assert.Equal(t, 7, cfg.MaxIterations)
	assert.Equal(t, 120, cfg.AgentTimeout)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(*Config) {},
		},
		{
			name:    "missing kibana url",
			mutate:  func(c *Config) { c.KibanaURL = "" },
			wantErr: "kibana_url is required",
		},
		{
			name:    "missing api key",
			mutate:  func(c *Config) { c.APIKey = "" },
			wantErr: "api_key is required",
		},
		{
			name:    "zero iterations",
			mutate:  func(c *Config) { c.MaxIterations = 0 },
			wantErr: "max_iterations must be >= 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				KibanaURL:     "https://kibana.example.com",
				APIKey:        "key",
				MaxIterations: 2,
			}
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestToAgentConfig(t *testing.T) {
	cfg := &Config{
		KibanaURL:      "https://kibana.example.com",
		APIKey:         "key",
		AgentTimeout:   600,
		ConnectTimeout: 30,
	}

	ac := cfg.ToAgentConfig()
	assert.Equal(t, "https://kibana.example.com", ac.BaseURL)
	assert.Equal(t, "key", ac.APIKey)
	assert.Equal(t, 600*time.Second, ac.CallTimeout)
	assert.Equal(t, 30*time.Second, ac.ConnectTimeout)
}

func TestToLoopConfig(t *testing.T) {
	cfg := &Config{
		MaxIterations: 4,
		Agents: AgentsConfig{
			Researcher: "r",
			Reviewer:   "v",
			Verifier:   "c",
		},
	}

	lc := cfg.ToLoopConfig(true)
	assert.Equal(t, "r", lc.ResearcherAgentID)
	assert.Equal(t, "v", lc.ReviewerAgentID)
	assert.Equal(t, "c", lc.VerifierAgentID)
	assert.Equal(t, 4, lc.MaxIterations)
	assert.True(t, lc.SkipReview)
}
