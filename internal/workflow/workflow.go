// Package workflow implements the poll-style execution surface: it triggers
// the research-review workflow on the Kibana workflow engine, polls the
// execution until it settles, and extracts step outputs from the execution
// document.
package workflow

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/litrev/litrev/internal/debug"
)

// DefaultPollInterval is the fixed delay between execution status checks.
const DefaultPollInterval = 10 * time.Second

// requestTimeout bounds one trigger or status request.
const requestTimeout = 30 * time.Second

// Client talks to the Kibana workflow APIs.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewClient creates a workflow client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

// Execution is a raw workflow execution document. Accessors pull what they
// need; the engine's document shape stays out of our types.
type Execution struct {
	raw string
}

// Status returns the execution status ("completed", "failed", ...).
func (e Execution) Status() string {
	return gjson.Get(e.raw, "status").String()
}

// Settled reports whether the execution reached a terminal status.
func (e Execution) Settled() bool {
	switch e.Status() {
	case "completed", "failed", "error":
		return true
	default:
		return false
	}
}

// StepCount returns the number of recorded step executions.
func (e Execution) StepCount() int {
	return int(gjson.Get(e.raw, "stepExecutions.#").Int())
}

// StepOutput extracts the output of a named step. Timeout wrapper entries
// are skipped; they do not carry the actual output. The output is either a
// plain string (console steps) or an object with "message" (ai.agent) or
// "content" (ai.prompt).
func (e Execution) StepOutput(stepID string) string {
	var out string
	gjson.Get(e.raw, "stepExecutions").ForEach(func(_, step gjson.Result) bool {
		if step.Get("stepId").String() != stepID {
			return true
		}
		if step.Get("stepType").String() == "step_level_timeout" {
			return true
		}

		output := step.Get("output")
		if !output.Exists() || output.Type == gjson.Null {
			return true
		}
		if output.Type == gjson.String {
			out = output.String()
			return false
		}
		if msg := output.Get("message").String(); msg != "" {
			out = msg
			return false
		}
		out = output.Get("content").String()
		return out == ""
	})
	return out
}

// Trigger starts the workflow for topic and returns the execution ID.
func (c *Client) Trigger(ctx context.Context, workflowID, workflowYAML, topic string) (string, error) {
	payload, err := buildTriggerPayload(workflowID, workflowYAML, topic)
	if err != nil {
		return "", fmt.Errorf("build trigger payload: %w", err)
	}

	body, err := c.do(ctx, http.MethodPost, "/api/workflows/test", payload)
	if err != nil {
		return "", err
	}

	execID := gjson.Get(body, "workflowExecutionId").String()
	if execID == "" {
		return "", fmt.Errorf("trigger response missing workflowExecutionId")
	}
	debug.Logf("workflow: triggered %s execution=%s", workflowID, execID)
	return execID, nil
}

// GetExecution fetches the current state of a workflow execution.
func (c *Client) GetExecution(ctx context.Context, executionID string) (Execution, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/workflowExecutions/"+executionID, "")
	if err != nil {
		return Execution{}, err
	}
	return Execution{raw: body}, nil
}

// WaitForCompletion polls the execution at the given interval until it
// settles or ctx is cancelled. onPoll, if non-nil, is called after each
// status check.
func (c *Client) WaitForCompletion(ctx context.Context, executionID string, interval time.Duration, onPoll func(Execution)) (Execution, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return Execution{}, ctx.Err()
		case <-ticker.C:
		}

		exec, err := c.GetExecution(ctx, executionID)
		if err != nil {
			return Execution{}, err
		}
		if onPoll != nil {
			onPoll(exec)
		}
		if exec.Settled() {
			return exec, nil
		}
	}
}

// FinalReport finds the best available report and review from the
// execution, checking v3 → v2 → v1 to get the most revised version.
// Returns empty strings when no draft step produced output.
func (e Execution) FinalReport() (report, review, iterationInfo string) {
	if report = e.StepOutput("researcher_draft_v3"); report != "" {
		return report, e.StepOutput("review_v3"), "Iteration 3 (final revision)"
	}

	if report = e.StepOutput("researcher_draft_v2"); report != "" {
		verdict := e.StepOutput("parse_verdict_v2")
		if verdict == "" {
			verdict = "unknown"
		}
		return report, e.StepOutput("review_v2"), fmt.Sprintf("Iteration 2 (verdict: %s)", verdict)
	}

	if report = e.StepOutput("researcher_draft_v1"); report != "" {
		verdict := e.StepOutput("parse_verdict_v1")
		if verdict == "" {
			verdict = "unknown"
		}
		return report, e.StepOutput("review_v1"), fmt.Sprintf("Iteration 1 (verdict: %s)", verdict)
	}

	return "", "", ""
}

// IterationSummary builds a summary of which iterations ran and their
// verdicts.
func (e Execution) IterationSummary() []string {
	var summary []string
	if v := e.StepOutput("parse_verdict_v1"); v != "" {
		summary = append(summary, "Iteration 1: "+v)
	}
	if v := e.StepOutput("parse_verdict_v2"); v != "" {
		summary = append(summary, "Iteration 2: "+v)
	}
	if e.StepOutput("review_v3") != "" {
		summary = append(summary, "Iteration 3: final revision")
	}
	return summary
}

func buildTriggerPayload(workflowID, workflowYAML, topic string) (string, error) {
	payload, err := sjson.Set("", "inputs.topic", topic)
	if err != nil {
		return "", err
	}
	payload, err = sjson.Set(payload, "workflowId", workflowID)
	if err != nil {
		return "", err
	}
	return sjson.Set(payload, "workflowYaml", workflowYAML)
}

// do performs one request and returns the response body, mapping non-2xx
// statuses to errors.
func (c *Client) do(ctx context.Context, method, path, payload string) (string, error) {
	var body io.Reader
	if payload != "" {
		body = strings.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("kbn-xsrf", "true")
	req.Header.Set("x-elastic-internal-origin", "Kibana")
	req.Header.Set("Authorization", "ApiKey "+c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("workflow API returned %d: %s", resp.StatusCode, truncate(string(data), 500))
	}
	return string(data), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
