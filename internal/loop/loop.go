// Package loop implements the research-review orchestration engine: up to N
// researcher/reviewer round pairs, verdict-driven continuation, and an
// output event stream that always terminates cleanly.
package loop

import (
	"context"
	"fmt"
	"strings"

	"github.com/litrev/litrev/internal/agent"
	"github.com/litrev/litrev/internal/event"
	"github.com/litrev/litrev/internal/parser"
	"github.com/litrev/litrev/internal/prompt"
	"github.com/litrev/litrev/internal/protocol"
)

// Stream opens one streaming converse call per round. *agent.Client
// satisfies it; tests substitute fakes.
type Stream interface {
	Open(ctx context.Context, agentID, input, conversationID string) <-chan agent.Event
}

// Config is the immutable configuration for one Controller. Concurrent
// invocations each get their own Controller and never share mutable state.
type Config struct {
	ResearcherAgentID string
	ReviewerAgentID   string
	VerifierAgentID   string

	// MaxIterations caps researcher/reviewer round pairs. Values below 1
	// are treated as 1.
	MaxIterations int

	// SkipReview runs a single researcher round with no peer review.
	SkipReview bool
}

// Controller drives one research-review invocation at a time.
type Controller struct {
	cfg    Config
	client Stream
}

// New creates a Controller.
func New(cfg Config, client Stream) *Controller {
	if cfg.MaxIterations < 1 {
		cfg.MaxIterations = 1
	}
	return &Controller{cfg: cfg, client: client}
}

// Run starts the research-review loop for topic and returns its event
// stream. The channel is closed when the run ends; unless the consumer
// cancels ctx first, the stream carries exactly one done event, always last.
func (c *Controller) Run(ctx context.Context, topic string) <-chan event.Event {
	out := make(chan event.Event, 32)
	go func() {
		defer close(out)
		defer recoverToStream(ctx, out)
		c.runResearch(ctx, topic, out)
	}()
	return out
}

// Verify starts a single-pass claim verification and returns its event
// stream. No review loop runs.
func (c *Controller) Verify(ctx context.Context, claim string) <-chan event.Event {
	out := make(chan event.Event, 32)
	go func() {
		defer close(out)
		defer recoverToStream(ctx, out)
		c.runVerify(ctx, claim, out)
	}()
	return out
}

func (c *Controller) runResearch(ctx context.Context, topic string, out chan<- event.Event) {
	var (
		priorDraft     string
		feedback       string
		latestReport   string
		latestReview   string
		summary        []string
		finalIteration = 1
	)

	for iteration := 1; iteration <= c.cfg.MaxIterations; iteration++ {
		finalIteration = iteration

		researcherPrompt := prompt.Researcher(topic, iteration, c.cfg.MaxIterations, priorDraft, feedback)
		draft, ok := c.runRound(ctx, c.cfg.ResearcherAgentID, protocol.LabelResearcher, researcherPrompt, iteration, out)
		if !ok {
			return
		}
		if draft == "" {
			c.fail(ctx, out, fmt.Sprintf("researcher produced no output (iteration %d)", iteration))
			return
		}
		latestReport = draft

		if c.cfg.SkipReview {
			summary = append(summary, fmt.Sprintf("Iteration %d: %s", iteration, protocol.SummaryResearchOnly))
			break
		}

		paperIDs := parser.ExtractPaperIDs(draft)
		reviewerPrompt := prompt.Reviewer(draft, iteration, paperIDs)
		review, ok := c.runRound(ctx, c.cfg.ReviewerAgentID, protocol.LabelReviewer, reviewerPrompt, iteration, out)
		if !ok {
			return
		}
		if review == "" {
			c.fail(ctx, out, fmt.Sprintf("reviewer produced no output (iteration %d)", iteration))
			return
		}
		latestReview = review

		verdict := parser.ParseVerdict(review)
		if !emit(ctx, out, event.VerdictEvent(iteration, verdict)) {
			return
		}
		summary = append(summary, fmt.Sprintf("Iteration %d: %s", iteration, verdict))

		if verdict == protocol.VerdictPass {
			break
		}

		priorDraft = draft
		feedback = review
	}

	info := c.iterationInfo(finalIteration, summary)
	if !emit(ctx, out, event.Result(latestReport, latestReview, info, summary)) {
		return
	}
	emit(ctx, out, event.Done())
}

func (c *Controller) runVerify(ctx context.Context, claim string, out chan<- event.Event) {
	answer, ok := c.runRound(ctx, c.cfg.VerifierAgentID, protocol.LabelVerifier, claim, 1, out)
	if !ok {
		return
	}
	if answer == "" {
		c.fail(ctx, out, "claim verification agent produced no output")
		return
	}

	summary := []string{fmt.Sprintf("Iteration 1: %s", protocol.SummaryClaimVerification)}
	if !emit(ctx, out, event.Result(answer, "", "Claim verification (single pass)", summary)) {
		return
	}
	emit(ctx, out, event.Done())
}

// iterationInfo labels the terminating iteration: whether review was
// skipped, and whether the run ended on an explicit pass or a forced final
// revision.
func (c *Controller) iterationInfo(finalIteration int, summary []string) string {
	info := fmt.Sprintf("Iteration %d", finalIteration)
	last := ""
	if len(summary) > 0 {
		last = summary[len(summary)-1]
	}

	switch {
	case c.cfg.SkipReview:
		info += " (research only, no peer review)"
	case finalIteration == c.cfg.MaxIterations && strings.HasSuffix(last, string(protocol.VerdictRevisionNeeded)):
		info += " (final revision)"
	case strings.HasSuffix(last, string(protocol.VerdictPass)):
		info += " (verdict: PASS)"
	}
	return info
}

// fail emits the fatal error and terminal events. No retry, no partial
// result.
func (c *Controller) fail(ctx context.Context, out chan<- event.Event, message string) {
	if !emit(ctx, out, event.Error(message)) {
		return
	}
	emit(ctx, out, event.Done())
}

// recoverToStream converts a panic into an error+done pair so the stream
// still terminates cleanly. Runs as a deferred call before the channel
// close.
func recoverToStream(ctx context.Context, out chan<- event.Event) {
	if r := recover(); r != nil {
		if !emit(ctx, out, event.Error(fmt.Sprintf("internal error: %v", r))) {
			return
		}
		emit(ctx, out, event.Done())
	}
}

// emit delivers ev unless the consumer has gone away.
func emit(ctx context.Context, out chan<- event.Event, ev event.Event) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
