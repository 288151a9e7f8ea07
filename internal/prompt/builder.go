// Package prompt builds the prompts sent to the researcher and reviewer
// agents. Builders are pure: identical inputs always produce identical
// output.
package prompt

import (
	"fmt"
	"strings"
)

const revisionIntroTemplate = `You previously produced the following literature review:

%s

A peer reviewer evaluated this report and identified the following issues:

%s

`

const revisionInstructions = `Please revise the report to address all CRITICAL and MAJOR issues identified ` +
	`in the review. Produce a complete revised report in the same 6-section format. ` +
	`Use your search tools to find correct evidence for any citation issues.`

const finalRevisionInstructions = `This is the final revision opportunity. Please carefully address all ` +
	`remaining CRITICAL and MAJOR issues. Produce a complete revised report ` +
	`in the same 6-section format. Use your search tools to find correct ` +
	`evidence for any citation issues.`

// Researcher builds the researcher prompt for the given iteration. The first
// iteration passes the topic through untouched; later iterations embed the
// prior draft and the reviewer's feedback, escalating to final-revision
// wording on the last allowed iteration.
func Researcher(topic string, iteration, maxIterations int, priorDraft, feedback string) string {
	if iteration == 1 {
		return topic
	}

	intro := fmt.Sprintf(revisionIntroTemplate, priorDraft, feedback)
	if iteration == maxIterations {
		return intro + finalRevisionInstructions
	}
	return intro + revisionInstructions
}

// Reviewer builds the reviewer prompt for a draft. Paper IDs already
// extracted from the draft's References section are listed explicitly so the
// reviewer does not re-discover them through search.
func Reviewer(draft string, iteration int, paperIDs []string) string {
	var prefix string
	switch iteration {
	case 1:
		prefix = "Review the following literature review report:"
	case 2:
		prefix = "Review the following revised literature review report:"
	default:
		prefix = "Review the following final revised literature review report:"
	}

	parts := []string{prefix}

	if len(paperIDs) > 0 {
		quoted := make([]string, 0, len(paperIDs))
		for _, id := range paperIDs {
			quoted = append(quoted, fmt.Sprintf("%q", id))
		}
		parts = append(parts, fmt.Sprintf(
			"\nCITED PAPER IDS (extracted from References section):\n%s\n"+
				"Use these paper_ids directly for your Step 2 batch verification query "+
				"and Step 5 coverage gap analysis. Do not re-discover them through search.",
			strings.Join(quoted, ", ")))
	}

	parts = append(parts, "\n"+draft)
	return strings.Join(parts, "\n")
}
