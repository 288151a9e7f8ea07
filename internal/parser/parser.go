// Package parser extracts structured signals from agent report text: the
// reviewer's verdict and the paper IDs cited in the References section.
package parser

import (
	"regexp"
	"strings"

	"github.com/litrev/litrev/internal/protocol"
)

// verdictRegex matches the explicit verdict marker followed by one of the
// two canonical outcomes. First match wins.
var verdictRegex = regexp.MustCompile(`(?i)VERDICT:\s*(PASS|REVISION_NEEDED)`)

// referencesRegex locates a markdown References heading, case-insensitively.
var referencesRegex = regexp.MustCompile(`(?i)#+\s*references?\b`)

// paperIDRegex matches paper_id markers in a references section.
var paperIDRegex = regexp.MustCompile(`paper_id:\s*([^\s,)\]]+)`)

// ParseVerdict extracts PASS or REVISION_NEEDED from reviewer output.
// A missing or unrecognised marker resolves to REVISION_NEEDED: a malformed
// review must never be accepted by omission.
func ParseVerdict(review string) protocol.Verdict {
	match := verdictRegex.FindStringSubmatch(review)
	if match == nil {
		return protocol.VerdictRevisionNeeded
	}
	v := protocol.Verdict(strings.ToUpper(match[1]))
	if !v.IsValid() {
		return protocol.VerdictRevisionNeeded
	}
	return v
}

// ExtractPaperIDs returns the paper IDs cited in the References section of a
// report, in first-seen order, de-duplicated. Text before the References
// heading is never scanned, so body-text mentions are not mistaken for
// bibliography entries. Returns an empty slice when no heading is found.
func ExtractPaperIDs(report string) []string {
	ids := []string{}

	loc := referencesRegex.FindStringIndex(report)
	if loc == nil {
		return ids
	}

	seen := make(map[string]struct{})
	for _, m := range paperIDRegex.FindAllStringSubmatch(report[loc[0]:], -1) {
		id := strings.TrimRight(strings.TrimSpace(m[1]), ".")
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}
