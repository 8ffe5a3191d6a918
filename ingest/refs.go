package ingest

import (
	"regexp"
	"strings"

	"github.com/inchronicle/go-stories/pkg/types"
)

var (
	jiraKeyPattern       = regexp.MustCompile(`^[A-Z][A-Z0-9]+-\d+$`)
	jiraKeyInTextPattern = regexp.MustCompile(`\b[A-Z][A-Z0-9]+-\d+\b`)
	githubRefPattern     = regexp.MustCompile(`^(?:pr|issue)-\d+$`)
	commitSHAPattern     = regexp.MustCompile(`^[0-9a-f]{7,40}$`)
	slackTSPattern       = regexp.MustCompile(`^\d{6,}\.\d+$`)
	pageIDPattern        = regexp.MustCompile(`^\d+$`)
)

// ClassifyRef resolves a raw reference string to a typed source ref. The
// explicit "source:id" form always wins; bare ids fall back to the shape
// conventions the connectors use (jira keys, pr-N/issue-N, slack ts, numeric
// page ids, commit shas, fig- file keys). Unclassifiable refs report false
// rather than guess.
func ClassifyRef(raw string) (types.SourceRef, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return types.SourceRef{}, false
	}

	if idx := strings.IndexByte(raw, ':'); idx > 0 && idx < len(raw)-1 {
		if source, err := types.ParseActivitySource(raw[:idx]); err == nil {
			return types.SourceRef{Source: source, SourceID: strings.TrimSpace(raw[idx+1:])}, true
		}
	}

	switch {
	case jiraKeyPattern.MatchString(raw):
		return types.SourceRef{Source: types.SourceJira, SourceID: raw}, true
	case githubRefPattern.MatchString(raw):
		return types.SourceRef{Source: types.SourceGitHub, SourceID: raw}, true
	case slackTSPattern.MatchString(raw):
		return types.SourceRef{Source: types.SourceSlack, SourceID: raw}, true
	// all-digit ids are page ids; the sha check would also accept them, so
	// order matters here
	case pageIDPattern.MatchString(raw):
		return types.SourceRef{Source: types.SourceConfluence, SourceID: raw}, true
	case commitSHAPattern.MatchString(raw):
		return types.SourceRef{Source: types.SourceGitHub, SourceID: raw}, true
	case strings.HasPrefix(raw, "fig-"):
		return types.SourceRef{Source: types.SourceFigma, SourceID: raw}, true
	}
	return types.SourceRef{}, false
}

// buildHints merges the payload's explicit refs with issue keys mentioned in
// prose. Jira keys are the only shape safe to mine from free text; everything
// else must be declared in the refs array. The activity's own ref is dropped
// so a page quoting its own key never links to itself.
func buildHints(self types.ActivitySource, selfID string, refs []string, texts ...string) []types.SourceRef {
	ownKey := types.SourceRef{Source: self, SourceID: selfID}.Key()
	seen := make(map[string]struct{}, len(refs))
	hints := make([]types.SourceRef, 0, len(refs))

	add := func(hint types.SourceRef) {
		key := hint.Key()
		if key == ownKey {
			return
		}
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		hints = append(hints, hint)
	}

	for _, raw := range refs {
		if hint, ok := ClassifyRef(raw); ok {
			add(hint)
		}
	}
	for _, text := range texts {
		for _, key := range jiraKeyInTextPattern.FindAllString(text, -1) {
			add(types.SourceRef{Source: types.SourceJira, SourceID: key})
		}
	}
	if len(hints) == 0 {
		return nil
	}
	return hints
}
