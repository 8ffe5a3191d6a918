package ingest

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/pkg/types"
	"github.com/stretchr/testify/require"
)

func TestPipelineNormalizePullRequest(t *testing.T) {
	userID := uuid.New()
	tenantID := uuid.New()
	received := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	payload := json.RawMessage(`{
		"type": "pull_request",
		"number": 412,
		"title": "Add write-through quote cache",
		"body": "Implements the cache called out in PERF-231.",
		"html_url": "https://github.example.com/shop/pricing/pull/412",
		"refs": ["PERF-231"]
	}`)

	activity, err := NewPipeline().Normalize(Envelope{
		UserID:     userID,
		TenantID:   tenantID,
		Source:     "github",
		ReceivedAt: received,
		Payload:    payload,
	})
	require.NoError(t, err)

	require.Equal(t, types.SourceGitHub, activity.Source)
	require.Equal(t, "pr-412", activity.SourceID)
	require.Equal(t, "https://github.example.com/shop/pricing/pull/412", activity.SourceURL)
	require.Equal(t, "Add write-through quote cache", activity.Title)
	require.Equal(t, userID, activity.UserID)
	require.Equal(t, tenantID, activity.TenantID)
	require.Equal(t, received, activity.Timestamp)
	require.JSONEq(t, string(payload), string(activity.RawData))

	// the refs entry and the body mention are the same issue, so one hint
	require.Equal(t, []types.SourceRef{{Source: types.SourceJira, SourceID: "PERF-231"}}, activity.RefHints)
}

func TestPipelineNormalizeCommitKeysOnSHA(t *testing.T) {
	payload := json.RawMessage(`{
		"type": "commit",
		"sha": "9f31c2e",
		"message": "Tune cache warmer schedule\n\nFollow-up to pr-412.",
		"refs": ["pr-412"]
	}`)

	activity, err := NewPipeline().Normalize(Envelope{
		UserID:     uuid.New(),
		Source:     "github",
		ReceivedAt: time.Now().UTC(),
		Payload:    payload,
	})
	require.NoError(t, err)

	require.Equal(t, "9f31c2e", activity.SourceID)
	require.Equal(t, "Tune cache warmer schedule", activity.Title)
	require.Equal(t, []types.SourceRef{{Source: types.SourceGitHub, SourceID: "pr-412"}}, activity.RefHints)
}

func TestPipelineNormalizeJiraRequiresKey(t *testing.T) {
	_, err := NewPipeline().Normalize(Envelope{
		UserID:     uuid.New(),
		Source:     "jira",
		ReceivedAt: time.Now().UTC(),
		Payload:    json.RawMessage(`{"summary":"No key on this one"}`),
	})
	require.ErrorIs(t, err, ErrPayloadInvalid)
}

func TestPipelineNormalizeJiraDropsSelfMention(t *testing.T) {
	payload := json.RawMessage(`{
		"key": "PERF-231",
		"summary": "PERF-231: checkout latency epic",
		"issue_type": "Epic",
		"refs": ["pr-412"]
	}`)

	activity, err := NewPipeline().Normalize(Envelope{
		UserID:     uuid.New(),
		Source:     "jira",
		ReceivedAt: time.Now().UTC(),
		Payload:    payload,
	})
	require.NoError(t, err)

	require.Equal(t, "PERF-231", activity.SourceID)
	require.Equal(t, []types.SourceRef{{Source: types.SourceGitHub, SourceID: "pr-412"}}, activity.RefHints,
		"the issue quoting its own key must not hint at itself")
}

func TestPipelineNormalizeSlackDerivesTitleAndTimestamp(t *testing.T) {
	payload := json.RawMessage(`{
		"type": "thread",
		"ts": "1709640000.000120",
		"channel": "#perf",
		"text": "Checkout latency war room\nTracking the rollout in PERF-231.",
		"permalink": "https://slack.example.com/archives/C01/p1709640000000120"
	}`)

	activity, err := NewPipeline().Normalize(Envelope{
		UserID:     uuid.New(),
		Source:     "slack",
		ReceivedAt: time.Now().UTC(),
		Payload:    payload,
	})
	require.NoError(t, err)

	require.Equal(t, "1709640000.000120", activity.SourceID)
	require.Equal(t, "Checkout latency war room", activity.Title)
	require.Equal(t, time.Unix(1709640000, 0).UTC().Truncate(time.Second), activity.Timestamp.Truncate(time.Second))
	require.Equal(t, []types.SourceRef{{Source: types.SourceJira, SourceID: "PERF-231"}}, activity.RefHints)
}

func TestPipelineNormalizeUnknownSource(t *testing.T) {
	_, err := NewPipeline().Normalize(Envelope{
		UserID:     uuid.New(),
		Source:     "trello",
		ReceivedAt: time.Now().UTC(),
		Payload:    json.RawMessage(`{"card":"abc"}`),
	})
	require.ErrorIs(t, err, types.ErrUnknownSource)
}

func TestEnvelopeValidateRequiresUser(t *testing.T) {
	err := Envelope{
		Source:  "github",
		Payload: json.RawMessage(`{"type":"pull_request","number":1}`),
	}.Validate()
	require.ErrorIs(t, err, types.ErrUserIDRequired)
}

func TestClassifyRef(t *testing.T) {
	cases := []struct {
		raw    string
		want   types.SourceRef
		wantOK bool
	}{
		{"PERF-231", types.SourceRef{Source: types.SourceJira, SourceID: "PERF-231"}, true},
		{"pr-412", types.SourceRef{Source: types.SourceGitHub, SourceID: "pr-412"}, true},
		{"issue-97", types.SourceRef{Source: types.SourceGitHub, SourceID: "issue-97"}, true},
		{"9f31c2e", types.SourceRef{Source: types.SourceGitHub, SourceID: "9f31c2e"}, true},
		{"1709640000.000120", types.SourceRef{Source: types.SourceSlack, SourceID: "1709640000.000120"}, true},
		{"88120", types.SourceRef{Source: types.SourceConfluence, SourceID: "88120"}, true},
		{"fig-cl2-audit", types.SourceRef{Source: types.SourceFigma, SourceID: "fig-cl2-audit"}, true},
		{"google-meet:perf-review-0308", types.SourceRef{Source: types.SourceGoogleMeet, SourceID: "perf-review-0308"}, true},
		{"perf-review-0308", types.SourceRef{}, false},
		{"", types.SourceRef{}, false},
	}
	for _, tc := range cases {
		got, ok := ClassifyRef(tc.raw)
		require.Equal(t, tc.wantOK, ok, "ref %q", tc.raw)
		require.Equal(t, tc.want, got, "ref %q", tc.raw)
	}
}

func TestHintExtractorReExtractsFromRawData(t *testing.T) {
	extractor := NewHintExtractor(nil)

	hints, err := extractor.ExtractHints(context.Background(), types.ToolActivity{
		Source:   types.SourceGoogleMeet,
		SourceID: "perf-review-0308",
		RawData:  json.RawMessage(`{"type":"meeting","meeting_code":"perf-review-0308","summary":"Perf review","refs":["PERF-231","pr-412"]}`),
	})
	require.NoError(t, err)
	require.Equal(t, []types.SourceRef{
		{Source: types.SourceJira, SourceID: "PERF-231"},
		{Source: types.SourceGitHub, SourceID: "pr-412"},
	}, hints)

	hints, err = extractor.ExtractHints(context.Background(), types.ToolActivity{Source: types.SourceJira})
	require.NoError(t, err)
	require.Nil(t, hints)
}
