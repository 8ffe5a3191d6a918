package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/inchronicle/go-stories/pkg/types"
)

// ErrPayloadInvalid reports a tool payload missing the fields its normalizer
// needs to identify the activity.
var ErrPayloadInvalid = errors.New("go-stories: tool payload missing required fields")

// Normalizer maps one tool's raw payload onto the shared activity shape. The
// returned activity carries Source, SourceID, SourceURL, Title, Description,
// Timestamp, and RefHints; the pipeline fills in ownership and RawData from
// the envelope.
type Normalizer interface {
	Source() types.ActivitySource
	Normalize(payload json.RawMessage) (types.ToolActivity, error)
}

// Pipeline routes envelopes to the normalizer registered for their source.
type Pipeline struct {
	normalizers map[types.ActivitySource]Normalizer
}

// NewPipeline builds a pipeline with the built-in normalizers. Overrides
// replace the default for their source, so hosts can swap a single tool's
// interpretation without rebuilding the set.
func NewPipeline(overrides ...Normalizer) *Pipeline {
	pipeline := &Pipeline{
		normalizers: make(map[types.ActivitySource]Normalizer, 6),
	}
	defaults := []Normalizer{
		GitHubNormalizer{},
		JiraNormalizer{},
		SlackNormalizer{},
		ConfluenceNormalizer{},
		FigmaNormalizer{},
		GoogleMeetNormalizer{},
	}
	for _, normalizer := range defaults {
		pipeline.normalizers[normalizer.Source()] = normalizer
	}
	for _, normalizer := range overrides {
		if normalizer != nil {
			pipeline.normalizers[normalizer.Source()] = normalizer
		}
	}
	return pipeline
}

// Normalize validates the envelope, dispatches to the source normalizer, and
// stamps ownership, RawData, and a fallback timestamp onto the result.
func (p *Pipeline) Normalize(env Envelope) (types.ToolActivity, error) {
	if p == nil || len(p.normalizers) == 0 {
		return types.ToolActivity{}, errors.New("go-stories: ingest pipeline not configured")
	}
	if err := env.Validate(); err != nil {
		return types.ToolActivity{}, err
	}
	source, err := types.ParseActivitySource(env.Source)
	if err != nil {
		return types.ToolActivity{}, err
	}
	normalizer, ok := p.normalizers[source]
	if !ok {
		return types.ToolActivity{}, fmt.Errorf("%w: %q", types.ErrUnknownSource, env.Source)
	}

	activity, err := normalizer.Normalize(env.Payload)
	if err != nil {
		return types.ToolActivity{}, err
	}
	activity.Source = source
	activity.UserID = env.UserID
	activity.TenantID = env.TenantID
	activity.WorkspaceID = env.WorkspaceID
	activity.RawData = append(json.RawMessage(nil), env.Payload...)
	if activity.Timestamp.IsZero() {
		activity.Timestamp = env.ReceivedAt
	}
	return activity, nil
}

// GitHubNormalizer interprets pull request, issue, and commit events.
type GitHubNormalizer struct{}

// Source implements Normalizer.
func (GitHubNormalizer) Source() types.ActivitySource { return types.SourceGitHub }

// Normalize implements Normalizer. Pull requests and issues key on their
// number ("pr-412", "issue-97"); commits key on the sha so force-pushed
// rewrites import as distinct work.
func (GitHubNormalizer) Normalize(payload json.RawMessage) (types.ToolActivity, error) {
	var body struct {
		Type      string    `json:"type"`
		Number    int       `json:"number"`
		SHA       string    `json:"sha"`
		Title     string    `json:"title"`
		Body      string    `json:"body"`
		Message   string    `json:"message"`
		HTMLURL   string    `json:"html_url"`
		CreatedAt time.Time `json:"created_at"`
		Refs      []string  `json:"refs"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return types.ToolActivity{}, fmt.Errorf("github payload: %w", err)
	}

	sourceID := ""
	title := strings.TrimSpace(body.Title)
	description := strings.TrimSpace(body.Body)
	switch body.Type {
	case "commit":
		sourceID = strings.TrimSpace(body.SHA)
		if title == "" {
			title = firstLine(body.Message)
		}
		if description == "" {
			description = strings.TrimSpace(body.Message)
		}
	case "issue":
		if body.Number > 0 {
			sourceID = fmt.Sprintf("issue-%d", body.Number)
		}
	default:
		if body.Number > 0 {
			sourceID = fmt.Sprintf("pr-%d", body.Number)
		}
	}
	if sourceID == "" {
		return types.ToolActivity{}, fmt.Errorf("%w: github event needs a number or sha", ErrPayloadInvalid)
	}

	return types.ToolActivity{
		SourceID:    sourceID,
		SourceURL:   strings.TrimSpace(body.HTMLURL),
		Title:       title,
		Description: description,
		Timestamp:   body.CreatedAt,
		RefHints:    buildHints(types.SourceGitHub, sourceID, body.Refs, title, description),
	}, nil
}

// JiraNormalizer interprets issue events keyed by the issue key.
type JiraNormalizer struct{}

// Source implements Normalizer.
func (JiraNormalizer) Source() types.ActivitySource { return types.SourceJira }

// Normalize implements Normalizer.
func (JiraNormalizer) Normalize(payload json.RawMessage) (types.ToolActivity, error) {
	var body struct {
		Key         string    `json:"key"`
		Summary     string    `json:"summary"`
		Description string    `json:"description"`
		IssueType   string    `json:"issue_type"`
		Status      string    `json:"status"`
		Self        string    `json:"self"`
		Updated     time.Time `json:"updated"`
		Refs        []string  `json:"refs"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return types.ToolActivity{}, fmt.Errorf("jira payload: %w", err)
	}
	key := strings.TrimSpace(body.Key)
	if key == "" {
		return types.ToolActivity{}, fmt.Errorf("%w: jira event needs an issue key", ErrPayloadInvalid)
	}
	title := strings.TrimSpace(body.Summary)
	if title == "" {
		title = key
	}
	description := strings.TrimSpace(body.Description)

	return types.ToolActivity{
		SourceID:    key,
		SourceURL:   strings.TrimSpace(body.Self),
		Title:       title,
		Description: description,
		Timestamp:   body.Updated,
		RefHints:    buildHints(types.SourceJira, key, body.Refs, title, description),
	}, nil
}

// SlackNormalizer interprets message and thread events keyed by the slack
// message timestamp.
type SlackNormalizer struct{}

// Source implements Normalizer.
func (SlackNormalizer) Source() types.ActivitySource { return types.SourceSlack }

// Normalize implements Normalizer. Slack carries no title, so the first line
// of the message stands in; the message ts doubles as the event time when no
// posted_at is present.
func (SlackNormalizer) Normalize(payload json.RawMessage) (types.ToolActivity, error) {
	var body struct {
		Type       string    `json:"type"`
		TS         string    `json:"ts"`
		Channel    string    `json:"channel"`
		Text       string    `json:"text"`
		Permalink  string    `json:"permalink"`
		ReplyCount int       `json:"reply_count"`
		PostedAt   time.Time `json:"posted_at"`
		Refs       []string  `json:"refs"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return types.ToolActivity{}, fmt.Errorf("slack payload: %w", err)
	}
	ts := strings.TrimSpace(body.TS)
	if ts == "" {
		return types.ToolActivity{}, fmt.Errorf("%w: slack event needs a message ts", ErrPayloadInvalid)
	}
	timestamp := body.PostedAt
	if timestamp.IsZero() {
		timestamp = parseSlackTimestamp(ts)
	}
	text := strings.TrimSpace(body.Text)

	return types.ToolActivity{
		SourceID:    ts,
		SourceURL:   strings.TrimSpace(body.Permalink),
		Title:       truncate(firstLine(text), 120),
		Description: text,
		Timestamp:   timestamp,
		RefHints:    buildHints(types.SourceSlack, ts, body.Refs, text),
	}, nil
}

// ConfluenceNormalizer interprets page events keyed by the page id.
type ConfluenceNormalizer struct{}

// Source implements Normalizer.
func (ConfluenceNormalizer) Source() types.ActivitySource { return types.SourceConfluence }

// Normalize implements Normalizer.
func (ConfluenceNormalizer) Normalize(payload json.RawMessage) (types.ToolActivity, error) {
	var body struct {
		Type      string    `json:"type"`
		PageID    string    `json:"page_id"`
		Title     string    `json:"title"`
		Excerpt   string    `json:"excerpt"`
		Space     string    `json:"space"`
		Version   int       `json:"version"`
		WebURL    string    `json:"web_url"`
		UpdatedAt time.Time `json:"updated_at"`
		Refs      []string  `json:"refs"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return types.ToolActivity{}, fmt.Errorf("confluence payload: %w", err)
	}
	pageID := strings.TrimSpace(body.PageID)
	if pageID == "" {
		return types.ToolActivity{}, fmt.Errorf("%w: confluence event needs a page id", ErrPayloadInvalid)
	}
	title := strings.TrimSpace(body.Title)
	excerpt := strings.TrimSpace(body.Excerpt)

	return types.ToolActivity{
		SourceID:    pageID,
		SourceURL:   strings.TrimSpace(body.WebURL),
		Title:       title,
		Description: excerpt,
		Timestamp:   body.UpdatedAt,
		RefHints:    buildHints(types.SourceConfluence, pageID, body.Refs, title, excerpt),
	}, nil
}

// FigmaNormalizer interprets file events keyed by the file key.
type FigmaNormalizer struct{}

// Source implements Normalizer.
func (FigmaNormalizer) Source() types.ActivitySource { return types.SourceFigma }

// Normalize implements Normalizer.
func (FigmaNormalizer) Normalize(payload json.RawMessage) (types.ToolActivity, error) {
	var body struct {
		Type        string    `json:"type"`
		FileKey     string    `json:"file_key"`
		FileName    string    `json:"file_name"`
		Project     string    `json:"project"`
		Description string    `json:"description"`
		Frames      int       `json:"frames"`
		Link        string    `json:"link"`
		UpdatedAt   time.Time `json:"updated_at"`
		Refs        []string  `json:"refs"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return types.ToolActivity{}, fmt.Errorf("figma payload: %w", err)
	}
	fileKey := strings.TrimSpace(body.FileKey)
	if fileKey == "" {
		return types.ToolActivity{}, fmt.Errorf("%w: figma event needs a file key", ErrPayloadInvalid)
	}
	title := strings.TrimSpace(body.FileName)
	if title == "" {
		title = fileKey
	}
	description := strings.TrimSpace(body.Description)

	return types.ToolActivity{
		SourceID:    fileKey,
		SourceURL:   strings.TrimSpace(body.Link),
		Title:       title,
		Description: description,
		Timestamp:   body.UpdatedAt,
		RefHints:    buildHints(types.SourceFigma, fileKey, body.Refs, title, description),
	}, nil
}

// GoogleMeetNormalizer interprets meeting events keyed by the meeting code.
type GoogleMeetNormalizer struct{}

// Source implements Normalizer.
func (GoogleMeetNormalizer) Source() types.ActivitySource { return types.SourceGoogleMeet }

// Normalize implements Normalizer.
func (GoogleMeetNormalizer) Normalize(payload json.RawMessage) (types.ToolActivity, error) {
	var body struct {
		Type            string    `json:"type"`
		MeetingCode     string    `json:"meeting_code"`
		Summary         string    `json:"summary"`
		Notes           string    `json:"notes"`
		DurationMinutes int       `json:"duration_minutes"`
		Attendees       int       `json:"attendees"`
		RecordingURL    string    `json:"recording_url"`
		StartedAt       time.Time `json:"started_at"`
		Refs            []string  `json:"refs"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return types.ToolActivity{}, fmt.Errorf("google meet payload: %w", err)
	}
	code := strings.TrimSpace(body.MeetingCode)
	if code == "" {
		return types.ToolActivity{}, fmt.Errorf("%w: meet event needs a meeting code", ErrPayloadInvalid)
	}
	title := strings.TrimSpace(body.Summary)
	if title == "" {
		title = code
	}
	notes := strings.TrimSpace(body.Notes)

	return types.ToolActivity{
		SourceID:    code,
		SourceURL:   strings.TrimSpace(body.RecordingURL),
		Title:       title,
		Description: notes,
		Timestamp:   body.StartedAt,
		RefHints:    buildHints(types.SourceGoogleMeet, code, body.Refs, title, notes),
	}, nil
}

func firstLine(text string) string {
	text = strings.TrimSpace(text)
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		return strings.TrimSpace(text[:idx])
	}
	return text
}

func truncate(text string, max int) string {
	if max <= 0 || len(text) <= max {
		return text
	}
	return strings.TrimSpace(text[:max])
}

func parseSlackTimestamp(ts string) time.Time {
	seconds, err := strconv.ParseFloat(ts, 64)
	if err != nil || seconds <= 0 {
		return time.Time{}
	}
	whole := int64(seconds)
	frac := seconds - float64(whole)
	return time.Unix(whole, int64(frac*float64(time.Second))).UTC()
}
