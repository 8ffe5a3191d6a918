package apiclient

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// SourceRef names an activity in another tool.
type SourceRef struct {
	Source   string `json:"source"`
	SourceID string `json:"source_id"`
}

// Activity is the wire shape of an imported tool activity.
type Activity struct {
	ID          uuid.UUID       `json:"id"`
	UserID      uuid.UUID       `json:"user_id"`
	WorkspaceID uuid.UUID       `json:"workspace_id"`
	Source      string          `json:"source"`
	SourceID    string          `json:"source_id"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Timestamp   time.Time       `json:"timestamp"`
	ClusterID   uuid.UUID       `json:"cluster_id"`
	RawData     json.RawMessage `json:"raw_data,omitempty"`
	RefHints    []SourceRef     `json:"ref_hints,omitempty"`
}

// ActivityStats aggregates the imported feed for dashboard widgets.
type ActivityStats struct {
	Total       int            `json:"total"`
	Unclustered int            `json:"unclustered"`
	BySource    map[string]int `json:"by_source"`
	Earliest    time.Time      `json:"earliest"`
	Latest      time.Time      `json:"latest"`
}

// DateRange bounds a span of activity.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// ClusterMetrics summarizes the evidence binding a cluster together.
type ClusterMetrics struct {
	RefCount  int       `json:"ref_count"`
	ToolTypes []string  `json:"tool_types,omitempty"`
	DateRange DateRange `json:"date_range"`
}

// Cluster groups related activities into one body of work.
type Cluster struct {
	ID            uuid.UUID      `json:"id"`
	UserID        uuid.UUID      `json:"user_id"`
	Name          string         `json:"name"`
	Description   string         `json:"description,omitempty"`
	ActivityIDs   []uuid.UUID    `json:"activity_ids"`
	ActivityCount int            `json:"activity_count"`
	Metrics       ClusterMetrics `json:"metrics"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// StarSection is one part of a synthesized narrative.
type StarSection struct {
	Part       string      `json:"part"`
	Text       string      `json:"text"`
	Sources    []uuid.UUID `json:"sources,omitempty"`
	Confidence float64     `json:"confidence"`
}

// ParticipationSummary counts cluster activities by the user's role in them.
type ParticipationSummary struct {
	Initiator   int `json:"initiator"`
	Contributor int `json:"contributor"`
	Mentioned   int `json:"mentioned"`
	Observer    int `json:"observer"`
}

// StarMeta summarizes the evidence behind a narrative.
type StarMeta struct {
	DateRange     DateRange `json:"date_range"`
	Tools         []string  `json:"tools,omitempty"`
	ActivityCount int       `json:"activity_count"`
}

// StarValidation is the quality-gate verdict attached to every narrative.
type StarValidation struct {
	Passed      bool     `json:"passed"`
	Score       float64  `json:"score"`
	FailedGates []string `json:"failed_gates,omitempty"`
	Warnings    []string `json:"warnings,omitempty"`
}

// Star is a scored four part narrative synthesized from a cluster.
type Star struct {
	ClusterID         uuid.UUID            `json:"cluster_id"`
	Situation         StarSection          `json:"situation"`
	Task              StarSection          `json:"task"`
	Action            StarSection          `json:"action"`
	Result            StarSection          `json:"result"`
	OverallConfidence float64              `json:"overall_confidence"`
	Participation     ParticipationSummary `json:"participation"`
	SuggestedEdits    []string             `json:"suggested_edits,omitempty"`
	Meta              StarMeta             `json:"meta"`
	Validation        StarValidation       `json:"validation"`
	GeneratedAt       time.Time            `json:"generated_at"`
}

// StorySection is one block of a story's narrative.
type StorySection struct {
	Key        string      `json:"key"`
	Label      string      `json:"label,omitempty"`
	Text       string      `json:"text"`
	Sources    []uuid.UUID `json:"sources,omitempty"`
	Confidence float64     `json:"confidence"`
}

// Story is a polished narrative with its publication state.
type Story struct {
	ID                uuid.UUID      `json:"id"`
	UserID            uuid.UUID      `json:"user_id"`
	ClusterID         uuid.UUID      `json:"cluster_id"`
	Title             string         `json:"title"`
	Framework         string         `json:"framework"`
	Archetype         string         `json:"archetype,omitempty"`
	Sections          []StorySection `json:"sections"`
	SourceActivityIDs []uuid.UUID    `json:"source_activity_ids,omitempty"`
	Confidence        float64        `json:"confidence"`
	Visibility        string         `json:"visibility"`
	State             string         `json:"state"`
	PublishedAt       time.Time      `json:"published_at"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// StoriesAPI covers the /career-stories endpoints: the activity feed,
// clusters, narratives, the wizard, and the demo dataset.
type StoriesAPI struct {
	client *Client
}

// ActivityListOptions filter and page the activity feed. Zero values are
// omitted from the query.
type ActivityListOptions struct {
	Source      string
	ClusterID   uuid.UUID
	Unclustered bool
	Limit       int
	Offset      int
}

func (o ActivityListOptions) query() url.Values {
	q := url.Values{}
	if o.Source != "" {
		q.Set("source", o.Source)
	}
	if o.ClusterID != uuid.Nil {
		q.Set("cluster_id", o.ClusterID.String())
	}
	if o.Unclustered {
		q.Set("unclustered", "true")
	}
	if o.Limit > 0 {
		q.Set("limit", strconv.Itoa(o.Limit))
	}
	if o.Offset > 0 {
		q.Set("offset", strconv.Itoa(o.Offset))
	}
	return q
}

// Activities lists the imported feed, newest first.
func (s *StoriesAPI) Activities(ctx context.Context, opts ActivityListOptions) ([]Activity, *Pagination, error) {
	var items []Activity
	page, err := s.client.getPage(ctx, "/career-stories/activities", opts.query(), &items)
	if err != nil {
		return nil, nil, err
	}
	return items, page, nil
}

// Activity fetches one activity.
func (s *StoriesAPI) Activity(ctx context.Context, id uuid.UUID) (*Activity, error) {
	var item Activity
	if err := s.client.get(ctx, "/career-stories/activities/"+id.String(), nil, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// DeleteActivity removes one activity.
func (s *StoriesAPI) DeleteActivity(ctx context.Context, id uuid.UUID) error {
	return s.client.del(ctx, "/career-stories/activities/"+id.String())
}

// Stats returns aggregate activity counts.
func (s *StoriesAPI) Stats(ctx context.Context) (*ActivityStats, error) {
	var stats ActivityStats
	if err := s.client.get(ctx, "/career-stories/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Clusters lists the user's clusters.
func (s *StoriesAPI) Clusters(ctx context.Context) ([]Cluster, error) {
	var items []Cluster
	if err := s.client.get(ctx, "/career-stories/clusters", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// GenerateClusters runs the clustering engine over unclustered activities and
// returns the full refreshed cluster list.
func (s *StoriesAPI) GenerateClusters(ctx context.Context) ([]Cluster, error) {
	var items []Cluster
	if err := s.client.post(ctx, "/career-stories/clusters/generate", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// RenameCluster updates the display name.
func (s *StoriesAPI) RenameCluster(ctx context.Context, id uuid.UUID, name string) (*Cluster, error) {
	var item Cluster
	in := map[string]string{"name": name}
	if err := s.client.put(ctx, "/career-stories/clusters/"+id.String(), in, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// MergeClusters folds the source clusters into the target and returns the
// merged cluster.
func (s *StoriesAPI) MergeClusters(ctx context.Context, target uuid.UUID, sources []uuid.UUID) (*Cluster, error) {
	in := struct {
		TargetID  uuid.UUID   `json:"target_id"`
		SourceIDs []uuid.UUID `json:"source_ids"`
	}{TargetID: target, SourceIDs: sources}
	var item Cluster
	if err := s.client.post(ctx, "/career-stories/clusters/merge", in, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// DeleteCluster removes the cluster and unlinks its members.
func (s *StoriesAPI) DeleteCluster(ctx context.Context, id uuid.UUID) error {
	return s.client.del(ctx, "/career-stories/clusters/"+id.String())
}

// GenerateStar synthesizes a scored narrative for the cluster without
// persisting a story.
func (s *StoriesAPI) GenerateStar(ctx context.Context, clusterID uuid.UUID) (*Star, error) {
	in := struct {
		ClusterID uuid.UUID `json:"cluster_id"`
	}{ClusterID: clusterID}
	var star Star
	if err := s.client.post(ctx, "/career-stories/generate-star", in, &star); err != nil {
		return nil, err
	}
	return &star, nil
}

// StoryListOptions filter the story list.
type StoryListOptions struct {
	State      string
	Visibility string
	Limit      int
	Offset     int
}

func (o StoryListOptions) query() url.Values {
	q := url.Values{}
	if o.State != "" {
		q.Set("state", o.State)
	}
	if o.Visibility != "" {
		q.Set("visibility", o.Visibility)
	}
	if o.Limit > 0 {
		q.Set("limit", strconv.Itoa(o.Limit))
	}
	if o.Offset > 0 {
		q.Set("offset", strconv.Itoa(o.Offset))
	}
	return q
}

// Stories lists career stories.
func (s *StoriesAPI) Stories(ctx context.Context, opts StoryListOptions) ([]Story, *Pagination, error) {
	var items []Story
	page, err := s.client.getPage(ctx, "/career-stories/stories", opts.query(), &items)
	if err != nil {
		return nil, nil, err
	}
	return items, page, nil
}

// Story fetches one story.
func (s *StoriesAPI) Story(ctx context.Context, id uuid.UUID) (*Story, error) {
	var item Story
	if err := s.client.get(ctx, "/career-stories/stories/"+id.String(), nil, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// CreateStoryRequest turns a cluster's generated narrative into a stored
// draft.
type CreateStoryRequest struct {
	ClusterID uuid.UUID `json:"cluster_id"`
	Title     string    `json:"title,omitempty"`
	Framework string    `json:"framework,omitempty"`
}

// CreateStory persists a draft story from a cluster.
func (s *StoriesAPI) CreateStory(ctx context.Context, in CreateStoryRequest) (*Story, error) {
	var item Story
	if err := s.client.post(ctx, "/career-stories/stories", in, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateStoryRequest edits a story. Nil fields keep their current value.
type UpdateStoryRequest struct {
	Title      *string        `json:"title,omitempty"`
	Visibility *string        `json:"visibility,omitempty"`
	Sections   []StorySection `json:"sections,omitempty"`
}

// UpdateStory applies edits to a story.
func (s *StoriesAPI) UpdateStory(ctx context.Context, id uuid.UUID, in UpdateStoryRequest) (*Story, error) {
	var item Story
	if err := s.client.put(ctx, "/career-stories/stories/"+id.String(), in, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// PublishStory makes the story visible at the given visibility.
func (s *StoriesAPI) PublishStory(ctx context.Context, id uuid.UUID, visibility string) (*Story, error) {
	var item Story
	in := map[string]string{"visibility": visibility}
	if err := s.client.post(ctx, "/career-stories/stories/"+id.String()+"/publish", in, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// UnpublishStory returns the story to draft.
func (s *StoriesAPI) UnpublishStory(ctx context.Context, id uuid.UUID) (*Story, error) {
	var item Story
	if err := s.client.post(ctx, "/career-stories/stories/"+id.String()+"/unpublish", nil, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// RegenerateStory re-runs synthesis over the story's cluster, keeping edits
// where the server can.
func (s *StoriesAPI) RegenerateStory(ctx context.Context, id uuid.UUID) (*Story, error) {
	var item Story
	if err := s.client.post(ctx, "/career-stories/stories/"+id.String()+"/regenerate", nil, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// DeleteStory removes the story permanently.
func (s *StoriesAPI) DeleteStory(ctx context.Context, id uuid.UUID) error {
	return s.client.del(ctx, "/career-stories/stories/"+id.String())
}

// WizardQuestion is one clarifying question for a hand-written story.
type WizardQuestion struct {
	Part   string `json:"part"`
	Prompt string `json:"prompt"`
}

// WizardAnalysis is the wizard's read of journal text: the detected
// archetype, a suggested title, and the questions worth asking.
type WizardAnalysis struct {
	Archetype      string           `json:"archetype"`
	SuggestedTitle string           `json:"suggested_title,omitempty"`
	Coverage       map[string]int   `json:"coverage,omitempty"`
	Questions      []WizardQuestion `json:"questions"`
}

// WizardAnalyzeRequest submits journal text for analysis.
type WizardAnalyzeRequest struct {
	Title string   `json:"title,omitempty"`
	Body  string   `json:"body"`
	Tags  []string `json:"tags,omitempty"`
}

// AnalyzeWizard asks the wizard which questions to pose for the given text.
func (s *StoriesAPI) AnalyzeWizard(ctx context.Context, in WizardAnalyzeRequest) (*WizardAnalysis, error) {
	var analysis WizardAnalysis
	if err := s.client.post(ctx, "/career-stories/wizard/analyze", in, &analysis); err != nil {
		return nil, err
	}
	return &analysis, nil
}

// WizardStoryRequest turns journal text plus clarifying answers into a draft
// story. Answers are keyed by part name ("situation", "task", ...).
type WizardStoryRequest struct {
	Title      string            `json:"title,omitempty"`
	Body       string            `json:"body"`
	Answers    map[string]string `json:"answers,omitempty"`
	Framework  string            `json:"framework,omitempty"`
	Visibility string            `json:"visibility,omitempty"`
}

// WizardStoryResult is the created story plus the gate verdict on its
// narrative.
type WizardStoryResult struct {
	Story      Story          `json:"story"`
	Validation StarValidation `json:"validation"`
}

// CreateWizardStory runs the wizard flow end to end.
func (s *StoriesAPI) CreateWizardStory(ctx context.Context, in WizardStoryRequest) (*WizardStoryResult, error) {
	var result WizardStoryResult
	if err := s.client.post(ctx, "/career-stories/wizard/stories", in, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// DemoSummary reports what a demo seeding pass wrote. Counts distinguish
// rows present from rows created, so reseeding reads as a no-op.
type DemoSummary struct {
	Activities        int `json:"activities"`
	ActivitiesCreated int `json:"activities_created"`
	Clusters          int `json:"clusters"`
	ClustersCreated   int `json:"clusters_created"`
	Stories           int `json:"stories"`
	StoriesCreated    int `json:"stories_created"`
}

// SeedDemo loads the demo dataset into the account. Seeding twice is safe.
func (s *StoriesAPI) SeedDemo(ctx context.Context) (*DemoSummary, error) {
	var summary DemoSummary
	if err := s.client.post(ctx, "/career-stories/demo/seed", nil, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// DemoStatus reports whether demo rows are present for the account.
type DemoStatus struct {
	Seeded     bool `json:"seeded"`
	Activities int  `json:"activities"`
	Clusters   int  `json:"clusters"`
	Stories    int  `json:"stories"`
}

// DemoState returns the current demo dataset footprint.
func (s *StoriesAPI) DemoState(ctx context.Context) (*DemoStatus, error) {
	var status DemoStatus
	if err := s.client.get(ctx, "/career-stories/demo/status", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}
