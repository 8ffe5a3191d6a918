package types

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ActivitySource identifies the external tool an activity was imported from.
type ActivitySource string

const (
	SourceGitHub     ActivitySource = "github"
	SourceJira       ActivitySource = "jira"
	SourceSlack      ActivitySource = "slack"
	SourceConfluence ActivitySource = "confluence"
	SourceFigma      ActivitySource = "figma"
	SourceGoogleMeet ActivitySource = "google-meet"
)

// ErrUnknownSource reports an activity source outside the supported set.
var ErrUnknownSource = fmt.Errorf("go-stories: unknown activity source")

// KnownActivitySources returns the supported sources in stable order.
func KnownActivitySources() []ActivitySource {
	return []ActivitySource{
		SourceGitHub,
		SourceJira,
		SourceSlack,
		SourceConfluence,
		SourceFigma,
		SourceGoogleMeet,
	}
}

// ParseActivitySource normalizes and validates a source string.
func ParseActivitySource(raw string) (ActivitySource, error) {
	source := ActivitySource(strings.ToLower(strings.TrimSpace(raw)))
	if !source.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownSource, raw)
	}
	return source, nil
}

// Valid reports whether the source is one of the supported tools.
func (s ActivitySource) Valid() bool {
	switch s {
	case SourceGitHub, SourceJira, SourceSlack, SourceConfluence, SourceFigma, SourceGoogleMeet:
		return true
	}
	return false
}

// String implements fmt.Stringer.
func (s ActivitySource) String() string { return string(s) }

// SourceRef points at an artifact in another tool by its source identifier,
// e.g. {jira, "PROJ-123"}. Normalizers extract these from tool payloads; the
// ingest linker resolves them to activity IDs.
type SourceRef struct {
	Source   ActivitySource
	SourceID string
}

// Key returns the normalized lookup key, e.g. "jira:proj-123".
func (r SourceRef) Key() string {
	return strings.ToLower(string(r.Source) + ":" + strings.TrimSpace(r.SourceID))
}

// ToolActivity is a single unit of work imported from an external tool. The
// (UserID, Source, SourceID) triple is unique; re-imports update in place
// rather than duplicate. RawData preserves the tool payload verbatim so later
// interpretation changes never require a re-import. CrossToolRefs holds the
// IDs of other activities this one references; RefHints are the unresolved
// source references extracted at normalization time and are not persisted.
type ToolActivity struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	TenantID      uuid.UUID
	WorkspaceID   uuid.UUID
	Source        ActivitySource
	SourceID      string
	SourceURL     string
	Title         string
	Description   string
	Timestamp     time.Time
	ClusterID     uuid.UUID
	CrossToolRefs []uuid.UUID
	RefHints      []SourceRef
	RawData       json.RawMessage
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Clustered reports whether the activity is currently assigned to a cluster.
func (a ToolActivity) Clustered() bool { return a.ClusterID != uuid.Nil }

// RefKey returns the key other activities' RefHints use to point at this one.
func (a ToolActivity) RefKey() string {
	return SourceRef{Source: a.Source, SourceID: a.SourceID}.Key()
}

// References reports whether the activity carries a cross-tool ref to the
// given activity ID.
func (a ToolActivity) References(id uuid.UUID) bool {
	for _, ref := range a.CrossToolRefs {
		if ref == id {
			return true
		}
	}
	return false
}

// ToolActivityFilter narrows activity feed queries. Cursor takes precedence
// over Pagination.Offset when both are supplied.
type ToolActivityFilter struct {
	Actor       ActorRef
	Scope       ScopeFilter
	UserID      uuid.UUID
	Sources     []ActivitySource
	ClusterID   uuid.UUID
	Unclustered bool
	Since       *time.Time
	Until       *time.Time
	Keyword     string
	Cursor      string
	Pagination  Pagination
}

// Type implements gocommand.Message for query inputs.
func (ToolActivityFilter) Type() string {
	return "query.activity.feed"
}

// Validate implements gocommand.Message.
func (filter ToolActivityFilter) Validate() error {
	if filter.Actor.ID == uuid.Nil {
		return ErrActorRequired
	}
	for _, source := range filter.Sources {
		if !source.Valid() {
			return fmt.Errorf("%w: %q", ErrUnknownSource, source)
		}
	}
	return nil
}

// ToolActivityPage represents a paginated activity feed response.
type ToolActivityPage struct {
	Activities []ToolActivity
	Total      int
	NextOffset int
	NextCursor string
	HasMore    bool
}

// ToolActivityStatsFilter scopes aggregate activity queries.
type ToolActivityStatsFilter struct {
	Actor  ActorRef
	Scope  ScopeFilter
	UserID uuid.UUID
	Since  *time.Time
	Until  *time.Time
}

// Type implements gocommand.Message for query inputs.
func (ToolActivityStatsFilter) Type() string {
	return "query.activity.stats"
}

// Validate implements gocommand.Message.
func (filter ToolActivityStatsFilter) Validate() error {
	if filter.Actor.ID == uuid.Nil {
		return ErrActorRequired
	}
	return nil
}

// ToolActivityStats summarizes a user's imported activity set.
type ToolActivityStats struct {
	Total       int
	Unclustered int
	BySource    map[ActivitySource]int
	Earliest    time.Time
	Latest      time.Time
}

// ToolActivityRepository is the storage contract for imported activities.
type ToolActivityRepository interface {
	CreateActivity(ctx context.Context, activity ToolActivity) (*ToolActivity, error)
	// UpsertActivity deduplicates on (UserID, Source, SourceID). The boolean
	// reports whether a new row was created.
	UpsertActivity(ctx context.Context, activity ToolActivity) (*ToolActivity, bool, error)
	GetActivityByID(ctx context.Context, userID, id uuid.UUID) (*ToolActivity, error)
	GetActivityBySourceID(ctx context.Context, userID uuid.UUID, source ActivitySource, sourceID string) (*ToolActivity, error)
	ListActivities(ctx context.Context, filter ToolActivityFilter) (ToolActivityPage, error)
	ListActivitiesByIDs(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]ToolActivity, error)
	// AssignCluster stamps the cluster on the given activities and returns the
	// number of rows updated. A Nil clusterID returns them to the unclustered
	// pool.
	AssignCluster(ctx context.Context, userID uuid.UUID, activityIDs []uuid.UUID, clusterID uuid.UUID) (int, error)
	// ReleaseCluster clears the cluster assignment for every activity in the
	// cluster and returns the number of rows updated.
	ReleaseCluster(ctx context.Context, userID, clusterID uuid.UUID) (int, error)
	ActivityStats(ctx context.Context, filter ToolActivityStatsFilter) (ToolActivityStats, error)
	DeleteActivity(ctx context.Context, userID, id uuid.UUID) error
}
