package story

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/pkg/types"
	"github.com/uptrace/bun"
)

// ErrInvalidTransition indicates a publication state change outside the
// transition graph.
var ErrInvalidTransition = errors.New("story: invalid state transition")

// allowedTransition encodes the publication graph: draft to published,
// published and unpublished back and forth. Nothing returns to draft.
func allowedTransition(from, to types.StoryState) bool {
	switch from {
	case types.StoryStateDraft:
		return to == types.StoryStatePublished
	case types.StoryStatePublished:
		return to == types.StoryStateUnpublished
	case types.StoryStateUnpublished:
		return to == types.StoryStatePublished
	}
	return false
}

// viewerAccessSQL gates rows for a viewer other than the owner: own rows are
// unrestricted, everything else must be published and pass the visibility
// rule. Workspace stories open to members of the story's workspace, or to any
// workspace shared with the owner when the story carries none. Network
// stories open to accepted connections in either direction.
const viewerAccessSQL = `(story.user_id = ? OR (story.state = ? AND (
(story.visibility = ? AND (
	(story.workspace_id IS NOT NULL AND EXISTS (
		SELECT 1 FROM workspace_members AS members
		WHERE members.workspace_id = story.workspace_id
		  AND members.user_id = ?
	))
	OR (story.workspace_id IS NULL AND EXISTS (
		SELECT 1 FROM workspace_members AS viewer_side
		JOIN workspace_members AS owner_side
		  ON owner_side.workspace_id = viewer_side.workspace_id
		WHERE viewer_side.user_id = ?
		  AND owner_side.user_id = story.user_id
	))
))
OR
(story.visibility = ? AND EXISTS (
	SELECT 1 FROM network_connections AS edges
	WHERE edges.status = 'accepted' AND (
		(edges.user_id = story.user_id AND edges.peer_id = ?)
		OR (edges.peer_id = story.user_id AND edges.user_id = ?)
	)
)))))`

// RepositoryConfig wires the Bun-backed story repository.
type RepositoryConfig struct {
	DB         *bun.DB
	Repository repository.Repository[*Record]
	Clock      types.Clock
	IDGen      types.IDGenerator
}

type recordStore interface {
	repository.Repository[*Record]
}

// Repository persists career stories.
type Repository struct {
	recordStore
	db    *bun.DB
	clock types.Clock
	idGen types.IDGenerator
}

// NewRepository constructs a repository implementing StoryRepository.
func NewRepository(cfg RepositoryConfig) (*Repository, error) {
	if cfg.Repository == nil && cfg.DB == nil {
		return nil, errors.New("story: db or repository required")
	}
	repo := cfg.Repository
	if repo == nil {
		repo = repository.NewRepository(cfg.DB, repository.ModelHandlers[*Record]{
			NewRecord: func() *Record { return &Record{} },
			GetID: func(record *Record) uuid.UUID {
				if record == nil {
					return uuid.Nil
				}
				return record.ID
			},
			SetID: func(record *Record, id uuid.UUID) {
				if record != nil {
					record.ID = id
				}
			},
		})
	}
	clock := cfg.Clock
	if clock == nil {
		clock = types.SystemClock{}
	}
	idGen := cfg.IDGen
	if idGen == nil {
		idGen = types.UUIDGenerator{}
	}

	return &Repository{
		recordStore: repo,
		db:          cfg.DB,
		clock:       clock,
		idGen:       idGen,
	}, nil
}

var (
	_ repository.Repository[*Record] = (*Repository)(nil)
	_ types.StoryRepository          = (*Repository)(nil)
)

// CreateStory persists a new story. Empty lifecycle fields default to a
// private STAR draft.
func (r *Repository) CreateStory(ctx context.Context, story types.CareerStory) (*types.CareerStory, error) {
	if story.State == "" {
		story.State = types.StoryStateDraft
	}
	if story.Visibility == "" {
		story.Visibility = types.VisibilityPrivate
	}
	if story.Framework == "" {
		story.Framework = types.FrameworkSTAR
	}
	if !story.Visibility.Valid() {
		return nil, types.ErrInvalidVisibility
	}
	if !story.Framework.Valid() {
		return nil, types.ErrInvalidFramework
	}

	record := fromStory(story)
	r.stampForInsert(record)
	created, err := r.Create(ctx, record)
	if err != nil {
		return nil, err
	}
	out := toStory(created)
	return &out, nil
}

// GetStoryByID fetches a story owned by the user.
func (r *Repository) GetStoryByID(ctx context.Context, userID, id uuid.UUID) (*types.CareerStory, error) {
	record, err := r.Get(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		q = q.Where("id = ?", id)
		if userID != uuid.Nil {
			q = q.Where("user_id = ?", userID)
		}
		return q
	})
	if err != nil {
		return nil, err
	}
	out := toStory(record)
	return &out, nil
}

// ListStories returns a paginated story listing, newest first. When ViewerID
// names someone other than the owner the visibility rules apply.
func (r *Repository) ListStories(ctx context.Context, filter types.StoryFilter) (types.StoryPage, error) {
	pagination := normalizePagination(filter.Pagination, 50, 200)

	rows, total, err := r.List(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		q = q.OrderExpr("created_at DESC, id DESC").
			Limit(pagination.Limit).
			Offset(pagination.Offset)
		return applyStoryFilter(q, filter)
	})
	if err != nil {
		return types.StoryPage{}, err
	}
	stories := make([]types.CareerStory, 0, len(rows))
	for _, row := range rows {
		stories = append(stories, toStory(row))
	}
	return types.StoryPage{
		Stories:    stories,
		Total:      total,
		NextOffset: pagination.Offset + pagination.Limit,
		HasMore:    pagination.Offset+pagination.Limit < total,
	}, nil
}

// UpdateStory persists content and visibility changes. State never changes
// here; SetStoryState owns the transition graph.
func (r *Repository) UpdateStory(ctx context.Context, story types.CareerStory) (*types.CareerStory, error) {
	if story.Visibility != "" && !story.Visibility.Valid() {
		return nil, types.ErrInvalidVisibility
	}
	if story.Framework != "" && !story.Framework.Valid() {
		return nil, types.ErrInvalidFramework
	}

	existing, err := r.Get(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		q = q.Where("id = ?", story.ID)
		if story.UserID != uuid.Nil {
			q = q.Where("user_id = ?", story.UserID)
		}
		return q
	})
	if err != nil {
		return nil, err
	}
	existing.Title = story.Title
	existing.Sections = cloneSections(story.Sections)
	existing.SourceActivityIDs = cloneUUIDs(story.SourceActivityIDs)
	existing.Confidence = story.Confidence
	existing.Archetype = story.Archetype
	if story.Framework != "" {
		existing.Framework = story.Framework
	}
	if story.Visibility != "" {
		existing.Visibility = story.Visibility
	}
	if !story.RegeneratedAt.IsZero() {
		existing.RegeneratedAt = story.RegeneratedAt
	}
	existing.UpdatedAt = r.clock.Now()

	updated, err := r.Update(ctx, existing)
	if err != nil {
		return nil, err
	}
	out := toStory(updated)
	return &out, nil
}

// SetStoryState moves the story through the publication graph. Publishing
// stamps PublishedAt with the transition time.
func (r *Repository) SetStoryState(ctx context.Context, userID, id uuid.UUID, state types.StoryState, at time.Time) (*types.CareerStory, error) {
	existing, err := r.Get(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		q = q.Where("id = ?", id)
		if userID != uuid.Nil {
			q = q.Where("user_id = ?", userID)
		}
		return q
	})
	if err != nil {
		return nil, err
	}
	if !allowedTransition(existing.State, state) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, existing.State, state)
	}
	if at.IsZero() {
		at = r.clock.Now()
	}
	existing.State = state
	if state == types.StoryStatePublished {
		existing.PublishedAt = at
	}
	existing.UpdatedAt = at

	updated, err := r.Update(ctx, existing)
	if err != nil {
		return nil, err
	}
	out := toStory(updated)
	return &out, nil
}

// DeleteStory removes the story row permanently.
func (r *Repository) DeleteStory(ctx context.Context, userID, id uuid.UUID) error {
	record, err := r.Get(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		q = q.Where("id = ?", id)
		if userID != uuid.Nil {
			q = q.Where("user_id = ?", userID)
		}
		return q
	})
	if err != nil {
		return err
	}
	return r.Delete(ctx, record)
}

func (r *Repository) stampForInsert(record *Record) {
	if record.ID == uuid.Nil {
		record.ID = r.idGen.UUID()
	}
	now := r.clock.Now()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = now
	}
}

func applyStoryFilter(q *bun.SelectQuery, filter types.StoryFilter) *bun.SelectQuery {
	if filter.Scope.TenantID != uuid.Nil {
		q = q.Where("tenant_id = ?", filter.Scope.TenantID)
	}
	if filter.Scope.WorkspaceID != uuid.Nil {
		q = q.Where("workspace_id = ?", filter.Scope.WorkspaceID)
	}
	if filter.UserID != uuid.Nil {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if filter.ClusterID != uuid.Nil {
		q = q.Where("cluster_id = ?", filter.ClusterID)
	}
	if len(filter.States) > 0 {
		q = q.Where("state IN (?)", bun.In(filter.States))
	}
	if len(filter.Visibilities) > 0 {
		q = q.Where("visibility IN (?)", bun.In(filter.Visibilities))
	}
	if strings.TrimSpace(filter.Keyword) != "" {
		keyword := "%" + strings.ToLower(strings.TrimSpace(filter.Keyword)) + "%"
		q = q.Where("LOWER(title) LIKE ?", keyword)
	}
	if filter.ViewerID != uuid.Nil && filter.ViewerID != filter.UserID {
		q = q.Where(viewerAccessSQL,
			filter.ViewerID,
			string(types.StoryStatePublished),
			string(types.VisibilityWorkspace),
			filter.ViewerID,
			filter.ViewerID,
			string(types.VisibilityNetwork),
			filter.ViewerID,
			filter.ViewerID,
		)
	}
	return q
}

func fromStory(story types.CareerStory) *Record {
	return &Record{
		ID:                story.ID,
		UserID:            story.UserID,
		TenantID:          story.TenantID,
		WorkspaceID:       story.WorkspaceID,
		ClusterID:         story.ClusterID,
		Title:             story.Title,
		Framework:         story.Framework,
		Archetype:         story.Archetype,
		Sections:          cloneSections(story.Sections),
		SourceActivityIDs: cloneUUIDs(story.SourceActivityIDs),
		Confidence:        story.Confidence,
		Visibility:        story.Visibility,
		State:             story.State,
		PublishedAt:       story.PublishedAt,
		RegeneratedAt:     story.RegeneratedAt,
		CreatedAt:         story.CreatedAt,
		UpdatedAt:         story.UpdatedAt,
	}
}

func toStory(record *Record) types.CareerStory {
	if record == nil {
		return types.CareerStory{}
	}
	return types.CareerStory{
		ID:                record.ID,
		UserID:            record.UserID,
		TenantID:          record.TenantID,
		WorkspaceID:       record.WorkspaceID,
		ClusterID:         record.ClusterID,
		Title:             record.Title,
		Framework:         record.Framework,
		Archetype:         record.Archetype,
		Sections:          cloneSections(record.Sections),
		SourceActivityIDs: cloneUUIDs(record.SourceActivityIDs),
		Confidence:        record.Confidence,
		Visibility:        record.Visibility,
		State:             record.State,
		PublishedAt:       record.PublishedAt,
		RegeneratedAt:     record.RegeneratedAt,
		CreatedAt:         record.CreatedAt,
		UpdatedAt:         record.UpdatedAt,
	}
}

// FromStory converts a domain story into the Bun model so it can be reused
// by transports without duplicating conversion logic.
func FromStory(story types.CareerStory) *Record {
	return fromStory(story)
}

// ToStory converts the Bun model into the domain story.
func ToStory(record *Record) types.CareerStory {
	return toStory(record)
}

func cloneSections(sections []types.StorySection) []types.StorySection {
	if len(sections) == 0 {
		return nil
	}
	out := make([]types.StorySection, len(sections))
	copy(out, sections)
	for i := range out {
		out[i].Sources = cloneUUIDs(out[i].Sources)
	}
	return out
}

func cloneUUIDs(src []uuid.UUID) []uuid.UUID {
	if len(src) == 0 {
		return nil
	}
	out := make([]uuid.UUID, len(src))
	copy(out, src)
	return out
}

func normalizePagination(p types.Pagination, def, max int) types.Pagination {
	if p.Limit <= 0 {
		p.Limit = def
	}
	if p.Limit > max {
		p.Limit = max
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}
