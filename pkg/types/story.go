package types

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// StoryState tracks the publication lifecycle of a career story.
type StoryState string

const (
	StoryStateDraft       StoryState = "draft"
	StoryStatePublished   StoryState = "published"
	StoryStateUnpublished StoryState = "unpublished"
)

// StoryVisibility controls who can see a published story.
type StoryVisibility string

const (
	VisibilityPrivate   StoryVisibility = "private"
	VisibilityWorkspace StoryVisibility = "workspace"
	VisibilityNetwork   StoryVisibility = "network"
)

// Valid reports whether the visibility is one of the supported levels.
func (v StoryVisibility) Valid() bool {
	switch v {
	case VisibilityPrivate, VisibilityWorkspace, VisibilityNetwork:
		return true
	}
	return false
}

// StoryFramework selects how narrative sections are keyed and labeled.
type StoryFramework string

const (
	FrameworkSTAR  StoryFramework = "star"
	FrameworkCAR   StoryFramework = "car"
	FrameworkSCOPE StoryFramework = "scope"
)

// Valid reports whether the framework is supported.
func (f StoryFramework) Valid() bool {
	switch f {
	case FrameworkSTAR, FrameworkCAR, FrameworkSCOPE:
		return true
	}
	return false
}

// StoryArchetype is the narrative shape detected from wizard input.
type StoryArchetype string

const (
	ArchetypeBuilder  StoryArchetype = "builder"
	ArchetypeFixer    StoryArchetype = "fixer"
	ArchetypeLeader   StoryArchetype = "leader"
	ArchetypeExplorer StoryArchetype = "explorer"
)

var (
	// ErrInvalidVisibility indicates an unsupported visibility value.
	ErrInvalidVisibility = errors.New("go-stories: invalid story visibility")
	// ErrInvalidFramework indicates an unsupported narrative framework.
	ErrInvalidFramework = errors.New("go-stories: invalid story framework")
)

// StorySection is one framework-keyed block of a story. Key follows the
// framework ("situation"/"challenge"/"objective"...), Label is the display
// heading.
type StorySection struct {
	Key        string
	Label      string
	Text       string
	Sources    []uuid.UUID
	Confidence float64
}

// CareerStory is a polished narrative derived from a cluster or the wizard.
// Deleting a story is terminal; rows are removed, not flagged.
type CareerStory struct {
	ID                uuid.UUID
	UserID            uuid.UUID
	TenantID          uuid.UUID
	WorkspaceID       uuid.UUID
	ClusterID         uuid.UUID
	Title             string
	Framework         StoryFramework
	Archetype         StoryArchetype
	Sections          []StorySection
	SourceActivityIDs []uuid.UUID
	Confidence        float64
	Visibility        StoryVisibility
	State             StoryState
	PublishedAt       time.Time
	RegeneratedAt     time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Published reports whether the story is currently visible beyond drafts.
func (s CareerStory) Published() bool { return s.State == StoryStatePublished }

// Section returns the section with the given key, or nil.
func (s CareerStory) Section(key string) *StorySection {
	for i := range s.Sections {
		if s.Sections[i].Key == key {
			return &s.Sections[i]
		}
	}
	return nil
}

// StoryEvent is emitted after story lifecycle changes.
type StoryEvent struct {
	UserID     uuid.UUID
	StoryID    uuid.UUID
	From       StoryState
	To         StoryState
	Action     string
	ActorID    uuid.UUID
	Scope      ScopeFilter
	OccurredAt time.Time
}

// StoryFilter narrows story listing queries. ViewerID drives the visibility
// rules when listing someone else's stories: private stories stay owner only,
// workspace stories need a shared workspace, network stories need an accepted
// connection.
type StoryFilter struct {
	Actor        ActorRef
	Scope        ScopeFilter
	UserID       uuid.UUID
	ViewerID     uuid.UUID
	ClusterID    uuid.UUID
	States       []StoryState
	Visibilities []StoryVisibility
	Keyword      string
	Pagination   Pagination
}

// Type implements gocommand.Message for query inputs.
func (StoryFilter) Type() string {
	return "query.story.list"
}

// Validate implements gocommand.Message.
func (filter StoryFilter) Validate() error {
	if filter.Actor.ID == uuid.Nil {
		return ErrActorRequired
	}
	for _, visibility := range filter.Visibilities {
		if !visibility.Valid() {
			return ErrInvalidVisibility
		}
	}
	return nil
}

// StoryPage represents a paginated story listing.
type StoryPage struct {
	Stories    []CareerStory
	Total      int
	NextOffset int
	HasMore    bool
}

// StoryRepository is the storage contract for career stories.
type StoryRepository interface {
	CreateStory(ctx context.Context, story CareerStory) (*CareerStory, error)
	GetStoryByID(ctx context.Context, userID, id uuid.UUID) (*CareerStory, error)
	ListStories(ctx context.Context, filter StoryFilter) (StoryPage, error)
	// UpdateStory persists title, sections, framework, confidence, and
	// visibility. State changes go through SetStoryState.
	UpdateStory(ctx context.Context, story CareerStory) (*CareerStory, error)
	SetStoryState(ctx context.Context, userID, id uuid.UUID, state StoryState, at time.Time) (*CareerStory, error)
	// DeleteStory removes the story permanently. Deletion is terminal.
	DeleteStory(ctx context.Context, userID, id uuid.UUID) error
}
