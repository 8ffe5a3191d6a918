package demodata

import (
	"context"
	"errors"
	"fmt"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/pkg/types"
)

// SeederConfig wires the repositories the seeder writes through.
type SeederConfig struct {
	Activities types.ToolActivityRepository
	Clusters   types.ClusterRepository
	Stories    types.StoryRepository
	Logger     types.Logger
}

// Seeder provisions the demo dataset for a user through the regular
// repositories, so seeded rows behave exactly like imported ones. Seeding is
// idempotent: activities dedupe on their source identity and clusters and
// stories are skipped once present.
type Seeder struct {
	activities types.ToolActivityRepository
	clusters   types.ClusterRepository
	stories    types.StoryRepository
	logger     types.Logger
}

// NewSeeder constructs a seeder from its repositories.
func NewSeeder(cfg SeederConfig) (*Seeder, error) {
	if cfg.Activities == nil {
		return nil, errors.New("demodata: activity repository required")
	}
	if cfg.Clusters == nil {
		return nil, errors.New("demodata: cluster repository required")
	}
	if cfg.Stories == nil {
		return nil, errors.New("demodata: story repository required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = types.NopLogger{}
	}
	return &Seeder{
		activities: cfg.Activities,
		clusters:   cfg.Clusters,
		stories:    cfg.Stories,
		logger:     logger,
	}, nil
}

// Summary reports what a seeding pass wrote.
type Summary struct {
	UserID            uuid.UUID
	Activities        int
	ActivitiesCreated int
	Clusters          int
	ClustersCreated   int
	Stories           int
	StoriesCreated    int
}

// Seed writes the fixture for the given user, stamping the supplied scope on
// every row. Existing rows are left alone, so calling Seed twice is safe.
func (s *Seeder) Seed(ctx context.Context, userID uuid.UUID, scope types.ScopeFilter) (*Summary, error) {
	dataset := DatasetFor(userID)
	summary := &Summary{UserID: dataset.UserID}

	// Upsert dedupes on source identity, so a re-seed may land on rows with
	// different primary keys than the fixture tables. Track the mapping and
	// rewrite memberships and source attributions as we go.
	storedIDs := make(map[uuid.UUID]uuid.UUID, len(dataset.Activities))
	for _, activity := range dataset.Activities {
		fixtureID := activity.ID
		activity.TenantID = scope.TenantID
		activity.WorkspaceID = scope.WorkspaceID
		activity.ClusterID = uuid.Nil
		stored, created, err := s.activities.UpsertActivity(ctx, activity)
		if err != nil {
			return nil, fmt.Errorf("demodata: seed activity %s/%s: %w", activity.Source, activity.SourceID, err)
		}
		storedIDs[fixtureID] = stored.ID
		summary.Activities++
		if created {
			summary.ActivitiesCreated++
		}
	}

	for _, fixture := range dataset.Clusters {
		members := remapIDs(storedIDs, fixture.ActivityIDs)
		_, err := s.clusters.GetClusterByID(ctx, dataset.UserID, fixture.ID)
		switch {
		case err == nil:
		case repository.IsRecordNotFound(err):
			fixture.TenantID = scope.TenantID
			fixture.WorkspaceID = scope.WorkspaceID
			fixture.SetActivities(members)
			if _, err := s.clusters.CreateCluster(ctx, fixture); err != nil {
				return nil, fmt.Errorf("demodata: seed cluster %q: %w", fixture.Name, err)
			}
			summary.ClustersCreated++
		default:
			return nil, fmt.Errorf("demodata: seed cluster %q: %w", fixture.Name, err)
		}
		if _, err := s.activities.AssignCluster(ctx, dataset.UserID, members, fixture.ID); err != nil {
			return nil, fmt.Errorf("demodata: assign cluster %q: %w", fixture.Name, err)
		}
		summary.Clusters++
	}

	for _, fixture := range dataset.Stories {
		_, err := s.stories.GetStoryByID(ctx, dataset.UserID, fixture.ID)
		switch {
		case err == nil:
		case repository.IsRecordNotFound(err):
			fixture.TenantID = scope.TenantID
			fixture.WorkspaceID = scope.WorkspaceID
			fixture.SourceActivityIDs = remapIDs(storedIDs, fixture.SourceActivityIDs)
			for i := range fixture.Sections {
				fixture.Sections[i].Sources = remapIDs(storedIDs, fixture.Sections[i].Sources)
			}
			if _, err := s.stories.CreateStory(ctx, fixture); err != nil {
				return nil, fmt.Errorf("demodata: seed story %q: %w", fixture.Title, err)
			}
			summary.StoriesCreated++
		default:
			return nil, fmt.Errorf("demodata: seed story %q: %w", fixture.Title, err)
		}
		summary.Stories++
	}

	s.logger.Info("demo dataset seeded",
		"user_id", dataset.UserID,
		"activities_created", summary.ActivitiesCreated,
		"clusters_created", summary.ClustersCreated,
		"stories_created", summary.StoriesCreated,
	)
	return summary, nil
}

func remapIDs(mapping map[uuid.UUID]uuid.UUID, ids []uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if mapped, ok := mapping[id]; ok {
			out = append(out, mapped)
			continue
		}
		out = append(out, id)
	}
	return out
}
