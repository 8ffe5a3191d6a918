package story

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/pkg/types"
	"github.com/inchronicle/go-stories/star"
)

// Story lifecycle actions reported through hooks.
const (
	ActionGenerated   = "generated"
	ActionEdited      = "edited"
	ActionRegenerated = "regenerated"
	ActionPublished   = "published"
	ActionUnpublished = "unpublished"
	ActionVisibility  = "visibility_changed"
	ActionDeleted     = "deleted"
)

// WalletReasonStarGeneration is the ledger reason stamped on generation
// debits.
const WalletReasonStarGeneration = "star_generation"

// ErrNotClusterBacked indicates a regenerate on a story that did not come
// from a cluster.
var ErrNotClusterBacked = errors.New("story: not generated from a cluster")

// GenerateOptions tunes story generation from a cluster.
type GenerateOptions struct {
	Title         string
	Framework     types.StoryFramework
	Visibility    types.StoryVisibility
	Style         types.SynthesisStyle
	MinConfidence float64
}

// ManagerConfig wires the story manager.
type ManagerConfig struct {
	Stories     types.StoryRepository
	Clusters    types.ClusterRepository
	Activities  types.ToolActivityRepository
	Synthesizer types.StarSynthesizer
	// Wallet meters generation when set; nil means free mode.
	Wallet   types.WalletRepository
	StarCost int64
	Clock    types.Clock
	Hooks    types.Hooks
}

// Manager generates stories from clusters and runs their lifecycle.
type Manager struct {
	stories     types.StoryRepository
	clusters    types.ClusterRepository
	activities  types.ToolActivityRepository
	synthesizer types.StarSynthesizer
	wallet      types.WalletRepository
	starCost    int64
	clock       types.Clock
	hooks       types.Hooks
}

// NewManager constructs a story manager.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	if cfg.Stories == nil {
		return nil, types.ErrMissingStoryRepository
	}
	if cfg.Clusters == nil {
		return nil, types.ErrMissingClusterRepository
	}
	if cfg.Activities == nil {
		return nil, types.ErrMissingActivityRepository
	}
	if cfg.Synthesizer == nil {
		return nil, types.ErrMissingSynthesizer
	}
	clock := cfg.Clock
	if clock == nil {
		clock = types.SystemClock{}
	}
	return &Manager{
		stories:     cfg.Stories,
		clusters:    cfg.Clusters,
		activities:  cfg.Activities,
		synthesizer: cfg.Synthesizer,
		wallet:      cfg.Wallet,
		starCost:    cfg.StarCost,
		clock:       clock,
		hooks:       cfg.Hooks,
	}, nil
}

// Generate synthesizes a narrative from the cluster and persists it as a
// draft. A wired wallet is debited before the story is created, so a failed
// debit blocks generation.
func (m *Manager) Generate(ctx context.Context, userID, clusterID uuid.UUID, opts GenerateOptions) (*types.CareerStory, *types.ScoredStar, error) {
	if userID == uuid.Nil {
		return nil, nil, types.ErrUserIDRequired
	}
	cluster, err := m.clusters.GetClusterByID(ctx, userID, clusterID)
	if err != nil {
		return nil, nil, err
	}
	members, err := m.activities.ListActivitiesByIDs(ctx, userID, cluster.ActivityIDs)
	if err != nil {
		return nil, nil, err
	}
	scored, err := m.synthesizer.Synthesize(ctx, *cluster, members, types.SynthesisOptions{
		Style:         opts.Style,
		MinConfidence: opts.MinConfidence,
	})
	if err != nil {
		return nil, nil, err
	}

	framework := opts.Framework
	if framework == "" {
		framework = types.FrameworkSTAR
	}
	sections, err := star.BuildSections(*scored, framework)
	if err != nil {
		return nil, nil, err
	}
	if err := m.chargeGeneration(ctx, userID, clusterID); err != nil {
		return nil, nil, err
	}

	title := opts.Title
	if title == "" {
		title = cluster.Name
	}
	created, err := m.stories.CreateStory(ctx, types.CareerStory{
		UserID:            userID,
		TenantID:          cluster.TenantID,
		WorkspaceID:       cluster.WorkspaceID,
		ClusterID:         cluster.ID,
		Title:             title,
		Framework:         framework,
		Sections:          sections,
		SourceActivityIDs: sourcedMembers(*cluster, *scored),
		Confidence:        scored.OverallConfidence,
		Visibility:        opts.Visibility,
		State:             types.StoryStateDraft,
	})
	if err != nil {
		return nil, nil, err
	}
	m.fireStarGenerated(ctx, *created, *scored)
	m.fireTransition(ctx, *created, "", types.StoryStateDraft, ActionGenerated)
	return created, scored, nil
}

// Regenerate re-runs synthesis for a cluster-backed story, replacing its
// sections and stamping RegeneratedAt. The story keeps its identity, title,
// and lifecycle state. Regeneration is never metered.
func (m *Manager) Regenerate(ctx context.Context, userID, storyID uuid.UUID, opts GenerateOptions) (*types.CareerStory, *types.ScoredStar, error) {
	existing, err := m.stories.GetStoryByID(ctx, userID, storyID)
	if err != nil {
		return nil, nil, err
	}
	if existing.ClusterID == uuid.Nil {
		return nil, nil, ErrNotClusterBacked
	}
	cluster, err := m.clusters.GetClusterByID(ctx, userID, existing.ClusterID)
	if err != nil {
		return nil, nil, err
	}
	members, err := m.activities.ListActivitiesByIDs(ctx, userID, cluster.ActivityIDs)
	if err != nil {
		return nil, nil, err
	}
	scored, err := m.synthesizer.Synthesize(ctx, *cluster, members, types.SynthesisOptions{
		Style:         opts.Style,
		MinConfidence: opts.MinConfidence,
	})
	if err != nil {
		return nil, nil, err
	}

	framework := opts.Framework
	if framework == "" {
		framework = existing.Framework
	}
	sections, err := star.BuildSections(*scored, framework)
	if err != nil {
		return nil, nil, err
	}

	next := *existing
	if opts.Title != "" {
		next.Title = opts.Title
	}
	next.Framework = framework
	next.Sections = sections
	next.SourceActivityIDs = sourcedMembers(*cluster, *scored)
	next.Confidence = scored.OverallConfidence
	next.RegeneratedAt = m.clock.Now()

	updated, err := m.stories.UpdateStory(ctx, next)
	if err != nil {
		return nil, nil, err
	}
	m.fireTransition(ctx, *updated, existing.State, updated.State, ActionRegenerated)
	return updated, scored, nil
}

// CreateFromWizard persists a wizard draft under the given scope.
func (m *Manager) CreateFromWizard(ctx context.Context, request star.WizardRequest, scope types.ScopeFilter) (*types.CareerStory, types.StarValidation, error) {
	draft, evaluation, err := star.GenerateFromWizard(request)
	if err != nil {
		return nil, evaluation, err
	}
	draft.TenantID = scope.TenantID
	draft.WorkspaceID = scope.WorkspaceID

	created, err := m.stories.CreateStory(ctx, *draft)
	if err != nil {
		return nil, evaluation, err
	}
	m.fireTransition(ctx, *created, "", created.State, ActionGenerated)
	return created, evaluation, nil
}

// Publish moves the story to published, stamping PublishedAt.
func (m *Manager) Publish(ctx context.Context, userID, id uuid.UUID) (*types.CareerStory, error) {
	return m.transition(ctx, userID, id, types.StoryStatePublished, ActionPublished)
}

// Unpublish retracts a published story.
func (m *Manager) Unpublish(ctx context.Context, userID, id uuid.UUID) (*types.CareerStory, error) {
	return m.transition(ctx, userID, id, types.StoryStateUnpublished, ActionUnpublished)
}

func (m *Manager) transition(ctx context.Context, userID, id uuid.UUID, to types.StoryState, action string) (*types.CareerStory, error) {
	existing, err := m.stories.GetStoryByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	updated, err := m.stories.SetStoryState(ctx, userID, id, to, m.clock.Now())
	if err != nil {
		return nil, err
	}
	m.fireTransition(ctx, *updated, existing.State, to, action)
	return updated, nil
}

// SetVisibility changes who can see the story once published.
func (m *Manager) SetVisibility(ctx context.Context, userID, id uuid.UUID, visibility types.StoryVisibility) (*types.CareerStory, error) {
	if !visibility.Valid() {
		return nil, types.ErrInvalidVisibility
	}
	existing, err := m.stories.GetStoryByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	next := *existing
	next.Visibility = visibility
	updated, err := m.stories.UpdateStory(ctx, next)
	if err != nil {
		return nil, err
	}
	m.fireTransition(ctx, *updated, existing.State, updated.State, ActionVisibility)
	return updated, nil
}

// Edit persists user changes to title, sections, framework, or visibility.
func (m *Manager) Edit(ctx context.Context, story types.CareerStory) (*types.CareerStory, error) {
	if story.UserID == uuid.Nil {
		return nil, types.ErrUserIDRequired
	}
	updated, err := m.stories.UpdateStory(ctx, story)
	if err != nil {
		return nil, err
	}
	m.fireTransition(ctx, *updated, updated.State, updated.State, ActionEdited)
	return updated, nil
}

// Delete removes the story permanently.
func (m *Manager) Delete(ctx context.Context, userID, id uuid.UUID) error {
	existing, err := m.stories.GetStoryByID(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := m.stories.DeleteStory(ctx, userID, id); err != nil {
		return err
	}
	m.fireTransition(ctx, *existing, existing.State, "", ActionDeleted)
	return nil
}

// chargeGeneration debits the configured credit cost. Every successful
// generation pays; the reference keeps the ledger entry traceable to the
// cluster.
func (m *Manager) chargeGeneration(ctx context.Context, userID, clusterID uuid.UUID) error {
	if m.wallet == nil || m.starCost <= 0 {
		return nil
	}
	balance, err := m.wallet.ApplyTransaction(ctx, types.WalletTransaction{
		UserID:    userID,
		Kind:      types.TransactionDebit,
		Amount:    m.starCost,
		Reason:    WalletReasonStarGeneration,
		Reference: fmt.Sprintf("star:%s:%d", clusterID, m.clock.Now().UnixNano()),
	})
	if err != nil {
		return err
	}
	if m.hooks.AfterWalletChange != nil {
		m.hooks.AfterWalletChange(ctx, types.WalletEvent{
			UserID:     userID,
			Kind:       types.TransactionDebit,
			Amount:     m.starCost,
			Balance:    balance.Balance,
			Reason:     WalletReasonStarGeneration,
			ActorID:    userID,
			OccurredAt: m.clock.Now(),
		})
	}
	return nil
}

func (m *Manager) fireStarGenerated(ctx context.Context, story types.CareerStory, scored types.ScoredStar) {
	if m.hooks.AfterStarGenerated == nil {
		return
	}
	m.hooks.AfterStarGenerated(ctx, types.StarEvent{
		UserID:     story.UserID,
		ClusterID:  story.ClusterID,
		StoryID:    story.ID,
		Overall:    scored.OverallConfidence,
		Passed:     scored.Validation.Passed,
		OccurredAt: m.clock.Now(),
	})
}

func (m *Manager) fireTransition(ctx context.Context, story types.CareerStory, from, to types.StoryState, action string) {
	if m.hooks.AfterStoryTransition == nil {
		return
	}
	m.hooks.AfterStoryTransition(ctx, types.StoryEvent{
		UserID:     story.UserID,
		StoryID:    story.ID,
		From:       from,
		To:         to,
		Action:     action,
		OccurredAt: m.clock.Now(),
	})
}

// sourcedMembers returns the cluster members cited by any section, in
// membership order.
func sourcedMembers(cluster types.Cluster, scored types.ScoredStar) []uuid.UUID {
	cited := scored.SourceSet()
	out := make([]uuid.UUID, 0, len(cited))
	for _, id := range cluster.ActivityIDs {
		if _, ok := cited[id]; ok {
			out = append(out, id)
		}
	}
	return out
}
