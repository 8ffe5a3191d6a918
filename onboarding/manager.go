package onboarding

import (
	"context"

	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/pkg/types"
)

// Onboarding event actions.
const (
	ActionUpdated   = "updated"
	ActionCompleted = "completed"
	ActionSkipped   = "skipped"
	ActionReset     = "reset"
)

// ManagerConfig wires the onboarding manager.
type ManagerConfig struct {
	Store    types.OnboardingStore
	Fallback types.OnboardingStore
	Defaults map[string]any
	Hooks    types.Hooks
	Clock    types.Clock
	Logger   types.Logger
}

// Manager runs the onboarding session lifecycle: field collection with step
// recomputation, completion, skipping, and resets. Writes land on the primary
// store and are mirrored into the fallback best-effort.
type Manager struct {
	store    types.OnboardingStore
	fallback types.OnboardingStore
	resolver *Resolver
	calc     StepCalculator
	hooks    types.Hooks
	clock    types.Clock
	logger   types.Logger
}

// NewManager validates dependencies and builds the onboarding manager.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	if cfg.Store == nil {
		return nil, types.ErrMissingOnboardingStore
	}
	resolver, err := NewResolver(ResolverConfig{
		Primary:  cfg.Store,
		Fallback: cfg.Fallback,
		Defaults: cfg.Defaults,
	})
	if err != nil {
		return nil, err
	}
	clock := cfg.Clock
	if clock == nil {
		clock = types.SystemClock{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = types.NopLogger{}
	}
	return &Manager{
		store:    cfg.Store,
		fallback: cfg.Fallback,
		resolver: resolver,
		hooks:    cfg.Hooks,
		clock:    clock,
		logger:   logger,
	}, nil
}

// Get returns the session, reading the primary store first and the fallback
// on a miss.
func (m *Manager) Get(ctx context.Context, userID uuid.UUID) (*types.OnboardingRecord, error) {
	if userID == uuid.Nil {
		return nil, types.ErrUserIDRequired
	}
	record, err := m.store.GetOnboarding(ctx, userID)
	if err != nil || record != nil {
		return record, err
	}
	if m.fallback == nil {
		return nil, nil
	}
	return m.fallback.GetOnboarding(ctx, userID)
}

// Resolve returns the merged defaults/fallback/remote snapshot.
func (m *Manager) Resolve(ctx context.Context, input ResolveInput) (Snapshot, error) {
	return m.resolver.Resolve(ctx, input)
}

// Steps reports the wizard progress for the user's current session.
func (m *Manager) Steps(ctx context.Context, userID uuid.UUID) ([]StepState, error) {
	record, err := m.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		record = &types.OnboardingRecord{UserID: userID, CurrentStep: 1}
	}
	return m.calc.Steps(*record), nil
}

// UpdateInput carries collected fields. A nil field value unsets the key;
// DemoMode toggles demo-backed steps when non-nil.
type UpdateInput struct {
	UserID   uuid.UUID
	Fields   map[string]any
	DemoMode *bool
	ActorID  uuid.UUID
}

// Update merges fields into the session payload and recomputes the step.
func (m *Manager) Update(ctx context.Context, input UpdateInput) (*types.OnboardingRecord, error) {
	if input.UserID == uuid.Nil {
		return nil, types.ErrUserIDRequired
	}
	record, err := m.loadOrStart(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	payload := cloneMap(record.Payload)
	if payload == nil {
		payload = make(map[string]any)
	}
	for key, value := range input.Fields {
		if value == nil {
			delete(payload, key)
			continue
		}
		payload[key] = value
	}
	record.Payload = payload
	if input.DemoMode != nil {
		record.DemoMode = *input.DemoMode
	}
	record.CurrentStep = m.calc.CurrentStep(*record)

	saved, err := m.store.SetOnboarding(ctx, *record)
	if err != nil {
		return nil, err
	}
	m.mirror(ctx, *saved)
	m.fire(ctx, saved.UserID, saved.CurrentStep, ActionUpdated, input.ActorID)
	return saved, nil
}

// Complete marks the session finished. Completing twice is a no-op.
func (m *Manager) Complete(ctx context.Context, userID, actorID uuid.UUID) (*types.OnboardingRecord, error) {
	record, err := m.loadOrStart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if record.Completed() {
		return record, nil
	}
	record.CompletedAt = m.clock.Now()
	record.CurrentStep = types.OnboardingSteps

	saved, err := m.store.SetOnboarding(ctx, *record)
	if err != nil {
		return nil, err
	}
	m.mirror(ctx, *saved)
	m.fire(ctx, saved.UserID, saved.CurrentStep, ActionCompleted, actorID)
	return saved, nil
}

// Skip dismisses the wizard without claiming progress. Skipping twice is a
// no-op.
func (m *Manager) Skip(ctx context.Context, userID, actorID uuid.UUID) (*types.OnboardingRecord, error) {
	record, err := m.loadOrStart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if record.Skipped() {
		return record, nil
	}
	record.SkippedAt = m.clock.Now()

	saved, err := m.store.SetOnboarding(ctx, *record)
	if err != nil {
		return nil, err
	}
	m.mirror(ctx, *saved)
	m.fire(ctx, saved.UserID, saved.CurrentStep, ActionSkipped, actorID)
	return saved, nil
}

// Reset clears the session from the primary and the fallback.
func (m *Manager) Reset(ctx context.Context, userID, actorID uuid.UUID) error {
	if userID == uuid.Nil {
		return types.ErrUserIDRequired
	}
	if err := m.store.ClearOnboarding(ctx, userID); err != nil {
		return err
	}
	if m.fallback != nil {
		if err := m.fallback.ClearOnboarding(ctx, userID); err != nil {
			m.logger.Debug("onboarding fallback clear failed", "user_id", userID, "error", err)
		}
	}
	m.fire(ctx, userID, 1, ActionReset, actorID)
	return nil
}

func (m *Manager) loadOrStart(ctx context.Context, userID uuid.UUID) (*types.OnboardingRecord, error) {
	if userID == uuid.Nil {
		return nil, types.ErrUserIDRequired
	}
	record, err := m.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		record = &types.OnboardingRecord{UserID: userID, CurrentStep: 1}
	}
	return record, nil
}

func (m *Manager) mirror(ctx context.Context, record types.OnboardingRecord) {
	if m.fallback == nil {
		return
	}
	if _, err := m.fallback.SetOnboarding(ctx, record); err != nil {
		m.logger.Debug("onboarding fallback write failed", "user_id", record.UserID, "error", err)
	}
}

func (m *Manager) fire(ctx context.Context, userID uuid.UUID, step int, action string, actorID uuid.UUID) {
	if m.hooks.AfterOnboardingChange == nil {
		return
	}
	m.hooks.AfterOnboardingChange(ctx, types.OnboardingEvent{
		UserID:     userID,
		Step:       step,
		Action:     action,
		ActorID:    actorID,
		OccurredAt: m.clock.Now(),
	})
}
