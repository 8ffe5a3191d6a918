package query

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/inchronicle/go-stories/onboarding"
	"github.com/inchronicle/go-stories/pkg/types"
)

func TestOnboardingStatusQueryResolvesStepsAndDefaults(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	store := onboarding.NewMemoryStore()
	manager, err := onboarding.NewManager(onboarding.ManagerConfig{
		Store:    store,
		Defaults: map[string]any{"theme": "dark"},
	})
	require.NoError(t, err)

	_, err = manager.Update(ctx, onboarding.UpdateInput{
		UserID: userID,
		Fields: map[string]any{
			onboarding.FieldDisplayName: "Jordan Rivera",
			onboarding.FieldTitle:       "Staff Engineer",
		},
		ActorID: userID,
	})
	require.NoError(t, err)

	status, err := NewOnboardingStatusQuery(manager, nil).Query(ctx, OnboardingStatusInput{
		UserID: userID,
		Actor:  types.ActorRef{ID: userID, Type: "user"},
	})
	require.NoError(t, err)
	require.NotNil(t, status.Record)
	require.Equal(t, 3, status.Record.CurrentStep)
	require.Equal(t, "Jordan Rivera", status.Effective[onboarding.FieldDisplayName])
	require.Equal(t, "dark", status.Effective["theme"])

	require.Len(t, status.Steps, types.OnboardingSteps)
	require.True(t, status.Steps[0].Done)
	require.True(t, status.Steps[1].Done)
	require.False(t, status.Steps[2].Done)
}

func TestOnboardingStatusQueryValidates(t *testing.T) {
	ctx := context.Background()
	manager, err := onboarding.NewManager(onboarding.ManagerConfig{Store: onboarding.NewMemoryStore()})
	require.NoError(t, err)

	_, err = NewOnboardingStatusQuery(manager, nil).Query(ctx, OnboardingStatusInput{UserID: uuid.New()})
	require.ErrorIs(t, err, types.ErrActorRequired)

	_, err = NewOnboardingStatusQuery(nil, nil).Query(ctx, OnboardingStatusInput{
		UserID: uuid.New(),
		Actor:  types.ActorRef{ID: uuid.New(), Type: "user"},
	})
	require.ErrorIs(t, err, types.ErrMissingOnboardingStore)
}
