package activity

import (
	"encoding/json"
	"testing"

	"github.com/goliatone/go-auth"
	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/pkg/types"
	"github.com/stretchr/testify/require"
)

func TestBuildFilterFromActorPinsNonAdmin(t *testing.T) {
	actorID := uuid.New()
	tenantID := uuid.New()
	requested := uuid.New()
	actor := &auth.ActorContext{
		ActorID:  actorID.String(),
		Role:     "member",
		TenantID: tenantID.String(),
	}

	filter, err := BuildFilterFromActor(actor, "", types.ToolActivityFilter{UserID: requested})
	require.NoError(t, err)
	require.Equal(t, actorID, filter.UserID)
	require.Equal(t, actorID, filter.Actor.ID)
	require.Equal(t, tenantID, filter.Scope.TenantID)
}

func TestBuildFilterFromActorRoleAliases(t *testing.T) {
	actorID := uuid.New()
	requested := uuid.New()
	actor := &auth.ActorContext{
		ActorID: actorID.String(),
		Role:    "manager",
	}

	filter, err := BuildFilterFromActor(actor, "", types.ToolActivityFilter{
		UserID: requested,
	}, WithRoleAliases([]string{"manager"}, nil))
	require.NoError(t, err)
	require.Equal(t, requested, filter.UserID)
}

func TestBuildFilterFromActorSourceAllowlist(t *testing.T) {
	actor := &auth.ActorContext{
		ActorID: uuid.NewString(),
		Role:    types.ActorRoleTenantAdmin,
	}

	filter, err := BuildFilterFromActor(actor, "", types.ToolActivityFilter{
		Sources: []types.ActivitySource{types.SourceGitHub, types.SourceSlack},
	}, WithSourceAllowlist(types.SourceGitHub, types.SourceJira))
	require.NoError(t, err)
	require.Equal(t, []types.ActivitySource{types.SourceGitHub}, filter.Sources)

	filter, err = BuildFilterFromActor(actor, "", types.ToolActivityFilter{},
		WithSourceAllowlist(types.SourceFigma))
	require.NoError(t, err)
	require.Equal(t, []types.ActivitySource{types.SourceFigma}, filter.Sources)

	_, err = BuildFilterFromActor(actor, "", types.ToolActivityFilter{
		Sources: []types.ActivitySource{types.SourceSlack},
	}, WithSourceAllowlist(types.SourceGitHub))
	require.Error(t, err)
}

func TestDefaultAccessPolicyKeepsOwnerRawData(t *testing.T) {
	owner := uuid.New()
	policy := NewDefaultAccessPolicy()
	actor := &auth.ActorContext{
		ActorID: owner.String(),
		Role:    "member",
	}

	activities := []types.ToolActivity{
		{ID: uuid.New(), UserID: owner, RawData: json.RawMessage(`{"token":"abcd1234"}`)},
		{ID: uuid.New(), UserID: uuid.New(), RawData: json.RawMessage(`{"token":"abcd1234"}`)},
	}
	out := policy.Sanitize(actor, "", activities)
	require.Len(t, out, 2)
	require.JSONEq(t, `{"token":"abcd1234"}`, string(out[0].RawData))
	require.Nil(t, out[1].RawData)
}

func TestDefaultAccessPolicySanitizedExposure(t *testing.T) {
	policy := NewDefaultAccessPolicy(WithRawDataExposure(RawDataExposeSanitized))
	actor := &auth.ActorContext{
		ActorID: uuid.NewString(),
		Role:    types.ActorRoleSupport,
	}

	activities := []types.ToolActivity{
		{ID: uuid.New(), UserID: uuid.New(), RawData: json.RawMessage(`{"token":"abcd1234","repo":"api"}`)},
	}
	out := policy.Sanitize(actor, "", activities)
	require.Len(t, out, 1)
	require.NotNil(t, out[0].RawData)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(out[0].RawData, &payload))
	require.NotEqual(t, "abcd1234", payload["token"])
	require.Contains(t, payload, "repo")
}

func TestDefaultAccessPolicyExposeAllKeepsPayload(t *testing.T) {
	policy := NewDefaultAccessPolicy(WithRawDataExposure(RawDataExposeAll))
	actor := &auth.ActorContext{
		ActorID: uuid.NewString(),
		Role:    types.ActorRoleSupport,
	}

	activities := []types.ToolActivity{
		{ID: uuid.New(), UserID: uuid.New(), RawData: json.RawMessage(`{"token":"abcd1234"}`)},
	}
	out := policy.Sanitize(actor, "", activities)
	require.Len(t, out, 1)
	require.JSONEq(t, `{"token":"abcd1234"}`, string(out[0].RawData))
}

func TestDefaultAccessPolicyStatsSelfOnly(t *testing.T) {
	policy := NewDefaultAccessPolicy(WithPolicyStatsSelfOnly(true))
	actorID := uuid.New()
	actor := &auth.ActorContext{
		ActorID: actorID.String(),
		Role:    "member",
	}

	out, err := policy.ApplyStats(actor, "", types.ToolActivityStatsFilter{UserID: uuid.New()})
	require.NoError(t, err)
	require.Equal(t, actorID, out.UserID)
}
