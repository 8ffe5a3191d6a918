package timeline

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/demodata"
	"github.com/inchronicle/go-stories/pkg/types"
	"github.com/stretchr/testify/require"
)

func TestDeriveDraftFromDemoCluster(t *testing.T) {
	activities := demodata.Activities()
	clusters := demodata.Clusters()

	draft := DeriveDraft(clusters[0], activities)

	require.Equal(t, clusters[0].ID, draft.ClusterID)
	require.Equal(t, "Checkout latency reduction", draft.Title)
	require.Equal(t, RoleLed, draft.Role)
	require.Equal(t, []string{"cache", "checkout", "latency"}, draft.Topics)
	require.Equal(t, []types.ActivitySource{
		types.SourceJira,
		types.SourceGitHub,
		types.SourceSlack,
		types.SourceGoogleMeet,
		types.SourceConfluence,
	}, draft.Tools)
	require.Equal(t, clusters[0].ActivityIDs, draft.ActivityIDs)
	require.Equal(t, demodata.BaseTime, draft.StartedAt)
	require.Equal(t, demodata.BaseTime.AddDate(0, 0, 11).Add(3*time.Hour), draft.EndedAt)
}

func TestDeriveDraftFallsBackToSuggestedName(t *testing.T) {
	base := time.Date(2025, 6, 3, 9, 0, 0, 0, time.UTC)
	first := testActivity("Payment gateway rollout", types.SourceGitHub, base)
	second := testActivity("Payment gateway incident", types.SourceSlack, base.Add(time.Hour))

	anon := types.Cluster{ID: uuid.New()}
	anon.SetActivities([]uuid.UUID{first.ID, second.ID})

	draft := DeriveDraft(anon, []types.ToolActivity{first, second})
	require.Equal(t, "Gateway Payment", draft.Title)
	require.Equal(t, base, draft.StartedAt)
	require.Equal(t, base.Add(time.Hour), draft.EndedAt)
}

func TestDeriveDraftsPreservesClusterOrder(t *testing.T) {
	activities := demodata.Activities()
	clusters := demodata.Clusters()

	drafts := DeriveDrafts(clusters, activities)
	require.Len(t, drafts, len(clusters))
	for i, draft := range drafts {
		require.Equal(t, clusters[i].ID, draft.ClusterID)
		require.Len(t, draft.ActivityIDs, clusters[i].ActivityCount)
	}
}

func TestDominantRole(t *testing.T) {
	withRole := func(role string) types.ToolActivity {
		activity := testActivity("Checkout rework", types.SourceGitHub, time.Now().UTC())
		if role != "" {
			raw, err := json.Marshal(map[string]string{"role": role})
			require.NoError(t, err)
			activity.RawData = raw
		}
		return activity
	}

	cases := []struct {
		name  string
		roles []string
		want  StoryRole
	}{
		{"initiators win", []string{"initiator", "initiator", "contributor"}, RoleLed},
		{"contributors outnumber", []string{"initiator", "contributor", "contributor"}, RoleContributed},
		{"tie goes to the stronger claim", []string{"initiator", "contributor"}, RoleLed},
		{"mentions only", []string{"mentioned", "observer"}, RoleParticipated},
		{"unhinted activities do not vote", []string{"", "", "initiator"}, RoleLed},
		{"no votes at all", []string{"", ""}, RoleParticipated},
		{"unknown roles stay silent", []string{"architect", "mentioned"}, RoleParticipated},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			activities := make([]types.ToolActivity, 0, len(tc.roles))
			for _, role := range tc.roles {
				activities = append(activities, withRole(role))
			}
			require.Equal(t, tc.want, DominantRole(activities))
		})
	}
}
