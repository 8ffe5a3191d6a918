package apiclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestLoginStoresSession(t *testing.T) {
	userID := uuid.New()
	var gotBody string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		writeBody(w, http.StatusOK, fmt.Sprintf(
			`{"success":true,"data":{"access_token":"at-1","refresh_token":"rt-1","user":{"id":%q,"email":"dev@example.com"}}}`, userID))
	})
	client, tokens := newTestClient(t, handler, nil)

	session, err := client.Auth.Login(context.Background(), LoginRequest{Identifier: "dev@example.com", Password: "hunter22"})
	require.NoError(t, err)
	require.JSONEq(t, `{"identifier":"dev@example.com","password":"hunter22"}`, gotBody)
	require.Equal(t, "at-1", tokens.AccessToken())
	require.Equal(t, "rt-1", tokens.RefreshToken())
	require.NotNil(t, session.User)
	require.Equal(t, userID, session.User.ID)
}

func TestLogoutClearsTokensEvenOnServerError(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, http.StatusInternalServerError, `{"success":false,"error":"session store down"}`)
	})
	client, tokens := newTestClient(t, handler, nil)
	tokens.SetTokens("token", "refresh")

	err := client.Auth.Logout(context.Background())
	require.Error(t, err)
	require.Empty(t, tokens.AccessToken(), "local session is dropped regardless")
	require.Empty(t, tokens.RefreshToken())
}

func TestActivitiesEncodesQueryAndDecodesPage(t *testing.T) {
	first, second := uuid.New(), uuid.New()
	var gotQuery string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		writeBody(w, http.StatusOK, fmt.Sprintf(
			`{"success":true,"data":[{"id":%q,"source":"github","source_id":"pr-412","title":"Ship quote cache"},{"id":%q,"source":"jira","source_id":"perf-231","title":"Checkout latency"}],"pagination":{"total":12,"limit":2,"offset":0,"next_offset":2,"has_more":true}}`,
			first, second))
	})
	client, tokens := newTestClient(t, handler, nil)
	tokens.SetTokens("token", "refresh")

	items, page, err := client.Stories.Activities(context.Background(), ActivityListOptions{
		Source:      "github",
		Unclustered: true,
		Limit:       2,
	})
	require.NoError(t, err)
	require.Equal(t, "limit=2&source=github&unclustered=true", gotQuery)
	require.Len(t, items, 2)
	require.Equal(t, first, items[0].ID)
	require.Equal(t, "pr-412", items[0].SourceID)
	require.Equal(t, "jira", items[1].Source)
	require.NotNil(t, page)
	require.Equal(t, 12, page.Total)
	require.Equal(t, 2, page.NextOffset)
	require.True(t, page.HasMore)
}

func TestGenerateStarPostsClusterID(t *testing.T) {
	clusterID := uuid.New()
	var gotMethod, gotPath, gotBody string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		writeBody(w, http.StatusOK, fmt.Sprintf(
			`{"success":true,"data":{"cluster_id":%q,"situation":{"part":"situation","text":"Checkout was slow.","confidence":0.8},"task":{"part":"task","text":"Cut p95 latency.","confidence":0.7},"action":{"part":"action","text":"Added a quote cache.","confidence":0.9},"result":{"part":"result","text":"Latency dropped 40%%.","confidence":0.85},"overall_confidence":0.81,"validation":{"passed":true,"score":0.81}}}`,
			clusterID))
	})
	client, tokens := newTestClient(t, handler, nil)
	tokens.SetTokens("token", "refresh")

	star, err := client.Stories.GenerateStar(context.Background(), clusterID)
	require.NoError(t, err)
	require.Equal(t, http.MethodPost, gotMethod)
	require.Equal(t, "/api/v1/career-stories/generate-star", gotPath)
	require.JSONEq(t, fmt.Sprintf(`{"cluster_id":%q}`, clusterID), gotBody)
	require.Equal(t, clusterID, star.ClusterID)
	require.Equal(t, "Added a quote cache.", star.Action.Text)
	require.True(t, star.Validation.Passed)
}

func TestFollowHitsPeerPath(t *testing.T) {
	peerID := uuid.New()
	var gotMethod, gotPath string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		writeBody(w, http.StatusOK, fmt.Sprintf(
			`{"success":true,"data":{"id":%q,"peer_id":%q,"tier":"follower","status":"accepted"}}`, uuid.New(), peerID))
	})
	client, tokens := newTestClient(t, handler, nil)
	tokens.SetTokens("token", "refresh")

	conn, err := client.Network.Follow(context.Background(), peerID)
	require.NoError(t, err)
	require.Equal(t, http.MethodPost, gotMethod)
	require.Equal(t, "/api/v1/network/follow/"+peerID.String(), gotPath)
	require.Equal(t, peerID, conn.PeerID)
	require.Equal(t, "follower", conn.Tier)
}

func TestWorkspaceInviteRoundTrip(t *testing.T) {
	workspaceID := uuid.New()
	invitationID := uuid.New()
	var gotPath, gotBody string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		writeBody(w, http.StatusOK, fmt.Sprintf(
			`{"success":true,"data":{"id":%q,"workspace_id":%q,"email":"peer@example.com","role":"member","status":"pending"}}`,
			invitationID, workspaceID))
	})
	client, tokens := newTestClient(t, handler, nil)
	tokens.SetTokens("token", "refresh")

	invitation, err := client.Workspaces.Invite(context.Background(), workspaceID, InviteRequest{Email: "peer@example.com", Role: "member"})
	require.NoError(t, err)
	require.Equal(t, "/api/v1/workspaces/"+workspaceID.String()+"/invitations", gotPath)
	require.JSONEq(t, `{"email":"peer@example.com","role":"member"}`, gotBody)
	require.Equal(t, invitationID, invitation.ID)
	require.Equal(t, "pending", invitation.Status)
}

func TestCheckoutThenConfirm(t *testing.T) {
	var checkoutBody, confirmBody string
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/billing/checkout", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		checkoutBody = string(body)
		writeBody(w, http.StatusOK,
			`{"success":true,"data":{"reference":"chk-881","provider":"stub","package_id":"starter-100","credits":100,"amount_cents":500,"currency":"usd","status":"pending","redirect_url":"https://pay.example.com/chk-881"}}`)
	})
	mux.HandleFunc("/api/v1/billing/checkout/confirm", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		confirmBody = string(body)
		writeBody(w, http.StatusOK, `{"success":true,"data":{"balance":100}}`)
	})
	client, tokens := newTestClient(t, mux, nil)
	tokens.SetTokens("token", "refresh")
	ctx := context.Background()

	checkout, err := client.Wallet.Checkout(ctx, "starter-100")
	require.NoError(t, err)
	require.JSONEq(t, `{"package_id":"starter-100"}`, checkoutBody)
	require.Equal(t, "chk-881", checkout.Reference)
	require.Equal(t, "pending", checkout.Status)
	require.NotEmpty(t, checkout.RedirectURL)

	balance, err := client.Wallet.ConfirmCheckout(ctx, checkout.Reference)
	require.NoError(t, err)
	require.JSONEq(t, `{"reference":"chk-881"}`, confirmBody)
	require.EqualValues(t, 100, balance.Balance)
}

func TestOnboardingSaveStepPostsFields(t *testing.T) {
	var gotBody string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		writeBody(w, http.StatusOK,
			`{"success":true,"data":{"payload":{"headline":"Engineer"},"current_step":2,"total_steps":7,"demo_mode":false,"completed":false,"skipped":false}}`)
	})
	client, tokens := newTestClient(t, handler, nil)
	tokens.SetTokens("token", "refresh")

	data, err := client.Onboarding.SaveStep(context.Background(), map[string]any{"headline": "Engineer"})
	require.NoError(t, err)
	require.JSONEq(t, `{"headline":"Engineer"}`, gotBody)
	require.Equal(t, 2, data.CurrentStep)
	require.Equal(t, 7, data.TotalSteps)
	require.Equal(t, "Engineer", data.Payload["headline"])
}
