package authctx

import (
	"context"
	"testing"
	"time"

	auth "github.com/goliatone/go-auth"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

func TestResolveActorContextUsesStoredActorFirst(t *testing.T) {
	stored := &auth.ActorContext{
		ActorID:        uuid.NewString(),
		Role:           "member",
		TenantID:       uuid.NewString(),
		OrganizationID: uuid.NewString(),
	}
	ctx := auth.WithActorContext(context.Background(), stored)

	got, err := ResolveActorContext(ctx)
	if err != nil {
		t.Fatalf("ResolveActorContext: %v", err)
	}
	if got.ActorID != stored.ActorID {
		t.Fatalf("actor id = %s, want %s", got.ActorID, stored.ActorID)
	}
}

func TestResolveActorContextRebuildsFromClaims(t *testing.T) {
	actorID := uuid.NewString()
	tenantID := uuid.NewString()
	ctx := auth.WithClaimsContext(context.Background(), &claimStub{
		subject:  actorID,
		uid:      actorID,
		role:     "owner",
		metadata: map[string]any{"tenant_id": tenantID},
	})

	got, err := ResolveActorContext(ctx)
	if err != nil {
		t.Fatalf("claims fallback failed: %v", err)
	}
	if got.ActorID != actorID {
		t.Fatalf("actor id = %s, want %s", got.ActorID, actorID)
	}
	if got.TenantID != tenantID {
		t.Fatalf("tenant id = %s, want %s", got.TenantID, tenantID)
	}
}

func TestResolveActorContextMissingCarriesTextCode(t *testing.T) {
	_, err := ResolveActorContext(context.Background())
	if err == nil {
		t.Fatal("expected error for bare context")
	}
	var rich *errors.Error
	if !errors.As(err, &rich) {
		t.Fatalf("error type = %T, want *errors.Error", err)
	}
	if rich.TextCode != textCodeActorMissing {
		t.Fatalf("text code = %s, want %s", rich.TextCode, textCodeActorMissing)
	}
}

func TestActorRefFromActorContextMapsIDAndRole(t *testing.T) {
	id := uuid.New()
	ref, err := ActorRefFromActorContext(&auth.ActorContext{
		ActorID: id.String(),
		Role:    "member",
	})
	if err != nil {
		t.Fatalf("ActorRefFromActorContext: %v", err)
	}
	if ref.ID != id {
		t.Fatalf("ref id = %s, want %s", ref.ID, id)
	}
	if ref.Type != "member" {
		t.Fatalf("ref type = %s, want member", ref.Type)
	}
}

func TestActorRefFromActorContextRejectsBadID(t *testing.T) {
	_, err := ActorRefFromActorContext(&auth.ActorContext{ActorID: "not-a-uuid"})
	if err == nil {
		t.Fatal("expected error for non-uuid actor id")
	}
	var rich *errors.Error
	if !errors.As(err, &rich) {
		t.Fatalf("error type = %T, want *errors.Error", err)
	}
	if rich.TextCode != textCodeActorInvalid {
		t.Fatalf("text code = %s, want %s", rich.TextCode, textCodeActorInvalid)
	}
}

func TestScopeFromActorContextReadsWorkspaceFromOrgSlot(t *testing.T) {
	tenant := uuid.New()
	workspace := uuid.New()
	scope := ScopeFromActorContext(&auth.ActorContext{
		TenantID:       tenant.String(),
		OrganizationID: workspace.String(),
	})
	if scope.TenantID != tenant {
		t.Fatalf("tenant = %s, want %s", scope.TenantID, tenant)
	}
	if scope.WorkspaceID != workspace {
		t.Fatalf("workspace = %s, want %s", scope.WorkspaceID, workspace)
	}
}

type claimStub struct {
	subject  string
	uid      string
	role     string
	metadata map[string]any
	res      map[string]string
}

func (s *claimStub) Subject() string                  { return s.subject }
func (s *claimStub) UserID() string                   { return s.uid }
func (s *claimStub) Role() string                     { return s.role }
func (s *claimStub) CanRead(string) bool              { return true }
func (s *claimStub) CanEdit(string) bool              { return true }
func (s *claimStub) CanCreate(string) bool            { return true }
func (s *claimStub) CanDelete(string) bool            { return true }
func (s *claimStub) HasRole(role string) bool         { return s.role == role }
func (s *claimStub) IsAtLeast(string) bool            { return true }
func (s *claimStub) Expires() time.Time               { return time.Time{} }
func (s *claimStub) IssuedAt() time.Time              { return time.Time{} }
func (s *claimStub) ResourceRoles() map[string]string { return s.res }
func (s *claimStub) ClaimsMetadata() map[string]any   { return s.metadata }
