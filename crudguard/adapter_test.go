package crudguard

import (
	"context"
	"testing"
	"time"

	auth "github.com/goliatone/go-auth"
	"github.com/goliatone/go-crud"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/pkg/types"
	"github.com/inchronicle/go-stories/scope"
)

func TestAdapterEnforceRunsGuard(t *testing.T) {
	guard := &recordingGuard{
		result:    types.ScopeFilter{TenantID: uuid.New()},
		useResult: true,
	}
	adapter := newTestAdapter(t, guard)

	actorCtx := &auth.ActorContext{
		ActorID:  uuid.NewString(),
		Role:     "owner",
		TenantID: uuid.NewString(),
	}
	ctx := newFakeCrudContext(auth.WithActorContext(context.Background(), actorCtx))
	result, err := adapter.Enforce(GuardInput{
		Context:   ctx,
		Operation: crud.OpList,
	})
	if err != nil {
		t.Fatalf("Enforce: %v", err)
	}
	if !guard.called {
		t.Fatal("guard should have run")
	}
	if guard.lastAction != types.PolicyActionStoriesRead {
		t.Fatalf("expected action %s, got %s", types.PolicyActionStoriesRead, guard.lastAction)
	}
	if result.Scope.TenantID != guard.result.TenantID {
		t.Fatalf("resolved scope differs from the guard result")
	}
}

func TestAdapterEnforceBypassSkipsGuard(t *testing.T) {
	guard := &recordingGuard{}
	adapter := newTestAdapter(t, guard)
	actorCtx := &auth.ActorContext{ActorID: uuid.NewString(), Role: "owner"}
	ctx := newFakeCrudContext(auth.WithActorContext(context.Background(), actorCtx))

	result, err := adapter.Enforce(GuardInput{
		Context:   ctx,
		Operation: crud.OpRead,
		Bypass: &BypassConfig{
			Enabled: true,
			Reason:  "openapi snapshot export",
		},
	})
	if err != nil {
		t.Fatalf("bypass path errored: %v", err)
	}
	if guard.called {
		t.Fatal("bypass must keep the guard idle")
	}
	if !result.Bypassed {
		t.Fatal("result should carry the bypass flag")
	}
	if result.BypassReason != "openapi snapshot export" {
		t.Fatalf("bypass reason = %s, want the configured one", result.BypassReason)
	}
}

func TestAdapterMissingActorReturnsError(t *testing.T) {
	guard := &recordingGuard{}
	adapter := newTestAdapter(t, guard)
	_, err := adapter.Enforce(GuardInput{
		Context:   newFakeCrudContext(context.Background()),
		Operation: crud.OpRead,
	})
	if err == nil {
		t.Fatal("missing actor context should fail")
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		t.Fatalf("error type = %T, want *goerrors.Error", err)
	}
	if richErr.TextCode != "ACTOR_CONTEXT_MISSING" {
		t.Fatalf("text code = %s, want ACTOR_CONTEXT_MISSING", richErr.TextCode)
	}
}

func TestAdapterFallsBackToClaims(t *testing.T) {
	guard := &recordingGuard{}
	adapter := newTestAdapter(t, guard)

	actorID := uuid.New()
	claims := &fakeClaims{
		subject:  actorID.String(),
		uid:      actorID.String(),
		role:     "member",
		metadata: map[string]any{"tenant_id": uuid.New().String()},
	}
	ctx := auth.WithClaimsContext(context.Background(), claims)

	_, err := adapter.Enforce(GuardInput{
		Context:   newFakeCrudContext(ctx),
		Operation: crud.OpRead,
	})
	if err != nil {
		t.Fatalf("claims fallback errored: %v", err)
	}
	if !guard.called {
		t.Fatal("guard never ran")
	}
}

func TestAdapterWrapsUnauthorizedScope(t *testing.T) {
	guard := &recordingGuard{
		err: types.ErrUnauthorizedScope,
	}
	adapter := newTestAdapter(t, guard)
	actorCtx := &auth.ActorContext{ActorID: uuid.NewString(), Role: "owner"}
	ctx := newFakeCrudContext(auth.WithActorContext(context.Background(), actorCtx))

	_, err := adapter.Enforce(GuardInput{
		Context:   ctx,
		Operation: crud.OpDelete,
	})
	if err == nil {
		t.Fatal("enforcement should have failed")
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		t.Fatalf("error type = %T, want *goerrors.Error", err)
	}
	if richErr.TextCode != textCodeScopeDenied {
		t.Fatalf("text code = %s, want %s", richErr.TextCode, textCodeScopeDenied)
	}
}

// shared fixtures

type recordingGuard struct {
	result        types.ScopeFilter
	err           error
	called        bool
	lastAction    types.PolicyAction
	lastRequested types.ScopeFilter
	useResult     bool
}

func (s *recordingGuard) Enforce(ctx context.Context, actor types.ActorRef, requested types.ScopeFilter, action types.PolicyAction, target uuid.UUID) (types.ScopeFilter, error) {
	s.called = true
	s.lastAction = action
	s.lastRequested = requested
	if s.err != nil {
		return types.ScopeFilter{}, s.err
	}
	if s.useResult {
		return s.result.Clone(), nil
	}
	return requested, nil
}

func newTestAdapter(t *testing.T, guard scope.Guard) *Adapter {
	t.Helper()
	policyMap := DefaultPolicyMap(types.PolicyActionStoriesRead, types.PolicyActionStoriesWrite)
	adapter, err := NewAdapter(Config{
		Guard:          guard,
		Logger:         types.NopLogger{},
		PolicyMap:      policyMap,
		ScopeExtractor: DefaultScopeExtractor,
	})
	if err != nil {
		t.Fatalf("NewAdapter: %v", err)
	}
	return adapter
}

type fakeCrudContext struct {
	ctx     context.Context
	status  int
	body    []byte
	queries map[string]string
}

func newFakeCrudContext(ctx context.Context) *fakeCrudContext {
	return &fakeCrudContext{
		ctx:     ctx,
		queries: map[string]string{},
	}
}

func (s *fakeCrudContext) UserContext() context.Context {
	return s.ctx
}

func (s *fakeCrudContext) Params(key string, defaultValue ...string) string {
	return ""
}

func (s *fakeCrudContext) BodyParser(out any) error {
	return nil
}

func (s *fakeCrudContext) Query(key string, defaultValue ...string) string {
	if v, ok := s.queries[key]; ok {
		return v
	}
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

func (s *fakeCrudContext) QueryValues(key string) []string {
	if v, ok := s.queries[key]; ok {
		return []string{v}
	}
	return nil
}

func (s *fakeCrudContext) QueryInt(key string, defaultValue ...int) int {
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return 0
}

func (s *fakeCrudContext) Queries() map[string]string {
	return s.queries
}

func (s *fakeCrudContext) Body() []byte {
	return s.body
}

func (s *fakeCrudContext) Status(status int) crud.Response {
	s.status = status
	return s
}

func (s *fakeCrudContext) JSON(data any, ctype ...string) error {
	return nil
}

func (s *fakeCrudContext) SendStatus(status int) error {
	s.status = status
	return nil
}

type fakeClaims struct {
	subject  string
	uid      string
	role     string
	metadata map[string]any
	res      map[string]string
}

func (t *fakeClaims) Subject() string                  { return t.subject }
func (t *fakeClaims) UserID() string                   { return t.uid }
func (t *fakeClaims) Role() string                     { return t.role }
func (t *fakeClaims) CanRead(string) bool              { return true }
func (t *fakeClaims) CanEdit(string) bool              { return true }
func (t *fakeClaims) CanCreate(string) bool            { return true }
func (t *fakeClaims) CanDelete(string) bool            { return true }
func (t *fakeClaims) HasRole(role string) bool         { return t.role == role }
func (t *fakeClaims) IsAtLeast(string) bool            { return true }
func (t *fakeClaims) Expires() time.Time               { return time.Time{} }
func (t *fakeClaims) IssuedAt() time.Time              { return time.Time{} }
func (t *fakeClaims) ResourceRoles() map[string]string { return t.res }
func (t *fakeClaims) ClaimsMetadata() map[string]any   { return t.metadata }
