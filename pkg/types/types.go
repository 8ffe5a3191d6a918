package types

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ScopeFilter carries tenant/workspace scoping fields used by commands/queries.
type ScopeFilter struct {
	TenantID    uuid.UUID
	WorkspaceID uuid.UUID
	Labels      map[string]uuid.UUID
}

// Clone copies the filter, giving the labels map its own backing storage so
// the caller can mutate the copy freely.
func (s ScopeFilter) Clone() ScopeFilter {
	clone := ScopeFilter{
		TenantID:    s.TenantID,
		WorkspaceID: s.WorkspaceID,
	}
	if len(s.Labels) > 0 {
		clone.Labels = make(map[string]uuid.UUID, len(s.Labels))
		for k, v := range s.Labels {
			clone.Labels[k] = v
		}
	}
	return clone
}

// WithLabel clones the filter and sets the label. Keys fold to lower-case so
// lookups behave the same no matter which transport produced them.
func (s ScopeFilter) WithLabel(key string, id uuid.UUID) ScopeFilter {
	if strings.TrimSpace(key) == "" || id == uuid.Nil {
		return s
	}
	clone := s.Clone()
	if clone.Labels == nil {
		clone.Labels = make(map[string]uuid.UUID)
	}
	clone.Labels[strings.ToLower(key)] = id
	return clone
}

// Label looks up the identifier stored under the key, ignoring case. Unset
// labels come back as uuid.Nil.
func (s ScopeFilter) Label(key string) uuid.UUID {
	if len(s.Labels) == 0 {
		return uuid.Nil
	}
	return s.Labels[strings.ToLower(strings.TrimSpace(key))]
}

// IsZero reports whether no tenant, workspace, or label was requested.
func (s ScopeFilter) IsZero() bool {
	return s.TenantID == uuid.Nil && s.WorkspaceID == uuid.Nil && len(s.Labels) == 0
}

// Pagination supports offset pagination across feeds and admin panels.
type Pagination struct {
	Limit  int
	Offset int
}

// DateRange bounds a set of activities or a narrative in time.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// IsZero reports whether neither bound was set.
func (r DateRange) IsZero() bool {
	return r.Start.IsZero() && r.End.IsZero()
}

// Days returns the whole number of days covered by the range, minimum 1 for a
// non-zero range.
func (r DateRange) Days() int {
	if r.IsZero() || r.End.Before(r.Start) {
		return 0
	}
	days := int(r.End.Sub(r.Start).Hours() / 24)
	if days < 1 {
		return 1
	}
	return days
}

// Hooks bundles the optional callbacks fired once a workflow finishes.
type Hooks struct {
	AfterActivityImport   func(context.Context, ToolActivity)
	AfterClusterChange    func(context.Context, ClusterEvent)
	AfterStarGenerated    func(context.Context, StarEvent)
	AfterStoryTransition  func(context.Context, StoryEvent)
	AfterConnectionChange func(context.Context, ConnectionEvent)
	AfterWalletChange     func(context.Context, WalletEvent)
	AfterInvitation       func(context.Context, InvitationEvent)
	AfterOnboardingChange func(context.Context, OnboardingEvent)
	AfterProfileChange    func(context.Context, ProfileEvent)
	AfterAudit            func(context.Context, AuditRecord)
}

// AuditRecord describes sink inputs and is shared across sink and query
// layers. Every mutating command emits one so workspace admins can
// reconstruct who changed which narrative artifact.
type AuditRecord struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	ActorID     uuid.UUID
	Verb        string
	ObjectType  string
	ObjectID    string
	Channel     string
	IP          string
	TenantID    uuid.UUID
	WorkspaceID uuid.UUID
	Data        map[string]any
	OccurredAt  time.Time
}

// AuditSink is the minimal DI contract for emitting audit entries. Keep it
// stable and limited to Log so downstream modules can swap sinks without
// breaking changes.
type AuditSink interface {
	Log(context.Context, AuditRecord) error
}

// AuditRepository exposes read-side access to the audit trail.
type AuditRepository interface {
	ListAudit(ctx context.Context, filter AuditFilter) (AuditPage, error)
	AuditStats(ctx context.Context, filter AuditStatsFilter) (AuditStats, error)
}

// AuditFilter narrows audit feed queries.
type AuditFilter struct {
	Actor           ActorRef
	Scope           ScopeFilter
	UserID          uuid.UUID
	ActorID         uuid.UUID
	Verbs           []string
	ObjectType      string
	ObjectID        string
	Channel         string
	Channels        []string
	ChannelDenylist []string
	Since           *time.Time
	Until           *time.Time
	Pagination      Pagination
	Keyword         string
}

// Type implements gocommand.Message for query inputs.
func (AuditFilter) Type() string {
	return "query.audit.feed"
}

// Validate implements gocommand.Message.
func (filter AuditFilter) Validate() error {
	if filter.Actor.ID == uuid.Nil {
		return ErrActorRequired
	}
	return nil
}

// AuditPage represents a paginated audit feed response.
type AuditPage struct {
	Records    []AuditRecord
	Total      int
	NextOffset int
	HasMore    bool
}

// AuditStatsFilter scopes aggregate audit queries.
type AuditStatsFilter struct {
	Actor  ActorRef
	Scope  ScopeFilter
	UserID uuid.UUID
	Since  *time.Time
	Until  *time.Time
	Verbs  []string
}

// Type implements gocommand.Message for query inputs.
func (AuditStatsFilter) Type() string {
	return "query.audit.stats"
}

// Validate implements gocommand.Message.
func (filter AuditStatsFilter) Validate() error {
	if filter.Actor.ID == uuid.Nil {
		return ErrActorRequired
	}
	return nil
}

// AuditStats powers dashboard widgets summarizing verbs.
type AuditStats struct {
	Total  int
	ByVerb map[string]int
}

// Clock supplies the current time; tests swap in a frozen one.
type Clock interface {
	Now() time.Time
}

// IDGenerator mints new UUIDs; tests swap in a static one.
type IDGenerator interface {
	UUID() uuid.UUID
}

// Logger is the minimal logging surface the commands write to.
type Logger interface {
	Debug(msg string, fields ...any)
	Info(msg string, fields ...any)
	Error(msg string, err error, fields ...any)
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now reports the current time in UTC.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// UUIDGenerator mints random version 4 UUIDs.
type UUIDGenerator struct{}

// UUID generates a fresh random identifier.
func (UUIDGenerator) UUID() uuid.UUID { return uuid.New() }

// NopLogger drops everything written to it.
type NopLogger struct{}

// Debug implements Logger.
func (NopLogger) Debug(string, ...any) {}

// Info implements Logger.
func (NopLogger) Info(string, ...any) {}

// Error implements Logger.
func (NopLogger) Error(string, error, ...any) {}

var (
	// ErrActorRequired fires when a command arrives without an actor.
	ErrActorRequired = errors.New("go-stories: actor reference required")
	// ErrUserIDRequired fires when a command arrives without a user id.
	ErrUserIDRequired = errors.New("go-stories: user id required")
	// ErrServiceNotReady means Setup never ran or its wiring failed.
	ErrServiceNotReady = errors.New("go-stories: service not ready")
	// ErrMissingAuthRepository means no account store was wired in.
	ErrMissingAuthRepository = errors.New("go-stories: missing auth repository")
	// ErrMissingActivityRepository occurs when no tool activity repository was supplied.
	ErrMissingActivityRepository = errors.New("go-stories: missing activity repository")
	// ErrMissingClusterRepository occurs when no cluster repository was supplied.
	ErrMissingClusterRepository = errors.New("go-stories: missing cluster repository")
	// ErrMissingStoryRepository occurs when no story repository was supplied.
	ErrMissingStoryRepository = errors.New("go-stories: missing story repository")
	// ErrMissingJournalRepository occurs when wizard flows lack a journal repository.
	ErrMissingJournalRepository = errors.New("go-stories: missing journal repository")
	// ErrMissingWalletRepository occurs when metered flows lack a wallet repository.
	ErrMissingWalletRepository = errors.New("go-stories: missing wallet repository")
	// ErrMissingNetworkRepository occurs when no network repository was supplied.
	ErrMissingNetworkRepository = errors.New("go-stories: missing network repository")
	// ErrMissingWorkspaceRepository occurs when no workspace repository was supplied.
	ErrMissingWorkspaceRepository = errors.New("go-stories: missing workspace repository")
	// ErrMissingOnboardingStore occurs when onboarding commands lack a store.
	ErrMissingOnboardingStore = errors.New("go-stories: missing onboarding store")
	// ErrMissingAuditSink occurs when no audit sink was supplied.
	ErrMissingAuditSink = errors.New("go-stories: missing audit sink")
	// ErrMissingAuditRepository occurs when no audit repository was supplied.
	ErrMissingAuditRepository = errors.New("go-stories: missing audit repository")
	// ErrMissingSynthesizer occurs when generation flows lack a synthesizer.
	ErrMissingSynthesizer = errors.New("go-stories: missing star synthesizer")
	// ErrMissingClusterEngine occurs when clustering flows lack an engine.
	ErrMissingClusterEngine = errors.New("go-stories: missing cluster engine")
	// ErrMissingProfileRepository means profile commands have nowhere to write.
	ErrMissingProfileRepository = errors.New("go-stories: missing profile repository")
	// ErrMissingBillingProvider occurs when purchase flows lack a provider.
	ErrMissingBillingProvider = errors.New("go-stories: missing billing provider")
)
