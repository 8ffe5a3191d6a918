package onboarding

import (
	"context"
	"errors"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-repository-cache/cache"
	"github.com/goliatone/go-repository-cache/repositorycache"
	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/pkg/types"
	"github.com/uptrace/bun"
)

// StoreConfig wires dependencies for the Bun-backed onboarding store.
type StoreConfig struct {
	DB         *bun.DB
	Repository repository.Repository[*Record]
	Clock      types.Clock
}

type recordStore interface {
	repository.Repository[*Record]
}

// Store implements types.OnboardingStore against the primary database.
type Store struct {
	recordStore
	clock types.Clock
}

// NewStore constructs the default onboarding store. WithCache wraps the
// record repository in the caching decorator unless it already is one.
func NewStore(cfg StoreConfig, options ...StoreOption) (*Store, error) {
	if cfg.Repository == nil && cfg.DB == nil {
		return nil, errors.New("onboarding: db or repository required")
	}
	opts := applyStoreOptions(options)
	repo := cfg.Repository
	if repo == nil {
		repo = repository.NewRepository(cfg.DB, repository.ModelHandlers[*Record]{
			NewRecord: func() *Record { return &Record{} },
			GetID: func(rec *Record) uuid.UUID {
				if rec == nil {
					return uuid.Nil
				}
				return rec.UserID
			},
			SetID: func(rec *Record, id uuid.UUID) {
				if rec != nil {
					rec.UserID = id
				}
			},
		})
	}
	if opts.CacheEnabled {
		if _, ok := repo.(*repositorycache.CachedRepository[*Record]); !ok {
			cacheCfg := cache.DefaultConfig()
			if opts.CacheConfig != nil {
				cacheCfg = *opts.CacheConfig
			}
			service, err := cache.NewCacheService(cacheCfg)
			if err != nil {
				return nil, err
			}
			repo = repositorycache.New(repo, service, cache.NewDefaultKeySerializer())
		}
	}
	clock := cfg.Clock
	if clock == nil {
		clock = types.SystemClock{}
	}

	return &Store{
		recordStore: repo,
		clock:       clock,
	}, nil
}

var (
	_ repository.Repository[*Record] = (*Store)(nil)
	_ types.OnboardingStore          = (*Store)(nil)
)

// GetOnboarding returns the user's session, or nil when none exists.
func (s *Store) GetOnboarding(ctx context.Context, userID uuid.UUID) (*types.OnboardingRecord, error) {
	if userID == uuid.Nil {
		return nil, types.ErrUserIDRequired
	}
	record, err := s.Get(ctx, selectUser(userID))
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return toRecord(record), nil
}

// SetOnboarding upserts the session keyed by user id. Creation time survives
// rewrites.
func (s *Store) SetOnboarding(ctx context.Context, record types.OnboardingRecord) (*types.OnboardingRecord, error) {
	if record.UserID == uuid.Nil {
		return nil, types.ErrUserIDRequired
	}
	now := s.clock.Now()
	payload := fromRecord(record)
	if payload.CurrentStep < 1 {
		payload.CurrentStep = 1
	}

	existing, err := s.Get(ctx, selectUser(record.UserID))
	switch {
	case err == nil:
		payload.CreatedAt = existing.CreatedAt
		payload.UpdatedAt = now
		updated, err := s.Update(ctx, payload)
		if err != nil {
			return nil, err
		}
		return toRecord(updated), nil
	case repository.IsRecordNotFound(err):
		if payload.CreatedAt.IsZero() {
			payload.CreatedAt = now
		}
		payload.UpdatedAt = now
		created, err := s.Create(ctx, payload)
		if err != nil {
			return nil, err
		}
		return toRecord(created), nil
	default:
		return nil, err
	}
}

// ClearOnboarding removes the session. Clearing an absent session is a no-op.
func (s *Store) ClearOnboarding(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return types.ErrUserIDRequired
	}
	existing, err := s.Get(ctx, selectUser(userID))
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil
		}
		return err
	}
	return s.Delete(ctx, existing)
}

func selectUser(userID uuid.UUID) repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("user_id = ?", userID)
	}
}

func fromRecord(record types.OnboardingRecord) *Record {
	return &Record{
		UserID:      record.UserID,
		Payload:     cloneMap(record.Payload),
		CurrentStep: record.CurrentStep,
		DemoMode:    record.DemoMode,
		CompletedAt: timePtr(record.CompletedAt),
		SkippedAt:   timePtr(record.SkippedAt),
		CreatedAt:   record.CreatedAt,
		UpdatedAt:   record.UpdatedAt,
	}
}

func toRecord(record *Record) *types.OnboardingRecord {
	if record == nil {
		return nil
	}
	return &types.OnboardingRecord{
		UserID:      record.UserID,
		Payload:     cloneMap(record.Payload),
		CurrentStep: record.CurrentStep,
		DemoMode:    record.DemoMode,
		CompletedAt: timeFromPtr(record.CompletedAt),
		SkippedAt:   timeFromPtr(record.SkippedAt),
		CreatedAt:   record.CreatedAt,
		UpdatedAt:   record.UpdatedAt,
	}
}

// FromOnboardingRecord converts a domain session into the Bun model.
func FromOnboardingRecord(record types.OnboardingRecord) *Record {
	return fromRecord(record)
}

// ToOnboardingRecord converts the Bun model into the domain session.
func ToOnboardingRecord(record *Record) *types.OnboardingRecord {
	return toRecord(record)
}

func cloneMap(origin map[string]any) map[string]any {
	if len(origin) == 0 {
		return nil
	}
	out := make(map[string]any, len(origin))
	for k, v := range origin {
		out[k] = v
	}
	return out
}

func timePtr(value time.Time) *time.Time {
	if value.IsZero() {
		return nil
	}
	copy := value
	return &copy
}

func timeFromPtr(value *time.Time) time.Time {
	if value == nil {
		return time.Time{}
	}
	return *value
}
