// Package profile persists the public profile fields onboarding collects and
// workspace views render next to published stories.
package profile

import (
	"context"
	"errors"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/pkg/types"
	"github.com/uptrace/bun"
)

// RepositoryConfig carries the handles the profile repository needs.
type RepositoryConfig struct {
	DB         *bun.DB
	Repository repository.Repository[*Record]
	Clock      types.Clock
}

type profileStore interface {
	repository.Repository[*Record]
}

// Repository is the Bun implementation of types.ProfileRepository.
type Repository struct {
	profileStore
	clock types.Clock
}

// NewRepository wires the Bun-backed profile store.
func NewRepository(cfg RepositoryConfig) (*Repository, error) {
	if cfg.Repository == nil && cfg.DB == nil {
		return nil, errors.New("profile: db or repository required")
	}
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

	clock := cfg.Clock
	if clock == nil {
		clock = types.SystemClock{}
	}

	return &Repository{
		profileStore: repo,
		clock:        clock,
	}, nil
}

var (
	_ repository.Repository[*Record] = (*Repository)(nil)
	_ types.ProfileRepository        = (*Repository)(nil)
)

// GetProfile returns the profile for the supplied user within the provided
// scope. A nil result with no error means the user never filled one in.
func (r *Repository) GetProfile(ctx context.Context, userID uuid.UUID, scope types.ScopeFilter) (*types.UserProfile, error) {
	if userID == uuid.Nil {
		return nil, types.ErrUserIDRequired
	}
	rec, err := r.Get(ctx, selectUserID(userID), scopeCriteria(scope))
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return toDomain(rec), nil
}

// UpsertProfile writes the profile, inserting on first sight and replacing
// the stored row afterwards.
func (r *Repository) UpsertProfile(ctx context.Context, profile types.UserProfile) (*types.UserProfile, error) {
	if profile.UserID == uuid.Nil {
		return nil, types.ErrUserIDRequired
	}
	now := r.clock.Now()
	rec := fromDomain(profile)
	rec.UpdatedAt = now
	if rec.UpdatedBy == uuid.Nil {
		rec.UpdatedBy = profile.CreatedBy
	}

	existing, err := r.Get(ctx, selectUserID(profile.UserID), scopeCriteria(profile.Scope))
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return r.insertProfile(ctx, rec, now)
		}
		return nil, err
	}
	return r.replaceProfile(ctx, rec, existing, now)
}

func (r *Repository) insertProfile(ctx context.Context, rec *Record, now time.Time) (*types.UserProfile, error) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	if rec.CreatedBy == uuid.Nil {
		rec.CreatedBy = rec.UpdatedBy
	}
	created, err := r.Create(ctx, rec)
	if err != nil {
		return nil, err
	}
	return toDomain(created), nil
}

// replaceProfile keeps the original creation stamps when overwriting.
func (r *Repository) replaceProfile(ctx context.Context, rec, existing *Record, now time.Time) (*types.UserProfile, error) {
	rec.CreatedAt = existing.CreatedAt
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	if rec.CreatedBy == uuid.Nil {
		rec.CreatedBy = existing.CreatedBy
		if rec.CreatedBy == uuid.Nil {
			rec.CreatedBy = rec.UpdatedBy
		}
	}
	updated, err := r.Update(ctx, rec)
	if err != nil {
		return nil, err
	}
	return toDomain(updated), nil
}

func scopeCriteria(scope types.ScopeFilter) repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		if scope.TenantID != uuid.Nil {
			q = q.Where("scope_tenant_id = ?", scope.TenantID)
		}
		if scope.WorkspaceID != uuid.Nil {
			q = q.Where("scope_workspace_id = ?", scope.WorkspaceID)
		}
		return q
	}
}

func selectUserID(userID uuid.UUID) repository.SelectCriteria {
	return repository.SelectBy("user_id", "=", userID.String())
}

func fromDomain(profile types.UserProfile) *Record {
	return &Record{
		UserID:           profile.UserID,
		ScopeTenantID:    profile.Scope.TenantID,
		ScopeWorkspaceID: profile.Scope.WorkspaceID,
		DisplayName:      profile.DisplayName,
		Headline:         profile.Headline,
		AvatarURL:        profile.AvatarURL,
		Locale:           profile.Locale,
		Timezone:         profile.Timezone,
		Bio:              profile.Bio,
		Skills:           cloneSkills(profile.Skills),
		Links:            cloneMap(profile.Links),
		Metadata:         cloneMap(profile.Metadata),
		CreatedAt:        profile.CreatedAt,
		CreatedBy:        profile.CreatedBy,
		UpdatedAt:        profile.UpdatedAt,
		UpdatedBy:        profile.UpdatedBy,
	}
}

func toDomain(rec *Record) *types.UserProfile {
	if rec == nil {
		return nil
	}
	return &types.UserProfile{
		UserID:      rec.UserID,
		DisplayName: rec.DisplayName,
		Headline:    rec.Headline,
		AvatarURL:   rec.AvatarURL,
		Locale:      rec.Locale,
		Timezone:    rec.Timezone,
		Bio:         rec.Bio,
		Skills:      cloneSkills(rec.Skills),
		Links:       cloneMap(rec.Links),
		Metadata:    cloneMap(rec.Metadata),
		Scope: types.ScopeFilter{
			TenantID:    rec.ScopeTenantID,
			WorkspaceID: rec.ScopeWorkspaceID,
		},
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
		CreatedBy: rec.CreatedBy,
		UpdatedBy: rec.UpdatedBy,
	}
}

func cloneSkills(origin []string) []string {
	if len(origin) == 0 {
		return nil
	}
	out := make([]string, len(origin))
	copy(out, origin)
	return out
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
