package activity

import (
	"github.com/goliatone/go-auth"
	masker "github.com/goliatone/go-masker"
	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/pkg/authctx"
	"github.com/inchronicle/go-stories/pkg/types"
)

// ActivityAccessPolicy applies role-aware constraints and sanitization to
// activity feeds.
type ActivityAccessPolicy interface {
	Apply(actor *auth.ActorContext, role string, req types.ToolActivityFilter) (types.ToolActivityFilter, error)
	Sanitize(actor *auth.ActorContext, role string, activities []types.ToolActivity) []types.ToolActivity
}

// ActivityStatsPolicy narrows stats queries the same way list queries are.
type ActivityStatsPolicy interface {
	ApplyStats(actor *auth.ActorContext, role string, req types.ToolActivityStatsFilter) (types.ToolActivityStatsFilter, error)
}

// AccessPolicyOption adjusts how the default access policy behaves.
type AccessPolicyOption func(*DefaultAccessPolicy)

// DefaultAccessPolicy applies BuildFilterFromActor and sanitizes raw payloads
// on read.
type DefaultAccessPolicy struct {
	filterOptions    []FilterOption
	masker           *masker.Masker
	rawDataExposure  RawDataExposureStrategy
	rawDataSanitizer RawDataSanitizer
	statsSelfOnly    bool
}

var _ ActivityAccessPolicy = (*DefaultAccessPolicy)(nil)
var _ ActivityStatsPolicy = (*DefaultAccessPolicy)(nil)

// NewDefaultAccessPolicy builds the stock role-aware policy.
func NewDefaultAccessPolicy(opts ...AccessPolicyOption) *DefaultAccessPolicy {
	policy := &DefaultAccessPolicy{
		masker:          DefaultMasker(),
		rawDataExposure: RawDataExposeNone,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(policy)
		}
	}
	if policy.masker == nil {
		policy.masker = DefaultMasker()
	}
	return policy
}

// WithPolicyFilterOptions forwards extra filter options into enforcement.
func WithPolicyFilterOptions(opts ...FilterOption) AccessPolicyOption {
	return func(policy *DefaultAccessPolicy) {
		if policy == nil {
			return
		}
		policy.filterOptions = append(policy.filterOptions, opts...)
	}
}

// WithPolicyMasker swaps the masker applied before records leave the policy.
func WithPolicyMasker(masker *masker.Masker) AccessPolicyOption {
	return func(policy *DefaultAccessPolicy) {
		if policy == nil {
			return
		}
		policy.masker = masker
	}
}

// WithRawDataExposure configures how raw tool payloads are exposed to
// non-owner viewers such as support roles.
func WithRawDataExposure(strategy RawDataExposureStrategy) AccessPolicyOption {
	return func(policy *DefaultAccessPolicy) {
		if policy == nil {
			return
		}
		policy.rawDataExposure = strategy
	}
}

// WithRawDataSanitizer overrides the payload sanitizer for sanitized exposure mode.
func WithRawDataSanitizer(sanitizer RawDataSanitizer) AccessPolicyOption {
	return func(policy *DefaultAccessPolicy) {
		if policy == nil {
			return
		}
		policy.rawDataSanitizer = sanitizer
	}
}

// WithPolicyStatsSelfOnly locks non-admin stats to the requesting user.
func WithPolicyStatsSelfOnly(enabled bool) AccessPolicyOption {
	return func(policy *DefaultAccessPolicy) {
		if policy == nil {
			return
		}
		policy.statsSelfOnly = enabled
	}
}

// Apply rewrites the filter so it never exceeds what the role may see.
func (p *DefaultAccessPolicy) Apply(actor *auth.ActorContext, role string, req types.ToolActivityFilter) (types.ToolActivityFilter, error) {
	return BuildFilterFromActor(actor, role, req, p.filterOptions...)
}

// ApplyStats rewrites a stats filter under the same role rules as Apply.
func (p *DefaultAccessPolicy) ApplyStats(actor *auth.ActorContext, role string, req types.ToolActivityStatsFilter) (types.ToolActivityStatsFilter, error) {
	filter, err := BuildFilterFromActor(actor, role, types.ToolActivityFilter{
		Actor: req.Actor,
		Scope: req.Scope,
	}, p.filterOptions...)
	if err != nil {
		return types.ToolActivityStatsFilter{}, err
	}
	out := req
	out.Actor = filter.Actor
	out.Scope = filter.Scope
	if p.statsSelfOnly {
		out.UserID = filter.UserID
	}
	return out, nil
}

// Sanitize applies raw payload exposure rules per activity. Owners keep their
// payloads; everyone else sees the payload per the configured strategy.
func (p *DefaultAccessPolicy) Sanitize(actor *auth.ActorContext, role string, activities []types.ToolActivity) []types.ToolActivity {
	if len(activities) == 0 {
		return activities
	}

	viewer := viewerID(actor)
	mask := p.masker
	if mask == nil {
		mask = DefaultMasker()
	}

	out := make([]types.ToolActivity, 0, len(activities))
	for _, activity := range activities {
		entry := activity
		if viewer == uuid.Nil || viewer != activity.UserID {
			switch p.rawDataExposure {
			case RawDataExposeAll:
				// keep payload as stored
			case RawDataExposeSanitized:
				if p.rawDataSanitizer != nil {
					entry.RawData = p.rawDataSanitizer(actor, role, activity)
				} else {
					entry.RawData = SanitizeRawData(mask, activity.RawData)
				}
			default:
				entry.RawData = nil
			}
		}
		out = append(out, entry)
	}
	return out
}

func viewerID(actor *auth.ActorContext) uuid.UUID {
	ref, err := authctx.ActorRefFromActorContext(actor)
	if err != nil {
		return uuid.Nil
	}
	return ref.ID
}
