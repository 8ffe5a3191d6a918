package onboarding

import (
	"context"
	"sort"

	opts "github.com/goliatone/go-options"
	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/pkg/types"
)

// Layer names, lowest to highest precedence.
const (
	LayerDefaults = "defaults"
	LayerFallback = "fallback"
	LayerRemote   = "remote"
)

// ResolverConfig wires the onboarding resolver.
type ResolverConfig struct {
	Primary  types.OnboardingStore
	Fallback types.OnboardingStore
	Defaults map[string]any
}

// Resolver merges defaults, the fallback store, and the primary store into
// one effective payload. Remote values win.
type Resolver struct {
	primary  types.OnboardingStore
	fallback types.OnboardingStore
	defaults map[string]any
}

// ResolveInput controls the resolution: Base is merged over the configured
// defaults, Keys narrows the traces to the listed fields.
type ResolveInput struct {
	UserID uuid.UUID
	Base   map[string]any
	Keys   []string
}

// Snapshot is the resolved onboarding view. Record is the stored session the
// effective payload derives from (remote when present, else fallback).
type Snapshot struct {
	UserID    uuid.UUID
	Record    *types.OnboardingRecord
	Effective map[string]any
	Traces    []Trace
}

// Trace explains where one key's effective value came from.
type Trace struct {
	Key    string
	Layers []TraceLayer
}

// TraceLayer is one layer's contribution to a key.
type TraceLayer struct {
	Source string
	Value  any
	Found  bool
}

// NewResolver constructs the onboarding resolver.
func NewResolver(cfg ResolverConfig) (*Resolver, error) {
	if cfg.Primary == nil {
		return nil, types.ErrMissingOnboardingStore
	}
	return &Resolver{
		primary:  cfg.Primary,
		fallback: cfg.Fallback,
		defaults: cloneMap(cfg.Defaults),
	}, nil
}

type resolvedLayer struct {
	name     string
	label    string
	priority int
	payload  map[string]any
}

// Resolve builds the effective snapshot for the user.
func (r *Resolver) Resolve(ctx context.Context, input ResolveInput) (Snapshot, error) {
	if input.UserID == uuid.Nil {
		return Snapshot{}, types.ErrUserIDRequired
	}

	ordered := []resolvedLayer{{
		name:     LayerDefaults,
		label:    "Defaults",
		priority: opts.ScopePrioritySystem,
		payload:  mergeMaps(r.defaults, input.Base),
	}}

	var record *types.OnboardingRecord
	if r.fallback != nil {
		local, err := r.fallback.GetOnboarding(ctx, input.UserID)
		if err != nil {
			return Snapshot{}, err
		}
		if local != nil {
			ordered = append(ordered, resolvedLayer{
				name:     LayerFallback,
				label:    "Local Fallback",
				priority: opts.ScopePriorityTenant,
				payload:  cloneMap(local.Payload),
			})
			record = local
		}
	}
	remote, err := r.primary.GetOnboarding(ctx, input.UserID)
	if err != nil {
		return Snapshot{}, err
	}
	if remote != nil {
		ordered = append(ordered, resolvedLayer{
			name:     LayerRemote,
			label:    "Remote",
			priority: opts.ScopePriorityUser,
			payload:  cloneMap(remote.Payload),
		})
		record = remote
	}

	layers := make([]opts.Layer[map[string]any], 0, len(ordered))
	for _, entry := range ordered {
		payload := entry.payload
		if payload == nil {
			payload = make(map[string]any)
		}
		scope := opts.NewScope(entry.name, entry.priority,
			opts.WithScopeLabel(entry.label),
			opts.WithScopeMetadata(map[string]any{"user_id": input.UserID.String()}))
		layers = append(layers, opts.NewLayer(scope, payload, opts.WithSnapshotID[map[string]any](scope.Name)))
	}

	stack, err := opts.NewStack(layers...)
	if err != nil {
		return Snapshot{}, err
	}
	merged, err := stack.Merge()
	if err != nil {
		return Snapshot{}, err
	}

	return Snapshot{
		UserID:    input.UserID,
		Record:    record,
		Effective: cloneMap(merged.Value),
		Traces:    buildTraces(ordered, input.Keys),
	}, nil
}

func buildTraces(ordered []resolvedLayer, keys []string) []Trace {
	keySet := make(map[string]struct{})
	for _, key := range keys {
		if key == "" {
			continue
		}
		keySet[key] = struct{}{}
	}
	if len(keySet) == 0 {
		for _, entry := range ordered {
			for key := range entry.payload {
				keySet[key] = struct{}{}
			}
		}
	}
	names := make([]string, 0, len(keySet))
	for key := range keySet {
		names = append(names, key)
	}
	sort.Strings(names)

	traces := make([]Trace, 0, len(names))
	for _, key := range names {
		layers := make([]TraceLayer, 0, len(ordered))
		for _, entry := range ordered {
			layer := TraceLayer{Source: entry.name}
			if value, ok := entry.payload[key]; ok {
				layer.Value = value
				layer.Found = true
			}
			layers = append(layers, layer)
		}
		traces = append(traces, Trace{Key: key, Layers: layers})
	}
	return traces
}

func mergeMaps(base map[string]any, overlay map[string]any) map[string]any {
	out := make(map[string]any)
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overlay {
		out[k] = v
	}
	return out
}
