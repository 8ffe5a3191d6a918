package types

import (
	"fmt"
)

// ErrTransitionNotAllowed reports that the target state is not reachable from
// the current state according to configured policies.
var ErrTransitionNotAllowed = fmt.Errorf("go-stories: state transition not allowed")

// TransitionPolicy validates state transitions for string-backed state
// machines (account lifecycle, story lifecycle).
type TransitionPolicy[S ~string] interface {
	Validate(current, target S) error
	AllowedTargets(current S) []S
}

// StaticTransitionPolicy answers transition questions from a precomputed graph.
type StaticTransitionPolicy[S ~string] struct {
	graph map[S]map[S]struct{}
}

// NewStaticTransitionPolicy builds a policy around a fixed transition graph.
func NewStaticTransitionPolicy[S ~string](graph map[S][]S) *StaticTransitionPolicy[S] {
	internal := make(map[S]map[S]struct{}, len(graph))
	for from, targets := range graph {
		targetSet := make(map[S]struct{}, len(targets))
		for _, to := range targets {
			if to == "" {
				continue
			}
			targetSet[to] = struct{}{}
		}
		internal[from] = targetSet
	}
	return &StaticTransitionPolicy[S]{graph: internal}
}

// DefaultAccountTransitionPolicy returns the policy matching the upstream auth
// state machine (pending→active/disabled, active→suspended/disabled/archived,
// etc.).
func DefaultAccountTransitionPolicy() *StaticTransitionPolicy[LifecycleState] {
	return NewStaticTransitionPolicy(map[LifecycleState][]LifecycleState{
		LifecycleStatePending:   {LifecycleStateActive, LifecycleStateDisabled},
		LifecycleStateActive:    {LifecycleStateSuspended, LifecycleStateDisabled, LifecycleStateArchived},
		LifecycleStateSuspended: {LifecycleStateActive, LifecycleStateDisabled},
		LifecycleStateDisabled:  {LifecycleStateArchived},
	})
}

// DefaultStoryTransitionPolicy returns the publication state machine for
// career stories. Deletion is handled separately and is terminal, so no state
// transitions out of deleted exist.
func DefaultStoryTransitionPolicy() *StaticTransitionPolicy[StoryState] {
	return NewStaticTransitionPolicy(map[StoryState][]StoryState{
		StoryStateDraft:       {StoryStatePublished},
		StoryStatePublished:   {StoryStateUnpublished},
		StoryStateUnpublished: {StoryStatePublished},
	})
}

// Validate rejects moves the graph does not contain.
func (p *StaticTransitionPolicy[S]) Validate(current, target S) error {
	if current == "" || target == "" {
		return ErrTransitionNotAllowed
	}
	targets, ok := p.graph[current]
	if !ok {
		return ErrTransitionNotAllowed
	}
	if _, ok := targets[target]; !ok {
		return ErrTransitionNotAllowed
	}
	return nil
}

// AllowedTargets lists the states reachable from the given one.
func (p *StaticTransitionPolicy[S]) AllowedTargets(current S) []S {
	targets := p.graph[current]
	if len(targets) == 0 {
		return nil
	}
	out := make([]S, 0, len(targets))
	for target := range targets {
		out = append(out, target)
	}
	return out
}
