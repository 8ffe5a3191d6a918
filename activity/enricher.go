package activity

import (
	"context"

	"github.com/inchronicle/go-stories/pkg/types"
)

// ActivityEnricher mutates or returns an enriched ToolActivity.
type ActivityEnricher interface {
	Enrich(ctx context.Context, activity types.ToolActivity) (types.ToolActivity, error)
}

// EnricherFunc lets a plain function act as an ActivityEnricher.
type EnricherFunc func(ctx context.Context, activity types.ToolActivity) (types.ToolActivity, error)

// Enrich calls the wrapped function.
func (f EnricherFunc) Enrich(ctx context.Context, activity types.ToolActivity) (types.ToolActivity, error) {
	return f(ctx, activity)
}

// EnricherChain runs several enrichers one after another.
type EnricherChain []ActivityEnricher

// EnricherWithHandler is the optional interface for enrichers that accept a
// caller-supplied error handler.
type EnricherWithHandler interface {
	EnrichWithHandler(ctx context.Context, activity types.ToolActivity, handler EnrichmentErrorHandler) (types.ToolActivity, error)
}

// EnrichmentErrorStrategy picks the stock error handler for a chain.
type EnrichmentErrorStrategy int

const (
	// EnrichmentFailFast stops on the first error and returns the original activity.
	EnrichmentFailFast EnrichmentErrorStrategy = iota
	// EnrichmentBestEffort keeps the last successful activity and continues the chain.
	EnrichmentBestEffort
)

// EnrichmentErrorHandler reacts to a single enricher failing mid-chain. A
// non-nil error aborts the chain; nil continues with the returned activity.
// Best-effort handlers hand back the last good activity so partial
// enrichment survives.
type EnrichmentErrorHandler func(ctx context.Context, err error, enricher ActivityEnricher, current types.ToolActivity, original types.ToolActivity) (types.ToolActivity, error)

// DefaultEnrichmentErrorHandler builds the handler matching the strategy.
func DefaultEnrichmentErrorHandler(strategy EnrichmentErrorStrategy) EnrichmentErrorHandler {
	switch strategy {
	case EnrichmentBestEffort:
		return func(_ context.Context, _ error, _ ActivityEnricher, current types.ToolActivity, _ types.ToolActivity) (types.ToolActivity, error) {
			return current, nil
		}
	default:
		return func(_ context.Context, err error, _ ActivityEnricher, _ types.ToolActivity, original types.ToolActivity) (types.ToolActivity, error) {
			return original, err
		}
	}
}

// Enrich walks the chain in order, failing fast on the first error.
func (c EnricherChain) Enrich(ctx context.Context, activity types.ToolActivity) (types.ToolActivity, error) {
	return c.EnrichWithHandler(ctx, activity, nil)
}

// EnrichWithHandler walks the chain, letting the handler decide whether a
// failed step aborts or the chain keeps going.
func (c EnricherChain) EnrichWithHandler(ctx context.Context, activity types.ToolActivity, handler EnrichmentErrorHandler) (types.ToolActivity, error) {
	original := activity
	current := activity

	for _, enricher := range c {
		if enricher == nil {
			continue
		}
		next, err := enricher.Enrich(ctx, current)
		if err != nil {
			if handler == nil {
				return original, err
			}
			handled, hErr := handler(ctx, err, enricher, current, original)
			if hErr != nil {
				return original, hErr
			}
			current = handled
			continue
		}
		current = next
	}

	return current, nil
}
