package activity

import (
	"context"

	"github.com/inchronicle/go-stories/pkg/types"
)

// Importer enriches tool activities before persisting them through the
// repository's dedupe path.
type Importer struct {
	Repo         types.ToolActivityRepository
	Enricher     ActivityEnricher
	ErrorHandler EnrichmentErrorHandler
	Hooks        types.Hooks
}

// Import runs the activity through the enricher chain (if configured) and
// upserts it. The boolean reports whether a new row was created; re-imports
// refresh the stored copy and report false.
func (i *Importer) Import(ctx context.Context, activity types.ToolActivity) (*types.ToolActivity, bool, error) {
	if i == nil || i.Repo == nil {
		return nil, false, types.ErrMissingActivityRepository
	}

	if i.Enricher != nil {
		enriched, err := i.enrich(ctx, activity)
		if err != nil {
			return nil, false, err
		}
		activity = enriched
	}

	stored, created, err := i.Repo.UpsertActivity(ctx, activity)
	if err != nil {
		return nil, false, err
	}
	if created && i.Hooks.AfterActivityImport != nil && stored != nil {
		i.Hooks.AfterActivityImport(ctx, *stored)
	}
	return stored, created, nil
}

// ImportBatch imports activities in order and returns how many were newly
// created. The first failure aborts the batch.
func (i *Importer) ImportBatch(ctx context.Context, activities []types.ToolActivity) (int, error) {
	created := 0
	for _, activity := range activities {
		_, isNew, err := i.Import(ctx, activity)
		if err != nil {
			return created, err
		}
		if isNew {
			created++
		}
	}
	return created, nil
}

func (i *Importer) enrich(ctx context.Context, activity types.ToolActivity) (types.ToolActivity, error) {
	if i.ErrorHandler == nil {
		return i.Enricher.Enrich(ctx, activity)
	}
	if handlerChain, ok := i.Enricher.(EnricherWithHandler); ok {
		return handlerChain.EnrichWithHandler(ctx, activity, i.ErrorHandler)
	}

	enriched, err := i.Enricher.Enrich(ctx, activity)
	if err != nil {
		handled, hErr := i.ErrorHandler(ctx, err, i.Enricher, enriched, activity)
		if hErr != nil {
			return activity, hErr
		}
		return handled, nil
	}
	return enriched, nil
}
