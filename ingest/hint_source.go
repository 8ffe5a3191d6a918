package ingest

import (
	"context"
	"errors"

	"github.com/inchronicle/go-stories/command/relink"
	"github.com/inchronicle/go-stories/pkg/types"
)

// HintExtractor re-derives cross-tool reference hints for stored activities
// by re-running the source normalizer over RawData. Wire it as the relink
// command's hint source so backfills pick up references that were dangling at
// import time.
type HintExtractor struct {
	pipeline *Pipeline
}

// NewHintExtractor wraps a pipeline. A nil pipeline gets the built-in set.
func NewHintExtractor(pipeline *Pipeline) *HintExtractor {
	if pipeline == nil {
		pipeline = NewPipeline()
	}
	return &HintExtractor{pipeline: pipeline}
}

var _ relink.HintSource = (*HintExtractor)(nil)

// ExtractHints implements relink.HintSource. Activities with no stored
// payload yield no hints.
func (h *HintExtractor) ExtractHints(_ context.Context, activity types.ToolActivity) ([]types.SourceRef, error) {
	if h == nil || h.pipeline == nil {
		return nil, errors.New("go-stories: hint extractor not configured")
	}
	if len(activity.RawData) == 0 {
		return nil, nil
	}
	normalizer, ok := h.pipeline.normalizers[activity.Source]
	if !ok {
		return nil, nil
	}
	normalized, err := normalizer.Normalize(activity.RawData)
	if err != nil {
		return nil, err
	}
	return normalized.RefHints, nil
}
