package timeline

import (
	"sort"
	"time"

	"github.com/inchronicle/go-stories/pkg/types"
)

// Lane is one layout-neutral group of views a renderer laid out. Hosts map
// lanes onto whatever visual arrangement they like.
type Lane struct {
	Key   string
	Label string
	Views []ActivityView
}

// Renderer is a layout strategy over view-models. Implementations must be
// deterministic for a given input slice.
type Renderer interface {
	Name() string
	Render(views []ActivityView) []Lane
}

// TemporalRenderer lays views out into one lane per calendar month, newest
// month first, views within a lane newest first. Views without a timestamp
// collect in a trailing "undated" lane.
type TemporalRenderer struct{}

var _ Renderer = TemporalRenderer{}

// Name implements Renderer.
func (TemporalRenderer) Name() string { return "temporal" }

// Render implements Renderer.
func (TemporalRenderer) Render(views []ActivityView) []Lane {
	type bucket struct {
		year  int
		month time.Month
	}
	grouped := make(map[bucket][]ActivityView)
	var undated []ActivityView
	for _, view := range views {
		ts := view.Activity.Timestamp
		if ts.IsZero() {
			undated = append(undated, view)
			continue
		}
		key := bucket{year: ts.Year(), month: ts.Month()}
		grouped[key] = append(grouped[key], view)
	}

	buckets := make([]bucket, 0, len(grouped))
	for key := range grouped {
		buckets = append(buckets, key)
	}
	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].year != buckets[j].year {
			return buckets[i].year > buckets[j].year
		}
		return buckets[i].month > buckets[j].month
	})

	lanes := make([]Lane, 0, len(buckets)+1)
	for _, key := range buckets {
		laneViews := grouped[key]
		sortViewsNewestFirst(laneViews)
		anchor := time.Date(key.year, key.month, 1, 0, 0, 0, 0, time.UTC)
		lanes = append(lanes, Lane{
			Key:   anchor.Format("2006-01"),
			Label: anchor.Format("January 2006"),
			Views: laneViews,
		})
	}
	if len(undated) > 0 {
		sortViewsNewestFirst(undated)
		lanes = append(lanes, Lane{Key: "undated", Label: "Undated", Views: undated})
	}
	return lanes
}

// SourceLanesRenderer lays views out into one lane per source in the
// canonical source order, newest first within a lane. Empty lanes are
// omitted.
type SourceLanesRenderer struct{}

var _ Renderer = SourceLanesRenderer{}

// Name implements Renderer.
func (SourceLanesRenderer) Name() string { return "source-lanes" }

// Render implements Renderer.
func (SourceLanesRenderer) Render(views []ActivityView) []Lane {
	grouped := make(map[types.ActivitySource][]ActivityView)
	for _, view := range views {
		grouped[view.Activity.Source] = append(grouped[view.Activity.Source], view)
	}

	order := types.KnownActivitySources()
	known := make(map[types.ActivitySource]struct{}, len(order))
	for _, source := range order {
		known[source] = struct{}{}
	}
	// anything outside the known set trails in lexical order
	var extras []types.ActivitySource
	for source := range grouped {
		if _, ok := known[source]; !ok {
			extras = append(extras, source)
		}
	}
	sort.Slice(extras, func(i, j int) bool { return extras[i] < extras[j] })

	lanes := make([]Lane, 0, len(grouped))
	for _, source := range append(order, extras...) {
		laneViews, ok := grouped[source]
		if !ok {
			continue
		}
		sortViewsNewestFirst(laneViews)
		lanes = append(lanes, Lane{
			Key:   string(source),
			Label: SourceLabel(source),
			Views: laneViews,
		})
	}
	return lanes
}

func sortViewsNewestFirst(views []ActivityView) {
	sort.Slice(views, func(i, j int) bool {
		a, b := views[i].Activity, views[j].Activity
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.After(b.Timestamp)
		}
		return a.ID.String() < b.ID.String()
	})
}
