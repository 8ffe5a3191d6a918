package cluster

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/pkg/types"
)

// Engine defaults. A zero option falls back to these.
const (
	DefaultWindow        = 72 * time.Hour
	DefaultMinSize       = 2
	DefaultMinSimilarity = 0.2
)

// Engine derives cluster suggestions from unclustered activities. Two
// activities join the same component when one cross-references the other, or
// when they fall inside the same time window and their title topics overlap.
// Output is deterministic for a given input set: components are ordered by
// earliest member timestamp then lexical ID, members by timestamp then ID.
type Engine struct{}

// NewEngine constructs the connected-components clustering engine.
func NewEngine() *Engine {
	return &Engine{}
}

var _ types.ClusterEngine = (*Engine)(nil)

// BuildClusters groups the unclustered activities into draft clusters.
// Activities already assigned to a cluster are ignored.
func (e *Engine) BuildClusters(ctx context.Context, activities []types.ToolActivity, opts types.ClusterOptions) ([]types.ClusterDraft, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	opts = withDefaults(opts)

	pool := make([]types.ToolActivity, 0, len(activities))
	for _, activity := range activities {
		if !activity.Clustered() {
			pool = append(pool, activity)
		}
	}
	sort.Slice(pool, func(i, j int) bool {
		if !pool[i].Timestamp.Equal(pool[j].Timestamp) {
			return pool[i].Timestamp.Before(pool[j].Timestamp)
		}
		return pool[i].ID.String() < pool[j].ID.String()
	})

	tokens := make([]map[string]struct{}, len(pool))
	for i, activity := range pool {
		tokens[i] = topicTokens(activity.Title)
	}

	components := newUnionFind(len(pool))
	for i := 0; i < len(pool); i++ {
		for j := i + 1; j < len(pool); j++ {
			if related(pool[i], pool[j], tokens[i], tokens[j], opts) {
				components.union(i, j)
			}
		}
	}

	// Pool order is (timestamp, id) ascending, so visiting members in index
	// order yields components sorted by earliest activity.
	grouped := make(map[int][]int, len(pool))
	roots := make([]int, 0, len(pool))
	for i := range pool {
		root := components.find(i)
		if _, seen := grouped[root]; !seen {
			roots = append(roots, root)
		}
		grouped[root] = append(grouped[root], i)
	}

	minSize := opts.MinSize
	if opts.AllowSingletons {
		minSize = 1
	}

	drafts := make([]types.ClusterDraft, 0, len(roots))
	for _, root := range roots {
		indexes := grouped[root]
		if len(indexes) < minSize {
			continue
		}
		members := make([]types.ToolActivity, 0, len(indexes))
		ids := make([]uuid.UUID, 0, len(indexes))
		for _, idx := range indexes {
			members = append(members, pool[idx])
			ids = append(ids, pool[idx].ID)
		}
		metrics := ComputeMetrics(members)
		drafts = append(drafts, types.ClusterDraft{
			Name:        SuggestName(members),
			Description: clusterDescription(members, metrics),
			ActivityIDs: ids,
			Metrics:     metrics,
		})
	}
	return drafts, nil
}

// ComputeMetrics summarizes the evidence binding the member activities.
func ComputeMetrics(activities []types.ToolActivity) types.ClusterMetrics {
	metrics := types.ClusterMetrics{}
	if len(activities) == 0 {
		return metrics
	}

	members := make(map[uuid.UUID]struct{}, len(activities))
	for _, activity := range activities {
		members[activity.ID] = struct{}{}
	}
	sources := make(map[types.ActivitySource]struct{})
	for _, activity := range activities {
		sources[activity.Source] = struct{}{}
		for _, ref := range activity.CrossToolRefs {
			if ref == activity.ID {
				continue
			}
			if _, ok := members[ref]; ok {
				metrics.RefCount++
			}
		}
		if metrics.DateRange.Start.IsZero() || activity.Timestamp.Before(metrics.DateRange.Start) {
			metrics.DateRange.Start = activity.Timestamp
		}
		if activity.Timestamp.After(metrics.DateRange.End) {
			metrics.DateRange.End = activity.Timestamp
		}
	}

	metrics.ToolTypes = make([]types.ActivitySource, 0, len(sources))
	for source := range sources {
		metrics.ToolTypes = append(metrics.ToolTypes, source)
	}
	sort.Slice(metrics.ToolTypes, func(i, j int) bool {
		return metrics.ToolTypes[i] < metrics.ToolTypes[j]
	})
	return metrics
}

func withDefaults(opts types.ClusterOptions) types.ClusterOptions {
	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}
	if opts.MinSize <= 0 {
		opts.MinSize = DefaultMinSize
	}
	if opts.MinSimilarity <= 0 {
		opts.MinSimilarity = DefaultMinSimilarity
	}
	return opts
}

func related(a, b types.ToolActivity, aTokens, bTokens map[string]struct{}, opts types.ClusterOptions) bool {
	if a.References(b.ID) || b.References(a.ID) {
		return true
	}
	gap := a.Timestamp.Sub(b.Timestamp)
	if gap < 0 {
		gap = -gap
	}
	if gap > opts.Window {
		return false
	}
	return jaccard(aTokens, bTokens) >= opts.MinSimilarity
}

// SuggestName derives a display name from the dominant title topics, falling
// back to the first non-empty member title.
func SuggestName(members []types.ToolActivity) string {
	dominant := dominantTokens(members, 2)
	if len(dominant) > 0 {
		for i, token := range dominant {
			dominant[i] = capitalize(token)
		}
		return joinTokens(dominant)
	}
	for _, member := range members {
		if title := trimTitle(member.Title); title != "" {
			return title
		}
	}
	return "Untitled work"
}

func clusterDescription(members []types.ToolActivity, metrics types.ClusterMetrics) string {
	if len(metrics.ToolTypes) == 1 {
		return fmt.Sprintf("%d activities in %s", len(members), metrics.ToolTypes[0])
	}
	return fmt.Sprintf("%d activities across %d tools", len(members), len(metrics.ToolTypes))
}

type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	return &unionFind{parent: parent}
}

func (u *unionFind) find(i int) int {
	for u.parent[i] != i {
		u.parent[i] = u.parent[u.parent[i]]
		i = u.parent[i]
	}
	return i
}

func (u *unionFind) union(i, j int) {
	ri, rj := u.find(i), u.find(j)
	if ri == rj {
		return
	}
	// Attach the larger root index under the smaller so the earliest member
	// stays the representative.
	if ri < rj {
		u.parent[rj] = ri
	} else {
		u.parent[ri] = rj
	}
}
