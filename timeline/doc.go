// Package timeline is the shared presentation-data layer behind activity
// views. It owns the selectors every view needs (source grouping, draft
// membership, highlight view-models), the display helpers (relative time,
// date ranges, source labels), draft-story derivation from clusters, and a
// small renderer strategy seam that lays view-models out into layout-neutral
// lanes. Renderers produce data, not markup; hosts decide how a lane looks.
package timeline
