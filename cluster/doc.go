// Package cluster groups related tool activities into bodies of work. The
// Engine derives cluster suggestions from unclustered activities via connected
// components over cross-tool references and temporal/topic overlap; the
// Repository persists clusters; the Manager applies membership mutations
// (generate, rename, merge, add/remove, delete) while keeping the activity
// table's cluster assignments and the membership lists in lockstep.
package cluster
