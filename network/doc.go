// Package network persists the tiered connection graph. Edges are directed
// follows; acceptance makes them mutual and interaction counts drive
// promotion from the extended tier into core.
package network
