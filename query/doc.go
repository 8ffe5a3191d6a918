// Package query exposes read-side helpers for feeds, detail lookups, and
// aggregate widgets. Every query enforces the scope guard with the matching
// read action before touching a repository, mirroring the write-side
// commands.
package query
