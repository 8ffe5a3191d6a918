// Package onboarding persists per-user onboarding sessions and derives the
// wizard step from the fields collected so far. The bun-backed Store is the
// primary; an injectable fallback store can sit underneath it, and the
// resolver merges defaults, fallback, and remote payloads into one effective
// view with per-key provenance.
package onboarding
