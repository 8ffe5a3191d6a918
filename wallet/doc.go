// Package wallet persists the credits ledger. Rows are append only and the
// balance is always the sum of transaction deltas, so the two cannot drift.
package wallet
