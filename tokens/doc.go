// Package tokens persists single-use onboarding tokens and the password
// reset ledger. Tokens are matched by (type, jti) and consumed with guarded
// updates, so a JTI can only ever transition out of issued once.
package tokens
