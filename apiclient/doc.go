// Package apiclient is a typed Go client for the go-stories HTTP API. It
// speaks the /api/v1 envelope contract, attaches bearer tokens from a
// pluggable store, and refreshes an expired session exactly once per request
// before giving up.
//
// The client is host agnostic. Browser style hosts plug in a Navigator to get
// the login redirect on session expiry; headless hosts leave it nil and handle
// ErrSessionExpired themselves. Endpoint groups hang off the Client as typed
// sub-APIs: Auth, Stories, Network, Workspaces, Wallet, and Onboarding.
package apiclient
