package types

import "errors"

var (
	// ErrMissingSecureLinkManager means no link signer was wired in.
	ErrMissingSecureLinkManager = errors.New("go-stories: missing securelink manager")
	// ErrMissingUserTokenRepository means token commands have no store.
	ErrMissingUserTokenRepository = errors.New("go-stories: missing user token repository")
	// ErrMissingPasswordResetRepository means reset commands have no store.
	ErrMissingPasswordResetRepository = errors.New("go-stories: missing password reset repository")
)
