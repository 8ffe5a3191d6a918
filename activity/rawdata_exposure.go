package activity

import (
	"encoding/json"

	"github.com/goliatone/go-auth"
	"github.com/inchronicle/go-stories/pkg/types"
)

// RawDataExposureStrategy selects how raw tool payloads are exposed to
// non-owner viewers. Owners always see their own payloads unmasked.
type RawDataExposureStrategy int

const (
	// RawDataExposeNone strips the raw payload entirely.
	RawDataExposeNone RawDataExposureStrategy = iota
	// RawDataExposeSanitized masks sensitive fields before exposure.
	RawDataExposeSanitized
	// RawDataExposeAll keeps the payload as stored.
	RawDataExposeAll
)

// RawDataSanitizer produces a sanitized payload for support exposure. It
// overrides the default masker-based sanitization when configured.
type RawDataSanitizer func(actor *auth.ActorContext, role string, activity types.ToolActivity) json.RawMessage
