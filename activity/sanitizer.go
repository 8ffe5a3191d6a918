package activity

import (
	"encoding/json"
	"sync"

	masker "github.com/goliatone/go-masker"
	"github.com/inchronicle/go-stories/pkg/types"
)

// SanitizerConfig controls the masker used to scrub raw tool payloads.
type SanitizerConfig struct {
	Masker *masker.Masker
}

var defaultMaskerOnce sync.Once

// DefaultMasker builds a masker preloaded with the stock denylist.
func DefaultMasker() *masker.Masker {
	defaultMaskerOnce.Do(func() {
		if masker.Default == nil {
			return
		}
		registerDefaultMaskFields(masker.Default)
	})
	return masker.Default
}

// SanitizeRawData masks sensitive values in an opaque tool payload. The
// payload is only ever treated as a JSON object; anything that fails to parse
// or re-encode is dropped rather than exposed unmasked.
func SanitizeRawData(mask *masker.Masker, raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return nil
	}
	if mask == nil {
		mask = DefaultMasker()
	}
	if mask == nil {
		return nil
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil
	}

	masked, err := mask.Mask(payload)
	if err != nil {
		return nil
	}
	obj, ok := masked.(map[string]any)
	if !ok {
		return nil
	}

	encoded, err := json.Marshal(obj)
	if err != nil {
		return nil
	}
	return encoded
}

// SanitizeActivity masks the raw payload on a single activity.
func SanitizeActivity(mask *masker.Masker, activity types.ToolActivity) types.ToolActivity {
	activity.RawData = SanitizeRawData(mask, activity.RawData)
	return activity
}

// SanitizeActivities masks the raw payload for every activity in the slice.
func SanitizeActivities(mask *masker.Masker, activities []types.ToolActivity) []types.ToolActivity {
	if len(activities) == 0 {
		return activities
	}
	out := make([]types.ToolActivity, 0, len(activities))
	for _, activity := range activities {
		out = append(out, SanitizeActivity(mask, activity))
	}
	return out
}

func registerDefaultMaskFields(mask *masker.Masker) {
	if mask == nil {
		return
	}
	mask.RegisterMaskField("Secret", "filled4")
	mask.RegisterMaskField("secret", "filled4")
	mask.RegisterMaskField("token", "filled4")
	mask.RegisterMaskField("password", "filled4")
	mask.RegisterMaskField("api_key", "filled4")
}
