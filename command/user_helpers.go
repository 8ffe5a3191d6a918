package command

import (
	"strings"

	"github.com/inchronicle/go-stories/pkg/types"
)

// normalizeAuthUser returns a trimmed copy of the user. The input is never
// mutated; metadata is deep-copied so callers can't alias the original map.
func normalizeAuthUser(input *types.AuthUser) *types.AuthUser {
	if input == nil {
		return nil
	}
	user := *input
	for _, field := range []*string{&user.Email, &user.Username, &user.FirstName, &user.LastName, &user.Role} {
		*field = strings.TrimSpace(*field)
	}
	user.Metadata = nil
	if input.Metadata != nil {
		user.Metadata = cloneMap(input.Metadata)
	}
	return &user
}
