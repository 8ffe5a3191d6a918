package goauth

import (
	auth "github.com/goliatone/go-auth"
	"github.com/inchronicle/go-stories/pkg/types"
)

// UserFromDomain converts a go-stories AuthUser into the upstream go-auth model.
func UserFromDomain(user *types.AuthUser) *auth.User {
	return toGoAuthUser(user)
}

// UserToDomain converts the go-auth user model into the go-stories AuthUser.
func UserToDomain(user *auth.User) *types.AuthUser {
	return toDomainUser(user)
}
