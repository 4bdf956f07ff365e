package auth

import (
	"context"
	"strings"
)

// ActiveUser is the identity extracted from a verified AUTH token. It carries
// enough for downstream authorization without a store lookup.
type ActiveUser struct {
	ID             string
	OrganizationID string
	Email          string
	Role           Role
}

type ctxKey string

const activeUserKey ctxKey = "auth_active_user"

// ContextWithActiveUser stores the authenticated identity in the context.
func ContextWithActiveUser(ctx context.Context, user ActiveUser) context.Context {
	return context.WithValue(ctx, activeUserKey, user)
}

// ActiveUserFromContext extracts the authenticated identity from context.
func ActiveUserFromContext(ctx context.Context) (ActiveUser, bool) {
	v, ok := ctx.Value(activeUserKey).(ActiveUser)
	if !ok || strings.TrimSpace(v.ID) == "" {
		return ActiveUser{}, false
	}
	return v, true
}
