// Package identity carries the authenticated caller through a request context.
package identity

import (
	"context"
	"strings"
)

// Anonymous is recorded as the author when no user is present.
const Anonymous = "anonymous"

// Header is the request header the platform gateway sets to the authenticated user.
const Header = "X-SPINNAKER-USER"

type contextKey string

const userContextKey contextKey = "front50storeUser"

// WithUser attaches the authenticated user to the context. Blank users are ignored.
func WithUser(ctx context.Context, user string) context.Context {
	user = strings.TrimSpace(user)
	if user == "" {
		return ctx
	}
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext retrieves the authenticated user if present.
func UserFromContext(ctx context.Context) (string, bool) {
	user, ok := ctx.Value(userContextKey).(string)
	return user, ok && user != ""
}

// UserOrAnonymous returns the authenticated user or Anonymous.
func UserOrAnonymous(ctx context.Context) string {
	if user, ok := UserFromContext(ctx); ok {
		return user
	}
	return Anonymous
}
