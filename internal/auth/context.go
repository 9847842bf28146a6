package auth

import "context"

type contextKey string

const userIDKey contextKey = "watchstats-user-id"

// ContextWithUserID stores the authenticated user id on the request context.
// All storage access downstream is scoped by this id, never by a
// client-supplied identifier.
func ContextWithUserID(ctx context.Context, userID int) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext retrieves the user id stored by ContextWithUserID.
func UserIDFromContext(ctx context.Context) (int, bool) {
	userID, ok := ctx.Value(userIDKey).(int)
	return userID, ok
}
