package auth

import (
	"context"
	"errors"
)

var ErrNotLoggedIn = errors.New("not logged in")

var _ Checker = (*LoginChecker)(nil)
var _ Checker = (*LoginTestChecker)(nil)

type Checker interface {
	// UserID resolves a session token to the owning user id,
	// or returns ErrNotLoggedIn for unknown/expired tokens.
	UserID(ctx context.Context, token string) (int, error)
}
