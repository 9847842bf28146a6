package auth

import "context"

// LoginTestChecker is used in unit and dev testing
type LoginTestChecker struct {
	// token -> user id
	LoggedSessions map[string]int
}

func NewLoginTestChecker() *LoginTestChecker {
	return &LoginTestChecker{
		LoggedSessions: map[string]int{},
	}
}

func (tc *LoginTestChecker) UserID(_ context.Context, token string) (int, error) {
	userID, ok := tc.LoggedSessions[token]
	if !ok {
		return 0, ErrNotLoggedIn
	}
	return userID, nil
}
