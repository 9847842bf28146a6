package auth

import (
	"context"
	"errors"
	"strconv"

	"github.com/go-redis/redis/v8"
)

type LoginChecker struct {
	redisClient *redis.Client
}

func NewLoginChecker(redisClient *redis.Client) *LoginChecker {
	return &LoginChecker{
		redisClient: redisClient,
	}
}

func (lc *LoginChecker) UserID(ctx context.Context, token string) (int, error) {
	sessionKey := sessionKeyPrefix + token
	cmd := lc.redisClient.Get(ctx, sessionKey)
	if err := cmd.Err(); err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrNotLoggedIn
		}
		return 0, err
	}

	userID, err := strconv.Atoi(cmd.Val())
	if err != nil {
		return 0, err
	}
	if userID <= 0 {
		return 0, ErrNotLoggedIn
	}

	return userID, nil
}
