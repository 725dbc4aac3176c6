package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	redislib "github.com/redis/go-redis/v9"
)

type sessionStore interface {
	Get(ctx context.Context, key string) (string, error)
}

type sessionKeyer interface {
	AccessSessionKey(accessID string) string
}

// AccessSessionChecker exposes the read-only surface needed by middleware.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

// Checker looks up access sessions written by the identity service. Logging
// out there deletes the key, which invalidates the token here.
type Checker struct {
	store sessionStore
	keyer sessionKeyer
}

// RedisStore is satisfied by pkg/redis.Client.
type RedisStore interface {
	sessionStore
	sessionKeyer
}

func NewChecker(store RedisStore) (*Checker, error) {
	if store == nil {
		return nil, fmt.Errorf("session store is required")
	}
	return &Checker{store: store, keyer: store}, nil
}

// HasSession reports whether the provided access ID still has an active session.
func (c *Checker) HasSession(ctx context.Context, accessID string) (bool, error) {
	if strings.TrimSpace(accessID) == "" {
		return false, fmt.Errorf("access id is required")
	}
	if _, err := c.store.Get(ctx, c.keyer.AccessSessionKey(accessID)); err != nil {
		if errors.Is(err, redislib.Nil) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
