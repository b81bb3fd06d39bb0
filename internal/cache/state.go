package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// oauthStatePrefix is the Redis key prefix for pending OAuth states.
	oauthStatePrefix = "oauth:state:"
	// OAuthStateTTL bounds how long a login may take to complete.
	OAuthStateTTL = 10 * time.Minute
)

// SaveOAuthState records a pending login state.
func (c *Cache) SaveOAuthState(ctx context.Context, state string) error {
	if err := c.client.Set(ctx, oauthStatePrefix+state, "1", OAuthStateTTL).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// ConsumeOAuthState reports whether state was pending and removes it.
// A state can be consumed once.
func (c *Cache) ConsumeOAuthState(ctx context.Context, state string) (bool, error) {
	if state == "" {
		return false, nil
	}
	err := c.client.GetDel(ctx, oauthStatePrefix+state).Err()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("redis getdel failed: %w", err)
	}
	return true, nil
}
