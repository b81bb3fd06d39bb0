package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOAuthState_SingleUse(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c, mr := newTestCache(t)

	require.NoError(t, c.SaveOAuthState(ctx, "abc"))
	assert.Equal(t, OAuthStateTTL, mr.TTL(oauthStatePrefix+"abc"))

	ok, err := c.ConsumeOAuthState(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.ConsumeOAuthState(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, ok, "state must not be reusable")
}

func TestOAuthState_UnknownAndEmpty(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c, _ := newTestCache(t)

	ok, err := c.ConsumeOAuthState(ctx, "never-saved")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = c.ConsumeOAuthState(ctx, "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOAuthState_Expired(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c, mr := newTestCache(t)

	require.NoError(t, c.SaveOAuthState(ctx, "late"))
	mr.FastForward(OAuthStateTTL + 1)

	ok, err := c.ConsumeOAuthState(ctx, "late")
	require.NoError(t, err)
	assert.False(t, ok)
}
