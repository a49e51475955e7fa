package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jordanlanch/leadintake/pkg/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) *cache.Client {
	mr := miniredis.RunT(t)
	client, err := cache.NewClient("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestTokenBlacklist_Add(t *testing.T) {
	blacklist := NewTokenBlacklist(setupTestRedis(t))
	ctx := context.Background()

	err := blacklist.Add(ctx, "test.jwt.token", time.Hour)
	assert.NoError(t, err)

	revoked, err := blacklist.IsBlacklisted(ctx, "test.jwt.token")
	assert.NoError(t, err)
	assert.True(t, revoked, "token should be blacklisted")
}

func TestTokenBlacklist_IsBlacklisted_NotFound(t *testing.T) {
	blacklist := NewTokenBlacklist(setupTestRedis(t))

	revoked, err := blacklist.IsBlacklisted(context.Background(), "nonexistent.jwt.token")
	assert.NoError(t, err)
	assert.False(t, revoked)
}

func TestTokenBlacklist_NilCache(t *testing.T) {
	blacklist := NewTokenBlacklist(nil)
	ctx := context.Background()

	assert.NoError(t, blacklist.Add(ctx, "test.jwt.token", time.Hour))

	revoked, err := blacklist.IsBlacklisted(ctx, "test.jwt.token")
	assert.NoError(t, err)
	assert.False(t, revoked, "revocation is disabled without a cache")
}

func TestValidateJWTWithBlacklist_RejectsRevoked(t *testing.T) {
	blacklist := NewTokenBlacklist(setupTestRedis(t))
	ctx := context.Background()

	token, err := GenerateJWT("user-1", "test@example.com", "user", testSecret, 1)
	require.NoError(t, err)

	claims, err := ValidateJWTWithBlacklist(ctx, token, testSecret, blacklist)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)

	require.NoError(t, blacklist.Add(ctx, token, time.Hour))

	_, err = ValidateJWTWithBlacklist(ctx, token, testSecret, blacklist)
	assert.ErrorContains(t, err, "revoked")
}
