package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"food-delivery-backend/config"
	"food-delivery-backend/models"
)

func newGormDenylist(t *testing.T) *GormDenylist {
	t.Helper()
	db, err := config.OpenDB(config.DBConfig{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db))
	return NewGormDenylist(db)
}

func TestTokenRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewTokenManager([]byte("secret"), time.Hour, newGormDenylist(t))

	tok, err := m.Issue(&models.User{ID: 42, Role: models.RoleBusiness})
	require.NoError(t, err)

	id, err := m.Verify(ctx, tok)
	require.NoError(t, err)
	assert.Equal(t, uint(42), id.UserID)
	assert.Equal(t, models.RoleBusiness, id.Role)
	assert.NotEmpty(t, id.TokenID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), id.ExpiresAt, 5*time.Second)
	assert.True(t, id.Can(models.CapManageCatalog))
}

func TestVerifyRejects(t *testing.T) {
	ctx := context.Background()
	dl := newGormDenylist(t)
	m := NewTokenManager([]byte("secret"), time.Hour, dl)
	user := &models.User{ID: 7, Role: models.RoleCustomer}

	t.Run("garbage", func(t *testing.T) {
		_, err := m.Verify(ctx, "not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewTokenManager([]byte("other"), time.Hour, dl)
		tok, err := other.Issue(user)
		require.NoError(t, err)
		_, err = m.Verify(ctx, tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		past := NewTokenManager([]byte("secret"), time.Hour, dl)
		past.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		tok, err := past.Issue(user)
		require.NoError(t, err)
		_, err = m.Verify(ctx, tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("unknown role", func(t *testing.T) {
		claims := Claims{
			UserID: 7,
			Role:   models.Role("root"),
			RegisteredClaims: jwt.RegisteredClaims{
				ID:        "abc",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
		require.NoError(t, err)
		_, err = m.Verify(ctx, tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("no expiry", func(t *testing.T) {
		claims := Claims{UserID: 7, Role: models.RoleCustomer, RegisteredClaims: jwt.RegisteredClaims{ID: "abc"}}
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
		require.NoError(t, err)
		_, err = m.Verify(ctx, tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("revoked", func(t *testing.T) {
		tok, err := m.Issue(user)
		require.NoError(t, err)
		id, err := m.Verify(ctx, tok)
		require.NoError(t, err)

		require.NoError(t, m.Revoke(ctx, id))
		_, err = m.Verify(ctx, tok)
		assert.ErrorIs(t, err, ErrRevokedToken)
	})
}

func TestGormDenylistPurgesExpired(t *testing.T) {
	ctx := context.Background()
	dl := newGormDenylist(t)

	require.NoError(t, dl.Revoke(ctx, "old", time.Now().Add(-time.Minute)))
	revoked, err := dl.IsRevoked(ctx, "old")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, dl.Revoke(ctx, "new", time.Now().Add(time.Hour)))
	// Revoking twice is harmless.
	require.NoError(t, dl.Revoke(ctx, "new", time.Now().Add(time.Hour)))

	var n int64
	require.NoError(t, dl.db.Model(&models.RevokedToken{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestRedisDenylist(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	dl := NewRedisDenylist(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	revoked, err := dl.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, dl.Revoke(ctx, "jti-1", time.Now().Add(time.Minute)))
	revoked, err = dl.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	mr.FastForward(2 * time.Minute)
	revoked, err = dl.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, dl.Revoke(ctx, "jti-2", time.Now().Add(-time.Second)))
	assert.False(t, mr.Exists("revoked:jti-2"))
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("secret1")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", hash)
	assert.True(t, CheckPassword(hash, "secret1"))
	assert.False(t, CheckPassword(hash, "secret2"))
}

func TestIdentityContext(t *testing.T) {
	_, ok := IdentityFrom(context.Background())
	assert.False(t, ok)

	ctx := WithIdentity(context.Background(), Identity{UserID: 3, Role: models.RoleAdmin})
	id, ok := IdentityFrom(ctx)
	require.True(t, ok)
	assert.Equal(t, uint(3), id.UserID)
}
