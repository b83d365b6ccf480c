package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/caretrack/licensure/internal/domain/auth"
	"github.com/caretrack/licensure/internal/testutil"
)

// setupTestRedis creates a Redis client for testing.
// Tests are skipped when Redis is not available.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	return testutil.SetupTestRedis(t)
}

func TestSessionStore_SaveAndGet(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	store := NewSessionStore(client)
	ctx := context.Background()

	session := domainauth.Session{
		ID:        "sess-1",
		UserID:    "jdoe",
		Email:     "jdoe@example.com",
		Role:      domainauth.RoleUser,
		ExpiresAt: time.Now().Add(30 * time.Minute),
	}

	require.NoError(t, store.Save(ctx, session))

	got, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, session.ID, got.ID)
	assert.Equal(t, session.UserID, got.UserID)
	assert.Equal(t, session.Role, got.Role)
	assert.WithinDuration(t, session.ExpiresAt, got.ExpiresAt, time.Second)
}

func TestSessionStore_GetNonExistent(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	store := NewSessionStore(client)

	_, err := store.Get(context.Background(), "nope")
	assert.Equal(t, ErrNotFound, err)
}

func TestSessionStore_SaveExpired(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	store := NewSessionStore(client)

	err := store.Save(context.Background(), domainauth.Session{
		ID:        "sess-expired",
		ExpiresAt: time.Now().Add(-time.Minute),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")
}

func TestSessionStore_Delete(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	store := NewSessionStore(client)
	ctx := context.Background()

	session := domainauth.Session{
		ID:        "sess-del",
		UserID:    "jdoe",
		Role:      domainauth.RoleAdmin,
		ExpiresAt: time.Now().Add(10 * time.Minute),
	}
	require.NoError(t, store.Save(ctx, session))

	require.NoError(t, store.Delete(ctx, "sess-del"))

	_, err := store.Get(ctx, "sess-del")
	assert.Equal(t, ErrNotFound, err)

	// Deleting again is a no-op.
	assert.NoError(t, store.Delete(ctx, "sess-del"))
}
