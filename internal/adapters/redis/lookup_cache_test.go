package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupCache_SetAndGet(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	cache := NewLookupCache(client)
	ctx := context.Background()

	payload := []byte(`{"raw_status":"Active"}`)
	require.NoError(t, cache.Set(ctx, "lookup:oh-board-of-nursing:RN123", payload, time.Minute))

	got, err := cache.Get(ctx, "lookup:oh-board-of-nursing:RN123")
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestLookupCache_MissReturnsNil(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	cache := NewLookupCache(client)

	got, err := cache.Get(context.Background(), "lookup:missing:key")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestLookupCache_EmptyKey(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	cache := NewLookupCache(client)
	ctx := context.Background()

	_, err := cache.Get(ctx, "")
	assert.Error(t, err)

	assert.Error(t, cache.Set(ctx, "", []byte("x"), time.Minute))
}
