package scanner

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectRedisRejectsBadURL(t *testing.T) {
	_, err := ConnectRedis(context.Background(), "not-a-url")
	assert.Error(t, err)
}

func TestRedisLockerBackendDown(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	defer client.Close()

	unlock, acquired, err := NewRedisLocker(client, "", time.Second).TryLock(context.Background())
	assert.Error(t, err)
	assert.False(t, acquired)
	assert.Nil(t, unlock)
}

func TestRedisLocker(t *testing.T) {
	redisURL := os.Getenv("TEST_REDIS_URL")
	if redisURL == "" {
		t.Skip("TEST_REDIS_URL not set")
	}

	ctx := context.Background()
	client, err := ConnectRedis(ctx, redisURL)
	require.NoError(t, err)
	defer client.Close()

	key := "dealflowos:test:" + uuid.NewString()
	first := NewRedisLocker(client, key, 5*time.Second)
	second := NewRedisLocker(client, key, 5*time.Second)

	unlock, acquired, err := first.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, acquired)

	_, acquired, err = second.TryLock(ctx)
	require.NoError(t, err)
	assert.False(t, acquired)

	unlock()

	unlock, acquired, err = second.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, acquired)
	unlock()
}
