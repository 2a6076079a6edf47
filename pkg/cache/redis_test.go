package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	c := NewFromClient(nil, "therapypunch")
	assert.Equal(t, "therapypunch:processed_uris", c.Key("processed_uris"))
	assert.Equal(t, "therapypunch:a:b", c.Key("a", "b"))

	bare := NewFromClient(nil, "")
	assert.Equal(t, "a:b", bare.Key("a", "b"))
}

func TestNewRedisCache_BadURL(t *testing.T) {
	_, err := NewRedisCache("not-a-redis-url", "x")
	assert.Error(t, err)
}

func TestRedisRoundTrip(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("Skipping redis test: REDIS_URL not set")
	}

	c, err := NewRedisCache(url, "therapypunch_test")
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	key := c.Key("roundtrip", time.Now().Format("150405.000000"))

	_, err = c.Get(ctx, key)
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, c.Set(ctx, key, []byte(`["a"]`), time.Minute))
	got, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, `["a"]`, string(got))
}
