package redisclient

import (
	"context"
	"testing"
	"time"

	"foodhub/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ store.KeyValueStore = (*Client)(nil)

func TestClientPrefixesKeys(t *testing.T) {
	c := NewFromRedis(nil, "foodhub:", 0)
	assert.Equal(t, "foodhub:foodhub_cart", c.key("foodhub_cart"))
}

func TestClientReadAfterWrite(t *testing.T) {
	t.Skip("Integration test - requires Redis")

	c, err := NewClient("localhost:6379", "", 15, "foodhub_test:", time.Minute)
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "cart", []byte(`{"version":1,"items":[]}`)))
	value, err := c.Get(ctx, "cart")
	assert.NoError(t, err)
	assert.Equal(t, `{"version":1,"items":[]}`, string(value))

	_, err = c.Get(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
