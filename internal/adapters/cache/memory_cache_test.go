package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type payload struct {
	Name  string
	Count int
}

func TestCodecRoundTrip(t *testing.T) {
	in := payload{Name: "factura", Count: 3}

	data, err := encodeValue(in)
	require.NoError(t, err)

	var out payload
	require.NoError(t, decodeValue(data, &out))
	assert.Equal(t, in, out)
}

func TestMemoryCacheSetGet(t *testing.T) {
	c := NewMemoryCache(zap.NewNop(), time.Minute)
	defer c.Stop()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", payload{Name: "x", Count: 1}, time.Minute))

	var out payload
	found, err := c.Get(ctx, "k", &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, payload{Name: "x", Count: 1}, out)
}

func TestMemoryCacheMiss(t *testing.T) {
	c := NewMemoryCache(zap.NewNop(), time.Minute)
	defer c.Stop()

	var out payload
	found, err := c.Get(context.Background(), "missing", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache(zap.NewNop(), time.Minute)
	defer c.Stop()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", payload{Name: "x"}, time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	var out payload
	found, err := c.Get(ctx, "k", &out)
	require.NoError(t, err)
	assert.False(t, found, "expired entries must read as misses")
}

func TestMemoryCacheClear(t *testing.T) {
	c := NewMemoryCache(zap.NewNop(), time.Minute)
	defer c.Stop()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", payload{Name: "a"}, time.Minute))
	require.NoError(t, c.Set(ctx, "b", payload{Name: "b"}, time.Minute))

	require.NoError(t, c.Clear(ctx, "a"))
	var out payload
	found, _ := c.Get(ctx, "a", &out)
	assert.False(t, found)
	found, _ = c.Get(ctx, "b", &out)
	assert.True(t, found)

	require.NoError(t, c.Clear(ctx, ""))
	found, _ = c.Get(ctx, "b", &out)
	assert.False(t, found)
}
