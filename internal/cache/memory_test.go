package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemory_SetGetDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := NewMemory()

	_, ok := c.Get(ctx, "missing")
	require.False(t, ok)

	c.Set(ctx, "k", []byte("v"), time.Minute)
	got, ok := c.Get(ctx, "k")
	require.True(t, ok)
	require.Equal(t, []byte("v"), got)

	c.Delete(ctx, "k")
	_, ok = c.Get(ctx, "k")
	require.False(t, ok)

	// deleting an absent key is a no-op
	c.Delete(ctx, "k")
}

func TestMemory_TTLExpiry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := NewMemory()

	c.Set(ctx, "short", []byte("v"), time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	_, ok := c.Get(ctx, "short")
	require.False(t, ok)

	c.Set(ctx, "forever", []byte("v"), 0)
	time.Sleep(2 * time.Millisecond)
	_, ok = c.Get(ctx, "forever")
	require.True(t, ok)
}

func TestMemory_Overwrite(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := NewMemory()

	c.Set(ctx, "k", []byte("old"), time.Minute)
	c.Set(ctx, "k", []byte("new"), time.Minute)
	got, ok := c.Get(ctx, "k")
	require.True(t, ok)
	require.Equal(t, []byte("new"), got)
}
