package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_SetGet(t *testing.T) {
	c := NewMemory()
	c.Set("k", 42, time.Minute)

	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, 42, v)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestMemory_Expiry(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	c := NewMemoryWithClock(func() time.Time { return now })

	c.Set("k", "v", 5*time.Minute)

	now = now.Add(5 * time.Minute)
	v, ok := c.Get("k")
	require.True(t, ok, "entry at exactly TTL boundary is still valid")
	assert.Equal(t, "v", v)

	now = now.Add(time.Second)
	_, ok = c.Get("k")
	assert.False(t, ok, "entry past TTL must expire")
}

func TestMemory_Delete(t *testing.T) {
	c := NewMemory()
	c.Set("k", 1, time.Minute)
	c.Delete("k")

	_, ok := c.Get("k")
	assert.False(t, ok)

	// Deleting an absent key is a no-op.
	c.Delete("k")
}

func TestMemory_SetOverwrites(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	c := NewMemoryWithClock(func() time.Time { return now })

	c.Set("k", 1, time.Second)
	c.Set("k", 2, time.Hour)

	now = now.Add(time.Minute)
	v, ok := c.Get("k")
	require.True(t, ok, "overwrite must refresh the TTL")
	assert.Equal(t, 2, v)
}
