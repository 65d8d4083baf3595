package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGetReturnsSetValueUntilExpiry(t *testing.T) {
	now := time.Date(2026, 3, 11, 12, 0, 0, 0, time.UTC)
	c := NewTTLCacheWithNow[string, int](func() time.Time { return now })

	c.Set("a", 1, time.Minute)

	got, ok := c.Get("a")
	require.True(t, ok)
	require.Equal(t, 1, got)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("a")
	require.False(t, ok)
}

func TestSetIgnoresNonPositiveTTL(t *testing.T) {
	c := NewTTLCache[string, int]()

	c.Set("a", 1, 0)
	_, ok := c.Get("a")
	require.False(t, ok)

	c.Set("a", 1, -time.Second)
	_, ok = c.Get("a")
	require.False(t, ok)
}

func TestDeleteRemovesKey(t *testing.T) {
	c := NewTTLCache[string, int]()

	c.Set("a", 1, time.Minute)
	c.Delete("a")

	_, ok := c.Get("a")
	require.False(t, ok)
}

func TestClearRemovesEverything(t *testing.T) {
	c := NewTTLCache[string, int]()

	c.Set("a", 1, time.Minute)
	c.Set("b", 2, time.Minute)
	c.Clear()

	_, ok := c.Get("a")
	require.False(t, ok)
	_, ok = c.Get("b")
	require.False(t, ok)
}

func TestOverwriteResetsExpiry(t *testing.T) {
	now := time.Date(2026, 3, 11, 12, 0, 0, 0, time.UTC)
	c := NewTTLCacheWithNow[string, int](func() time.Time { return now })

	c.Set("a", 1, time.Minute)
	now = now.Add(50 * time.Second)
	c.Set("a", 2, time.Minute)

	now = now.Add(30 * time.Second)
	got, ok := c.Get("a")
	require.True(t, ok)
	require.Equal(t, 2, got)
}
