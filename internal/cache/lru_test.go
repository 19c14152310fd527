package cache

import (
	"testing"
	"time"
)

func TestLRUCache(t *testing.T) {
	t.Run("evicts least recently used at capacity", func(t *testing.T) {
		c := NewLRUCache[int](2, time.Minute)
		c.Set("a", 1)
		c.Set("b", 2)
		c.Get("a") // a is now most recently used
		c.Set("c", 3)

		if _, ok := c.Get("b"); ok {
			t.Error("b should have been evicted")
		}
		if v, ok := c.Get("a"); !ok || v != 1 {
			t.Errorf("a = %d, %v", v, ok)
		}
		if c.Size() != 2 {
			t.Errorf("size = %d, want 2", c.Size())
		}
	})

	t.Run("expires entries after ttl", func(t *testing.T) {
		c := NewLRUCache[string](10, 10*time.Millisecond)
		c.Set("k", "v")
		if _, ok := c.Get("k"); !ok {
			t.Fatal("fresh entry should be present")
		}

		time.Sleep(20 * time.Millisecond)
		if _, ok := c.Get("k"); ok {
			t.Error("expired entry should be gone")
		}
	})

	t.Run("delete removes the key", func(t *testing.T) {
		c := NewLRUCache[int](10, time.Minute)
		c.Set("k", 1)
		c.Delete("k")
		if _, ok := c.Get("k"); ok {
			t.Error("deleted entry should be gone")
		}
	})

	t.Run("clean expired reports count", func(t *testing.T) {
		c := NewLRUCache[int](10, 10*time.Millisecond)
		c.Set("a", 1)
		c.Set("b", 2)
		time.Sleep(20 * time.Millisecond)
		if n := c.CleanExpired(); n != 2 {
			t.Errorf("CleanExpired() = %d, want 2", n)
		}
		if c.Size() != 0 {
			t.Errorf("size after cleanup = %d, want 0", c.Size())
		}
	})
}
