package cache_test

import (
	"testing"
	"time"

	"github.com/ClebyFrancisco/fineixo/internal/infra/cache"
)

type summary struct {
	total string
	count int
}

func TestCache_SetAndGet(t *testing.T) {
	c := cache.New[*summary](5 * time.Minute)
	defer c.Close()

	c.Set("summary:owner-1", &summary{total: "300.00", count: 2})
	val, ok := c.Get("summary:owner-1")
	if !ok {
		t.Fatal("expected key to exist")
	}
	if val.total != "300.00" || val.count != 2 {
		t.Errorf("unexpected value %+v", val)
	}
}

func TestCache_GetMiss(t *testing.T) {
	c := cache.New[string](5 * time.Minute)
	defer c.Close()

	_, ok := c.Get("nonexistent")
	if ok {
		t.Fatal("expected cache miss for nonexistent key")
	}
}

func TestCache_Expiration(t *testing.T) {
	c := cache.New[string](50 * time.Millisecond)
	defer c.Close()

	c.Set("key1", "value1")
	time.Sleep(100 * time.Millisecond)

	_, ok := c.Get("key1")
	if ok {
		t.Fatal("expected cache entry to be expired")
	}
}

func TestCache_CleanupRemovesExpired(t *testing.T) {
	c := cache.New[string](20 * time.Millisecond)
	defer c.Close()

	c.Set("key1", "value1")
	time.Sleep(100 * time.Millisecond)

	if n := c.Len(); n != 0 {
		t.Errorf("expected janitor to drop expired entries, %d left", n)
	}
}

func TestCache_Delete(t *testing.T) {
	c := cache.New[string](5 * time.Minute)
	defer c.Close()

	c.Set("key1", "value1")
	c.Delete("key1")

	_, ok := c.Get("key1")
	if ok {
		t.Fatal("expected key to be deleted")
	}
}

func TestCache_ZeroTTLDisablesCaching(t *testing.T) {
	c := cache.New[string](0)
	defer c.Close()

	c.Set("key1", "value1")
	if _, ok := c.Get("key1"); ok {
		t.Fatal("expected no caching with zero TTL")
	}
}

func TestCache_CloseTwice(t *testing.T) {
	c := cache.New[string](time.Minute)
	c.Close()
	c.Close()

	c.Set("key1", "value1")
	if _, ok := c.Get("key1"); !ok {
		t.Fatal("expected cache to stay usable after Close")
	}
}
