package cache

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a")
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("Get(a) = %v, %v", v, ok)
	}
	if c.Size() != 2 {
		t.Errorf("Size() = %d, want 2", c.Size())
	}
}

func TestLRUCache_TTL(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewLRUCache[string](10, time.Minute)
	c.now = func() time.Time { return now }

	c.Set("k", "v")
	c.Set("other", "v")
	now = now.Add(30 * time.Second)
	if _, ok := c.Get("k"); !ok {
		t.Fatal("entry should still be live")
	}

	now = now.Add(time.Minute)
	if _, ok := c.Get("k"); ok {
		t.Fatal("entry should have expired")
	}
	if n := c.CleanExpired(); n != 1 {
		t.Errorf("CleanExpired() = %d, want 1", n)
	}
	if c.Size() != 0 {
		t.Errorf("Size() = %d, want 0", c.Size())
	}
}

func TestLRUCache_DeleteFunc(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)
	c.Set("dashboard:u1:2025-03", 1)
	c.Set("analytics:u1:2025-03", 2)
	c.Set("dashboard:u2:2025-03", 3)

	removed := c.DeleteFunc(func(key string) bool { return strings.Contains(key, ":u1:") })
	if removed != 2 {
		t.Errorf("DeleteFunc() = %d, want 2", removed)
	}
	if _, ok := c.Get("dashboard:u2:2025-03"); !ok {
		t.Error("other users' entries must survive")
	}
}

func TestLRUCache_GetOrLoad(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)
	calls := 0
	load := func() (int, error) { calls++; return 42, nil }

	for i := 0; i < 3; i++ {
		v, err := c.GetOrLoad("k", load)
		if err != nil || v != 42 {
			t.Fatalf("GetOrLoad() = %v, %v", v, err)
		}
	}
	if calls != 1 {
		t.Errorf("loader called %d times, want 1", calls)
	}

	boom := errors.New("boom")
	if _, err := c.GetOrLoad("bad", func() (int, error) { return 0, boom }); !errors.Is(err, boom) {
		t.Fatalf("GetOrLoad() error = %v", err)
	}
	if _, ok := c.Get("bad"); ok {
		t.Error("errors must not be cached")
	}
}

func TestLRUCache_GetOrLoadDropsResultInvalidatedDuringLoad(t *testing.T) {
	c := NewLRUCache[string](10, time.Minute)
	load := func() (string, error) {
		// a write lands while the payload is being computed
		c.DeleteFunc(func(key string) bool { return strings.HasPrefix(key, "u:u1:") })
		return "before-write", nil
	}

	v, err := c.GetOrLoad("u:u1:2025-03", load)
	if err != nil || v != "before-write" {
		t.Fatalf("GetOrLoad() = %v, %v", v, err)
	}
	if _, ok := c.Get("u:u1:2025-03"); ok {
		t.Error("a payload loaded across an invalidation must not be cached")
	}

	v, err = c.GetOrLoad("u:u1:2025-03", func() (string, error) { return "after-write", nil })
	if err != nil || v != "after-write" {
		t.Fatalf("GetOrLoad() = %v, %v", v, err)
	}
	if got, ok := c.Get("u:u1:2025-03"); !ok || got != "after-write" {
		t.Errorf("Get() = %q, %v, want after-write cached", got, ok)
	}
}

func TestManager_CleanAll(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewLRUCache[int](10, time.Second)
	c.now = func() time.Time { return now }
	c.Set("a", 1)
	now = now.Add(2 * time.Second)

	m := NewManager(nil)
	m.Register(c)
	if n := m.CleanAll(); n != 1 {
		t.Errorf("CleanAll() = %d, want 1", n)
	}

	m.StartCleanup(time.Hour)
	m.Stop()
	m.Stop()
}
