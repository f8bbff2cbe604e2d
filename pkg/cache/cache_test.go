package cache

import (
	"context"
	"testing"
	"time"
)

func TestFileCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}

	t.Run("MissOnEmpty", func(t *testing.T) {
		_, ok, err := c.Get(ctx, "absent")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if ok {
			t.Error("expected miss for absent key")
		}
	})

	t.Run("SetGet", func(t *testing.T) {
		if err := c.Set(ctx, "k", []byte("v"), time.Hour); err != nil {
			t.Fatalf("Set: %v", err)
		}
		data, ok, err := c.Get(ctx, "k")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if !ok || string(data) != "v" {
			t.Errorf("Get = %q, %v; want %q, true", data, ok, "v")
		}
	})

	t.Run("Expiry", func(t *testing.T) {
		if err := c.Set(ctx, "short", []byte("v"), time.Nanosecond); err != nil {
			t.Fatalf("Set: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
		_, ok, err := c.Get(ctx, "short")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if ok {
			t.Error("expected expired entry to miss")
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := c.Set(ctx, "del", []byte("v"), 0); err != nil {
			t.Fatalf("Set: %v", err)
		}
		if err := c.Delete(ctx, "del"); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if _, ok, _ := c.Get(ctx, "del"); ok {
			t.Error("expected miss after delete")
		}
		// Deleting again is not an error.
		if err := c.Delete(ctx, "del"); err != nil {
			t.Errorf("Delete absent: %v", err)
		}
	})
}

func TestFileCacheClear(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	fc := c.(*FileCache)

	if err := fc.Set(ctx, "a", []byte("1"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := fc.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, ok, _ := fc.Get(ctx, "a"); ok {
		t.Error("expected miss after clear")
	}
}

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()

	if err := c.Set(ctx, "k", []byte("v"), time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Error("null cache must never hit")
	}
}

func TestHash(t *testing.T) {
	a := Hash([]byte("one"))
	b := Hash([]byte("two"))
	if len(a) != 64 {
		t.Errorf("hash length = %d, want 64", len(a))
	}
	if a == b {
		t.Error("distinct inputs must hash differently")
	}
	if a != Hash([]byte("one")) {
		t.Error("hash must be deterministic")
	}
}
