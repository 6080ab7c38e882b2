package storage

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestCache(t *testing.T) *DescriptorCache {
	t.Helper()
	cache, err := NewDescriptorCache(filepath.Join(t.TempDir(), "data", "cache.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = cache.Close() })
	return cache
}

func TestDescriptorCache_putGet(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()
	vec := []float32{1.5, -2.25, 0}

	if err := cache.Put(ctx, "/img/a.jpg", "gradient", "global", 100, 2048, vec); err != nil {
		t.Fatal(err)
	}

	got, ok, err := cache.Get(ctx, "/img/a.jpg", "gradient", "global", 100, 2048)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected cache hit")
	}
	if len(got) != 3 {
		t.Fatalf("got %d components, want 3", len(got))
	}
	for i := range vec {
		if got[i] != vec[i] {
			t.Errorf("component %d = %v, want %v", i, got[i], vec[i])
		}
	}
}

func TestDescriptorCache_missOnUnknown(t *testing.T) {
	cache := newTestCache(t)
	_, ok, err := cache.Get(context.Background(), "/img/unknown.jpg", "gradient", "global", 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("expected cache miss")
	}
}

func TestDescriptorCache_staleFileMisses(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()
	if err := cache.Put(ctx, "/img/a.jpg", "gradient", "global", 100, 2048, []float32{1}); err != nil {
		t.Fatal(err)
	}

	if _, ok, _ := cache.Get(ctx, "/img/a.jpg", "gradient", "global", 101, 2048); ok {
		t.Error("changed mtime must miss")
	}
	if _, ok, _ := cache.Get(ctx, "/img/a.jpg", "gradient", "global", 100, 1); ok {
		t.Error("changed size must miss")
	}
}

func TestDescriptorCache_keyedByFeatureAndMode(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()
	if err := cache.Put(ctx, "/img/a.jpg", "gradient", "global", 1, 1, []float32{1}); err != nil {
		t.Fatal(err)
	}

	if _, ok, _ := cache.Get(ctx, "/img/a.jpg", "binary", "global", 1, 1); ok {
		t.Error("different feature type must miss")
	}
	if _, ok, _ := cache.Get(ctx, "/img/a.jpg", "gradient", "region", 1, 1); ok {
		t.Error("different mode must miss")
	}
}

func TestDescriptorCache_replace(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()
	if err := cache.Put(ctx, "/img/a.jpg", "gradient", "global", 1, 1, []float32{1}); err != nil {
		t.Fatal(err)
	}
	if err := cache.Put(ctx, "/img/a.jpg", "gradient", "global", 2, 1, []float32{9}); err != nil {
		t.Fatal(err)
	}

	got, ok, err := cache.Get(ctx, "/img/a.jpg", "gradient", "global", 2, 1)
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if got[0] != 9 {
		t.Errorf("got %v, want replaced value 9", got[0])
	}

	n, err := cache.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("Count=%d, want 1 after replace", n)
	}
}
