package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"recipe-chatbot/internal/infrastructure/config"
	"recipe-chatbot/internal/pkg/common"
)

func TestMain(m *testing.M) {
	if err := common.InitLogger("error"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func newTestManager(maxSize int, ttl time.Duration) *Manager {
	cfg := &config.Config{}
	cfg.Cache = config.CacheConfig{
		Enabled:         true,
		Backend:         "memory",
		MaxSize:         maxSize,
		TTL:             ttl,
		CleanupInterval: time.Hour,
	}
	return NewManager(cfg)
}

func sampleResults(id int) []common.MatchResult {
	return []common.MatchResult{
		{Recipe: common.Recipe{ID: id, Name: "Ayam Goreng"}, Score: 85},
	}
}

func TestKeyStableUnderReordering(t *testing.T) {
	a := common.EntityBundle{
		Ingredients:      common.IngredientSet{Main: []string{"ayam", "tahu"}, Avoid: []string{"udang", "gula"}},
		TastePreferences: []string{"pedas", "gurih"},
	}
	b := common.EntityBundle{
		Ingredients:      common.IngredientSet{Main: []string{"tahu", "ayam"}, Avoid: []string{"gula", "udang"}},
		TastePreferences: []string{"gurih", "pedas"},
	}

	if Key(a, 5) != Key(b, 5) {
		t.Error("key should not depend on set ordering")
	}
	if Key(a, 5) == Key(a, 3) {
		t.Error("key should depend on topK")
	}
	if Key(a, 5) == Key(common.EntityBundle{}, 5) {
		t.Error("key should depend on entities")
	}
}

func TestManagerSetGet(t *testing.T) {
	m := newTestManager(10, time.Minute)
	defer m.Close()
	ctx := context.Background()

	key := Key(common.EntityBundle{Ingredients: common.IngredientSet{Main: []string{"ayam"}}}, 5)

	if _, err := m.Get(ctx, key); err == nil {
		t.Error("expected miss on empty cache")
	}

	if err := m.Set(ctx, key, sampleResults(1)); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, err := m.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got) != 1 || got[0].Recipe.ID != 1 {
		t.Errorf("got = %+v", got)
	}

	stats := m.Stats()
	if stats["hits"].(int64) != 1 || stats["misses"].(int64) != 1 {
		t.Errorf("stats = %v", stats)
	}
}

func TestManagerExpiry(t *testing.T) {
	m := newTestManager(10, 10*time.Millisecond)
	defer m.Close()
	ctx := context.Background()

	key := Key(common.EntityBundle{TimeConstraint: "quick"}, 5)
	if err := m.Set(ctx, key, sampleResults(2)); err != nil {
		t.Fatalf("Set: %v", err)
	}

	time.Sleep(30 * time.Millisecond)

	if _, err := m.Get(ctx, key); err == nil {
		t.Error("expected miss after expiry")
	}
}

func TestManagerLRUEviction(t *testing.T) {
	m := newTestManager(2, time.Minute)
	defer m.Close()
	ctx := context.Background()

	k1 := Key(common.EntityBundle{TimeConstraint: "quick"}, 1)
	k2 := Key(common.EntityBundle{TimeConstraint: "easy"}, 1)
	k3 := Key(common.EntityBundle{TimeConstraint: "simple"}, 1)

	if err := m.Set(ctx, k1, sampleResults(1)); err != nil {
		t.Fatalf("Set k1: %v", err)
	}
	if err := m.Set(ctx, k2, sampleResults(2)); err != nil {
		t.Fatalf("Set k2: %v", err)
	}

	// k1 被重新存取，k2 成為 LRU 淘汰對象
	if _, err := m.Get(ctx, k1); err != nil {
		t.Fatalf("Get k1: %v", err)
	}

	if err := m.Set(ctx, k3, sampleResults(3)); err != nil {
		t.Fatalf("Set k3: %v", err)
	}

	if _, err := m.Get(ctx, k2); err == nil {
		t.Error("k2 should have been evicted")
	}
	if _, err := m.Get(ctx, k1); err != nil {
		t.Error("k1 should survive eviction")
	}
	if _, err := m.Get(ctx, k3); err != nil {
		t.Error("k3 should be present")
	}
}
