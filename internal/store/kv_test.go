package store

import (
	"context"
	"testing"

	"github.com/dukerupert/purrfect/internal/database"
)

func setupKVTestDB(t *testing.T) *KVStore {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewKVStore(db)
}

func TestKVGetAbsent(t *testing.T) {
	kv := setupKVTestDB(t)

	val, ok, err := kv.Get(context.Background(), "foodEntries")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok {
		t.Errorf("ok = true, want false (value %q)", val)
	}
}

func TestKVSetAndGet(t *testing.T) {
	kv := setupKVTestDB(t)
	ctx := context.Background()

	if err := kv.Set(ctx, "loggedIn", "true"); err != nil {
		t.Fatalf("set: %v", err)
	}
	val, ok, err := kv.Get(ctx, "loggedIn")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok || val != "true" {
		t.Errorf("get = (%q, %v), want (%q, true)", val, ok, "true")
	}

	// Overwrite
	if err := kv.Set(ctx, "loggedIn", "false"); err != nil {
		t.Fatalf("set again: %v", err)
	}
	val, _, err = kv.Get(ctx, "loggedIn")
	if err != nil {
		t.Fatalf("get after overwrite: %v", err)
	}
	if val != "false" {
		t.Errorf("loggedIn = %q, want %q", val, "false")
	}
}

func TestKVEmptyValueIsPresent(t *testing.T) {
	kv := setupKVTestDB(t)
	ctx := context.Background()

	if err := kv.Set(ctx, "k", ""); err != nil {
		t.Fatalf("set: %v", err)
	}
	_, ok, err := kv.Get(ctx, "k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok {
		t.Error("empty value should still be present")
	}
}

func TestKVClear(t *testing.T) {
	kv := setupKVTestDB(t)
	ctx := context.Background()

	for _, k := range []string{"a", "b", "c"} {
		if err := kv.Set(ctx, k, k); err != nil {
			t.Fatalf("set %s: %v", k, err)
		}
	}

	if err := kv.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	for _, k := range []string{"a", "b", "c"} {
		_, ok, err := kv.Get(ctx, k)
		if err != nil {
			t.Fatalf("get %s: %v", k, err)
		}
		if ok {
			t.Errorf("%s still present after clear", k)
		}
	}

	if err := kv.Set(ctx, "a", "again"); err != nil {
		t.Fatalf("set after clear: %v", err)
	}
	if v, ok, _ := kv.Get(ctx, "a"); !ok || v != "again" {
		t.Errorf("get after clear = %q, %v", v, ok)
	}
}
