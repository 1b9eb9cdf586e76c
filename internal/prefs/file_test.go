package prefs

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"
)

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "prefs.json")
	store, err := OpenFile(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	if err := store.SetItem(ctx, "count", 3); err != nil {
		t.Fatalf("set: %v", err)
	}
	v, err := store.GetItem(ctx, "count")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	// JSON numbers decode as float64.
	if got, ok := v.(float64); !ok || got != 3 {
		t.Fatalf("expected 3, got %#v", v)
	}

	if err := store.SetItem(ctx, "ready", true); err != nil {
		t.Fatalf("set bool: %v", err)
	}
	if !GetBool(ctx, store, "ready") {
		t.Fatalf("expected bool to round-trip")
	}
	if GetBool(ctx, store, "absent") {
		t.Fatalf("expected false for absent key")
	}

	if err := store.SetItem(ctx, "flags", map[string]any{"dark": true}); err != nil {
		t.Fatalf("set map: %v", err)
	}
	v, _ = store.GetItem(ctx, "flags")
	if !reflect.DeepEqual(v, map[string]any{"dark": true}) {
		t.Fatalf("expected map round-trip, got %#v", v)
	}
}

func TestFileStoreRawStringFallback(t *testing.T) {
	ctx := context.Background()
	store, err := OpenFile(filepath.Join(t.TempDir(), "prefs.json"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	// Bare strings are stored unserialized; reading one must not fail on the
	// JSON parse, it falls back to the raw value.
	if err := store.SetItem(ctx, "theme", "dark mode"); err != nil {
		t.Fatalf("set: %v", err)
	}
	v, err := store.GetItem(ctx, "theme")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if v != "dark mode" {
		t.Fatalf("expected raw string back, got %#v", v)
	}

	// A string that happens to be valid JSON decodes.
	if err := store.SetItem(ctx, "quoted", `"hello"`); err != nil {
		t.Fatalf("set: %v", err)
	}
	v, _ = store.GetItem(ctx, "quoted")
	if v != "hello" {
		t.Fatalf("expected decoded string, got %#v", v)
	}
}

func TestFileStoreAbsentKey(t *testing.T) {
	ctx := context.Background()
	store, err := OpenFile(filepath.Join(t.TempDir(), "prefs.json"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	v, err := store.GetItem(ctx, "missing")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if v != nil {
		t.Fatalf("expected nil for absent key, got %#v", v)
	}
}

func TestFileStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "prefs.json")

	store, err := OpenFile(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := store.SetItem(ctx, KeyToken, "tok-123"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.SetItem(ctx, KeyUserID, "user-1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.RemoveItem(ctx, KeyUserID); err != nil {
		t.Fatalf("remove: %v", err)
	}

	reopened, err := OpenFile(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got := GetString(ctx, reopened, KeyToken); got != "tok-123" {
		t.Fatalf("expected persisted token, got %q", got)
	}
	if v, _ := reopened.GetItem(ctx, KeyUserID); v != nil {
		t.Fatalf("expected removed key gone after reopen, got %#v", v)
	}
}

func TestFileStoreClearAndKeys(t *testing.T) {
	ctx := context.Background()
	store, err := OpenFile(filepath.Join(t.TempDir(), "prefs.json"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	_ = store.SetItem(ctx, "b", "2")
	_ = store.SetItem(ctx, "a", "1")

	keys, err := store.Keys(ctx)
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if !reflect.DeepEqual(keys, []string{"a", "b"}) {
		t.Fatalf("expected sorted keys, got %v", keys)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	keys, _ = store.Keys(ctx)
	if len(keys) != 0 {
		t.Fatalf("expected empty scope after clear, got %v", keys)
	}
}
