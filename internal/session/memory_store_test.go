package session

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestMemoryStoreCreateAndValidate(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	token, err := store.Create(ctx, "a@b.com")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	entry, ok, err := store.Validate(ctx, token)
	if err != nil || !ok {
		t.Fatalf("expected token to validate, ok=%v err=%v", ok, err)
	}
	if entry.Identity != "a@b.com" {
		t.Errorf("expected identity a@b.com, got %s", entry.Identity)
	}
	if entry.CreatedAt.IsZero() {
		t.Error("expected createdAt to be stamped")
	}
}

func TestMemoryStoreValidateUnknownAndEmpty(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if _, ok, _ := store.Validate(ctx, ""); ok {
		t.Error("expected empty token to be invalid")
	}
	if _, ok, _ := store.Validate(ctx, "sess_nope"); ok {
		t.Error("expected unknown token to be invalid")
	}
}

func TestMemoryStoreRetriesOnCollision(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	tokens := []string{"sess_dup", "sess_dup", "sess_fresh"}
	store.newToken = func() (string, error) {
		next := tokens[0]
		tokens = tokens[1:]
		return next, nil
	}

	first, err := store.Create(ctx, "first@b.com")
	if err != nil || first != "sess_dup" {
		t.Fatalf("first Create = %q, %v", first, err)
	}
	second, err := store.Create(ctx, "second@b.com")
	if err != nil {
		t.Fatalf("second Create failed: %v", err)
	}
	if second != "sess_fresh" {
		t.Fatalf("expected collision to regenerate, got %q", second)
	}

	entry, _, _ := store.Validate(ctx, "sess_dup")
	if entry.Identity != "first@b.com" {
		t.Fatalf("collision overwrote existing entry: %+v", entry)
	}
}

func TestMemoryStoreGivesUpAfterRepeatedCollisions(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	store.newToken = func() (string, error) { return "sess_same", nil }

	if _, err := store.Create(ctx, "a@b.com"); err != nil {
		t.Fatalf("first Create failed: %v", err)
	}
	if _, err := store.Create(ctx, "a@b.com"); !errors.Is(err, ErrTokenSpace) {
		t.Fatalf("expected ErrTokenSpace, got %v", err)
	}
}

func TestMemoryStoreClearAll(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	token, _ := store.Create(ctx, "a@b.com")
	_, _ = store.Create(ctx, "a@b.com")

	if err := store.ClearAll(ctx); err != nil {
		t.Fatalf("ClearAll failed: %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("expected empty store, got %d entries", store.Len())
	}
	if _, ok, _ := store.Validate(ctx, token); ok {
		t.Error("expected cleared token to be invalid")
	}
}

func TestMemoryStoreConcurrentCreateYieldsUniqueTokens(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	const workers = 50
	var wg sync.WaitGroup
	results := make(chan string, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token, err := store.Create(ctx, "a@b.com")
			if err != nil {
				t.Errorf("Create failed: %v", err)
				return
			}
			results <- token
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[string]struct{})
	for token := range results {
		if _, dup := seen[token]; dup {
			t.Fatalf("duplicate token %s", token)
		}
		seen[token] = struct{}{}
	}
	if store.Len() != workers {
		t.Fatalf("expected %d sessions, got %d", workers, store.Len())
	}
}
