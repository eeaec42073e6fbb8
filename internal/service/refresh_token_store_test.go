package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestMemoryRefreshTokenStore(t *testing.T) {
	store := NewMemoryRefreshTokenStore()
	ctx := context.Background()

	if err := store.Save(ctx, "jti-1", "u1", time.Minute); err != nil {
		t.Fatalf("save: %v", err)
	}
	ok, err := store.Valid(ctx, "jti-1")
	if err != nil || !ok {
		t.Fatalf("expected jti to be valid, ok=%v err=%v", ok, err)
	}

	if err := store.Revoke(ctx, "jti-1"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	ok, err = store.Valid(ctx, "jti-1")
	if err != nil || ok {
		t.Fatalf("expected jti to be revoked, ok=%v err=%v", ok, err)
	}
}

func TestMemoryRefreshTokenStore_Expiry(t *testing.T) {
	store := NewMemoryRefreshTokenStore()
	ctx := context.Background()

	if err := store.Save(ctx, "jti-1", "u1", -time.Second); err != nil {
		t.Fatalf("save: %v", err)
	}
	ok, err := store.Valid(ctx, "jti-1")
	if err != nil || ok {
		t.Fatalf("expected expired jti to be invalid, ok=%v err=%v", ok, err)
	}
}

func TestMemoryRefreshTokenStore_ConsumeSingleWinner(t *testing.T) {
	store := NewMemoryRefreshTokenStore()
	ctx := context.Background()

	if err := store.Save(ctx, "jti-1", "u1", time.Minute); err != nil {
		t.Fatalf("save: %v", err)
	}

	var wg sync.WaitGroup
	var winners int32
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := store.Consume(ctx, "jti-1")
			if err != nil {
				t.Errorf("consume: %v", err)
				return
			}
			if ok {
				atomic.AddInt32(&winners, 1)
			}
		}()
	}
	wg.Wait()
	if winners != 1 {
		t.Fatalf("expected exactly one consumer to win, got %d", winners)
	}
}

func TestMemoryRefreshTokenStore_ConsumeExpired(t *testing.T) {
	store := NewMemoryRefreshTokenStore()
	ctx := context.Background()

	if err := store.Save(ctx, "jti-1", "u1", -time.Second); err != nil {
		t.Fatalf("save: %v", err)
	}
	ok, err := store.Consume(ctx, "jti-1")
	if err != nil || ok {
		t.Fatalf("expected expired jti to fail consume, ok=%v err=%v", ok, err)
	}
}

func TestMemoryRefreshTokenStore_SaveSweepsExpired(t *testing.T) {
	store := NewMemoryRefreshTokenStore()
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		if err := store.Save(ctx, fmt.Sprintf("old-%d", i), "u1", -time.Second); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	if err := store.Save(ctx, "fresh", "u1", time.Minute); err != nil {
		t.Fatalf("save: %v", err)
	}

	mem := store.(*memoryRefreshTokenStore)
	mem.mu.Lock()
	size := len(mem.items)
	mem.mu.Unlock()
	if size != 1 {
		t.Fatalf("expected expired entries swept on save, have %d items", size)
	}
}
