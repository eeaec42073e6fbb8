package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestTokenService_IssueParseAccess(t *testing.T) {
	svc := NewTokenService("secret", time.Hour, 7*24*time.Hour)

	pair, err := svc.IssuePair(context.Background(), "u1")
	if err != nil {
		t.Fatalf("issue pair: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("expected tokens")
	}
	if pair.AccessToken == pair.RefreshToken {
		t.Fatalf("expected distinct access and refresh tokens")
	}
	if pair.ExpiresIn != 3600 {
		t.Fatalf("expected access ttl 1h, got %d seconds", pair.ExpiresIn)
	}

	claims, err := svc.ParseAccess(pair.AccessToken)
	if err != nil {
		t.Fatalf("parse access: %v", err)
	}
	if claims.UserID != "u1" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestTokenService_TamperedSignature(t *testing.T) {
	svc := NewTokenService("secret", time.Hour, 7*24*time.Hour)
	pair, err := svc.IssuePair(context.Background(), "u1")
	if err != nil {
		t.Fatalf("issue pair: %v", err)
	}

	parts := strings.Split(pair.AccessToken, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape")
	}
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	if _, err := svc.ParseAccess(tampered); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestTokenService_Expired(t *testing.T) {
	svc := NewTokenServiceWithStore("secret", time.Millisecond, 7*24*time.Hour, NewMemoryRefreshTokenStore())
	pair, err := svc.IssuePair(context.Background(), "u1")
	if err != nil {
		t.Fatalf("issue pair: %v", err)
	}

	time.Sleep(5 * time.Millisecond)
	if _, err := svc.ParseAccess(pair.AccessToken); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestTokenService_RefreshAsAccessRejected(t *testing.T) {
	svc := NewTokenService("secret", time.Hour, 7*24*time.Hour)
	pair, err := svc.IssuePair(context.Background(), "u1")
	if err != nil {
		t.Fatalf("issue pair: %v", err)
	}
	if _, err := svc.ParseAccess(pair.RefreshToken); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for refresh token, got %v", err)
	}
}

func TestTokenService_RefreshRotation(t *testing.T) {
	svc := NewTokenService("secret", time.Hour, 7*24*time.Hour)
	pair, err := svc.IssuePair(context.Background(), "u1")
	if err != nil {
		t.Fatalf("issue pair: %v", err)
	}

	refreshed, err := svc.RefreshPair(context.Background(), pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh pair: %v", err)
	}
	if refreshed.AccessToken == "" || refreshed.RefreshToken == "" {
		t.Fatalf("expected refreshed tokens")
	}

	if _, err := svc.RefreshPair(context.Background(), pair.RefreshToken); err == nil {
		t.Fatalf("expected old refresh token to be revoked")
	}
}

func TestTokenService_ConcurrentRefreshSinglePair(t *testing.T) {
	svc := NewTokenService("secret", time.Hour, 7*24*time.Hour)
	pair, err := svc.IssuePair(context.Background(), "u1")
	if err != nil {
		t.Fatalf("issue pair: %v", err)
	}

	var wg sync.WaitGroup
	var minted int32
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.RefreshPair(context.Background(), pair.RefreshToken); err == nil {
				atomic.AddInt32(&minted, 1)
			}
		}()
	}
	wg.Wait()
	if minted != 1 {
		t.Fatalf("expected one refresh to win, got %d new pairs", minted)
	}
}

func TestTokenService_Revoke(t *testing.T) {
	svc := NewTokenService("secret", time.Hour, 7*24*time.Hour)
	pair, err := svc.IssuePair(context.Background(), "u1")
	if err != nil {
		t.Fatalf("issue pair: %v", err)
	}

	if err := svc.Revoke(context.Background(), pair.RefreshToken); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := svc.RefreshPair(context.Background(), pair.RefreshToken); err == nil {
		t.Fatalf("expected revoked token to be rejected")
	}
}

func TestTokenService_WrongSecret(t *testing.T) {
	issuer := NewTokenService("secret-a", time.Hour, 7*24*time.Hour)
	verifier := NewTokenService("secret-b", time.Hour, 7*24*time.Hour)

	pair, err := issuer.IssuePair(context.Background(), "u1")
	if err != nil {
		t.Fatalf("issue pair: %v", err)
	}
	if _, err := verifier.ParseAccess(pair.AccessToken); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}
