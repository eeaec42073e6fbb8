package http

import (
	"net/http"
	"testing"
)

func TestFederatedHandlerUpsertUser(t *testing.T) {
	env := newTestEnv(t)

	rec := performRequest(env.router, http.MethodPost, "/auth/google/user", map[string]string{
		"uid":          "google-uid-1",
		"name":         "Ada",
		"phone_number": "15550100",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201 for new subject, got %d: %s", rec.Code, rec.Body.String())
	}
	first := decodeBody(t, rec)

	rec = performRequest(env.router, http.MethodPost, "/auth/google/user", map[string]string{
		"uid":          "google-uid-1",
		"name":         "Ada L.",
		"phone_number": "15550101",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 for existing subject, got %d", rec.Code)
	}
	second := decodeBody(t, rec)

	if first["user_id"] != second["user_id"] {
		t.Fatalf("expected same user id, got %v vs %v", first["user_id"], second["user_id"])
	}
}

func TestFederatedHandlerVerifyIDToken_Invalid(t *testing.T) {
	env := newTestEnv(t)

	rec := performRequest(env.router, http.MethodPost, "/auth/google/verify", map[string]string{
		"id_token": "not-a-token",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rec.Code)
	}
}

func TestFederatedHandlerCustomToken_NotConfigured(t *testing.T) {
	env := newTestEnv(t)

	rec := performRequest(env.router, http.MethodPost, "/auth/google/token", map[string]string{
		"uid": "google-uid-1",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401 without signing key, got %d", rec.Code)
	}
}
