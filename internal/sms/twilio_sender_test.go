package sms

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestTwilioSender_Send(t *testing.T) {
	var (
		gotPath string
		gotTo   string
		gotFrom string
		gotBody string
		gotUser string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUser, _, _ = r.BasicAuth()
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		gotTo = r.PostFormValue("To")
		gotFrom = r.PostFormValue("From")
		gotBody = r.PostFormValue("Body")
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	sender, err := NewTwilioSender("AC123", "token", "+15550000", server.URL)
	if err != nil {
		t.Fatalf("new sender: %v", err)
	}

	if err := sender.Send(context.Background(), "15550100", "Your verification code is: 123456"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if gotPath != "/2010-04-01/Accounts/AC123/Messages.json" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotUser != "AC123" {
		t.Fatalf("expected basic auth with account sid, got %q", gotUser)
	}
	if gotTo != "+15550100" {
		t.Fatalf("expected + prefix on destination, got %q", gotTo)
	}
	if gotFrom != "+15550000" || gotBody == "" {
		t.Fatalf("unexpected form: from=%q body=%q", gotFrom, gotBody)
	}
}

func TestTwilioSender_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"message":"invalid number"}`, http.StatusBadRequest)
	}))
	defer server.Close()

	sender, err := NewTwilioSender("AC123", "token", "+15550000", server.URL)
	if err != nil {
		t.Fatalf("new sender: %v", err)
	}
	if err := sender.Send(context.Background(), "15550100", "hola"); err == nil {
		t.Fatalf("expected error on 400 response")
	}
}

func TestNewTwilioSender_Validation(t *testing.T) {
	if _, err := NewTwilioSender("", "token", "+15550000", ""); err == nil {
		t.Fatalf("expected error without account sid")
	}
	if _, err := NewTwilioSender("AC123", "token", "", ""); err == nil {
		t.Fatalf("expected error without from number")
	}
}
