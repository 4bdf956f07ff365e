package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestResendSend(t *testing.T) {
	var captured sendRequest
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/emails" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"msg-123"}`))
	}))
	defer srv.Close()

	m, err := NewResend("test-key", "no-reply@example.com", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("NewResend: %v", err)
	}

	id, err := m.Send(context.Background(), "alice@example.com", "Hello", "<p>hi</p>")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if id != "msg-123" {
		t.Errorf("message id = %q, want msg-123", id)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("authorization header = %q", gotAuth)
	}
	if captured.From != "no-reply@example.com" {
		t.Errorf("from = %q", captured.From)
	}
	if len(captured.To) != 1 || captured.To[0] != "alice@example.com" {
		t.Errorf("to = %v", captured.To)
	}
}

func TestResendSendProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"invalid api key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	m, err := NewResend("bad-key", "no-reply@example.com", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("NewResend: %v", err)
	}

	_, err = m.Send(context.Background(), "alice@example.com", "Hello", "<p>hi</p>")
	if !errors.Is(err, ErrSendFailure) {
		t.Fatalf("error = %v, want ErrSendFailure", err)
	}
}

func TestResendSendInputValidation(t *testing.T) {
	m, err := NewResend("test-key", "no-reply@example.com")
	if err != nil {
		t.Fatalf("NewResend: %v", err)
	}

	cases := []struct {
		name, to, subject, html string
	}{
		{"bad recipient", "not-an-address", "s", "<p>b</p>"},
		{"empty subject", "a@example.com", "", "<p>b</p>"},
		{"empty body", "a@example.com", "s", ""},
	}
	for _, tc := range cases {
		if _, err := m.Send(context.Background(), tc.to, tc.subject, tc.html); !errors.Is(err, ErrSendFailure) {
			t.Errorf("%s: error = %v, want ErrSendFailure", tc.name, err)
		}
	}
}

func TestNewResendRequiresCredentials(t *testing.T) {
	if _, err := NewResend("", "from@example.com"); err == nil {
		t.Error("expected error for missing api key")
	}
	if _, err := NewResend("key", ""); err == nil {
		t.Error("expected error for missing from address")
	}
}

func TestVerificationEmailLink(t *testing.T) {
	subject, html := VerificationEmail("https://app.example.com/", "tok en+1")
	if subject != "Email Verification - Complete Your Registration" {
		t.Errorf("subject = %q", subject)
	}
	if !strings.Contains(html, "https://app.example.com/auth/verify-email?token=tok+en%2B1") {
		t.Errorf("html missing escaped link: %s", html)
	}
}

func TestResetPasswordEmailLink(t *testing.T) {
	_, html := ResetPasswordEmail("https://app.example.com", "abc")
	if !strings.Contains(html, "https://app.example.com/auth/reset-password?token=abc") {
		t.Errorf("html missing link: %s", html)
	}
}

func TestWelcomeEmailEscapesName(t *testing.T) {
	_, html := WelcomeEmail("<script>")
	if strings.Contains(html, "<script>") {
		t.Errorf("name not escaped: %s", html)
	}
}
