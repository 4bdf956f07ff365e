package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dperkosan/iam-service/internal/token"
)

func TestMeRequiresBearerToken(t *testing.T) {
	api := newTestAPI(t, &fakeAuthService{})

	rec := doJSON(t, api.Handler(), http.MethodGet, "/v1/me", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req.Header.Set("Authorization", "Token abc")
	rec = httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong scheme: status = %d, want 401", rec.Code)
	}
}

func TestMeWithValidToken(t *testing.T) {
	api := newTestAPI(t, &fakeAuthService{})

	raw, err := api.codec.Sign("acc-1", token.PurposeAuth, time.Hour, token.Extra{
		OrganizationID: "org-1",
		Email:          "ada@example.com",
		Role:           "admin",
	})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["id"] != "acc-1" || body["organizationId"] != "org-1" || body["role"] != "admin" {
		t.Errorf("unexpected body: %v", body)
	}
}

func TestMeRejectsNonAuthPurposes(t *testing.T) {
	api := newTestAPI(t, &fakeAuthService{})

	raw, err := api.codec.Sign("acc-1", token.PurposeRefresh, time.Hour, token.Extra{TokenID: "tid"})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if got := errorMessage(t, rec); got != "Unauthorized: Invalid or expired token" {
		t.Errorf("message = %q", got)
	}
}

func TestCreateOrganizationRequiresAdmin(t *testing.T) {
	api := newTestAPI(t, &fakeAuthService{})

	userToken, err := api.codec.Sign("acc-1", token.PurposeAuth, time.Hour, token.Extra{
		OrganizationID: "org-1", Email: "ada@example.com", Role: "user",
	})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/v1/organizations", strings.NewReader(`{"name":"Acme"}`))
	req.Header.Set("Authorization", "Bearer "+userToken)
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("user role: status = %d, want 403", rec.Code)
	}

	adminToken, err := api.codec.Sign("acc-2", token.PurposeAuth, time.Hour, token.Extra{
		OrganizationID: "org-1", Email: "root@example.com", Role: "admin",
	})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	req = httptest.NewRequest(http.MethodPost, "/v1/organizations", strings.NewReader(`{"name":"Acme"}`))
	req.Header.Set("Authorization", "Bearer "+adminToken)
	rec = httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("admin role: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if loc := rec.Header().Get("Location"); loc != "/v1/organizations/org-1" {
		t.Errorf("Location = %q", loc)
	}
}

func TestExtractBearerToken(t *testing.T) {
	if _, err := extractBearerToken(""); err == nil {
		t.Error("empty header accepted")
	}
	if _, err := extractBearerToken("Basic abc"); err == nil {
		t.Error("wrong scheme accepted")
	}
	if _, err := extractBearerToken("Bearer "); err == nil {
		t.Error("empty token accepted")
	}
	tok, err := extractBearerToken("bearer abc123")
	if err != nil {
		t.Fatalf("case-insensitive scheme rejected: %v", err)
	}
	if tok != "abc123" {
		t.Errorf("token = %q", tok)
	}
}
