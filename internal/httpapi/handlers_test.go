package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dperkosan/iam-service/internal/auth"
	"github.com/dperkosan/iam-service/internal/token"
)

type fakeAuthService struct {
	registerAccount auth.Account
	registerErr     error
	loginTokens     auth.Tokens
	loginErr        error
	refreshTokens   auth.Tokens
	refreshErr      error
	sendVerifySent  bool
	sendVerifyErr   error
	resendVerifyErr error
	verifyErr       error
	sendResetSent   bool
	sendResetErr    error
	resendResetErr  error
	resetErr        error
	createOrgErr    error

	lastRegister auth.RegisterInput
}

func (f *fakeAuthService) Register(_ context.Context, input auth.RegisterInput) (auth.Account, error) {
	f.lastRegister = input
	return f.registerAccount, f.registerErr
}

func (f *fakeAuthService) Login(context.Context, string, string, string) (auth.Tokens, error) {
	return f.loginTokens, f.loginErr
}

func (f *fakeAuthService) RefreshToken(context.Context, string) (auth.Tokens, error) {
	return f.refreshTokens, f.refreshErr
}

func (f *fakeAuthService) SendVerifyAccountEmail(context.Context, string, string) (bool, error) {
	return f.sendVerifySent, f.sendVerifyErr
}

func (f *fakeAuthService) ResendVerifyAccountEmail(context.Context, string) error {
	return f.resendVerifyErr
}

func (f *fakeAuthService) VerifyAccount(context.Context, string) error {
	return f.verifyErr
}

func (f *fakeAuthService) SendResetPasswordEmail(context.Context, string, string) (bool, error) {
	return f.sendResetSent, f.sendResetErr
}

func (f *fakeAuthService) ResendResetPasswordEmail(context.Context, string) error {
	return f.resendResetErr
}

func (f *fakeAuthService) ResetPassword(context.Context, string, string) error {
	return f.resetErr
}

func (f *fakeAuthService) CreateOrganization(_ context.Context, name string) (auth.Organization, error) {
	if f.createOrgErr != nil {
		return auth.Organization{}, f.createOrgErr
	}
	return auth.Organization{ID: "org-1", Name: name}, nil
}

func newTestAPI(t *testing.T, svc AuthService) *API {
	t.Helper()
	codec, err := token.NewCodec("test-secret", "iam-clients", "iam-service")
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	return New(svc, codec, ReadyProbe{}, "test")
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Message string `json:"message"`
	}
	decodeBody(t, rec, &body)
	return body.Message
}

func TestHealthz(t *testing.T) {
	api := newTestAPI(t, &fakeAuthService{})
	rec := doJSON(t, api.Handler(), http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]any
	decodeBody(t, rec, &body)
	if body["status"] != "ok" || body["service"] != "iam-api" {
		t.Errorf("unexpected body: %v", body)
	}
}

func TestReadyzWithoutBackends(t *testing.T) {
	api := newTestAPI(t, &fakeAuthService{})
	rec := doJSON(t, api.Handler(), http.MethodGet, "/readyz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestRegisterEndpoint(t *testing.T) {
	svc := &fakeAuthService{
		registerAccount: auth.Account{
			ID:             "acc-1",
			OrganizationID: "org-1",
			Email:          "ada@example.com",
			Role:           auth.RoleUser,
			Enabled:        true,
		},
	}
	api := newTestAPI(t, svc)

	rec := doJSON(t, api.Handler(), http.MethodPost, "/auth/register", `{
		"firstName": "Ada",
		"lastName": "Lovelace",
		"email": "ada@example.com",
		"password": "password123",
		"role": "user",
		"organizationId": "org-1"
	}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var body map[string]any
	decodeBody(t, rec, &body)
	if body["id"] != "acc-1" || body["email"] != "ada@example.com" {
		t.Errorf("unexpected body: %v", body)
	}
	if _, leaked := body["passwordHash"]; leaked {
		t.Error("password hash leaked in response")
	}
	if svc.lastRegister.Role != auth.RoleUser {
		t.Errorf("service got role %q", svc.lastRegister.Role)
	}
}

func TestRegisterEndpointValidation(t *testing.T) {
	api := newTestAPI(t, &fakeAuthService{})

	rec := doJSON(t, api.Handler(), http.MethodPost, "/auth/register", `{
		"firstName": "",
		"lastName": "",
		"email": "invalid-email",
		"password": "",
		"role": "invalid-role",
		"organizationId": ""
	}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	msg := errorMessage(t, rec)
	for _, want := range []string{
		"firstName should not be empty",
		"lastName should not be empty",
		"email must be an email",
		"password should not be empty",
		"password must be longer than or equal to 8 characters",
		"role must be one of the following values: admin, user",
		"organizationId should not be empty",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q missing %q", msg, want)
		}
	}
}

func TestRegisterEndpointErrors(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"duplicate", auth.ErrDuplicateAccount, http.StatusBadRequest, "Email already exists"},
		{"missing org", auth.ErrOrganizationNotFound, http.StatusBadRequest, "Organization not found"},
		{"service failure", auth.ErrServiceFailure, http.StatusInternalServerError, "Service Error: Failed to register user"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			api := newTestAPI(t, &fakeAuthService{registerErr: tc.err})
			rec := doJSON(t, api.Handler(), http.MethodPost, "/auth/register", `{
				"firstName": "Ada", "lastName": "Lovelace", "email": "ada@example.com",
				"password": "password123", "role": "user", "organizationId": "org-1"
			}`)
			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			if got := errorMessage(t, rec); got != tc.wantMsg {
				t.Errorf("message = %q, want %q", got, tc.wantMsg)
			}
		})
	}
}

func TestLoginEndpoint(t *testing.T) {
	api := newTestAPI(t, &fakeAuthService{
		loginTokens: auth.Tokens{AccessToken: "access", RefreshToken: "refresh"},
	})
	rec := doJSON(t, api.Handler(), http.MethodPost, "/auth/login", `{
		"email": "ada@example.com", "password": "password123", "organizationId": "org-1"
	}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var pair auth.Tokens
	decodeBody(t, rec, &pair)
	if pair.AccessToken != "access" || pair.RefreshToken != "refresh" {
		t.Errorf("unexpected pair: %+v", pair)
	}
}

func TestLoginEndpointErrors(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"invalid credentials", auth.ErrInvalidCredentials, http.StatusUnauthorized, "User credentials are invalid."},
		{"not enabled", auth.ErrAccountNotEnabled, http.StatusUnauthorized, "User account is not enabled."},
		{"not verified", auth.ErrEmailNotVerified, http.StatusUnauthorized, "User email is not verified."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			api := newTestAPI(t, &fakeAuthService{loginErr: tc.err})
			rec := doJSON(t, api.Handler(), http.MethodPost, "/auth/login", `{
				"email": "ada@example.com", "password": "x", "organizationId": "org-1"
			}`)
			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			if got := errorMessage(t, rec); got != tc.wantMsg {
				t.Errorf("message = %q, want %q", got, tc.wantMsg)
			}
		})
	}
}

func TestRefreshTokenEndpointErrors(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"invalid token", token.ErrInvalidToken, http.StatusUnauthorized, "Unauthorized: Invalid or expired token"},
		{"revoked token", token.ErrTokenRevoked, http.StatusUnauthorized, "Token has been revoked or is invalid"},
		{"missing account", auth.ErrAccountNotFound, http.StatusNotFound, "User not found"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			api := newTestAPI(t, &fakeAuthService{refreshErr: tc.err})
			rec := doJSON(t, api.Handler(), http.MethodPost, "/auth/refresh-token", `{"refreshToken": "tok"}`)
			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			if got := errorMessage(t, rec); got != tc.wantMsg {
				t.Errorf("message = %q, want %q", got, tc.wantMsg)
			}
		})
	}
}

func TestSendVerifyAccountEmailEndpoint(t *testing.T) {
	api := newTestAPI(t, &fakeAuthService{sendVerifySent: true})
	rec := doJSON(t, api.Handler(), http.MethodPost, "/auth/send-verify-account-email", `{
		"email": "ada@example.com", "organizationId": "org-1"
	}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var msg string
	decodeBody(t, rec, &msg)
	if msg != "Email sent successfully" {
		t.Errorf("body = %q", msg)
	}
}

func TestSendVerifyAccountEmailUnknownRecipient(t *testing.T) {
	api := newTestAPI(t, &fakeAuthService{sendVerifySent: false})
	rec := doJSON(t, api.Handler(), http.MethodPost, "/auth/send-verify-account-email", `{
		"email": "nobody@example.com", "organizationId": "org-1"
	}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]any
	decodeBody(t, rec, &body)
	if len(body) != 0 {
		t.Errorf("body = %v, want empty object", body)
	}
}

func TestSendVerifyAccountEmailAlreadyVerified(t *testing.T) {
	api := newTestAPI(t, &fakeAuthService{sendVerifyErr: auth.ErrAlreadyVerified})
	rec := doJSON(t, api.Handler(), http.MethodPost, "/auth/send-verify-account-email", `{
		"email": "ada@example.com", "organizationId": "org-1"
	}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := errorMessage(t, rec); got != "Email is already verified." {
		t.Errorf("message = %q", got)
	}
}

func TestVerifyAccountEndpoint(t *testing.T) {
	api := newTestAPI(t, &fakeAuthService{})
	rec := doJSON(t, api.Handler(), http.MethodPost, "/auth/verify-account", `{"token": "tok"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var msg string
	decodeBody(t, rec, &msg)
	if msg != "Account is successfully verified!" {
		t.Errorf("body = %q", msg)
	}
}

func TestResetPasswordEndpoint(t *testing.T) {
	api := newTestAPI(t, &fakeAuthService{})
	rec := doJSON(t, api.Handler(), http.MethodPost, "/auth/reset-password", `{
		"token": "tok", "password": "newpassword123"
	}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var msg string
	decodeBody(t, rec, &msg)
	if msg != "Password is successfully changed!" {
		t.Errorf("body = %q", msg)
	}
}

func TestResetPasswordEndpointShortPassword(t *testing.T) {
	api := newTestAPI(t, &fakeAuthService{})
	rec := doJSON(t, api.Handler(), http.MethodPost, "/auth/reset-password", `{
		"token": "tok", "password": "short"
	}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestAuthEndpointsRejectWrongMethod(t *testing.T) {
	api := newTestAPI(t, &fakeAuthService{})
	for _, path := range []string{
		"/auth/register", "/auth/login", "/auth/refresh-token",
		"/auth/verify-account", "/auth/reset-password",
	} {
		rec := doJSON(t, api.Handler(), http.MethodGet, path, "")
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s: status = %d, want 405", path, rec.Code)
		}
		if allow := rec.Header().Get("Allow"); allow != http.MethodPost {
			t.Errorf("%s: Allow = %q", path, allow)
		}
	}
}

func TestRootReturns404(t *testing.T) {
	api := newTestAPI(t, &fakeAuthService{})
	rec := doJSON(t, api.Handler(), http.MethodGet, "/", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestUnknownProtectedPathRequiresToken(t *testing.T) {
	api := newTestAPI(t, &fakeAuthService{})
	rec := doJSON(t, api.Handler(), http.MethodGet, "/nope", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestRequestBodyRequired(t *testing.T) {
	api := newTestAPI(t, &fakeAuthService{})
	rec := doJSON(t, api.Handler(), http.MethodPost, "/auth/login", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := errorMessage(t, rec); got != "request body is required" {
		t.Errorf("message = %q", got)
	}
}
