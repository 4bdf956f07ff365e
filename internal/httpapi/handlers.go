package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dperkosan/iam-service/api/spec"
	"github.com/dperkosan/iam-service/internal/auth"
	"github.com/dperkosan/iam-service/internal/obs"
	"github.com/dperkosan/iam-service/internal/token"
)

// AuthService is the surface of the authentication service the HTTP layer
// depends on.
type AuthService interface {
	Register(ctx context.Context, input auth.RegisterInput) (auth.Account, error)
	Login(ctx context.Context, email, password, organizationID string) (auth.Tokens, error)
	RefreshToken(ctx context.Context, refreshToken string) (auth.Tokens, error)
	SendVerifyAccountEmail(ctx context.Context, email, organizationID string) (bool, error)
	ResendVerifyAccountEmail(ctx context.Context, oldToken string) error
	VerifyAccount(ctx context.Context, rawToken string) error
	SendResetPasswordEmail(ctx context.Context, email, organizationID string) (bool, error)
	ResendResetPasswordEmail(ctx context.Context, oldToken string) error
	ResetPassword(ctx context.Context, rawToken, newPassword string) error
	CreateOrganization(ctx context.Context, name string) (auth.Organization, error)
}

// ReadyProbe checks the backing stores the service cannot run without.
type ReadyProbe struct {
	DB    *sql.DB
	Redis redis.UniversalClient
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB != nil {
		if err := rp.DB.PingContext(ctx); err != nil {
			return err
		}
	}
	if rp.Redis != nil {
		if err := rp.Redis.Ping(ctx).Err(); err != nil {
			return err
		}
	}
	return nil
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	svc        AuthService
	codec      *token.Codec
	readyProbe ReadyProbe
	version    string
}

func New(svc AuthService, codec *token.Codec, rp ReadyProbe, version string) *API {
	a := &API{
		mux:        http.NewServeMux(),
		svc:        svc,
		codec:      codec,
		readyProbe: rp,
		version:    version,
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// OpenAPI YAML
	a.mux.HandleFunc("/openapi.yaml", a.OpenAPISpec)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// authentication flows
	a.mux.HandleFunc("/auth/register", a.handleRegister)
	a.mux.HandleFunc("/auth/login", a.handleLogin)
	a.mux.HandleFunc("/auth/refresh-token", a.handleRefreshToken)
	a.mux.HandleFunc("/auth/send-verify-account-email", a.handleSendVerifyAccountEmail)
	a.mux.HandleFunc("/auth/resend-verify-account-email", a.handleResendVerifyAccountEmail)
	a.mux.HandleFunc("/auth/verify-account", a.handleVerifyAccount)
	a.mux.HandleFunc("/auth/send-reset-password-email", a.handleSendResetPasswordEmail)
	a.mux.HandleFunc("/auth/resend-reset-password-email", a.handleResendResetPasswordEmail)
	a.mux.HandleFunc("/auth/reset-password", a.handleResetPassword)

	// authenticated surface
	a.mux.HandleFunc("/v1/me", a.handleMe)
	a.mux.HandleFunc("/v1/organizations", a.handleOrganizations)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the fully wrapped http.Handler for the server.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.withAuth(h)
	h = RateLimit(h, 20, 10)
	h = MaxBodyBytes(h, 1<<20)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = Logging(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "iam-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "iam-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

func (a *API) OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
	_, _ = w.Write(spec.OpenAPI)
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
