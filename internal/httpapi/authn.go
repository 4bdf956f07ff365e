package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dperkosan/iam-service/internal/auth"
	"github.com/dperkosan/iam-service/internal/token"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

// Everything outside this list requires a verified AUTH token.
var publicPaths = []string{
	"/",
	"/healthz",
	"/readyz",
	"/v1/info",
	"/metrics",
	"/openapi.yaml",
}
var publicPrefixes = []string{
	"/auth/",
}

func (a *API) withAuth(next http.Handler) http.Handler {
	if a == nil || a.codec == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		if isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		raw, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, err.Error())
			return
		}

		claims, err := a.codec.Verify(raw)
		if err != nil || claims.Purpose != token.PurposeAuth {
			writeError(w, r, http.StatusUnauthorized, "Unauthorized: Invalid or expired token")
			return
		}

		ctx := auth.ContextWithActiveUser(r.Context(), auth.ActiveUser{
			ID:             claims.Subject,
			OrganizationID: claims.OrganizationID,
			Email:          claims.Email,
			Role:           auth.Role(claims.Role),
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	user, ok := auth.ActiveUserFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "Unauthorized: Invalid or expired token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":             user.ID,
		"organizationId": user.OrganizationID,
		"email":          user.Email,
		"role":           user.Role,
	})
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	raw := strings.TrimSpace(header[len(bearer):])
	if raw == "" {
		return "", errors.New("missing bearer token")
	}
	return raw, nil
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	for _, prefix := range publicPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
