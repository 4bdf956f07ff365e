package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/dperkosan/iam-service/internal/audit"
	"github.com/dperkosan/iam-service/internal/auth"
	"github.com/dperkosan/iam-service/internal/token"
)

type registerRequest struct {
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	Role           string `json:"role"`
	OrganizationID string `json:"organizationId"`
}

type loginRequest struct {
	Email          string `json:"email"`
	Password       string `json:"password"`
	OrganizationID string `json:"organizationId"`
}

type refreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type sendEmailRequest struct {
	Email          string `json:"email"`
	OrganizationID string `json:"organizationId"`
}

type tokenRequest struct {
	Token string `json:"token"`
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

const minPasswordLength = 8

func (req registerRequest) validate() []string {
	var problems []string
	if strings.TrimSpace(req.FirstName) == "" {
		problems = append(problems, "firstName should not be empty")
	}
	if strings.TrimSpace(req.LastName) == "" {
		problems = append(problems, "lastName should not be empty")
	}
	if !strings.Contains(req.Email, "@") {
		problems = append(problems, "email must be an email")
	}
	if req.Password == "" {
		problems = append(problems, "password should not be empty")
	}
	if len(req.Password) < minPasswordLength {
		problems = append(problems, "password must be longer than or equal to 8 characters")
	}
	if !auth.Role(req.Role).Valid() {
		problems = append(problems, "role must be one of the following values: admin, user")
	}
	if strings.TrimSpace(req.OrganizationID) == "" {
		problems = append(problems, "organizationId should not be empty")
	}
	return problems
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if problems := req.validate(); len(problems) > 0 {
		writeError(w, r, http.StatusBadRequest, strings.Join(problems, ", "))
		return
	}

	account, err := a.svc.Register(r.Context(), auth.RegisterInput{
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Email:          req.Email,
		Password:       req.Password,
		Role:           auth.Role(req.Role),
		OrganizationID: req.OrganizationID,
	})
	if err != nil {
		handleAuthError(w, r, err, "Failed to register user")
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.register", map[string]any{
		"account_id":      account.ID,
		"organization_id": account.OrganizationID,
		"email":           account.Email,
	})
	writeJSON(w, http.StatusCreated, account)
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	pair, err := a.svc.Login(r.Context(), req.Email, req.Password, req.OrganizationID)
	if err != nil {
		handleAuthError(w, r, err, "Failed to log in")
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.login", map[string]any{
		"email":           req.Email,
		"organization_id": req.OrganizationID,
	})
	writeJSON(w, http.StatusOK, pair)
}

func (a *API) handleRefreshToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req refreshTokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	pair, err := a.svc.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		handleAuthError(w, r, err, "Failed to refresh token")
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.refresh_token", nil)
	writeJSON(w, http.StatusOK, pair)
}

func (a *API) handleSendVerifyAccountEmail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req sendEmailRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	sent, err := a.svc.SendVerifyAccountEmail(r.Context(), req.Email, req.OrganizationID)
	if err != nil {
		handleAuthError(w, r, err, "Failed to insert token")
		return
	}
	if !sent {
		// Unknown recipients get an empty success so the endpoint does not
		// reveal which emails are registered.
		writeJSON(w, http.StatusOK, struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, "Email sent successfully")
}

func (a *API) handleResendVerifyAccountEmail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req tokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.svc.ResendVerifyAccountEmail(r.Context(), req.Token); err != nil {
		handleAuthError(w, r, err, "Failed to resend verification email")
		return
	}
	writeJSON(w, http.StatusOK, "Email sent successfully")
}

func (a *API) handleVerifyAccount(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req tokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.svc.VerifyAccount(r.Context(), req.Token); err != nil {
		handleAuthError(w, r, err, "Failed to verify account")
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.verify_account", nil)
	writeJSON(w, http.StatusOK, "Account is successfully verified!")
}

func (a *API) handleSendResetPasswordEmail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req sendEmailRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	sent, err := a.svc.SendResetPasswordEmail(r.Context(), req.Email, req.OrganizationID)
	if err != nil {
		handleAuthError(w, r, err, "Failed to insert token")
		return
	}
	if !sent {
		writeJSON(w, http.StatusOK, struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, "Email sent successfully")
}

func (a *API) handleResendResetPasswordEmail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req tokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.svc.ResendResetPasswordEmail(r.Context(), req.Token); err != nil {
		handleAuthError(w, r, err, "Failed to resend reset password email")
		return
	}
	writeJSON(w, http.StatusOK, "Email sent successfully")
}

func (a *API) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req resetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Password) < minPasswordLength {
		writeError(w, r, http.StatusBadRequest, "password must be longer than or equal to 8 characters")
		return
	}
	if err := a.svc.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		handleAuthError(w, r, err, "Failed to reset password")
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.reset_password", nil)
	writeJSON(w, http.StatusOK, "Password is successfully changed!")
}

type createOrganizationRequest struct {
	Name string `json:"name"`
}

// handleOrganizations provisions tenants. Admin-only.
func (a *API) handleOrganizations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	user, ok := auth.ActiveUserFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "Unauthorized: Invalid or expired token")
		return
	}
	if user.Role != auth.RoleAdmin {
		writeError(w, r, http.StatusForbidden, "Forbidden: admin role required")
		return
	}
	var req createOrganizationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, r, http.StatusBadRequest, "name should not be empty")
		return
	}
	org, err := a.svc.CreateOrganization(r.Context(), req.Name)
	if err != nil {
		handleAuthError(w, r, err, "Failed to create organization")
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.organization.create", map[string]any{
		"organization_id": org.ID,
		"name":            org.Name,
	})
	w.Header().Set("Location", "/v1/organizations/"+org.ID)
	writeJSON(w, http.StatusCreated, org)
}

// handleAuthError maps service errors to responses. Unknown errors collapse
// into a generic service failure so internals never leak.
func handleAuthError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, auth.ErrDuplicateAccount):
		writeError(w, r, http.StatusBadRequest, "Email already exists")
	case errors.Is(err, auth.ErrOrganizationNotFound):
		writeError(w, r, http.StatusBadRequest, "Organization not found")
	case errors.Is(err, auth.ErrAlreadyVerified):
		writeError(w, r, http.StatusBadRequest, "Email is already verified.")
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, r, http.StatusUnauthorized, "User credentials are invalid.")
	case errors.Is(err, auth.ErrAccountNotEnabled):
		writeError(w, r, http.StatusUnauthorized, "User account is not enabled.")
	case errors.Is(err, auth.ErrEmailNotVerified):
		writeError(w, r, http.StatusUnauthorized, "User email is not verified.")
	case errors.Is(err, token.ErrInvalidToken):
		writeError(w, r, http.StatusUnauthorized, "Unauthorized: Invalid or expired token")
	case errors.Is(err, token.ErrTokenRevoked):
		writeError(w, r, http.StatusUnauthorized, "Token has been revoked or is invalid")
	case errors.Is(err, auth.ErrAccountNotFound):
		writeError(w, r, http.StatusNotFound, "User not found")
	default:
		writeError(w, r, http.StatusInternalServerError, "Service Error: "+fallback)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"message": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}
