package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dperkosan/iam-service/internal/mailer"
	"github.com/dperkosan/iam-service/internal/obs"
	"github.com/dperkosan/iam-service/internal/token"
)

// Registry is the consumer-side view of the token registry.
type Registry interface {
	Insert(ctx context.Context, accountID string, purpose token.Purpose, tokenID string, ttl time.Duration) error
	Validate(ctx context.Context, accountID string, purpose token.Purpose, tokenID string) error
	Invalidate(ctx context.Context, accountID string, purpose token.Purpose) error
}

// TTLConfig carries the configured lifetime per token purpose.
type TTLConfig struct {
	Auth              time.Duration
	Refresh           time.Duration
	EmailVerification time.Duration
	ForgottenPassword time.Duration
}

func (c TTLConfig) forPurpose(p token.Purpose) time.Duration {
	switch p {
	case token.PurposeAuth:
		return c.Auth
	case token.PurposeRefresh:
		return c.Refresh
	case token.PurposeEmailVerification:
		return c.EmailVerification
	case token.PurposeForgottenPassword:
		return c.ForgottenPassword
	}
	return 0
}

func (c TTLConfig) validate() error {
	for _, ttl := range []time.Duration{c.Auth, c.Refresh, c.EmailVerification, c.ForgottenPassword} {
		if ttl <= 0 {
			return errors.New("auth: every token ttl must be greater than zero")
		}
	}
	return nil
}

// Service orchestrates accounts, tokens, the registry and notifications. It
// is stateless per request; all coordination happens through the injected
// collaborators.
type Service struct {
	store       Store
	registry    Registry
	codec       *token.Codec
	mailer      mailer.Mailer
	ttl         TTLConfig
	frontendURL string

	newTokenID func() string
}

// Option configures Service behavior.
type Option func(*Service)

// WithTokenIDGenerator overrides the random token-identifier source
// (useful for tests).
func WithTokenIDGenerator(fn func() string) Option {
	return func(s *Service) {
		if fn != nil {
			s.newTokenID = fn
		}
	}
}

// NewService constructs the authentication service.
func NewService(store Store, registry Registry, codec *token.Codec, m mailer.Mailer, ttl TTLConfig, frontendURL string, opts ...Option) (*Service, error) {
	if store == nil || registry == nil || codec == nil || m == nil {
		return nil, errors.New("auth: store, registry, codec and mailer are required")
	}
	if err := ttl.validate(); err != nil {
		return nil, err
	}
	svc := &Service{
		store:       store,
		registry:    registry,
		codec:       codec,
		mailer:      m,
		ttl:         ttl,
		frontendURL: frontendURL,
		newTokenID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// domainError reports whether err is one of the named error kinds that cross
// the service boundary unchanged.
func domainError(err error) bool {
	for _, known := range []error{
		ErrInvalidCredentials, ErrAccountNotEnabled, ErrEmailNotVerified,
		ErrAccountNotFound, ErrAlreadyVerified, ErrDuplicateAccount,
		ErrOrganizationNotFound,
		token.ErrInvalidToken, token.ErrTokenRevoked,
	} {
		if errors.Is(err, known) {
			return true
		}
	}
	return false
}

// done applies the propagation policy: domain errors pass through, anything
// else is logged with full detail and replaced with a generic failure.
func (s *Service) done(op string, err error) error {
	switch {
	case err == nil:
		obs.ObserveAuthOperation(op, "success")
		return nil
	case domainError(err):
		obs.ObserveAuthOperation(op, "rejected")
		return err
	default:
		obs.LogError("auth operation failed", err, map[string]any{"operation": op})
		obs.ObserveAuthOperation(op, "failure")
		return ErrServiceFailure
	}
}

// issueScoped mints a purpose-scoped token with a fresh random identifier and
// records the identifier in the registry, superseding any prior entry for the
// same (account, purpose).
func (s *Service) issueScoped(ctx context.Context, accountID string, purpose token.Purpose) (string, error) {
	tokenID := s.newTokenID()
	ttl := s.ttl.forPurpose(purpose)
	signed, err := s.codec.Sign(accountID, purpose, ttl, token.Extra{TokenID: tokenID})
	if err != nil {
		return "", err
	}
	if err := s.registry.Insert(ctx, accountID, purpose, tokenID, ttl); err != nil {
		return "", err
	}
	obs.ObserveTokenIssued(string(purpose))
	return signed, nil
}

// mintPair issues the AUTH+REFRESH pair returned by Login and RefreshToken.
// AUTH tokens are stateless and carry org/email/role; only the refresh token
// gets a registry entry.
func (s *Service) mintPair(ctx context.Context, acc Account) (Tokens, error) {
	access, err := s.codec.Sign(acc.ID, token.PurposeAuth, s.ttl.Auth, token.Extra{
		OrganizationID: acc.OrganizationID,
		Email:          acc.Email,
		Role:           string(acc.Role),
	})
	if err != nil {
		return Tokens{}, err
	}
	obs.ObserveTokenIssued(string(token.PurposeAuth))

	refresh, err := s.issueScoped(ctx, acc.ID, token.PurposeRefresh)
	if err != nil {
		return Tokens{}, err
	}
	return Tokens{AccessToken: access, RefreshToken: refresh}, nil
}

// verifyPurpose checks a token cryptographically and structurally, then pins
// it to the expected purpose.
func (s *Service) verifyPurpose(raw string, want token.Purpose) (*token.Claims, error) {
	claims, err := s.codec.Verify(raw)
	if err != nil {
		return nil, err
	}
	if claims.Purpose != want {
		return nil, token.ErrInvalidToken
	}
	return claims, nil
}

// CreateOrganization provisions a new tenant. Accounts always reference an
// organization, so this is the entry point for onboarding.
func (s *Service) CreateOrganization(ctx context.Context, name string) (Organization, error) {
	const op = "create_organization"

	org, err := s.store.Organizations().Create(ctx, name)
	if err != nil {
		return Organization{}, s.done(op, err)
	}
	return org, s.done(op, nil)
}

// Register creates an account, issues its email-verification token and sends
// the verification notification. The password is hashed before the
// transaction begins; the account insert, registry write and notification run
// inside one error boundary, so a failure in any step fails registration as a
// whole.
func (s *Service) Register(ctx context.Context, input RegisterInput) (Account, error) {
	const op = "register"

	hash, err := HashPassword(input.Password)
	if err != nil {
		return Account{}, s.done(op, err)
	}

	var created Account
	err = s.store.WithinTx(ctx, func(tx Store) error {
		acc, err := tx.Accounts().Create(ctx, Account{
			OrganizationID: input.OrganizationID,
			FirstName:      input.FirstName,
			LastName:       input.LastName,
			Email:          input.Email,
			PasswordHash:   hash,
			Role:           input.Role,
			EmailVerified:  false,
			Enabled:        true,
		})
		if err != nil {
			return err
		}
		created = acc

		signed, err := s.issueScoped(ctx, acc.ID, token.PurposeEmailVerification)
		if err != nil {
			return err
		}
		subject, html := mailer.VerificationEmail(s.frontendURL, signed)
		if _, err := s.mailer.Send(ctx, acc.Email, subject, html); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return Account{}, s.done(op, err)
	}
	return created, s.done(op, nil)
}

// Login authenticates credentials and issues an AUTH+REFRESH pair. A missing
// account and a wrong password surface as the same error; enabled and
// verified flags are checked only after the credentials succeed.
func (s *Service) Login(ctx context.Context, email, password, organizationID string) (Tokens, error) {
	const op = "login"

	acc, err := s.store.Accounts().FindByEmail(ctx, email, organizationID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			err = ErrInvalidCredentials
		}
		return Tokens{}, s.done(op, err)
	}
	if err := VerifyPassword(acc.PasswordHash, password); err != nil {
		return Tokens{}, s.done(op, ErrInvalidCredentials)
	}
	if !acc.Enabled {
		return Tokens{}, s.done(op, ErrAccountNotEnabled)
	}
	if !acc.EmailVerified {
		return Tokens{}, s.done(op, ErrEmailNotVerified)
	}

	pair, err := s.mintPair(ctx, acc)
	if err != nil {
		return Tokens{}, s.done(op, err)
	}
	return pair, s.done(op, nil)
}

// RefreshToken rotates a refresh token. Refresh tokens are single-use: the
// consumed registry entry is invalidated before a fresh pair is minted.
// Unlike Login, a missing account surfaces as not-found, since possession of
// a valid refresh token already proved prior authentication.
func (s *Service) RefreshToken(ctx context.Context, refreshToken string) (Tokens, error) {
	const op = "refresh_token"

	claims, err := s.verifyPurpose(refreshToken, token.PurposeRefresh)
	if err != nil {
		return Tokens{}, s.done(op, err)
	}
	acc, err := s.store.Accounts().FindByID(ctx, claims.Subject)
	if err != nil {
		return Tokens{}, s.done(op, err)
	}
	if err := s.registry.Validate(ctx, acc.ID, token.PurposeRefresh, claims.TokenID); err != nil {
		return Tokens{}, s.done(op, err)
	}
	if err := s.registry.Invalidate(ctx, acc.ID, token.PurposeRefresh); err != nil {
		return Tokens{}, s.done(op, err)
	}

	pair, err := s.mintPair(ctx, acc)
	if err != nil {
		return Tokens{}, s.done(op, err)
	}
	return pair, s.done(op, nil)
}

// SendVerifyAccountEmail mints and registers a fresh verification token and
// sends it. An unknown (email, organization) pair reports sent=false with no
// error and no side effects.
func (s *Service) SendVerifyAccountEmail(ctx context.Context, email, organizationID string) (bool, error) {
	const op = "send_verify_account_email"

	acc, err := s.store.Accounts().FindByEmail(ctx, email, organizationID)
	if errors.Is(err, ErrAccountNotFound) {
		return false, s.done(op, nil)
	}
	if err != nil {
		return false, s.done(op, err)
	}
	if acc.EmailVerified {
		return false, s.done(op, ErrAlreadyVerified)
	}

	signed, err := s.issueScoped(ctx, acc.ID, token.PurposeEmailVerification)
	if err != nil {
		return false, s.done(op, err)
	}
	subject, html := mailer.VerificationEmail(s.frontendURL, signed)
	if _, err := s.mailer.Send(ctx, acc.Email, subject, html); err != nil {
		return false, s.done(op, err)
	}
	return true, s.done(op, nil)
}

// ResendVerifyAccountEmail requires proof of a prior token: the old token
// must still verify and its identifier must still be the authoritative one.
// Only then is a replacement minted, registered and sent.
func (s *Service) ResendVerifyAccountEmail(ctx context.Context, oldToken string) error {
	const op = "resend_verify_account_email"

	claims, err := s.verifyPurpose(oldToken, token.PurposeEmailVerification)
	if err != nil {
		return s.done(op, err)
	}
	acc, err := s.store.Accounts().FindByID(ctx, claims.Subject)
	if err != nil {
		return s.done(op, err)
	}
	if acc.EmailVerified {
		return s.done(op, ErrAlreadyVerified)
	}
	if err := s.registry.Validate(ctx, acc.ID, token.PurposeEmailVerification, claims.TokenID); err != nil {
		return s.done(op, err)
	}

	signed, err := s.issueScoped(ctx, acc.ID, token.PurposeEmailVerification)
	if err != nil {
		return s.done(op, err)
	}
	subject, html := mailer.VerificationEmail(s.frontendURL, signed)
	if _, err := s.mailer.Send(ctx, acc.Email, subject, html); err != nil {
		return s.done(op, err)
	}
	return s.done(op, nil)
}

// VerifyAccount consumes a verification token, flips emailVerified exactly
// once, and sends the welcome notification.
func (s *Service) VerifyAccount(ctx context.Context, raw string) error {
	const op = "verify_account"

	claims, err := s.verifyPurpose(raw, token.PurposeEmailVerification)
	if err != nil {
		return s.done(op, err)
	}
	acc, err := s.store.Accounts().FindByID(ctx, claims.Subject)
	if err != nil {
		return s.done(op, err)
	}
	if acc.EmailVerified {
		return s.done(op, ErrAlreadyVerified)
	}
	if err := s.registry.Validate(ctx, acc.ID, token.PurposeEmailVerification, claims.TokenID); err != nil {
		return s.done(op, err)
	}
	if err := s.registry.Invalidate(ctx, acc.ID, token.PurposeEmailVerification); err != nil {
		return s.done(op, err)
	}
	if err := s.store.Accounts().SetEmailVerified(ctx, acc.ID); err != nil {
		return s.done(op, err)
	}

	subject, html := mailer.WelcomeEmail(acc.FirstName)
	if _, err := s.mailer.Send(ctx, acc.Email, subject, html); err != nil {
		return s.done(op, err)
	}
	return s.done(op, nil)
}

// SendResetPasswordEmail mirrors SendVerifyAccountEmail for the
// forgotten-password flow, including the unknown-recipient behavior.
func (s *Service) SendResetPasswordEmail(ctx context.Context, email, organizationID string) (bool, error) {
	const op = "send_reset_password_email"

	acc, err := s.store.Accounts().FindByEmail(ctx, email, organizationID)
	if errors.Is(err, ErrAccountNotFound) {
		return false, s.done(op, nil)
	}
	if err != nil {
		return false, s.done(op, err)
	}

	signed, err := s.issueScoped(ctx, acc.ID, token.PurposeForgottenPassword)
	if err != nil {
		return false, s.done(op, err)
	}
	subject, html := mailer.ResetPasswordEmail(s.frontendURL, signed)
	if _, err := s.mailer.Send(ctx, acc.Email, subject, html); err != nil {
		return false, s.done(op, err)
	}
	return true, s.done(op, nil)
}

// ResendResetPasswordEmail mirrors ResendVerifyAccountEmail for the
// forgotten-password flow: a still-live prior token is required.
func (s *Service) ResendResetPasswordEmail(ctx context.Context, oldToken string) error {
	const op = "resend_reset_password_email"

	claims, err := s.verifyPurpose(oldToken, token.PurposeForgottenPassword)
	if err != nil {
		return s.done(op, err)
	}
	acc, err := s.store.Accounts().FindByID(ctx, claims.Subject)
	if err != nil {
		return s.done(op, err)
	}
	if err := s.registry.Validate(ctx, acc.ID, token.PurposeForgottenPassword, claims.TokenID); err != nil {
		return s.done(op, err)
	}

	signed, err := s.issueScoped(ctx, acc.ID, token.PurposeForgottenPassword)
	if err != nil {
		return s.done(op, err)
	}
	subject, html := mailer.ResetPasswordEmail(s.frontendURL, signed)
	if _, err := s.mailer.Send(ctx, acc.Email, subject, html); err != nil {
		return s.done(op, err)
	}
	return s.done(op, nil)
}

// ResetPassword consumes a forgotten-password token, hashes and persists the
// new password, and invalidates the registry entry.
func (s *Service) ResetPassword(ctx context.Context, raw, newPassword string) error {
	const op = "reset_password"

	claims, err := s.verifyPurpose(raw, token.PurposeForgottenPassword)
	if err != nil {
		return s.done(op, err)
	}
	acc, err := s.store.Accounts().FindByID(ctx, claims.Subject)
	if err != nil {
		return s.done(op, err)
	}
	if err := s.registry.Validate(ctx, acc.ID, token.PurposeForgottenPassword, claims.TokenID); err != nil {
		return s.done(op, err)
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return s.done(op, err)
	}
	if err := s.store.Accounts().UpdatePassword(ctx, acc.ID, hash); err != nil {
		return s.done(op, err)
	}
	if err := s.registry.Invalidate(ctx, acc.ID, token.PurposeForgottenPassword); err != nil {
		return s.done(op, err)
	}
	return s.done(op, nil)
}
