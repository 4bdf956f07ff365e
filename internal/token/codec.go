package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Purpose tags a token with the single flow it is valid for. Each purpose has
// its own TTL and registry key namespace.
type Purpose string

const (
	PurposeAuth              Purpose = "AUTH"
	PurposeRefresh           Purpose = "REFRESH"
	PurposeEmailVerification Purpose = "EMAIL_VERIFICATION"
	PurposeForgottenPassword Purpose = "FORGOTTEN_PASSWORD"
)

// Valid reports whether p is one of the closed set of purposes.
func (p Purpose) Valid() bool {
	switch p {
	case PurposeAuth, PurposeRefresh, PurposeEmailVerification, PurposeForgottenPassword:
		return true
	}
	return false
}

var (
	// ErrSigningFailure indicates the underlying cryptographic operation
	// failed. Treated as a fatal service error upstream.
	ErrSigningFailure = errors.New("token: signing failure")
	// ErrInvalidToken indicates a signature, audience, issuer or expiry
	// check failed. Maps to an unauthorized response upstream.
	ErrInvalidToken = errors.New("token: invalid or expired token")
)

// Claims is the signed claims set carried by every token. AUTH tokens embed
// organization, email and role so downstream authorization needs no store
// lookup; all other purposes embed a random token identifier mirrored in the
// registry.
type Claims struct {
	Purpose        Purpose `json:"token_type"`
	TokenID        string  `json:"token_id,omitempty"`
	OrganizationID string  `json:"organization_id,omitempty"`
	Email          string  `json:"email,omitempty"`
	Role           string  `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Extra carries the optional purpose-specific claims passed to Sign.
type Extra struct {
	TokenID        string
	OrganizationID string
	Email          string
	Role           string
}

// Codec signs and verifies compact expiring claims tokens with a
// process-wide HS256 secret.
type Codec struct {
	secret   []byte
	audience string
	issuer   string
	now      func() time.Time
}

// CodecOption configures Codec behavior.
type CodecOption func(*Codec)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) CodecOption {
	return func(c *Codec) {
		if fn != nil {
			c.now = fn
		}
	}
}

// NewCodec constructs a Codec for the given signing secret, audience and
// issuer.
func NewCodec(secret, audience, issuer string, opts ...CodecOption) (*Codec, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("token: signing secret is required")
	}
	if strings.TrimSpace(audience) == "" || strings.TrimSpace(issuer) == "" {
		return nil, errors.New("token: audience and issuer are required")
	}
	c := &Codec{
		secret:   []byte(secret),
		audience: audience,
		issuer:   issuer,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Sign builds and signs a claims set for the given subject and purpose with
// an absolute expiry of now + ttl.
func (c *Codec) Sign(subject string, purpose Purpose, ttl time.Duration, extra Extra) (string, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "", fmt.Errorf("%w: subject is required", ErrSigningFailure)
	}
	if !purpose.Valid() {
		return "", fmt.Errorf("%w: unknown purpose %q", ErrSigningFailure, purpose)
	}
	if ttl <= 0 {
		return "", fmt.Errorf("%w: ttl must be greater than zero", ErrSigningFailure)
	}

	now := c.now().UTC()
	claims := Claims{
		Purpose:        purpose,
		TokenID:        extra.TokenID,
		OrganizationID: extra.OrganizationID,
		Email:          extra.Email,
		Role:           extra.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings{c.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSigningFailure, err)
	}
	return signed, nil
}

// Verify checks signature, audience, issuer and expiry. It is purely
// cryptographic and structural; registry state is not consulted.
func (c *Codec) Verify(raw string) (*Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrInvalidToken
	}

	parser := jwt.NewParser(
		jwt.WithTimeFunc(c.now),
		jwt.WithAudience(c.audience),
		jwt.WithIssuer(c.issuer),
		jwt.WithExpirationRequired(),
	)
	parsed, err := parser.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return c.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if !claims.Purpose.Valid() || strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
