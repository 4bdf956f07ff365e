package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config carries all process configuration, loaded from the environment once
// at startup and passed down as an explicit dependency.
type Config struct {
	Port      string
	PGDSN     string
	RedisAddr string

	JWTSecret   string
	JWTAudience string
	JWTIssuer   string

	AuthTokenTTL              time.Duration
	RefreshTokenTTL           time.Duration
	EmailVerificationTokenTTL time.Duration
	ForgottenPasswordTokenTTL time.Duration

	FrontendURL  string
	MailFrom     string
	ResendAPIKey string
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getenvSeconds(key string, def int) (time.Duration, error) {
	raw := getenv(key, strconv.Itoa(def))
	secs, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, raw)
	}
	if secs <= 0 {
		return 0, fmt.Errorf("%s must be a positive number of seconds", key)
	}
	return time.Duration(secs) * time.Second, nil
}

// Load reads configuration from the environment and validates it.
func Load() (*Config, error) {
	c := &Config{
		Port:         getenv("IAM_PORT", "8080"),
		PGDSN:        getenv("IAM_PG_DSN", ""),
		RedisAddr:    getenv("IAM_REDIS_ADDR", "localhost:6379"),
		JWTSecret:    strings.TrimSpace(getenv("IAM_JWT_SECRET", "")),
		JWTAudience:  getenv("IAM_JWT_AUDIENCE", "iam-service"),
		JWTIssuer:    getenv("IAM_JWT_ISSUER", "iam-service"),
		FrontendURL:  getenv("IAM_FRONTEND_URL", "http://localhost:3000"),
		MailFrom:     getenv("IAM_MAIL_FROM", "no-reply@iam-service.local"),
		ResendAPIKey: getenv("RESEND_API_KEY", ""),
	}

	if c.JWTSecret == "" {
		return nil, errors.New("IAM_JWT_SECRET must be set")
	}
	if _, err := strconv.Atoi(c.Port); err != nil {
		return nil, fmt.Errorf("invalid IAM_PORT: %s", c.Port)
	}

	var err error
	if c.AuthTokenTTL, err = getenvSeconds("IAM_AUTH_TOKEN_TTL", 3600); err != nil {
		return nil, err
	}
	if c.RefreshTokenTTL, err = getenvSeconds("IAM_REFRESH_TOKEN_TTL", 86400); err != nil {
		return nil, err
	}
	if c.EmailVerificationTokenTTL, err = getenvSeconds("IAM_EMAIL_VERIFICATION_TOKEN_TTL", 2592000); err != nil {
		return nil, err
	}
	if c.ForgottenPasswordTokenTTL, err = getenvSeconds("IAM_FORGOTTEN_PASSWORD_TOKEN_TTL", 2592000); err != nil {
		return nil, err
	}

	return c, nil
}
