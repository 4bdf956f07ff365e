package auth

import "errors"

var (
	// ErrInvalidCredentials covers both an unknown account and a wrong
	// password, deliberately merged so responses do not leak existence.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrAccountNotEnabled  = errors.New("auth: account not enabled")
	ErrEmailNotVerified   = errors.New("auth: email not verified")
	// ErrAccountNotFound is surfaced only by operations where a prior
	// valid token already proved possession.
	ErrAccountNotFound      = errors.New("auth: account not found")
	ErrAlreadyVerified      = errors.New("auth: account already verified")
	ErrDuplicateAccount     = errors.New("auth: email already exists")
	ErrOrganizationNotFound = errors.New("auth: organization not found")
	// ErrServiceFailure replaces any unexpected downstream error before it
	// crosses the service boundary. Full detail is logged, never exposed.
	ErrServiceFailure = errors.New("auth: service failure")
)
