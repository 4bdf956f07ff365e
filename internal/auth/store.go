package auth

import "context"

// Store describes the persistence operations required by the service.
type Store interface {
	Accounts() AccountStore
	Organizations() OrganizationStore
	// WithinTx runs fn against a transaction-scoped Store. fn returning an
	// error rolls the transaction back; otherwise it commits.
	WithinTx(ctx context.Context, fn func(Store) error) error
}

// AccountStore manages account records.
type AccountStore interface {
	// Create persists a new account. A (email, organization) uniqueness
	// violation is reported as ErrDuplicateAccount; a missing organization
	// reference as ErrOrganizationNotFound.
	Create(ctx context.Context, account Account) (Account, error)
	// FindByEmail looks an account up within its organization scope.
	FindByEmail(ctx context.Context, email, organizationID string) (Account, error)
	FindByID(ctx context.Context, id string) (Account, error)
	// SetEmailVerified flips the verified flag on.
	SetEmailVerified(ctx context.Context, id string) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

// OrganizationStore manages organizations.
type OrganizationStore interface {
	Create(ctx context.Context, name string) (Organization, error)
	Find(ctx context.Context, id string) (Organization, error)
}
