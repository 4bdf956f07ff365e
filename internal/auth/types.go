package auth

import "time"

// Role is the closed set of account roles.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// Organization is the tenant boundary. Accounts cannot exist without a valid
// organization reference.
type Organization struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Account is the identity record. (Email, OrganizationID) is unique. The
// password hash never leaves the service boundary.
type Account struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organizationId"`
	FirstName      string    `json:"firstName"`
	LastName       string    `json:"lastName"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"-"`
	Role           Role      `json:"role"`
	EmailVerified  bool      `json:"emailVerified"`
	Enabled        bool      `json:"enabled"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// RegisterInput is the draft from which a new account is created. Validation
// of shape and password strength happens at the boundary layer.
type RegisterInput struct {
	FirstName      string
	LastName       string
	Email          string
	Password       string
	Role           Role
	OrganizationID string
}

// Tokens is an access/refresh pair returned by Login and RefreshToken.
type Tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}
