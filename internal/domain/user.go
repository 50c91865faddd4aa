package domain

import "time"

// AuthProvider identifies how an account was created.
type AuthProvider string

const (
	AuthProviderLocal  AuthProvider = "local"
	AuthProviderGoogle AuthProvider = "google"
)

// User represents an account that owns logs, goals and preferences.
type User struct {
	ID            int64        `json:"id" db:"id"`
	Email         string       `json:"email" db:"email"`
	PasswordHash  *string      `json:"-" db:"password_hash"`
	Provider      AuthProvider `json:"provider" db:"provider"`
	ProviderID    *string      `json:"-" db:"provider_id"`
	DisplayName   string       `json:"display_name" db:"display_name"`
	Timezone      string       `json:"timezone" db:"timezone"`
	EmailVerified bool         `json:"email_verified" db:"email_verified"`
	CreatedAt     time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at" db:"updated_at"`
}

// Location resolves the user's IANA timezone, falling back to UTC.
func (u User) Location() *time.Location {
	loc, err := time.LoadLocation(u.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// EmailVerification is a one-time token sent to confirm an address.
type EmailVerification struct {
	ID         int64      `json:"id" db:"id"`
	UserID     int64      `json:"user_id" db:"user_id"`
	Token      string     `json:"-" db:"token"`
	ExpiresAt  time.Time  `json:"expires_at" db:"expires_at"`
	VerifiedAt *time.Time `json:"verified_at,omitempty" db:"verified_at"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
}

// Expired reports whether the token is past its TTL at the given time.
func (v EmailVerification) Expired(at time.Time) bool {
	return at.After(v.ExpiresAt)
}
