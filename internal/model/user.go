// Package model defines the data structures used throughout the application.
package model

import "time"

// Role values. New accounts always start as RoleUser; there is no public
// elevation path.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents a registered account.
//
// PasswordHash is the full bcrypt output (salt and cost embedded). It is
// tagged `json:"-"` so it can never leak through an API response, and it is
// never logged.
//
// RefreshToken and RefreshTokenExpiresAt hold the single active refresh
// session. They are nullable as a pair: both set while a session exists,
// both nil after logout. The store never keeps superseded tokens — rotating
// or logging out overwrites them in place.
type User struct {
	ID                    string     `json:"id"        db:"id"`
	Email                 string     `json:"email"     db:"email"`
	PasswordHash          string     `json:"-"         db:"password_hash"`
	Role                  string     `json:"role"      db:"role"`
	RefreshToken          *string    `json:"-"         db:"refresh_token"`
	RefreshTokenExpiresAt *time.Time `json:"-"         db:"refresh_token_expires_at"`
	CreatedAt             time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt             time.Time  `json:"updatedAt" db:"updated_at"`
}

// Summary is the public projection of a User returned by the auth
// endpoints. Only email and role — never the ID, never credential material.
type Summary struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Summary returns the public projection of u.
func (u *User) Summary() Summary {
	return Summary{Email: u.Email, Role: u.Role}
}
