// Package auth handles user accounts and API sessions. Sessions are opaque
// random tokens stored in Redis and presented as "Authorization: Bearer".
// Every other plugin learns who is calling through GetUserID.
package auth

import (
	"time"
)

// User represents a registered user.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never expose in JSON responses.
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// PublicUser is the identity other users are allowed to see (e.g. the owner
// of a tag shared with them).
type PublicUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Public strips everything but the public identity.
func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Name: u.Name, Email: u.Email}
}

// --- Request DTOs ---

// RegisterInput is the body of POST /api/auth/register.
type RegisterInput struct {
	Name                 string `json:"name" validate:"required,max=255,plaintext"`
	Email                string `json:"email" validate:"required,email,max=255"`
	Password             string `json:"password" validate:"required,min=8,max=128"`
	PasswordConfirmation string `json:"password_confirmation" validate:"required,eqfield=Password"`
}

// LoginInput is the body of POST /api/auth/login.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ProfileInput is the body of PUT /api/auth/profile.
type ProfileInput struct {
	Name  string `json:"name" validate:"required,max=255,plaintext"`
	Email string `json:"email" validate:"required,email,max=255"`
}

// PasswordInput is the body of PUT /api/auth/password.
type PasswordInput struct {
	CurrentPassword      string `json:"current_password" validate:"required"`
	Password             string `json:"password" validate:"required,min=8,max=128"`
	PasswordConfirmation string `json:"password_confirmation" validate:"required,eqfield=Password"`
}

// --- Responses ---

// TokenResponse is returned by register and login.
type TokenResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

// --- Session ---

// Session is the JSON value stored in Redis under "session:<token>".
type Session struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}
