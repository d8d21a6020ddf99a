package model

import "time"

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Token types carried in the "typ" claim.
const (
	TokenTypeAccess = "access"
	TokenTypeReset  = "reset"
)

type AuthClaims struct {
	Subject   string    `json:"sub"`
	Name      string    `json:"name,omitempty"`
	Type      string    `json:"typ"`
	TokenID   string    `json:"jti"`
	IssuedAt  time.Time `json:"iat"`
	ExpiresAt time.Time `json:"exp"`
}
