package service

import (
	"context"
	"time"

	"go-auth-service/internal/model"
)

// UserStore persists credentials. Create must report model.ErrEmailAlreadyExists
// from the storage layer's own uniqueness check.
type UserStore interface {
	Create(ctx context.Context, user model.User) error
	FindByEmail(ctx context.Context, email string) (model.User, error)
	UpdatePasswordHash(ctx context.Context, email string, passwordHash string) error
}

type PasswordHasher interface {
	Hash(ctx context.Context, password string) (string, error)
	Verify(ctx context.Context, password string, digest string) bool
	VerifyDummy(ctx context.Context, password string)
}

type TokenIssuer interface {
	Issue(claims model.AuthClaims, ttl time.Duration) (string, model.AuthClaims, error)
	Verify(tokenString string, expectedType string) (model.AuthClaims, error)
}

// ResetNotifier delivers a reset token to its owner.
type ResetNotifier interface {
	SendPasswordReset(ctx context.Context, to string, token string) error
}

// ResetLedger remembers redeemed reset tokens until they expire. Redeem
// stores the new hash and spends the token atomically, reporting false when
// the token was already spent.
type ResetLedger interface {
	Redeem(ctx context.Context, tokenID string, email string, expiresAt time.Time, passwordHash string) (bool, error)
	CleanExpired(ctx context.Context) (int64, error)
}
