package repository

import (
	"context"
	"fmt"
	"time"

	"go-auth-service/internal/model"
	"go-auth-service/internal/util"
)

// TokenRepository records reset-token identifiers that have already been
// redeemed. Rows only need to outlive the token they describe.
type TokenRepository struct {
	pool dbPool
}

func NewTokenRepository(pool dbPool) *TokenRepository {
	return &TokenRepository{pool: pool}
}

// Redeem records tokenID and stores the new password hash in one
// transaction. It reports false, changing nothing, when tokenID was already
// redeemed. A failed update leaves the token unspent.
func (r *TokenRepository) Redeem(ctx context.Context, tokenID string, email string, expiresAt time.Time, passwordHash string) (bool, error) {
	email = util.NormalizeEmail(email)
	now := time.Now().UTC()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin reset redemption: %w", err)
	}
	defer func() {
		// no-op once committed
		_ = tx.Rollback(ctx)
	}()

	tag, err := tx.Exec(ctx,
		`INSERT INTO consumed_reset_tokens (jti, email, consumed_at, expires_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (jti) DO NOTHING`,
		tokenID, email, now, expiresAt)
	if err != nil {
		return false, fmt.Errorf("mark reset token consumed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	tag, err = tx.Exec(ctx,
		`UPDATE users SET password_hash = $2, updated_at = $3 WHERE email = $1`,
		email, passwordHash, now)
	if err != nil {
		return false, fmt.Errorf("update password hash: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, model.ErrUserNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit reset redemption: %w", err)
	}
	return true, nil
}

func (r *TokenRepository) CleanExpired(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM consumed_reset_tokens WHERE expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("clean expired reset tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}
