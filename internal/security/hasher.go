package security

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"

	"go-auth-service/internal/metrics"
	"go-auth-service/internal/model"
)

// MaxPasswordBytes is the longest input bcrypt accepts without truncation.
const MaxPasswordBytes = 72

// PasswordHasher runs bcrypt on a bounded number of concurrent workers.
// Callers beyond the bound wait for a slot until their context ends.
type PasswordHasher struct {
	cost    int
	workers *semaphore.Weighted
	dummy   []byte
}

func NewPasswordHasher(cost int, workers int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	if workers <= 0 {
		workers = 1
	}

	// Generated up front so the first unknown-email login costs one compare.
	dummy, _ := bcrypt.GenerateFromPassword([]byte("dummy-password-for-timing"), cost)

	return &PasswordHasher{
		cost:    cost,
		workers: semaphore.NewWeighted(int64(workers)),
		dummy:   dummy,
	}
}

func (h *PasswordHasher) Hash(ctx context.Context, password string) (string, error) {
	if len(password) > MaxPasswordBytes {
		return "", model.ErrPasswordTooLong
	}

	started := time.Now()
	defer func() { metrics.RecordHashDuration("hash", time.Since(started)) }()

	if err := h.workers.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("wait for hash worker: %w", err)
	}
	defer h.workers.Release(1)

	digest, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	return string(digest), nil
}

// Verify reports whether password matches digest. Malformed digests and
// cancelled waits report false. Inputs that can never match still pay for one
// compare against the dummy digest.
func (h *PasswordHasher) Verify(ctx context.Context, password string, digest string) bool {
	if len(password) > MaxPasswordBytes || digest == "" {
		h.VerifyDummy(ctx, password)
		return false
	}

	return h.compare(ctx, password, []byte(digest))
}

// VerifyDummy spends the same work as Verify against a throwaway digest so an
// unknown account costs as much as a wrong password.
func (h *PasswordHasher) VerifyDummy(ctx context.Context, password string) {
	if len(password) > MaxPasswordBytes {
		password = password[:MaxPasswordBytes]
	}
	_ = h.compare(ctx, password, h.dummy)
}

func (h *PasswordHasher) compare(ctx context.Context, password string, digest []byte) bool {
	started := time.Now()
	defer func() { metrics.RecordHashDuration("verify", time.Since(started)) }()

	if err := h.workers.Acquire(ctx, 1); err != nil {
		return false
	}
	defer h.workers.Release(1)

	return bcrypt.CompareHashAndPassword(digest, []byte(password)) == nil
}
