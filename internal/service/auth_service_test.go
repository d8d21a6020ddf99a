package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"go-auth-service/internal/event"
	"go-auth-service/internal/model"
	"go-auth-service/internal/security"
	"go-auth-service/pkg/apierror"
)

func TestLoginReturnsTokenForSubject(t *testing.T) {
	t.Parallel()
	ts, err := newTestServices(true)
	require.NoError(t, err)

	_, err = ts.registration.Register(context.Background(), registerRequest("alice@example.com", "Str0ng!Pass"))
	require.NoError(t, err)

	resp, err := ts.auth.Login(context.Background(), model.LoginRequest{Email: "ALICE@example.com", Password: "Str0ng!Pass"})
	require.NoError(t, err)
	require.Equal(t, "Login successful", resp.Message)
	require.Equal(t, "bearer", resp.TokenType)

	identity, err := ts.auth.WhoAmI(resp.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", identity.Email)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	t.Parallel()
	ts, err := newTestServices(true)
	require.NoError(t, err)

	_, err = ts.registration.Register(context.Background(), registerRequest("alice@example.com", "Str0ng!Pass"))
	require.NoError(t, err)

	_, wrongPassword := ts.auth.Login(context.Background(), model.LoginRequest{Email: "alice@example.com", Password: "Wr0ng!Pass"})
	_, unknownEmail := ts.auth.Login(context.Background(), model.LoginRequest{Email: "nobody@example.com", Password: "Str0ng!Pass"})
	_, malformed := ts.auth.Login(context.Background(), model.LoginRequest{})

	first := requireAPIError(t, wrongPassword, apierror.KindAuthentication, "INVALID_CREDENTIALS")
	second := requireAPIError(t, unknownEmail, apierror.KindAuthentication, "INVALID_CREDENTIALS")
	third := requireAPIError(t, malformed, apierror.KindAuthentication, "INVALID_CREDENTIALS")
	require.Equal(t, *first, *second)
	require.Equal(t, *first, *third)
	require.Equal(t, "Invalid credentials", first.Message)
	require.Equal(t, 401, first.HTTPStatus)

	require.Contains(t, ts.bus.types(), event.TypeLoginFailed)
}

func TestLoginOverlongPasswordTimingMatchesUnknownEmail(t *testing.T) {
	tokens, err := security.NewTokenService("service-test-secret")
	require.NoError(t, err)
	hasher := security.NewPasswordHasher(10, 2)
	store := newMemoryStore()
	ctx := context.Background()

	digest, err := hasher.Hash(ctx, "Str0ng!Pass")
	require.NoError(t, err)
	require.NoError(t, store.Create(ctx, model.User{Email: "alice@example.com", Username: "alice", PasswordHash: digest}))

	auth := NewAuthenticationService(store, hasher, tokens, nil, testAccessTTL)
	overlong := strings.Repeat("x", 80)

	timeLogin := func(email string) time.Duration {
		best := time.Duration(-1)
		for i := 0; i < 3; i++ {
			started := time.Now()
			_, err := auth.Login(ctx, model.LoginRequest{Email: email, Password: overlong})
			elapsed := time.Since(started)
			requireAPIError(t, err, apierror.KindAuthentication, "INVALID_CREDENTIALS")
			if best < 0 || elapsed < best {
				best = elapsed
			}
		}
		return best
	}

	known := timeLogin("alice@example.com")
	unknown := timeLogin("nobody@example.com")

	require.Greater(t, known*3, unknown, "known=%s unknown=%s", known, unknown)
	require.Greater(t, unknown*3, known, "known=%s unknown=%s", known, unknown)
}

func TestLoginStoreFailureIsInternal(t *testing.T) {
	t.Parallel()
	ts, err := newTestServices(true)
	require.NoError(t, err)
	ts.store.findErr = errStoreDown

	_, err = ts.auth.Login(context.Background(), model.LoginRequest{Email: "a@b.co", Password: "x"})
	require.ErrorIs(t, err, errStoreDown)
	_, isAPIErr := err.(*apierror.APIError)
	require.False(t, isAPIErr)
}

func TestWhoAmIRejectsBadTokens(t *testing.T) {
	t.Parallel()
	ts, err := newTestServices(true)
	require.NoError(t, err)

	resetToken, _, err := ts.tokens.Issue(model.AuthClaims{Subject: "alice@example.com", Type: model.TokenTypeReset}, testAccessTTL)
	require.NoError(t, err)

	for _, token := range []string{"", "garbage", "a.b.c", resetToken} {
		_, err := ts.auth.WhoAmI(token)
		apiErr := requireAPIError(t, err, apierror.KindToken, "INVALID_TOKEN")
		require.Equal(t, "Invalid or expired token", apiErr.Message)
	}
}
