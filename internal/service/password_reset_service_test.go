package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"go-auth-service/internal/event"
	"go-auth-service/internal/model"
	"go-auth-service/pkg/apierror"
)

func confirmRequest(token string, password string) model.ConfirmResetRequest {
	return model.ConfirmResetRequest{Token: token, NewPassword: password, ConfirmPassword: password}
}

func login(ts *testServices, email string, password string) error {
	_, err := ts.auth.Login(context.Background(), model.LoginRequest{Email: email, Password: password})
	return err
}

func TestPasswordResetEndToEnd(t *testing.T) {
	t.Parallel()
	ts, err := newTestServices(true)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = ts.registration.Register(ctx, registerRequest("alice@example.com", "Str0ng!Pass"))
	require.NoError(t, err)
	require.NoError(t, login(ts, "alice@example.com", "Str0ng!Pass"))

	resp, err := ts.reset.RequestReset(ctx, model.PasswordResetRequest{Email: "Alice@Example.com"})
	require.NoError(t, err)
	require.Equal(t, "Password reset link has been sent to your email.", resp.Message)
	require.Equal(t, "alice@example.com", ts.notifier.to)

	claims, err := ts.tokens.Verify(ts.notifier.token, model.TokenTypeReset)
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", claims.Subject)
	require.WithinDuration(t, claims.IssuedAt.Add(15*time.Minute), claims.ExpiresAt, 0)

	confirmed, err := ts.reset.ConfirmReset(ctx, confirmRequest(ts.notifier.token, "N3w!Passw0rd"))
	require.NoError(t, err)
	require.Equal(t, "Password has been successfully reset.", confirmed.Message)

	requireAPIError(t, login(ts, "alice@example.com", "Str0ng!Pass"), apierror.KindAuthentication, "INVALID_CREDENTIALS")
	require.NoError(t, login(ts, "alice@example.com", "N3w!Passw0rd"))

	require.Contains(t, ts.bus.types(), event.TypeResetRequested)
	require.Contains(t, ts.bus.types(), event.TypeResetConfirmed)
}

func TestRequestResetUnknownEmail(t *testing.T) {
	t.Parallel()
	ts, err := newTestServices(true)
	require.NoError(t, err)

	_, err = ts.reset.RequestReset(context.Background(), model.PasswordResetRequest{Email: "ghost@example.com"})
	apiErr := requireAPIError(t, err, apierror.KindNotFound, "USER_NOT_FOUND")
	require.Equal(t, "User not found", apiErr.Message)
	require.Zero(t, ts.notifier.sent)
}

func TestRequestResetRejectsMalformedEmail(t *testing.T) {
	t.Parallel()
	ts, err := newTestServices(true)
	require.NoError(t, err)

	for _, email := range []string{"", "not-an-email", strings.Repeat("a", 300) + "@example.com"} {
		_, err = ts.reset.RequestReset(context.Background(), model.PasswordResetRequest{Email: email})
		apiErr := requireAPIError(t, err, apierror.KindValidation, "INVALID_EMAIL")
		require.Equal(t, 400, apiErr.HTTPStatus)
	}
	require.Zero(t, ts.notifier.sent)
}

func TestRequestResetDeliveryFailure(t *testing.T) {
	t.Parallel()
	ts, err := newTestServices(true)
	require.NoError(t, err)
	ts.notifier.err = errors.New("smtp: 421 service not available")

	_, err = ts.registration.Register(context.Background(), registerRequest("alice@example.com", "Str0ng!Pass"))
	require.NoError(t, err)

	_, err = ts.reset.RequestReset(context.Background(), model.PasswordResetRequest{Email: "alice@example.com"})
	apiErr := requireAPIError(t, err, apierror.KindDelivery, "DELIVERY_FAILED")
	require.Equal(t, 500, apiErr.HTTPStatus)
	require.NotContains(t, apiErr.Error(), "smtp")
}

func TestConfirmResetMismatchKeepsOldPassword(t *testing.T) {
	t.Parallel()
	ts, err := newTestServices(true)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = ts.registration.Register(ctx, registerRequest("alice@example.com", "Str0ng!Pass"))
	require.NoError(t, err)
	before := ts.store.hashOf("alice@example.com")

	_, err = ts.reset.RequestReset(ctx, model.PasswordResetRequest{Email: "alice@example.com"})
	require.NoError(t, err)

	_, err = ts.reset.ConfirmReset(ctx, model.ConfirmResetRequest{
		Token:           ts.notifier.token,
		NewPassword:     "N3w!Passw0rd",
		ConfirmPassword: "N3w!Passw0rd-typo",
	})
	requireAPIError(t, err, apierror.KindValidation, "PASSWORD_MISMATCH")

	require.Equal(t, before, ts.store.hashOf("alice@example.com"))
	require.NoError(t, login(ts, "alice@example.com", "Str0ng!Pass"))

	// The rejected attempt must not have burned the token.
	_, err = ts.reset.ConfirmReset(ctx, confirmRequest(ts.notifier.token, "N3w!Passw0rd"))
	require.NoError(t, err)
}

func TestConfirmResetWeakPassword(t *testing.T) {
	t.Parallel()
	ts, err := newTestServices(true)
	require.NoError(t, err)

	_, err = ts.reset.ConfirmReset(context.Background(), confirmRequest("whatever", "weak"))
	requireAPIError(t, err, apierror.KindValidation, "WEAK_PASSWORD")
}

func TestConfirmResetRejectsInvalidTokens(t *testing.T) {
	t.Parallel()
	ts, err := newTestServices(true)
	require.NoError(t, err)

	accessToken, _, err := ts.tokens.Issue(model.AuthClaims{Subject: "alice@example.com", Type: model.TokenTypeAccess}, time.Minute)
	require.NoError(t, err)

	for _, token := range []string{"", "not-a-jwt", accessToken} {
		_, err := ts.reset.ConfirmReset(context.Background(), confirmRequest(token, "N3w!Passw0rd"))
		apiErr := requireAPIError(t, err, apierror.KindToken, "INVALID_TOKEN")
		require.Equal(t, 401, apiErr.HTTPStatus)
	}
}

func TestConfirmResetUserVanished(t *testing.T) {
	t.Parallel()
	ts, err := newTestServices(true)
	require.NoError(t, err)

	token, _, err := ts.tokens.Issue(model.AuthClaims{Subject: "gone@example.com", Type: model.TokenTypeReset}, time.Minute)
	require.NoError(t, err)

	_, err = ts.reset.ConfirmReset(context.Background(), confirmRequest(token, "N3w!Passw0rd"))
	apiErr := requireAPIError(t, err, apierror.KindNotFound, "USER_NOT_FOUND")
	require.Equal(t, "User not found or password not changed", apiErr.Message)
}

func TestConfirmResetTokenReuse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		singleUse bool
		reuseErr  bool
	}{
		{name: "single use ledger rejects replay", singleUse: true, reuseErr: true},
		{name: "without ledger token stays valid until expiry", singleUse: false, reuseErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ts, err := newTestServices(tt.singleUse)
			require.NoError(t, err)
			ctx := context.Background()

			_, err = ts.registration.Register(ctx, registerRequest("alice@example.com", "Str0ng!Pass"))
			require.NoError(t, err)
			_, err = ts.reset.RequestReset(ctx, model.PasswordResetRequest{Email: "alice@example.com"})
			require.NoError(t, err)
			token := ts.notifier.token

			_, err = ts.reset.ConfirmReset(ctx, confirmRequest(token, "N3w!Passw0rd"))
			require.NoError(t, err)

			_, err = ts.reset.ConfirmReset(ctx, confirmRequest(token, "Th1rd!Passw0rd"))
			if tt.reuseErr {
				requireAPIError(t, err, apierror.KindToken, "INVALID_TOKEN")
				require.NoError(t, login(ts, "alice@example.com", "N3w!Passw0rd"))
				return
			}
			require.NoError(t, err)
			require.NoError(t, login(ts, "alice@example.com", "Th1rd!Passw0rd"))
		})
	}
}

func TestConfirmResetFailedUpdateKeepsTokenUsable(t *testing.T) {
	t.Parallel()
	ts, err := newTestServices(true)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = ts.registration.Register(ctx, registerRequest("alice@example.com", "Str0ng!Pass"))
	require.NoError(t, err)
	_, err = ts.reset.RequestReset(ctx, model.PasswordResetRequest{Email: "alice@example.com"})
	require.NoError(t, err)
	token := ts.notifier.token

	ts.ledger.failUpdates(errStoreDown)
	_, err = ts.reset.ConfirmReset(ctx, confirmRequest(token, "N3w!Passw0rd"))
	require.ErrorIs(t, err, errStoreDown)
	require.NoError(t, login(ts, "alice@example.com", "Str0ng!Pass"))

	ts.ledger.failUpdates(nil)
	_, err = ts.reset.ConfirmReset(ctx, confirmRequest(token, "N3w!Passw0rd"))
	require.NoError(t, err)
	require.NoError(t, login(ts, "alice@example.com", "N3w!Passw0rd"))
}

func TestStartCleanupTickerStopsWithContext(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ts, err := newTestServices(true)
	require.NoError(t, err)
	ts.ledger.consumed["expired"] = time.Now().Add(-time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	ts.reset.StartCleanupTicker(ctx, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		ts.ledger.mu.Lock()
		defer ts.ledger.mu.Unlock()
		return len(ts.ledger.consumed) == 0
	}, time.Second, 5*time.Millisecond)

	cancel()
}
