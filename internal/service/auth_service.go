package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-auth-service/internal/event"
	"go-auth-service/internal/metrics"
	"go-auth-service/internal/model"
	"go-auth-service/internal/util"
	"go-auth-service/pkg/apierror"
)

var (
	errInvalidCredentials = apierror.Authentication("Invalid credentials")
	errInvalidToken       = apierror.Token("Invalid or expired token")
)

// AuthenticationService exchanges credentials for access tokens and resolves
// access tokens back to the identity they assert.
type AuthenticationService struct {
	store     UserStore
	hasher    PasswordHasher
	tokens    TokenIssuer
	bus       event.Bus
	accessTTL time.Duration
}

func NewAuthenticationService(store UserStore, hasher PasswordHasher, tokens TokenIssuer, bus event.Bus, accessTTL time.Duration) *AuthenticationService {
	return &AuthenticationService{
		store:     store,
		hasher:    hasher,
		tokens:    tokens,
		bus:       bus,
		accessTTL: accessTTL,
	}
}

// Login fails with the same error whether the email is unknown or the
// password is wrong.
func (s *AuthenticationService) Login(ctx context.Context, req model.LoginRequest) (model.AuthResponse, error) {
	email := util.NormalizeEmail(req.Email)

	user, err := s.store.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, model.ErrUserNotFound):
		s.hasher.VerifyDummy(ctx, req.Password)
		return s.rejectLogin(ctx, email, "unknown email")
	case err != nil:
		metrics.RecordOperation("login", metrics.OutcomeError)
		return model.AuthResponse{}, fmt.Errorf("find user: %w", err)
	}

	if !s.hasher.Verify(ctx, req.Password, user.PasswordHash) {
		return s.rejectLogin(ctx, email, "wrong password")
	}

	token, _, err := s.tokens.Issue(model.AuthClaims{
		Subject: user.Email,
		Name:    user.Username,
		Type:    model.TokenTypeAccess,
	}, s.accessTTL)
	if err != nil {
		metrics.RecordOperation("login", metrics.OutcomeError)
		return model.AuthResponse{}, fmt.Errorf("issue access token: %w", err)
	}

	metrics.RecordOperation("login", metrics.OutcomeSuccess)
	publish(ctx, s.bus, event.Event{Type: event.TypeLoginSucceeded, Subject: user.Email})

	return model.AuthResponse{
		Message:     "Login successful",
		AccessToken: token,
		TokenType:   tokenTypeBearer,
	}, nil
}

func (s *AuthenticationService) rejectLogin(ctx context.Context, email string, reason string) (model.AuthResponse, error) {
	metrics.RecordOperation("login", metrics.OutcomeFailure)
	publish(ctx, s.bus, event.Event{Type: event.TypeLoginFailed, Subject: email, Reason: reason})
	return model.AuthResponse{}, errInvalidCredentials
}

// WhoAmI returns the subject of a valid access token. Every verification
// failure maps to the same InvalidOrExpiredToken error.
func (s *AuthenticationService) WhoAmI(token string) (model.IdentityResponse, error) {
	claims, err := s.tokens.Verify(token, model.TokenTypeAccess)
	if err != nil {
		metrics.RecordOperation("whoami", metrics.OutcomeFailure)
		return model.IdentityResponse{}, errInvalidToken
	}

	metrics.RecordOperation("whoami", metrics.OutcomeSuccess)
	return model.IdentityResponse{Email: claims.Subject}, nil
}
