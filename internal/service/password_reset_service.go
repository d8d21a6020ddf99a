package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go-auth-service/internal/event"
	"go-auth-service/internal/metrics"
	"go-auth-service/internal/model"
	"go-auth-service/internal/util"
	"go-auth-service/pkg/apierror"
)

var (
	errUserNotFound     = apierror.NotFound("USER_NOT_FOUND", "User not found")
	errResetUserMissing = apierror.NotFound("USER_NOT_FOUND", "User not found or password not changed")
	errDeliveryFailed   = apierror.Delivery("Failed to send password reset email")
)

// PasswordResetService drives Requested -> Delivered -> Confirmed. A
// delivered token that is never confirmed simply expires.
type PasswordResetService struct {
	store     UserStore
	hasher    PasswordHasher
	tokens    TokenIssuer
	notifier  ResetNotifier
	ledger    ResetLedger
	validator *RequestValidator
	bus       event.Bus
	resetTTL  time.Duration
}

// NewPasswordResetService builds the reset flow. A nil ledger leaves reset
// tokens reusable until they expire.
func NewPasswordResetService(store UserStore, hasher PasswordHasher, tokens TokenIssuer, notifier ResetNotifier, ledger ResetLedger, bus event.Bus, resetTTL time.Duration) *PasswordResetService {
	return &PasswordResetService{
		store:     store,
		hasher:    hasher,
		tokens:    tokens,
		notifier:  notifier,
		ledger:    ledger,
		validator: NewRequestValidator(),
		bus:       bus,
		resetTTL:  resetTTL,
	}
}

func (s *PasswordResetService) RequestReset(ctx context.Context, req model.PasswordResetRequest) (model.MessageResponse, error) {
	email := util.NormalizeEmail(req.Email)

	failed, err := s.validator.failedFields(model.PasswordResetRequest{Email: email})
	if err != nil {
		return model.MessageResponse{}, fmt.Errorf("validate reset request: %w", err)
	}
	if failed["Email"] {
		metrics.RecordOperation("reset_request", metrics.OutcomeFailure)
		return model.MessageResponse{}, errInvalidEmail
	}

	user, err := s.store.FindByEmail(ctx, email)
	if errors.Is(err, model.ErrUserNotFound) {
		metrics.RecordOperation("reset_request", metrics.OutcomeFailure)
		return model.MessageResponse{}, errUserNotFound
	}
	if err != nil {
		metrics.RecordOperation("reset_request", metrics.OutcomeError)
		return model.MessageResponse{}, fmt.Errorf("find user: %w", err)
	}

	token, _, err := s.tokens.Issue(model.AuthClaims{
		Subject: user.Email,
		Type:    model.TokenTypeReset,
	}, s.resetTTL)
	if err != nil {
		metrics.RecordOperation("reset_request", metrics.OutcomeError)
		return model.MessageResponse{}, fmt.Errorf("issue reset token: %w", err)
	}

	if err := s.notifier.SendPasswordReset(ctx, user.Email, token); err != nil {
		slog.Error("password reset delivery failed", "error", err)
		metrics.RecordOperation("reset_request", metrics.OutcomeError)
		return model.MessageResponse{}, errDeliveryFailed
	}

	metrics.RecordOperation("reset_request", metrics.OutcomeSuccess)
	publish(ctx, s.bus, event.Event{Type: event.TypeResetRequested, Subject: user.Email})

	return model.MessageResponse{Message: "Password reset link has been sent to your email."}, nil
}

// ConfirmReset checks the new password before touching the token, so a
// rejected request never consumes it.
func (s *PasswordResetService) ConfirmReset(ctx context.Context, req model.ConfirmResetRequest) (model.MessageResponse, error) {
	resp, subject, err := s.confirmReset(ctx, req)
	if err != nil {
		metrics.RecordOperation("reset_confirm", outcomeOf(err))
		var apiErr *apierror.APIError
		if errors.As(err, &apiErr) {
			publish(ctx, s.bus, event.Event{Type: event.TypeResetRejected, Subject: subject, Reason: apiErr.Code})
		}
		return model.MessageResponse{}, err
	}

	metrics.RecordOperation("reset_confirm", metrics.OutcomeSuccess)
	publish(ctx, s.bus, event.Event{Type: event.TypeResetConfirmed, Subject: subject})
	return resp, nil
}

func (s *PasswordResetService) confirmReset(ctx context.Context, req model.ConfirmResetRequest) (model.MessageResponse, string, error) {
	if req.NewPassword != req.ConfirmPassword {
		return model.MessageResponse{}, "", errPasswordMismatch
	}

	failed, err := s.validator.failedFields(req)
	if err != nil {
		return model.MessageResponse{}, "", fmt.Errorf("validate confirm request: %w", err)
	}
	if failed["NewPassword"] {
		return model.MessageResponse{}, "", errWeakPassword
	}
	if failed["Token"] {
		return model.MessageResponse{}, "", errInvalidToken
	}

	claims, err := s.tokens.Verify(req.Token, model.TokenTypeReset)
	if err != nil {
		slog.Debug("reset token rejected", "error", err)
		return model.MessageResponse{}, "", errInvalidToken
	}
	subject := claims.Subject

	digest, err := s.hasher.Hash(ctx, req.NewPassword)
	if errors.Is(err, model.ErrPasswordTooLong) {
		return model.MessageResponse{}, subject, errWeakPassword
	}
	if err != nil {
		return model.MessageResponse{}, subject, fmt.Errorf("hash password: %w", err)
	}

	if err := s.storeResetPassword(ctx, claims, digest); err != nil {
		if errors.Is(err, model.ErrTokenAlreadyUsed) {
			metrics.RecordTokenVerification(model.TokenTypeReset, "reused")
			slog.Debug("reset token rejected", "error", err)
			return model.MessageResponse{}, subject, errInvalidToken
		}
		if errors.Is(err, model.ErrUserNotFound) {
			return model.MessageResponse{}, subject, errResetUserMissing
		}
		return model.MessageResponse{}, subject, fmt.Errorf("update password: %w", err)
	}

	return model.MessageResponse{Message: "Password has been successfully reset."}, subject, nil
}

// storeResetPassword writes the new digest. With a ledger the write and the
// token consumption commit together.
func (s *PasswordResetService) storeResetPassword(ctx context.Context, claims model.AuthClaims, digest string) error {
	if s.ledger == nil {
		return s.store.UpdatePasswordHash(ctx, claims.Subject, digest)
	}

	first, err := s.ledger.Redeem(ctx, claims.TokenID, claims.Subject, claims.ExpiresAt, digest)
	if err != nil {
		return err
	}
	if !first {
		return model.ErrTokenAlreadyUsed
	}
	return nil
}

// StartCleanupTicker purges expired ledger rows every interval until ctx ends.
func (s *PasswordResetService) StartCleanupTicker(ctx context.Context, interval time.Duration) {
	if s.ledger == nil || interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := s.ledger.CleanExpired(ctx)
				if err != nil {
					if ctx.Err() == nil {
						slog.Warn("reset token cleanup failed", "error", err)
					}
					continue
				}
				if removed > 0 {
					slog.Info("reset token cleanup", "removed", removed)
				}
			}
		}
	}()
}
