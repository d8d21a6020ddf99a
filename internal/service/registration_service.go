package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"go-auth-service/internal/event"
	"go-auth-service/internal/metrics"
	"go-auth-service/internal/model"
	"go-auth-service/internal/util"
	"go-auth-service/pkg/apierror"
)

const tokenTypeBearer = "bearer"

type RegistrationService struct {
	store     UserStore
	hasher    PasswordHasher
	tokens    TokenIssuer
	validator *RequestValidator
	bus       event.Bus
	accessTTL time.Duration
}

func NewRegistrationService(store UserStore, hasher PasswordHasher, tokens TokenIssuer, bus event.Bus, accessTTL time.Duration) *RegistrationService {
	return &RegistrationService{
		store:     store,
		hasher:    hasher,
		tokens:    tokens,
		validator: NewRequestValidator(),
		bus:       bus,
		accessTTL: accessTTL,
	}
}

// Register validates the request, stores the account and returns an access
// token for it. Nothing is written unless every check passes.
func (s *RegistrationService) Register(ctx context.Context, req model.RegisterRequest) (model.AuthResponse, error) {
	resp, err := s.register(ctx, req)
	if err != nil {
		metrics.RecordOperation("register", outcomeOf(err))
		return model.AuthResponse{}, err
	}

	metrics.RecordOperation("register", metrics.OutcomeSuccess)
	return resp, nil
}

func (s *RegistrationService) register(ctx context.Context, req model.RegisterRequest) (model.AuthResponse, error) {
	req.Username = util.NormalizeUsername(req.Username)
	req.Email = util.NormalizeEmail(req.Email)

	if req.Password != req.ConfirmPassword {
		return model.AuthResponse{}, errPasswordMismatch
	}

	failed, err := s.validator.failedFields(req)
	if err != nil {
		return model.AuthResponse{}, fmt.Errorf("validate register request: %w", err)
	}
	switch {
	case failed["Password"]:
		return model.AuthResponse{}, errWeakPassword
	case failed["Username"]:
		return model.AuthResponse{}, errInvalidUsername
	case failed["Email"]:
		return model.AuthResponse{}, errInvalidEmail
	}

	digest, err := s.hasher.Hash(ctx, req.Password)
	if errors.Is(err, model.ErrPasswordTooLong) {
		return model.AuthResponse{}, errWeakPassword
	}
	if err != nil {
		return model.AuthResponse{}, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := model.User{
		ID:           uuid.NewString(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: digest,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.store.Create(ctx, user); err != nil {
		if errors.Is(err, model.ErrEmailAlreadyExists) {
			return model.AuthResponse{}, apierror.Conflict("EMAIL_ALREADY_EXISTS", "User already exists")
		}
		return model.AuthResponse{}, fmt.Errorf("create user: %w", err)
	}

	token, _, err := s.tokens.Issue(model.AuthClaims{
		Subject: user.Email,
		Name:    user.Username,
		Type:    model.TokenTypeAccess,
	}, s.accessTTL)
	if err != nil {
		return model.AuthResponse{}, fmt.Errorf("issue access token: %w", err)
	}

	slog.Info("user registered", "user_id", user.ID)
	publish(ctx, s.bus, event.Event{Type: event.TypeUserRegistered, Subject: user.Email})

	return model.AuthResponse{
		Message:     "User registered successfully",
		AccessToken: token,
		TokenType:   tokenTypeBearer,
	}, nil
}

func outcomeOf(err error) string {
	var apiErr *apierror.APIError
	if errors.As(err, &apiErr) {
		return metrics.OutcomeFailure
	}
	return metrics.OutcomeError
}

func publish(ctx context.Context, bus event.Bus, e event.Event) {
	if bus == nil {
		return
	}
	e.ClientIP = event.ClientIP(ctx)
	bus.Publish(e)
}
