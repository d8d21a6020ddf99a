package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"go-auth-service/internal/metrics"
	"go-auth-service/internal/model"
)

// TokenFailure is the internal reason a token was rejected. Callers outside
// this package should collapse every failure into one response.
type TokenFailure string

const (
	FailureMalformed TokenFailure = "malformed"
	FailureInvalid   TokenFailure = "invalid"
	FailureExpired   TokenFailure = "expired"
)

type TokenError struct {
	Failure TokenFailure
	Err     error
}

func (e *TokenError) Error() string {
	return fmt.Sprintf("token %s: %v", e.Failure, e.Err)
}

func (e *TokenError) Unwrap() error {
	return e.Err
}

type tokenClaims struct {
	Name string `json:"name,omitempty"`
	Type string `json:"typ"`
	jwt.RegisteredClaims
}

// TokenService signs and verifies HS256 claim sets with one process-wide key.
type TokenService struct {
	secret []byte
	now    func() time.Time
}

func NewTokenService(secret string) (*TokenService, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("token signing secret is required")
	}

	return &TokenService{secret: []byte(secret), now: time.Now}, nil
}

// Issue signs claims.Subject, claims.Name and claims.Type with iat, exp and a
// fresh jti. The returned claims carry the values actually signed.
func (s *TokenService) Issue(claims model.AuthClaims, ttl time.Duration) (string, model.AuthClaims, error) {
	if strings.TrimSpace(claims.Subject) == "" {
		return "", model.AuthClaims{}, errors.New("token subject is required")
	}
	if ttl <= 0 {
		return "", model.AuthClaims{}, errors.New("token ttl must be positive")
	}

	now := s.now().UTC().Truncate(time.Second)
	claims.IssuedAt = now
	claims.ExpiresAt = now.Add(ttl)
	claims.TokenID = uuid.NewString()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		Name: claims.Name,
		Type: claims.Type,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.Subject,
			ID:        claims.TokenID,
			IssuedAt:  jwt.NewNumericDate(claims.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
		},
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", model.AuthClaims{}, fmt.Errorf("sign token: %w", err)
	}

	return signed, claims, nil
}

// Verify checks the signature, then expiry, then the expected token type.
// An empty expectedType accepts any type.
func (s *TokenService) Verify(tokenString string, expectedType string) (model.AuthClaims, error) {
	claims, err := s.verify(tokenString, expectedType)

	label := expectedType
	if label == "" {
		label = "any"
	}
	var tokenErr *TokenError
	if errors.As(err, &tokenErr) {
		metrics.RecordTokenVerification(label, string(tokenErr.Failure))
	} else {
		metrics.RecordTokenVerification(label, "ok")
	}

	return claims, err
}

func (s *TokenService) verify(tokenString string, expectedType string) (model.AuthClaims, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return model.AuthClaims{}, &TokenError{Failure: FailureMalformed, Err: model.ErrTokenMalformed}
	}

	parsed := &tokenClaims{}
	_, err := jwt.ParseWithClaims(tokenString, parsed, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return model.AuthClaims{}, &TokenError{Failure: FailureMalformed, Err: model.ErrTokenMalformed}
		case errors.Is(err, jwt.ErrTokenExpired):
			return model.AuthClaims{}, &TokenError{Failure: FailureExpired, Err: model.ErrTokenExpired}
		default:
			return model.AuthClaims{}, &TokenError{Failure: FailureInvalid, Err: model.ErrTokenInvalid}
		}
	}

	if parsed.Subject == "" || (expectedType != "" && parsed.Type != expectedType) {
		return model.AuthClaims{}, &TokenError{Failure: FailureInvalid, Err: model.ErrTokenInvalid}
	}

	claims := model.AuthClaims{
		Subject: parsed.Subject,
		Name:    parsed.Name,
		Type:    parsed.Type,
		TokenID: parsed.ID,
	}
	if parsed.IssuedAt != nil {
		claims.IssuedAt = parsed.IssuedAt.Time
	}
	if parsed.ExpiresAt != nil {
		claims.ExpiresAt = parsed.ExpiresAt.Time
	}

	return claims, nil
}
