//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"go-auth-service/internal/config"
	"go-auth-service/internal/database"
	"go-auth-service/internal/event"
	"go-auth-service/internal/handler"
	"go-auth-service/internal/middleware"
	"go-auth-service/internal/repository"
	"go-auth-service/internal/router"
	"go-auth-service/internal/security"
	"go-auth-service/internal/service"
)

// outbox stands in for SMTP and keeps the last token sent to each address.
type outbox struct {
	mu     sync.Mutex
	tokens map[string]string
}

func (o *outbox) SendPasswordReset(_ context.Context, to string, token string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.tokens[to] = token
	return nil
}

func (o *outbox) tokenFor(t *testing.T, email string) string {
	t.Helper()

	o.mu.Lock()
	defer o.mu.Unlock()
	token, ok := o.tokens[email]
	require.True(t, ok, "no reset mail for %s", email)
	return token
}

type testServer struct {
	*httptest.Server
	outbox *outbox
	db     *database.DB
}

type serverOptions struct {
	authRPM   int
	singleUse bool
}

func openTestDB(t *testing.T) *database.DB {
	t.Helper()

	url := strings.TrimSpace(os.Getenv("TEST_DATABASE_URL"))
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := database.Open(context.Background(), database.Options{URL: url, MaxConns: 10, MinConns: 1, Migrate: true})
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return db
}

func newTestServer(t *testing.T, opts serverOptions) *testServer {
	t.Helper()

	db := openTestDB(t)
	if opts.authRPM == 0 {
		opts.authRPM = 1000
	}

	cfg := &config.Config{
		ServerPort:       "8080",
		RequestTimeout:   30 * time.Second,
		JWTSecret:        "integration-secret",
		JWTAccessTTL:     30 * time.Minute,
		ResetTokenTTL:    15 * time.Minute,
		CORSOrigins:      []string{"*"},
		RateLimitRPM:     1000,
		AuthRateLimitRPM: opts.authRPM,
	}

	tokens, err := security.NewTokenService(cfg.JWTSecret)
	require.NoError(t, err)

	users := repository.NewUserRepository(db.Pool)
	var ledger service.ResetLedger
	if opts.singleUse {
		ledger = repository.NewTokenRepository(db.Pool)
	}

	box := &outbox{tokens: map[string]string{}}
	bus := event.NewBus()
	hasher := security.NewPasswordHasher(bcrypt.MinCost, 4)

	registration := service.NewRegistrationService(users, hasher, tokens, bus, cfg.JWTAccessTTL)
	auth := service.NewAuthenticationService(users, hasher, tokens, bus, cfg.JWTAccessTTL)
	reset := service.NewPasswordResetService(users, hasher, tokens, box, ledger, bus, cfg.ResetTokenTTL)

	server := httptest.NewServer(router.New(cfg, middleware.NewAuthMiddleware(auth), router.Handlers{
		Auth:   handler.NewAuthHandler(registration, auth, reset),
		Health: handler.NewHealthHandler(db),
		Docs:   handler.NewDocsHandler(),
	}, prometheus.NewRegistry()))
	t.Cleanup(server.Close)

	return &testServer{Server: server, outbox: box, db: db}
}

func uniqueEmail(prefix string) string {
	return prefix + "-" + uuid.NewString()[:8] + "@example.com"
}

func postJSON(t *testing.T, url string, payload any) *http.Response {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
}

type authBody struct {
	Message     string `json:"Message"`
	AccessToken string `json:"AccessToken"`
	TokenType   string `json:"TokenType"`
}

type errorBody struct {
	Success bool `json:"success"`
	Error   struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func register(t *testing.T, baseURL string, email string, password string) *http.Response {
	t.Helper()

	return postJSON(t, baseURL+"/auth/register", map[string]string{
		"Username":        "alice",
		"Email":           email,
		"Password":        password,
		"ConfirmPassword": password,
	})
}

func login(t *testing.T, baseURL string, email string, password string) *http.Response {
	t.Helper()

	return postJSON(t, baseURL+"/auth/login", map[string]string{"Email": email, "Password": password})
}
