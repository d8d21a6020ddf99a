package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"go-auth-service/internal/event"
	"go-auth-service/internal/model"
	"go-auth-service/internal/security"
)

const testAccessTTL = 30 * time.Minute

type memoryStore struct {
	mu      sync.Mutex
	users   map[string]model.User
	findErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{users: map[string]model.User{}}
}

// Create enforces uniqueness under one lock, standing in for the unique index.
func (s *memoryStore) Create(_ context.Context, user model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[user.Email]; exists {
		return model.ErrEmailAlreadyExists
	}
	s.users[user.Email] = user
	return nil
}

func (s *memoryStore) FindByEmail(_ context.Context, email string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.findErr != nil {
		return model.User{}, s.findErr
	}
	user, ok := s.users[email]
	if !ok {
		return model.User{}, model.ErrUserNotFound
	}
	return user, nil
}

func (s *memoryStore) UpdatePasswordHash(_ context.Context, email string, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[email]
	if !ok {
		return model.ErrUserNotFound
	}
	user.PasswordHash = passwordHash
	s.users[email] = user
	return nil
}

func (s *memoryStore) hashOf(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[email].PasswordHash
}

func (s *memoryStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

type capturingNotifier struct {
	mu    sync.Mutex
	to    string
	token string
	sent  int
	err   error
}

func (n *capturingNotifier) SendPasswordReset(_ context.Context, to string, token string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.err != nil {
		return n.err
	}
	n.to = to
	n.token = token
	n.sent++
	return nil
}

// memoryLedger records a token only when the password update succeeds,
// standing in for the redemption transaction.
type memoryLedger struct {
	mu        sync.Mutex
	store     *memoryStore
	consumed  map[string]time.Time
	updateErr error
}

func newMemoryLedger(store *memoryStore) *memoryLedger {
	return &memoryLedger{store: store, consumed: map[string]time.Time{}}
}

func (l *memoryLedger) Redeem(ctx context.Context, tokenID string, email string, expiresAt time.Time, passwordHash string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, seen := l.consumed[tokenID]; seen {
		return false, nil
	}
	if l.updateErr != nil {
		return false, l.updateErr
	}
	if err := l.store.UpdatePasswordHash(ctx, email, passwordHash); err != nil {
		return false, err
	}
	l.consumed[tokenID] = expiresAt
	return true, nil
}

func (l *memoryLedger) failUpdates(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.updateErr = err
}

func (l *memoryLedger) CleanExpired(context.Context) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var removed int64
	now := time.Now()
	for id, exp := range l.consumed {
		if !exp.After(now) {
			delete(l.consumed, id)
			removed++
		}
	}
	return removed, nil
}

type recordingBus struct {
	mu     sync.Mutex
	events []event.Event
}

func (b *recordingBus) Publish(e event.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
}

func (b *recordingBus) Subscribe() (<-chan event.Event, func()) {
	ch := make(chan event.Event)
	return ch, func() {}
}

func (b *recordingBus) types() []event.Type {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]event.Type, 0, len(b.events))
	for _, e := range b.events {
		out = append(out, e.Type)
	}
	return out
}

var errStoreDown = errors.New("connection refused")

type testServices struct {
	store        *memoryStore
	notifier     *capturingNotifier
	ledger       *memoryLedger
	bus          *recordingBus
	tokens       *security.TokenService
	registration *RegistrationService
	auth         *AuthenticationService
	reset        *PasswordResetService
}

func newTestServices(singleUse bool) (*testServices, error) {
	tokens, err := security.NewTokenService("service-test-secret")
	if err != nil {
		return nil, err
	}

	ts := &testServices{
		store:    newMemoryStore(),
		notifier: &capturingNotifier{},
		bus:      &recordingBus{},
		tokens:   tokens,
	}
	hasher := security.NewPasswordHasher(bcrypt.MinCost, 4)

	var ledger ResetLedger
	if singleUse {
		ts.ledger = newMemoryLedger(ts.store)
		ledger = ts.ledger
	}

	ts.registration = NewRegistrationService(ts.store, hasher, tokens, ts.bus, testAccessTTL)
	ts.auth = NewAuthenticationService(ts.store, hasher, tokens, ts.bus, testAccessTTL)
	ts.reset = NewPasswordResetService(ts.store, hasher, tokens, ts.notifier, ledger, ts.bus, 15*time.Minute)
	return ts, nil
}
