package auth

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moyeostudy/moyeo-hub/internal/domain/shared"
	"github.com/moyeostudy/moyeo-hub/pkg/logger"
)

// memAccountStore is an in-memory AccountStore for service tests.
type memAccountStore struct {
	mu       sync.Mutex
	accounts map[string]string
}

func newMemAccountStore() *memAccountStore {
	return &memAccountStore{accounts: make(map[string]string)}
}

func (s *memAccountStore) SaveAccount(_ context.Context, username, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.accounts[username]; taken {
		return ErrAccountExists
	}
	s.accounts[username] = passwordHash
	return nil
}

func (s *memAccountStore) PasswordHash(_ context.Context, username string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	hash, ok := s.accounts[username]
	if !ok {
		return "", shared.NewDomainError("auth", "PasswordHash", shared.ErrNotFound, "account not found")
	}
	return hash, nil
}

func newService(t *testing.T) (*Service, *memAccountStore) {
	t.Helper()
	store := newMemAccountStore()
	return NewService(store, logger.New(logger.Options{Output: io.Discard})), store
}

func TestRegisterAndLogin(t *testing.T) {
	svc, store := newService(t)

	require.NoError(t, svc.Register(context.Background(), "  alice  ", "correct horse"))

	// The stored value is a hash, never the password itself.
	hash, err := store.PasswordHash(context.Background(), "alice")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)

	assert.NoError(t, svc.Login(context.Background(), "alice", "correct horse"))
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, _ := newService(t)

	require.NoError(t, svc.Register(context.Background(), "alice", "correct horse"))
	assert.ErrorIs(t, svc.Login(context.Background(), "alice", "battery staple"), ErrInvalidCredentials)
}

func TestLogin_MissingAccountIndistinguishable(t *testing.T) {
	svc, _ := newService(t)

	require.NoError(t, svc.Register(context.Background(), "alice", "correct horse"))

	wrongPassword := svc.Login(context.Background(), "alice", "nope")
	missingAccount := svc.Login(context.Background(), "nobody", "nope")
	assert.Equal(t, wrongPassword, missingAccount)
	assert.ErrorIs(t, missingAccount, ErrInvalidCredentials)
}

func TestRegister_DuplicateUsername(t *testing.T) {
	svc, _ := newService(t)

	require.NoError(t, svc.Register(context.Background(), "alice", "one"))
	assert.ErrorIs(t, svc.Register(context.Background(), "alice", "two"), ErrAccountExists)
}

func TestRegister_RequiresInput(t *testing.T) {
	svc, _ := newService(t)

	assert.True(t, shared.IsValidation(svc.Register(context.Background(), "   ", "password")))
	assert.True(t, shared.IsValidation(svc.Register(context.Background(), "alice", "")))
}
