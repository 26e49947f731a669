// Package auth implements the shared group password gate. The hub is a
// small trusted group: one account per login name, bcrypt-hashed passwords,
// no sessions or tokens beyond the in-process login check.
package auth

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/moyeostudy/moyeo-hub/internal/domain/shared"
	"github.com/moyeostudy/moyeo-hub/pkg/logger"
)

var (
	// ErrInvalidCredentials is returned when the username or password is wrong.
	// Both cases collapse to the same error so login probes learn nothing.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")

	// ErrAccountExists is returned when registering a taken username.
	ErrAccountExists = errors.New("auth: account already exists")
)

// AccountStore persists login credentials.
type AccountStore interface {
	// SaveAccount stores a new account. Returns ErrAccountExists via the
	// implementation's unique constraint if the username is taken.
	SaveAccount(ctx context.Context, username, passwordHash string) error

	// PasswordHash returns the stored bcrypt hash for the username.
	PasswordHash(ctx context.Context, username string) (string, error)
}

// Service authenticates group members.
type Service struct {
	store AccountStore
	cost  int
	log   *logger.Logger
}

// NewService creates the auth service.
func NewService(store AccountStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Default()
	}
	return &Service{
		store: store,
		cost:  bcrypt.DefaultCost,
		log:   log.With(logger.Component("auth")),
	}
}

// Register creates a new account with a bcrypt-hashed password.
func (s *Service) Register(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return shared.NewDomainError("auth", "Register", shared.ErrInvalidInput, "username and password are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return shared.WrapError("auth", "Register", shared.ErrInvalidState, "failed to hash password", err)
	}

	if err := s.store.SaveAccount(ctx, username, string(hash)); err != nil {
		return err
	}

	s.log.Info("account registered", logger.String("username", username))
	return nil
}

// Login verifies the credentials. A missing account and a wrong password
// return the same error.
func (s *Service) Login(ctx context.Context, username, password string) error {
	hash, err := s.store.PasswordHash(ctx, strings.TrimSpace(username))
	if err != nil {
		if shared.IsNotFound(err) {
			return ErrInvalidCredentials
		}
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}

	return nil
}
