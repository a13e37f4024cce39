// Package auth implements registration, credential verification, and
// bearer-token identity for the ledger engine. Passwords are hashed with
// bcrypt; the hash is opaque to every other package.
package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/papertrade/ledger-engine/internal/model"
	"github.com/papertrade/ledger-engine/internal/store"
)

var (
	// ErrInvalidCredentials is returned for malformed registration input:
	// bad username shape, empty password, or mismatched confirmation.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")

	// ErrDuplicateUsername is returned when registering an existing name.
	ErrDuplicateUsername = errors.New("auth: username already exists")

	// ErrAuthenticationFailed is returned when the username is unknown or
	// the password does not match. Callers get no hint which one it was.
	ErrAuthenticationFailed = errors.New("auth: authentication failed")
)

// usernameRegex allows 3-30 letters, digits, or underscores.
var usernameRegex = regexp.MustCompile(`^[A-Za-z0-9_]{3,30}$`)

// Service verifies credentials and registers users.
type Service struct {
	store        store.Store
	secret       []byte
	tokenTTL     time.Duration
	startingCash decimal.Decimal
}

// NewService creates an auth service. startingCash is credited to every
// newly registered user.
func NewService(st store.Store, secret string, tokenTTL time.Duration, startingCash decimal.Decimal) *Service {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &Service{
		store:        st,
		secret:       []byte(secret),
		tokenTTL:     tokenTTL,
		startingCash: startingCash,
	}
}

// Register creates a user with the configured starting cash and returns
// the user plus a fresh bearer token.
func (s *Service) Register(ctx context.Context, username, password, confirm string) (*model.User, string, error) {
	username = strings.TrimSpace(username)

	if !usernameRegex.MatchString(username) {
		return nil, "", fmt.Errorf("%w: username must be 3-30 letters, digits, or underscores", ErrInvalidCredentials)
	}
	if password == "" {
		return nil, "", fmt.Errorf("%w: password is required", ErrInvalidCredentials)
	}
	if password != confirm {
		return nil, "", fmt.Errorf("%w: passwords do not match", ErrInvalidCredentials)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	u := &model.User{
		ID:         uuid.New().String(),
		Username:   username,
		Credential: string(hash),
		Cash:       s.startingCash,
		CreatedAt:  time.Now().UTC(),
	}

	if err := s.store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrUsernameTaken) {
			return nil, "", ErrDuplicateUsername
		}
		return nil, "", err
	}

	token, err := s.IssueToken(u.ID)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

// Login verifies a username/password pair and returns the resolved user
// plus a fresh bearer token.
func (s *Service) Login(ctx context.Context, username, password string) (*model.User, string, error) {
	u, err := s.store.GetUserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, store.ErrNotFound) {
		return nil, "", ErrAuthenticationFailed
	}
	if err != nil {
		return nil, "", err
	}

	if bcrypt.CompareHashAndPassword([]byte(u.Credential), []byte(password)) != nil {
		return nil, "", ErrAuthenticationFailed
	}

	token, err := s.IssueToken(u.ID)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}
