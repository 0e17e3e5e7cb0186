// Package services contains server-side business logic: account management
// and login, cache-coherent route lookups, and trip handling.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/ostrval/carpooling/internal/common"
	"github.com/ostrval/carpooling/internal/logging"
	"github.com/ostrval/carpooling/internal/server/auth"
	"github.com/ostrval/carpooling/internal/server/models"
	"github.com/ostrval/carpooling/internal/server/repositories/users"
)

// dummyPasswordHash is a valid bcrypt digest compared against when the
// username is unknown, so that "no such user" burns the same hashing cost as
// "wrong password" and the two stay indistinguishable by timing.
const dummyPasswordHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// UserService provides account operations:
// - Register: create users with a hashed password
// - Login: verify credentials and mint a bearer token
// - GetByUsername / SearchByName: lookups for the users API
type UserService struct {
	repo               users.Repository
	tokens             *auth.TokenService
	loginTokenValidity time.Duration
	logger             logging.Logger
}

func NewUserService(repo users.Repository, tokens *auth.TokenService, loginTokenValidity time.Duration, logger logging.Logger) *UserService {
	return &UserService{
		repo:               repo,
		tokens:             tokens,
		loginTokenValidity: loginTokenValidity,
		logger:             logger,
	}
}

// Login verifies the username/password pair against the stored hash and, on
// success, issues a bearer token with the interactive-login validity. Unknown
// username and wrong password both fail with common.ErrInvalidCredentials.
func (s *UserService) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword([]byte(dummyPasswordHash), []byte(password))
			return "", common.ErrInvalidCredentials
		}
		return "", fmt.Errorf("looking up user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", common.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.Username, s.loginTokenValidity)
	if err != nil {
		return "", fmt.Errorf("issuing token: %w", err)
	}
	return token, nil
}

// Register hashes the plaintext password and stores the new user. Plaintext
// is never persisted.
func (s *UserService) Register(ctx context.Context, user *models.User, password string) (*models.User, error) {
	if user.Username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password must be non-empty", common.ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}
	user.PasswordHash = string(hash)

	created, err := s.repo.Create(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}
	return created, nil
}

func (s *UserService) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.repo.GetByUsername(ctx, username)
}

func (s *UserService) SearchByName(ctx context.Context, firstName, lastName string) ([]models.User, error) {
	return s.repo.SearchByName(ctx, firstName, lastName)
}
