// Package services holds the account and post use cases behind the HTTP controllers.
package services

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/blogly/blogly/models"
	"github.com/blogly/blogly/store"
	"github.com/blogly/blogly/utils"
)

var (
	ErrMissingCredentials = utils.NewValidation(40001, "Please provide username and password")

	// ErrBadCredentials is shared by the unknown user and wrong password cases.
	ErrBadCredentials = utils.NewUnauthorized(40104, "Incorrect username or password")
)

// AuthService signs users up and logs them in.
type AuthService struct {
	users  *store.UserStore
	hasher *utils.PasswordHasher
	issuer *utils.SessionIssuer
	log    *zap.Logger
}

func NewAuthService(users *store.UserStore, hasher *utils.PasswordHasher, issuer *utils.SessionIssuer, log *zap.Logger) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{users: users, hasher: hasher, issuer: issuer, log: log}
}

// Signup creates an account and returns it with a fresh session token.
func (s *AuthService) Signup(ctx context.Context, in models.Signup) (*models.User, string, error) {
	in.Normalize()
	if verrs := in.Validate(); verrs != nil {
		return nil, "", verrs
	}

	_, err := s.users.FindByUsername(ctx, in.Username)
	switch {
	case err == nil:
		return nil, "", models.UsernameTaken()
	case !errors.Is(err, store.ErrNotFound):
		return nil, "", err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, "", err
	}
	user := &models.User{Username: in.Username, PasswordHash: hash}
	if err := s.users.Create(ctx, user); err != nil {
		// lost a race with a concurrent signup for the same name
		if errors.Is(err, store.ErrDuplicate) {
			return nil, "", models.UsernameTaken()
		}
		return nil, "", err
	}

	token, err := s.issuer.Issue(user.ID)
	if err != nil {
		return nil, "", err
	}
	s.log.Info("user signed up", zap.String("user_id", user.ID), zap.String("username", user.Username))
	return user, token, nil
}

// Login checks the credentials and returns the user with a fresh session token.
func (s *AuthService) Login(ctx context.Context, username, password string) (*models.User, string, error) {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)
	if username == "" || password == "" {
		return nil, "", ErrMissingCredentials
	}

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, "", ErrBadCredentials
		}
		return nil, "", err
	}
	if !s.hasher.Check(user.PasswordHash, password) {
		return nil, "", ErrBadCredentials
	}

	token, err := s.issuer.Issue(user.ID)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// FindByID resolves a session subject to its user.
func (s *AuthService) FindByID(ctx context.Context, id string) (*models.User, error) {
	return s.users.FindByID(ctx, id)
}

// VerifyToken returns the user id bound to token.
func (s *AuthService) VerifyToken(token string) (string, error) {
	return s.issuer.Verify(token)
}

