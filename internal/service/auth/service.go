package auth

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/newsletter-api/internal/repository"
	"github.com/jwalitptl/newsletter-api/pkg/auth"
	apperrors "github.com/jwalitptl/newsletter-api/pkg/errors"
	"github.com/jwalitptl/newsletter-api/pkg/security"
)

// Length bounds for new passwords, following OWASP guidance.
const (
	minPasswordLength = 12
	maxPasswordLength = 128
)

type Service interface {
	// Login verifies credentials and returns a session token.
	Login(ctx context.Context, email, password string) (string, error)
	// ChangePassword re-verifies the current password before storing a new
	// hash for the authenticated user.
	ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error
}

type service struct {
	users  repository.UserRepository
	hasher security.PasswordHasher
	jwt    auth.JWTService
}

func NewService(users repository.UserRepository, hasher security.PasswordHasher, jwt auth.JWTService) Service {
	return &service{users: users, hasher: hasher, jwt: jwt}
}

func (s *service) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", apperrors.Unauthorized(nil)
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		return "", apperrors.Unauthorized(err)
	}

	return s.jwt.GenerateToken(user.ID, user.Email)
}

func (s *service) ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error {
	if len(newPassword) < minPasswordLength || len(newPassword) > maxPasswordLength {
		return apperrors.Validation(
			fmt.Sprintf("new password must be between %d and %d characters", minPasswordLength, maxPasswordLength), nil)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return apperrors.Unauthorized(nil)
	}

	if err := s.hasher.Compare(user.PasswordHash, currentPassword); err != nil {
		return apperrors.Unauthorized(err)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, userID, hash)
}
