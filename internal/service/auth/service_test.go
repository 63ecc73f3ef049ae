package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jwalitptl/newsletter-api/internal/model"
	"github.com/jwalitptl/newsletter-api/pkg/auth"
	apperrors "github.com/jwalitptl/newsletter-api/pkg/errors"
	"github.com/jwalitptl/newsletter-api/pkg/security"
)

type fakeUserRepo struct {
	users map[uuid.UUID]*model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[uuid.UUID]*model.User{}}
}

func (f *fakeUserRepo) Create(ctx context.Context, user *model.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return f.users[id], nil
}

func (f *fakeUserRepo) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	f.users[id].PasswordHash = passwordHash
	return nil
}

func newAuthFixture(t *testing.T) (*fakeUserRepo, *model.User, Service) {
	t.Helper()
	repo := newFakeUserRepo()
	hasher := security.NewBcryptHasher(bcrypt.MinCost)
	jwtSvc := auth.NewJWTService("test-secret", time.Hour)

	hash, err := hasher.Hash("original-password")
	require.NoError(t, err)
	user := &model.User{Email: "admin@example.com", PasswordHash: hash}
	require.NoError(t, repo.Create(context.Background(), user))

	return repo, user, NewService(repo, hasher, jwtSvc)
}

func TestLogin(t *testing.T) {
	_, _, svc := newAuthFixture(t)

	token, err := svc.Login(context.Background(), "admin@example.com", "original-password")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	_, err = svc.Login(context.Background(), "admin@example.com", "wrong")
	assert.True(t, apperrors.Is(err, apperrors.ErrUnauthorized))

	_, err = svc.Login(context.Background(), "nobody@example.com", "original-password")
	assert.True(t, apperrors.Is(err, apperrors.ErrUnauthorized))
}

func TestChangePassword(t *testing.T) {
	repo, user, svc := newAuthFixture(t)

	err := svc.ChangePassword(context.Background(), user.ID, "original-password", "a-much-longer-password")
	require.NoError(t, err)

	// The stored hash changed and the new credentials work end to end.
	assert.NoError(t, bcrypt.CompareHashAndPassword(
		[]byte(repo.users[user.ID].PasswordHash), []byte("a-much-longer-password")))
	_, err = svc.Login(context.Background(), "admin@example.com", "a-much-longer-password")
	assert.NoError(t, err)
	_, err = svc.Login(context.Background(), "admin@example.com", "original-password")
	assert.True(t, apperrors.Is(err, apperrors.ErrUnauthorized))
}

func TestChangePasswordRejectsWrongCurrentPassword(t *testing.T) {
	_, user, svc := newAuthFixture(t)

	err := svc.ChangePassword(context.Background(), user.ID, "wrong", "a-much-longer-password")
	assert.True(t, apperrors.Is(err, apperrors.ErrUnauthorized))
}

func TestChangePasswordEnforcesLengthBounds(t *testing.T) {
	_, user, svc := newAuthFixture(t)

	err := svc.ChangePassword(context.Background(), user.ID, "original-password", "short")
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))

	err = svc.ChangePassword(context.Background(), user.ID, "original-password", strings.Repeat("x", maxPasswordLength+1))
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))
}

func TestChangePasswordUnknownUser(t *testing.T) {
	_, _, svc := newAuthFixture(t)

	err := svc.ChangePassword(context.Background(), uuid.New(), "original-password", "a-much-longer-password")
	assert.True(t, apperrors.Is(err, apperrors.ErrUnauthorized))
}
