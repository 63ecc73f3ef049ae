package main

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jwalitptl/newsletter-api/internal/config"
	"github.com/jwalitptl/newsletter-api/internal/model"
	"github.com/jwalitptl/newsletter-api/pkg/security"
)

type fakeUserRepo struct {
	users map[string]*model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*model.User{}}
}

func (f *fakeUserRepo) Create(ctx context.Context, user *model.User) error {
	user.ID = uuid.New()
	f.users[user.Email] = user
	return nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return f.users[email], nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepo) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	for _, u := range f.users {
		if u.ID == id {
			u.PasswordHash = passwordHash
		}
	}
	return nil
}

func TestEnsureAdminUserCreatesAccount(t *testing.T) {
	repo := newFakeUserRepo()
	hasher := security.NewBcryptHasher(bcrypt.MinCost)
	cfg := config.AuthConfig{AdminEmail: "admin@example.com", AdminPassword: "bootstrap-password"}

	require.NoError(t, ensureAdminUser(context.Background(), repo, hasher, cfg))

	user := repo.users["admin@example.com"]
	require.NotNil(t, user)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("bootstrap-password")))
}

func TestEnsureAdminUserLeavesExistingAccountAlone(t *testing.T) {
	repo := newFakeUserRepo()
	hasher := security.NewBcryptHasher(bcrypt.MinCost)
	existing := &model.User{Email: "admin@example.com", PasswordHash: "untouched"}
	require.NoError(t, repo.Create(context.Background(), existing))

	cfg := config.AuthConfig{AdminEmail: "admin@example.com", AdminPassword: "bootstrap-password"}
	require.NoError(t, ensureAdminUser(context.Background(), repo, hasher, cfg))

	assert.Equal(t, "untouched", repo.users["admin@example.com"].PasswordHash)
}

func TestEnsureAdminUserSkipsWhenUnconfigured(t *testing.T) {
	repo := newFakeUserRepo()
	hasher := security.NewBcryptHasher(bcrypt.MinCost)

	require.NoError(t, ensureAdminUser(context.Background(), repo, hasher, config.AuthConfig{}))
	assert.Empty(t, repo.users)
}
