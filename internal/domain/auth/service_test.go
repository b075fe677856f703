package auth

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salonbook/internal/pkg/sqlitedb"
)

type fakeIssuer struct{}

func (fakeIssuer) GenerateToken(userID int64, role string) (string, error) {
	return fmt.Sprintf("token-%d-%s", userID, role), nil
}

func setupService(t *testing.T) *Service {
	t.Helper()
	db, err := sqlitedb.OpenInMemory("auth_"+t.Name(), &User{})
	require.NoError(t, err)
	return NewService(NewUserRepository(db), fakeIssuer{})
}

func TestRegisterAndLogin(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	reg, err := svc.RegisterClient(ctx, RegisterRequest{Email: " Asha@Example.com ", Password: "s3cretpass", Name: "Asha"})
	require.NoError(t, err)
	assert.Equal(t, "asha@example.com", reg.User.Email)
	assert.Equal(t, RoleClient, reg.User.Role)
	assert.NotEqual(t, "s3cretpass", reg.User.PasswordHash)

	login, err := svc.Login(ctx, LoginRequest{Email: "asha@example.com", Password: "s3cretpass"})
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("token-%d-client", reg.User.ID), login.AccessToken)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	_, err := svc.RegisterClient(ctx, RegisterRequest{Email: "dup@example.com", Password: "password1", Name: "A"})
	require.NoError(t, err)

	_, err = svc.RegisterClient(ctx, RegisterRequest{Email: "dup@example.com", Password: "password2", Name: "B"})
	assert.ErrorIs(t, err, ErrEmailAlreadyExists)
}

func TestLoginWrongPassword(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	_, err := svc.RegisterClient(ctx, RegisterRequest{Email: "a@example.com", Password: "password1", Name: "A"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, LoginRequest{Email: "a@example.com", Password: "wrong-password"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, LoginRequest{Email: "nobody@example.com", Password: "password1"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	svc := setupService(t)
	_, err := svc.RegisterClient(context.Background(), RegisterRequest{Email: "s@example.com", Password: "short", Name: "S"})
	assert.ErrorIs(t, err, ErrWeakPassword)
}
