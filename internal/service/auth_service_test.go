package service

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartparking/internal/db"
	apperrors "smartparking/internal/errors"
	"smartparking/internal/repository"
)

func newAuth(t *testing.T, secret string) (*authService, repository.UserRepository) {
	t.Helper()
	users := repository.NewUserRepository()
	require.NoError(t, users.CreateUser("Admin@Example.com", "hunter2", db.RoleAdmin, ""))
	require.NoError(t, users.CreateUser("driver@example.com", "pw", db.RoleUser, ""))
	return NewAuthService(users, secret, time.Hour).(*authService), users
}

func kindOf(err error) apperrors.Kind {
	kind, _ := apperrors.KindOf(err)
	return kind
}

func TestLoginAndParseToken(t *testing.T) {
	svc, _ := newAuth(t, "test-secret")

	token, role, err := svc.Login("admin@example.com", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, db.RoleAdmin, role)

	id, err := svc.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", id.Email)
	assert.Equal(t, db.RoleAdmin, id.Role)
	assert.NotEmpty(t, id.UserID)
	assert.True(t, id.IsAdmin())
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, _ := newAuth(t, "test-secret")

	_, _, err := svc.Login("driver@example.com", "wrong")
	assert.True(t, errors.Is(err, apperrors.ErrInvalidCreds))

	_, _, err = svc.Login("nobody@example.com", "pw")
	assert.True(t, errors.Is(err, apperrors.ErrInvalidCreds))
}

func TestLoginWithoutSecret(t *testing.T) {
	svc, _ := newAuth(t, "")
	_, _, err := svc.Login("driver@example.com", "pw")
	assert.Error(t, err)
	assert.Equal(t, apperrors.KindUnknown, kindOf(err))
}

func TestParseTokenRejects(t *testing.T) {
	svc, _ := newAuth(t, "test-secret")
	token, _, err := svc.Login("driver@example.com", "pw")
	require.NoError(t, err)

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.ParseToken("not-a-token")
		assert.Equal(t, apperrors.Unauthorized, kindOf(err))
	})

	t.Run("other secret", func(t *testing.T) {
		other, _ := newAuth(t, "another-secret")
		_, err := other.ParseToken(token)
		assert.Equal(t, apperrors.Unauthorized, kindOf(err))
	})

	t.Run("expired", func(t *testing.T) {
		later, _ := newAuth(t, "test-secret")
		later.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		_, err := later.ParseToken(token)
		assert.Equal(t, apperrors.Unauthorized, kindOf(err))
	})

	t.Run("missing expiry", func(t *testing.T) {
		raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub": "u1", "email": "driver@example.com", "role": "user",
		}).SignedString([]byte("test-secret"))
		require.NoError(t, err)
		_, err = svc.ParseToken(raw)
		assert.Equal(t, apperrors.Unauthorized, kindOf(err))
	})

	t.Run("missing email", func(t *testing.T) {
		raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub": "u1", "exp": time.Now().Add(time.Hour).Unix(),
		}).SignedString([]byte("test-secret"))
		require.NoError(t, err)
		_, err = svc.ParseToken(raw)
		assert.Equal(t, apperrors.Unauthorized, kindOf(err))
	})
}
