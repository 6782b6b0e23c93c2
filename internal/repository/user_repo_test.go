package repository

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"smartparking/internal/db"
	apperrors "smartparking/internal/errors"
)

func TestUserRepository(t *testing.T) {
	repo := NewUserRepository()
	require.NoError(t, repo.CreateUser("Admin@Example.com", "admin123", db.RoleAdmin, ""))
	require.NoError(t, repo.CreateUser("user@example.com", "user123", "superuser", "+919800000000"))

	admin, err := repo.GetByEmail("admin@example.com")
	require.NoError(t, err)
	require.NotNil(t, admin)
	assert.Equal(t, db.RoleAdmin, admin.Role)
	assert.NotEmpty(t, admin.ID)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte("admin123")))

	user, err := repo.GetByEmail("user@example.com")
	require.NoError(t, err)
	assert.Equal(t, db.RoleUser, user.Role)
	assert.Equal(t, "+919800000000", user.Phone)

	missing, err := repo.GetByEmail("ghost@example.com")
	assert.NoError(t, err)
	assert.Nil(t, missing)

	assert.True(t, errors.Is(repo.CreateUser("user@example.com", "x", db.RoleUser, ""), apperrors.ErrDuplicateID))
	assert.Error(t, repo.CreateUser("", "x", db.RoleUser, ""))
}
