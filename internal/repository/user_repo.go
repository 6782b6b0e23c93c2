package repository

import (
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"smartparking/internal/db"
	apperrors "smartparking/internal/errors"
)

type UserRepository interface {
	GetByEmail(email string) (*db.User, error)
	CreateUser(email, password string, role db.Role, phone string) error
}

type userRepository struct {
	mu    sync.RWMutex
	users map[string]db.User
}

func NewUserRepository() UserRepository {
	return &userRepository{users: make(map[string]db.User)}
}

// GetByEmail returns nil, nil when no user has that email.
func (r *userRepository) GetByEmail(email string) (*db.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[strings.ToLower(email)]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *userRepository) CreateUser(email, password string, role db.Role, phone string) error {
	key := strings.ToLower(strings.TrimSpace(email))
	if key == "" || password == "" {
		return errors.New("email and password cannot be empty")
	}
	if role != db.RoleAdmin {
		role = db.RoleUser
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[key]; ok {
		return apperrors.Newf(apperrors.DuplicateID, "user %s already exists", key)
	}
	r.users[key] = db.User{
		ID:           uuid.NewString(),
		Email:        key,
		PasswordHash: string(hashed),
		Role:         role,
		Phone:        phone,
	}
	return nil
}
