package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"smartparking/internal/db"
	"smartparking/internal/entities"
	apperrors "smartparking/internal/errors"
	"smartparking/internal/repository"
)

type AuthService interface {
	Login(email, password string) (string, db.Role, error)
	ParseToken(token string) (entities.Identity, error)
}

type authService struct {
	repo   repository.UserRepository
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewAuthService(repo repository.UserRepository, secret string, ttl time.Duration) AuthService {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &authService{repo: repo, secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (s *authService) Login(email, password string) (string, db.Role, error) {
	user, err := s.repo.GetByEmail(email)
	if err != nil {
		return "", "", err
	}
	if user == nil {
		return "", "", apperrors.ErrInvalidCreds
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", "", apperrors.ErrInvalidCreds
	}
	if len(s.secret) == 0 {
		return "", "", errors.New("JWT_SECRET not set")
	}

	claims := jwt.MapClaims{
		"sub":   user.ID,
		"email": user.Email,
		"role":  string(user.Role),
		"exp":   s.now().Add(s.ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", "", fmt.Errorf("signing token: %w", err)
	}
	return signed, user.Role, nil
}

func (s *authService) ParseToken(raw string) (entities.Identity, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithExpirationRequired(), jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return entities.Identity{}, apperrors.New(apperrors.Unauthorized, "invalid or expired token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return entities.Identity{}, apperrors.New(apperrors.Unauthorized, "invalid token claims")
	}
	sub, _ := claims["sub"].(string)
	email, _ := claims["email"].(string)
	role, _ := claims["role"].(string)
	if email == "" {
		return entities.Identity{}, apperrors.New(apperrors.Unauthorized, "token has no subject")
	}
	return entities.Identity{UserID: sub, Email: email, Role: db.Role(role)}, nil
}
