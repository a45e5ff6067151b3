package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"card-service/internal/models"
	"card-service/internal/repository"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

// AuthService handles account registration and credential verification
type AuthService struct {
	users     *repository.UserRepository
	passwords *PasswordService
	jwt       *JWTService
	logger    *logrus.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(users *repository.UserRepository, passwords *PasswordService, jwt *JWTService, logger *logrus.Logger) *AuthService {
	return &AuthService{
		users:     users,
		passwords: passwords,
		jwt:       jwt,
		logger:    logger,
	}
}

// Register creates an account and issues an access token
func (s *AuthService) Register(ctx context.Context, req *models.RegisterRequest) (*models.AuthResponse, error) {
	hash, err := s.passwords.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
		Name:         strings.TrimSpace(req.Name),
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	token, err := s.jwt.GenerateToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id": user.ID,
		"email":   user.Email,
	}).Info("User registered")

	return &models.AuthResponse{AccessToken: token, User: user}, nil
}

// Login verifies credentials and issues an access token
func (s *AuthService) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := s.passwords.VerifyPassword(req.Password, user.PasswordHash); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.jwt.GenerateToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	s.logger.WithField("user_id", user.ID).Info("User logged in")

	return &models.AuthResponse{AccessToken: token, User: user}, nil
}
