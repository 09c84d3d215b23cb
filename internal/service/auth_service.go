package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/alertx/alertx/internal/domain"
	"github.com/alertx/alertx/internal/security/auth"
)

// AuthService handles end-user registration, email verification and login
type AuthService struct {
	users  domain.UserRepository
	mailer domain.Mailer
	tokens *auth.TokenManager
	logger *slog.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(
	users domain.UserRepository,
	mailer domain.Mailer,
	tokens *auth.TokenManager,
	logger *slog.Logger,
) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}

	return &AuthService{
		users:  users,
		mailer: mailer,
		tokens: tokens,
		logger: logger,
	}
}

// LoginResult represents a successful login response
type LoginResult struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

// Register creates an unverified user account and dispatches the
// verification email. A failed email send does not undo the registration.
func (s *AuthService) Register(ctx context.Context, name, email, password string) error {
	if name == "" || email == "" || password == "" {
		return errors.New("name, email, and password are required")
	}

	existing, err := s.users.GetByEmail(ctx, email)
	if err == nil && existing != nil {
		return domain.ErrAlreadyExists
	}
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("check existing user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("failed to hash password", slog.String("error", err.Error()))
		return errors.New("failed to register user")
	}

	token, err := generateVerificationToken()
	if err != nil {
		return fmt.Errorf("generate verification token: %w", err)
	}

	user := &domain.User{
		Name:              name,
		Email:             email,
		PasswordHash:      string(hash),
		Verified:          false,
		VerificationToken: token,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return domain.ErrAlreadyExists
		}
		s.logger.Error("failed to create user", slog.String("error", err.Error()))
		return errors.New("failed to register user")
	}

	if s.mailer != nil {
		if err := s.mailer.SendVerification(ctx, user.Email, token); err != nil {
			s.logger.Warn("verification email not delivered",
				slog.String("email", user.Email),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.Info("user registered", slog.String("user_id", user.ID), slog.String("email", user.Email))
	return nil
}

// Login authenticates a verified user and issues a bearer token
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Info("login attempt with unknown email", slog.String("email", email))
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	if !user.Verified {
		return nil, domain.ErrNotVerified
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.Info("login failed with wrong password", slog.String("email", email))
		return nil, domain.ErrInvalidCredentials
	}

	token, err := s.tokens.GenerateToken(user.ID)
	if err != nil {
		s.logger.Error("failed to sign token", slog.String("error", err.Error()))
		return nil, errors.New("failed to generate token")
	}

	s.logger.Info("user logged in", slog.String("user_id", user.ID))

	return &LoginResult{Token: token, User: user}, nil
}

// VerifyEmail consumes a verification token exactly once
func (s *AuthService) VerifyEmail(ctx context.Context, token string) error {
	if token == "" {
		return domain.ErrInvalidToken
	}

	user, err := s.users.GetByVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrInvalidToken
		}
		return fmt.Errorf("lookup verification token: %w", err)
	}

	if err := s.users.MarkVerified(ctx, user.ID); err != nil {
		return fmt.Errorf("mark verified: %w", err)
	}

	s.logger.Info("email verified", slog.String("user_id", user.ID))
	return nil
}

func generateVerificationToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
