package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/alertx/alertx/internal/domain"
	"github.com/alertx/alertx/internal/security/auth"
)

// AdminService handles back-office operator accounts. Admin credentials are
// bcrypt-hashed like user credentials; the two stores share no documents but
// use the same hashing discipline.
type AdminService struct {
	admins domain.AdminRepository
	tokens *auth.TokenManager
	logger *slog.Logger
}

// NewAdminService creates a new admin account service
func NewAdminService(admins domain.AdminRepository, tokens *auth.TokenManager, logger *slog.Logger) *AdminService {
	if logger == nil {
		logger = slog.Default()
	}

	return &AdminService{
		admins: admins,
		tokens: tokens,
		logger: logger,
	}
}

// AdminLoginResult represents a successful admin login response
type AdminLoginResult struct {
	Token string        `json:"token"`
	Admin *domain.Admin `json:"admin"`
}

// RegisterInput carries a new admin registration
type RegisterInput struct {
	Name        string
	Email       string
	Password    string
	Departments []string
	Roles       []string
}

// UpdateInput carries a partial admin update; nil fields are untouched
type UpdateInput struct {
	Name        *string
	Email       *string
	Password    *string
	Departments []string
	Roles       []string
}

// Register creates a new admin account
func (s *AdminService) Register(ctx context.Context, in RegisterInput) (*domain.Admin, error) {
	if in.Name == "" || in.Email == "" || in.Password == "" {
		return nil, errors.New("name, email, and password are required")
	}

	existing, err := s.admins.GetByEmail(ctx, in.Email)
	if err == nil && existing != nil {
		return nil, domain.ErrAlreadyExists
	}
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("check existing admin: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("failed to hash password", slog.String("error", err.Error()))
		return nil, errors.New("failed to register admin")
	}

	admin := &domain.Admin{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: string(hash),
		Departments:  in.Departments,
		Roles:        in.Roles,
	}

	if err := s.admins.Create(ctx, admin); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return nil, domain.ErrAlreadyExists
		}
		s.logger.Error("failed to create admin", slog.String("error", err.Error()))
		return nil, errors.New("failed to register admin")
	}

	s.logger.Info("admin registered", slog.String("admin_id", admin.ID), slog.String("email", admin.Email))
	return admin, nil
}

// Login authenticates an admin and issues a bearer token
func (s *AdminService) Login(ctx context.Context, email, password string) (*AdminLoginResult, error) {
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	admin, err := s.admins.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get admin: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		s.logger.Info("admin login failed with wrong password", slog.String("email", email))
		return nil, domain.ErrInvalidCredentials
	}

	token, err := s.tokens.GenerateToken(admin.ID)
	if err != nil {
		s.logger.Error("failed to sign token", slog.String("error", err.Error()))
		return nil, errors.New("failed to generate token")
	}

	s.logger.Info("admin logged in", slog.String("admin_id", admin.ID))

	return &AdminLoginResult{Token: token, Admin: admin}, nil
}

// List returns all admin accounts
func (s *AdminService) List(ctx context.Context) ([]*domain.Admin, error) {
	return s.admins.List(ctx)
}

// GetByEmail retrieves one admin account
func (s *AdminService) GetByEmail(ctx context.Context, email string) (*domain.Admin, error) {
	return s.admins.GetByEmail(ctx, email)
}

// Update applies a partial field update; a supplied password is re-hashed
func (s *AdminService) Update(ctx context.Context, id string, in UpdateInput) (*domain.Admin, error) {
	fields := map[string]any{}
	if in.Name != nil {
		fields["name"] = *in.Name
	}
	if in.Email != nil {
		fields["email"] = *in.Email
	}
	if in.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*in.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, errors.New("failed to hash password")
		}
		fields["password"] = string(hash)
	}
	if in.Departments != nil {
		fields["department"] = in.Departments
	}
	if in.Roles != nil {
		fields["type"] = in.Roles
	}

	admin, err := s.admins.Update(ctx, id, fields)
	if err != nil {
		return nil, err
	}

	s.logger.Info("admin updated", slog.String("admin_id", id))
	return admin, nil
}

// Delete removes an admin account
func (s *AdminService) Delete(ctx context.Context, id string) error {
	if err := s.admins.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("admin deleted", slog.String("admin_id", id))
	return nil
}
