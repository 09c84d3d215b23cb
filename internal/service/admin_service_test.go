package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/alertx/alertx/internal/domain"
)

type memAdminRepo struct {
	byID   map[string]*domain.Admin
	nextID int
}

func newMemAdminRepo() *memAdminRepo {
	return &memAdminRepo{byID: map[string]*domain.Admin{}}
}

func (m *memAdminRepo) Create(_ context.Context, a *domain.Admin) error {
	for _, other := range m.byID {
		if other.Email == a.Email {
			return domain.ErrAlreadyExists
		}
	}
	m.nextID++
	a.ID = fmt.Sprintf("a-%d", m.nextID)
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	m.byID[a.ID] = a
	return nil
}

func (m *memAdminRepo) GetByID(_ context.Context, id string) (*domain.Admin, error) {
	if a, ok := m.byID[id]; ok {
		return a, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memAdminRepo) GetByEmail(_ context.Context, email string) (*domain.Admin, error) {
	for _, a := range m.byID {
		if a.Email == email {
			return a, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memAdminRepo) List(_ context.Context) ([]*domain.Admin, error) {
	out := []*domain.Admin{}
	for _, a := range m.byID {
		out = append(out, a)
	}
	return out, nil
}

func (m *memAdminRepo) Update(_ context.Context, id string, fields map[string]any) (*domain.Admin, error) {
	a, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	for k, v := range fields {
		switch k {
		case "name":
			a.Name = v.(string)
		case "email":
			a.Email = v.(string)
		case "password":
			a.PasswordHash = v.(string)
		case "department":
			a.Departments = v.([]string)
		case "type":
			a.Roles = v.([]string)
		}
	}
	a.UpdatedAt = time.Now()
	return a, nil
}

func (m *memAdminRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

func TestAdminRegisterAndLogin(t *testing.T) {
	repo := newMemAdminRepo()
	s := NewAdminService(repo, testTokenManager(), nil)
	ctx := context.Background()

	admin, err := s.Register(ctx, RegisterInput{
		Name:        "Ops",
		Email:       "ops@example.com",
		Password:    "Password123",
		Departments: []string{"roads"},
		Roles:       []string{"triage"},
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if admin.ID == "" {
		t.Fatalf("expected assigned id")
	}
	if admin.PasswordHash == "Password123" {
		t.Fatalf("password stored in clear")
	}

	// Duplicate email
	if _, err := s.Register(ctx, RegisterInput{Name: "Ops2", Email: "ops@example.com", Password: "x"}); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	lr, err := s.Login(ctx, "ops@example.com", "Password123")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if lr.Token == "" || lr.Admin.Email != "ops@example.com" {
		t.Fatalf("unexpected login result: %+v", lr)
	}

	// No verification gate for admins
	if _, err := s.Login(ctx, "ops@example.com", "Wrong"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := s.Login(ctx, "nobody@example.com", "Password123"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAdminPartialUpdate(t *testing.T) {
	repo := newMemAdminRepo()
	s := NewAdminService(repo, testTokenManager(), nil)
	ctx := context.Background()

	admin, err := s.Register(ctx, RegisterInput{Name: "Ops", Email: "ops@example.com", Password: "Password123"})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	name := "Operations"
	password := "NewPass456"
	updated, err := s.Update(ctx, admin.ID, UpdateInput{
		Name:        &name,
		Password:    &password,
		Departments: []string{"sanitation"},
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Name != "Operations" {
		t.Fatalf("name not updated: %q", updated.Name)
	}
	// Untouched field survives
	if updated.Email != "ops@example.com" {
		t.Fatalf("email changed unexpectedly: %q", updated.Email)
	}
	if len(updated.Departments) != 1 || updated.Departments[0] != "sanitation" {
		t.Fatalf("departments not updated: %v", updated.Departments)
	}
	// Supplied password was re-hashed
	if err := bcrypt.CompareHashAndPassword([]byte(updated.PasswordHash), []byte(password)); err != nil {
		t.Fatalf("new password does not verify: %v", err)
	}

	// Unknown id
	if _, err := s.Update(ctx, "missing", UpdateInput{Name: &name}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAdminDelete(t *testing.T) {
	repo := newMemAdminRepo()
	s := NewAdminService(repo, testTokenManager(), nil)
	ctx := context.Background()

	admin, err := s.Register(ctx, RegisterInput{Name: "Ops", Email: "ops@example.com", Password: "Password123"})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if err := s.Delete(ctx, admin.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if err := s.Delete(ctx, admin.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}
