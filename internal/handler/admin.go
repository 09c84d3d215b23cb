package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/alertx/alertx/internal/domain"
	"github.com/alertx/alertx/internal/service"
)

// AdminHandler handles admin account endpoints
type AdminHandler struct {
	adminService *service.AdminService
	logger       *slog.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(adminService *service.AdminService, logger *slog.Logger) *AdminHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &AdminHandler{
		adminService: adminService,
		logger:       logger,
	}
}

// AdminRegisterRequest represents the admin registration request
type AdminRegisterRequest struct {
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	Password    string   `json:"password"`
	Departments []string `json:"department"`
	Roles       []string `json:"type"`
}

// AdminUpdateRequest represents a partial admin update
type AdminUpdateRequest struct {
	Name        *string  `json:"name"`
	Email       *string  `json:"email"`
	Password    *string  `json:"password"`
	Departments []string `json:"department"`
	Roles       []string `json:"type"`
}

// Register handles POST /api/admin/register
func (h *AdminHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req AdminRegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	if req.Name == "" || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "name, email, and password are required")
		return
	}

	admin, err := h.adminService.Register(r.Context(), service.RegisterInput{
		Name:        req.Name,
		Email:       req.Email,
		Password:    req.Password,
		Departments: req.Departments,
		Roles:       req.Roles,
	})
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			writeError(w, http.StatusBadRequest, "admin already exists")
			return
		}
		h.logger.Error("admin registration failed",
			slog.String("email", req.Email),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "something went wrong")
		return
	}

	writeJSON(w, http.StatusCreated, admin)
}

// Login handles POST /api/admin/login
func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	result, err := h.adminService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "admin not found")
		case errors.Is(err, domain.ErrInvalidCredentials):
			writeError(w, http.StatusBadRequest, "invalid credentials")
		default:
			h.logger.Error("admin login failed", slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "something went wrong")
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// List handles GET /api/admin/list
func (h *AdminHandler) List(w http.ResponseWriter, r *http.Request) {
	admins, err := h.adminService.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list admins", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list admins")
		return
	}

	writeJSON(w, http.StatusOK, admins)
}

// GetByEmail handles GET /api/admin/{email}
func (h *AdminHandler) GetByEmail(w http.ResponseWriter, r *http.Request) {
	email := r.PathValue("email")
	if email == "" {
		writeError(w, http.StatusBadRequest, "email required")
		return
	}

	admin, err := h.adminService.GetByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "admin not found")
			return
		}
		h.logger.Error("failed to get admin", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "something went wrong")
		return
	}

	writeJSON(w, http.StatusOK, admin)
}

// Update handles PUT /api/admin/{id}
func (h *AdminHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "admin id required")
		return
	}

	var req AdminUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	admin, err := h.adminService.Update(r.Context(), id, service.UpdateInput{
		Name:        req.Name,
		Email:       req.Email,
		Password:    req.Password,
		Departments: req.Departments,
		Roles:       req.Roles,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "admin not found")
		case errors.Is(err, domain.ErrAlreadyExists):
			writeError(w, http.StatusBadRequest, "email already in use")
		default:
			h.logger.Error("failed to update admin",
				slog.String("admin_id", id),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "something went wrong")
		}
		return
	}

	writeJSON(w, http.StatusOK, admin)
}

// Delete handles DELETE /api/admin/{id}
func (h *AdminHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "admin id required")
		return
	}

	if err := h.adminService.Delete(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "admin not found")
			return
		}
		h.logger.Error("failed to delete admin",
			slog.String("admin_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "something went wrong")
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "admin deleted successfully"})
}
