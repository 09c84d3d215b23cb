package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/alertx/alertx/internal/domain"
	"github.com/alertx/alertx/internal/service"
)

// maxSubmissionBytes caps multipart submissions; evidence photos from
// phones stay well under this.
const maxSubmissionBytes = 20 << 20

// ReportHandler handles report submission and lifecycle endpoints
type ReportHandler struct {
	reports *service.ReportService
	logger  *slog.Logger
}

// NewReportHandler creates a new report handler
func NewReportHandler(reports *service.ReportService, logger *slog.Logger) *ReportHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &ReportHandler{
		reports: reports,
		logger:  logger,
	}
}

// SubmitResponse represents the response after a successful submission
type SubmitResponse struct {
	Message string         `json:"message"`
	Report  *domain.Report `json:"report"`
}

// Submit handles POST /api/report (multipart form with an image file).
// The image is required and its absence fails before any collaborator call.
func (h *ReportHandler) Submit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSubmissionBytes)
	if err := r.ParseMultipartForm(maxSubmissionBytes); err != nil {
		h.logger.Warn("failed to parse submission form", slog.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no image file uploaded")
		return
	}
	defer file.Close()

	image, err := io.ReadAll(file)
	if err != nil {
		h.logger.Error("failed to read image", slog.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, "unable to read image file")
		return
	}
	if len(image) == 0 {
		writeError(w, http.StatusBadRequest, "no image file uploaded")
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	report, err := h.reports.Submit(r.Context(), service.SubmitInput{
		Description:  r.FormValue("description"),
		Location:     r.FormValue("location"),
		LocationName: r.FormValue("locationName"),
		Filename:     header.Filename,
		ContentType:  contentType,
		Image:        image,
	})
	if err != nil {
		h.logger.Error("failed to process report", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "error processing report")
		return
	}

	writeJSON(w, http.StatusCreated, SubmitResponse{Message: "report saved", Report: report})
}

// List handles GET /api/reports
func (h *ReportHandler) List(w http.ResponseWriter, r *http.Request) {
	reports, err := h.reports.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list reports", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list reports")
		return
	}

	writeJSON(w, http.StatusOK, reports)
}

// UpdateStatusRequest represents the status-transition request
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateStatusResponse represents the status-transition response
type UpdateStatusResponse struct {
	Message string         `json:"message"`
	Report  *domain.Report `json:"updatedReport"`
}

// UpdateStatus handles PUT /api/report/{id}
func (h *ReportHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "report id required")
		return
	}

	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.Status == "" {
		writeError(w, http.StatusBadRequest, "status field is required")
		return
	}

	report, err := h.reports.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "report not found")
			return
		}
		h.logger.Error("failed to update report status",
			slog.String("report_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "error updating status")
		return
	}

	writeJSON(w, http.StatusOK, UpdateStatusResponse{Message: "status updated successfully", Report: report})
}

// Delete handles DELETE /api/report/{id}
func (h *ReportHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "report id required")
		return
	}

	if err := h.reports.Delete(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "report not found")
			return
		}
		h.logger.Error("failed to delete report",
			slog.String("report_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "error deleting report")
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "report deleted successfully"})
}
