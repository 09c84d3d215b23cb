package service

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alertx/alertx/internal/domain"
	"github.com/alertx/alertx/internal/observability/metrics"
)

// SubmitInput carries one report submission through the ingestion pipeline
type SubmitInput struct {
	Description  string
	Location     string
	LocationName string
	Filename     string
	ContentType  string
	Image        []byte
}

// ReportService orchestrates the report ingestion pipeline and the triage
// lifecycle over persisted reports
type ReportService struct {
	reports    domain.ReportRepository
	storage    domain.ObjectStorage
	classifier domain.Classifier
	events     domain.ReportEvents
	logger     *slog.Logger
}

// NewReportService creates a new report service. events may be nil when no
// live channel is attached.
func NewReportService(
	reports domain.ReportRepository,
	storage domain.ObjectStorage,
	classifier domain.Classifier,
	events domain.ReportEvents,
	logger *slog.Logger,
) *ReportService {
	if logger == nil {
		logger = slog.Default()
	}

	return &ReportService{
		reports:    reports,
		storage:    storage,
		classifier: classifier,
		events:     events,
		logger:     logger,
	}
}

// Submit runs the ingestion pipeline for one submission: upload the image,
// classify the same bytes, persist the report, notify dashboards. The stages
// are strictly sequential and each failure aborts the pipeline without
// creating a record. A stored image is not rolled back when classification
// fails afterwards; the orphaned object is accepted.
func (s *ReportService) Submit(ctx context.Context, in SubmitInput) (*domain.Report, error) {
	start := time.Now()
	imageURL, err := s.storage.Upload(ctx, in.Filename, in.ContentType, bytes.NewReader(in.Image))
	if err != nil {
		metrics.ObserveSubmission("upload_error")
		return nil, fmt.Errorf("upload image: %w", err)
	}
	metrics.ObservePipelineStage("upload", time.Since(start))

	start = time.Now()
	prediction, err := s.classifier.Classify(ctx, in.Filename, in.ContentType, in.Image)
	if err != nil {
		metrics.ObserveSubmission("classify_error")
		s.logger.Error("classification failed, uploaded image left in place",
			slog.String("image_url", imageURL),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("classify image: %w", err)
	}
	metrics.ObservePipelineStage("classify", time.Since(start))

	report := &domain.Report{
		Type:         prediction.Type,
		Description:  in.Description,
		Location:     in.Location,
		LocationName: in.LocationName,
		ImageURL:     imageURL,
		Severity:     prediction.Severity,
		Priority:     prediction.Priority,
		Department:   prediction.Department,
		Status:       domain.StatusPending,
	}

	start = time.Now()
	if err := s.reports.Insert(ctx, report); err != nil {
		metrics.ObserveSubmission("persist_error")
		return nil, fmt.Errorf("persist report: %w", err)
	}
	metrics.ObservePipelineStage("persist", time.Since(start))
	metrics.ObserveSubmission("success")

	s.logger.Info("report created",
		slog.String("report_id", report.ID),
		slog.String("type", report.Type),
		slog.String("severity", report.Severity),
		slog.String("department", report.Department),
	)

	if s.events != nil {
		s.events.ReportCreated(report)
	}

	return report, nil
}

// List returns every stored report
func (s *ReportService) List(ctx context.Context) ([]*domain.Report, error) {
	return s.reports.List(ctx)
}

// UpdateStatus sets the triage status of a report. Unknown ids yield
// domain.ErrNotFound; repeating the same status is a no-op that still
// succeeds and broadcasts.
func (s *ReportService) UpdateStatus(ctx context.Context, id, status string) (*domain.Report, error) {
	report, err := s.reports.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}

	s.logger.Info("report status updated",
		slog.String("report_id", id),
		slog.String("status", status),
	)

	if s.events != nil {
		s.events.ReportUpdated(report)
	}

	return report, nil
}

// Delete removes a report
func (s *ReportService) Delete(ctx context.Context, id string) error {
	if err := s.reports.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("report deleted", slog.String("report_id", id))

	if s.events != nil {
		s.events.ReportDeleted(id)
	}

	return nil
}
