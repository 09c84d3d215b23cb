package domain

import (
	"context"
	"time"
)

// StatusPending is the lifecycle status assigned to every new report.
const StatusPending = "Pending"

// Report represents one submitted incident with its classification metadata
// and triage status. Only Status is mutable after creation; the
// classification fields and ImageURL are assigned exactly once by the
// ingestion pipeline.
type Report struct {
	ID           string    `json:"id"`
	Type         string    `json:"type"`
	Description  string    `json:"description"`
	Location     string    `json:"location"`
	LocationName string    `json:"locationName,omitempty"`
	ImageURL     string    `json:"imageUrl"`
	Severity     string    `json:"severity"`
	Priority     string    `json:"priority"`
	Department   string    `json:"department"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// ReportRepository defines data access for reports
type ReportRepository interface {
	Insert(ctx context.Context, report *Report) error
	List(ctx context.Context) ([]*Report, error)
	GetByID(ctx context.Context, id string) (*Report, error)
	UpdateStatus(ctx context.Context, id, status string) (*Report, error)
	Delete(ctx context.Context, id string) error
	CountByStatus(ctx context.Context) (map[string]int, error)
}
