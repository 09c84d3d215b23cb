package domain

import (
	"context"
	"io"
)

// Prediction holds the categorical labels assigned by the classifier for a
// single image. The pipeline persists these verbatim.
type Prediction struct {
	Type       string `json:"type"`
	Severity   string `json:"severity"`
	Priority   string `json:"priority"`
	Department string `json:"department"`
}

// ObjectStorage persists binary evidence images and returns durable URLs
type ObjectStorage interface {
	Upload(ctx context.Context, filename, contentType string, body io.Reader) (string, error)
}

// Classifier maps an evidence image to categorical incident labels
type Classifier interface {
	Classify(ctx context.Context, filename, contentType string, image []byte) (*Prediction, error)
}

// Mailer delivers account verification email
type Mailer interface {
	SendVerification(ctx context.Context, email, token string) error
}

// ReportEvents receives report state-change notifications for fan-out to
// connected dashboards. Delivery is best-effort.
type ReportEvents interface {
	ReportCreated(report *Report)
	ReportUpdated(report *Report)
	ReportDeleted(id string)
}
