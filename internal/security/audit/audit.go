package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/alertx/alertx/internal/security/middleware"
)

// Logger emits structured audit lines for triage-relevant mutations
type Logger struct {
	logger *slog.Logger
}

func NewLogger(logger *slog.Logger) *Logger {
	return &Logger{logger: logger}
}

func (al *Logger) LogAction(ctx context.Context, action, resource, resourceID, status string) {
	actorID := ""
	if claims := middleware.GetClaimsFromContext(ctx); claims != nil {
		actorID = claims.ID
	}

	al.logger.Info("audit",
		slog.String("action", action),
		slog.String("resource", resource),
		slog.String("resource_id", resourceID),
		slog.String("actor_id", actorID),
		slog.String("status", status),
		slog.Time("timestamp", time.Now()),
	)
}

func (al *Logger) LogStatusUpdate(ctx context.Context, reportID, status string) {
	al.LogAction(ctx, "update_status", "report", reportID, status)
}

func (al *Logger) LogDeletion(ctx context.Context, reportID string) {
	al.LogAction(ctx, "delete", "report", reportID, "initiated")
}
