package audit

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alertx/alertx/internal/security/auth"
	"github.com/alertx/alertx/internal/security/middleware"
)

// mountAudited builds the production chain for a mutation route: auth first,
// then the audit trail, then the handler.
func mountAudited(al *Logger, tm *auth.TokenManager, log *slog.Logger, handled *bool) *http.ServeMux {
	chain := middleware.RequireAuth(tm, log)(
		Middleware(al)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			*handled = true
			w.WriteHeader(http.StatusOK)
		})),
	)

	mux := http.NewServeMux()
	mux.Handle("PUT /api/report/{id}", chain)
	mux.Handle("DELETE /api/report/{id}", chain)
	return mux
}

func TestAuditRecordsActor(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))
	al := NewLogger(log)
	tm := auth.NewTokenManager("secret", "alertx", time.Hour)

	var handled bool
	mux := mountAudited(al, tm, log, &handled)

	token, err := tm.GenerateToken("admin-42")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	req := httptest.NewRequest(http.MethodPut, "/api/report/r-7", strings.NewReader(`{"status":"Resolved"}`))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if !handled {
		t.Fatalf("request did not reach the handler: %d", rec.Code)
	}
	out := buf.String()
	if !strings.Contains(out, `"action":"update_status"`) {
		t.Fatalf("no audit line for the status update: %s", out)
	}
	if !strings.Contains(out, `"resource_id":"r-7"`) {
		t.Fatalf("audit line missing resource id: %s", out)
	}
	if !strings.Contains(out, `"actor_id":"admin-42"`) {
		t.Fatalf("audit line missing the authenticated actor: %s", out)
	}
}

func TestAuditRecordsDeletion(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))
	al := NewLogger(log)
	tm := auth.NewTokenManager("secret", "alertx", time.Hour)

	var handled bool
	mux := mountAudited(al, tm, log, &handled)

	token, err := tm.GenerateToken("admin-7")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/report/r-3", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	out := buf.String()
	if !strings.Contains(out, `"action":"delete"`) || !strings.Contains(out, `"actor_id":"admin-7"`) {
		t.Fatalf("deletion audit line missing action or actor: %s", out)
	}
}

func TestAuditUnauthenticatedRequestLogsNothing(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))
	al := NewLogger(log)
	tm := auth.NewTokenManager("secret", "alertx", time.Hour)

	var handled bool
	mux := mountAudited(al, tm, log, &handled)

	req := httptest.NewRequest(http.MethodPut, "/api/report/r-7", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if handled {
		t.Fatalf("handler reached without a token")
	}
	if strings.Contains(buf.String(), `"msg":"audit"`) {
		t.Fatalf("audit line emitted for a rejected request: %s", buf.String())
	}
}
