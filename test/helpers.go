package test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alertx/alertx/internal/domain"
	"github.com/alertx/alertx/internal/handler"
	"github.com/alertx/alertx/internal/infrastructure/logger"
	"github.com/alertx/alertx/internal/live"
	"github.com/alertx/alertx/internal/security/auth"
	"github.com/alertx/alertx/internal/service"
)

// memReportRepo is an in-memory ReportRepository for end-to-end tests
type memReportRepo struct {
	mu     sync.Mutex
	byID   map[string]*domain.Report
	order  []string
	nextID int
}

func newMemReportRepo() *memReportRepo {
	return &memReportRepo{byID: map[string]*domain.Report{}}
}

func (m *memReportRepo) Insert(_ context.Context, r *domain.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	r.ID = fmt.Sprintf("r-%d", m.nextID)
	r.CreatedAt = time.Now()
	r.UpdatedAt = r.CreatedAt
	m.byID[r.ID] = r
	m.order = append(m.order, r.ID)
	return nil
}

func (m *memReportRepo) List(_ context.Context) ([]*domain.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.Report{}
	for _, id := range m.order {
		out = append(out, m.byID[id])
	}
	return out, nil
}

func (m *memReportRepo) GetByID(_ context.Context, id string) (*domain.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.byID[id]; ok {
		return r, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memReportRepo) UpdateStatus(_ context.Context, id, status string) (*domain.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	r.Status = status
	r.UpdatedAt = time.Now()
	return r, nil
}

func (m *memReportRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.byID, id)
	for i, other := range m.order {
		if other == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *memReportRepo) CountByStatus(_ context.Context) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[string]int{}
	for _, r := range m.byID {
		counts[r.Status]++
	}
	return counts, nil
}

// memStorage keeps uploaded objects in a map keyed by filename
type memStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemStorage() *memStorage {
	return &memStorage{objects: map[string][]byte{}}
}

func (s *memStorage) Upload(_ context.Context, filename, _ string, body io.Reader) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.objects[filename] = data
	s.mu.Unlock()
	return "https://storage.test/evidence/" + filename, nil
}

// fixedClassifier returns the same prediction for every image
type fixedClassifier struct {
	prediction domain.Prediction
}

func (c *fixedClassifier) Classify(_ context.Context, _, _ string, _ []byte) (*domain.Prediction, error) {
	p := c.prediction
	return &p, nil
}

// TestServerHelper wires real handlers over in-memory collaborators
type TestServerHelper struct {
	Server  *httptest.Server
	Logger  *slog.Logger
	Mux     *http.ServeMux
	Reports *memReportRepo
	Storage *memStorage
	Hub     *live.Hub
}

func NewTestServer(t *testing.T) *TestServerHelper {
	log := logger.NewLogger("debug")
	mux := http.NewServeMux()

	reports := newMemReportRepo()
	storage := newMemStorage()
	classifier := &fixedClassifier{prediction: domain.Prediction{
		Type: "pothole", Severity: "high", Priority: "urgent", Department: "roads",
	}}
	hub := live.NewHub(log)

	reportService := service.NewReportService(reports, storage, classifier, hub, log)
	reportHandler := handler.NewReportHandler(reportService, log)
	liveHandler := handler.NewLiveHandler(hub, log, nil)

	mux.HandleFunc("POST /api/report", reportHandler.Submit)
	mux.HandleFunc("GET /api/reports", reportHandler.List)
	mux.HandleFunc("PUT /api/report/{id}", reportHandler.UpdateStatus)
	mux.HandleFunc("DELETE /api/report/{id}", reportHandler.Delete)
	mux.Handle("GET /ws/updates", liveHandler)

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ready"))
	})

	server := httptest.NewServer(mux)

	return &TestServerHelper{
		Server:  server,
		Logger:  log,
		Mux:     mux,
		Reports: reports,
		Storage: storage,
		Hub:     hub,
	}
}

func (h *TestServerHelper) Close() {
	h.Hub.Close()
	h.Server.Close()
}

func (h *TestServerHelper) URL() string {
	return h.Server.URL
}

// memUserRepo backs the auth endpoints in end-to-end tests
type memUserRepo struct {
	mu      sync.Mutex
	byID    map[string]*domain.User
	byEmail map[string]*domain.User
	nextID  int
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{byID: map[string]*domain.User{}, byEmail: map[string]*domain.User{}}
}

func (m *memUserRepo) Create(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[u.Email]; ok {
		return domain.ErrAlreadyExists
	}
	m.nextID++
	u.ID = fmt.Sprintf("u-%d", m.nextID)
	m.byID[u.ID] = u
	m.byEmail[u.Email] = u
	return nil
}

func (m *memUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.byEmail[email]; ok {
		return u, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memUserRepo) GetByVerificationToken(_ context.Context, token string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.VerificationToken != "" && u.VerificationToken == token {
			return u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memUserRepo) MarkVerified(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	u.Verified = true
	u.VerificationToken = ""
	return nil
}

// captureMailer records verification tokens instead of sending email
type captureMailer struct {
	mu     sync.Mutex
	tokens map[string]string
}

func newCaptureMailer() *captureMailer {
	return &captureMailer{tokens: map[string]string{}}
}

func (c *captureMailer) SendVerification(_ context.Context, email, token string) error {
	c.mu.Lock()
	c.tokens[email] = token
	c.mu.Unlock()
	return nil
}

func (c *captureMailer) tokenFor(email string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tokens[email]
}

// AddAuthHandler mounts the auth endpoints over in-memory users and returns
// the mailer capturing verification tokens
func (h *TestServerHelper) AddAuthHandler() *captureMailer {
	users := newMemUserRepo()
	mailer := newCaptureMailer()
	tokens := auth.NewTokenManager("test-secret", "alertx", time.Hour)
	authService := service.NewAuthService(users, mailer, tokens, h.Logger)
	authHandler := handler.NewAuthHandler(authService, h.Logger)

	h.Mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	h.Mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	h.Mux.HandleFunc("GET /api/auth/verify-email", authHandler.VerifyEmail)

	return mailer
}

// AssertStatusCode helper function
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("Expected status %d, got %d", expected, resp.StatusCode)
	}
}
