package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/alertx/alertx/internal/domain"
)

type memReportRepo struct {
	byID    map[string]*domain.Report
	order   []string
	nextID  int
	failAll bool
}

func newMemReportRepo() *memReportRepo {
	return &memReportRepo{byID: map[string]*domain.Report{}}
}

func (m *memReportRepo) Insert(_ context.Context, r *domain.Report) error {
	if m.failAll {
		return errors.New("insert failed")
	}
	m.nextID++
	r.ID = fmt.Sprintf("r-%d", m.nextID)
	r.CreatedAt = time.Now()
	r.UpdatedAt = r.CreatedAt
	m.byID[r.ID] = r
	m.order = append(m.order, r.ID)
	return nil
}

func (m *memReportRepo) List(_ context.Context) ([]*domain.Report, error) {
	out := []*domain.Report{}
	for _, id := range m.order {
		out = append(out, m.byID[id])
	}
	return out, nil
}

func (m *memReportRepo) GetByID(_ context.Context, id string) (*domain.Report, error) {
	if r, ok := m.byID[id]; ok {
		return r, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memReportRepo) UpdateStatus(_ context.Context, id, status string) (*domain.Report, error) {
	r, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	r.Status = status
	r.UpdatedAt = time.Now()
	return r, nil
}

func (m *memReportRepo) Delete(_ context.Context, id string) error {
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
	counts := map[string]int{}
	for _, r := range m.byID {
		counts[r.Status]++
	}
	return counts, nil
}

type fakeStorage struct {
	uploads int
	fail    bool
}

func (f *fakeStorage) Upload(_ context.Context, filename, _ string, body io.Reader) (string, error) {
	f.uploads++
	if f.fail {
		return "", errors.New("bucket unavailable")
	}
	io.Copy(io.Discard, body)
	return "https://cdn.example.com/evidence/" + filename, nil
}

type fakeClassifier struct {
	calls      int
	fail       bool
	prediction domain.Prediction
}

func (f *fakeClassifier) Classify(_ context.Context, _, _ string, _ []byte) (*domain.Prediction, error) {
	f.calls++
	if f.fail {
		return nil, errors.New("model unavailable")
	}
	p := f.prediction
	return &p, nil
}

type recordedEvents struct {
	created []*domain.Report
	updated []*domain.Report
	deleted []string
}

func (e *recordedEvents) ReportCreated(r *domain.Report) { e.created = append(e.created, r) }
func (e *recordedEvents) ReportUpdated(r *domain.Report) { e.updated = append(e.updated, r) }
func (e *recordedEvents) ReportDeleted(id string)        { e.deleted = append(e.deleted, id) }

func testPrediction() domain.Prediction {
	return domain.Prediction{Type: "pothole", Severity: "high", Priority: "urgent", Department: "roads"}
}

func TestSubmitPersistsClassificationVerbatim(t *testing.T) {
	repo := newMemReportRepo()
	store := &fakeStorage{}
	cls := &fakeClassifier{prediction: testPrediction()}
	events := &recordedEvents{}
	s := NewReportService(repo, store, cls, events, nil)

	report, err := s.Submit(context.Background(), SubmitInput{
		Description:  "large pothole on main street",
		Location:     "12.97,77.59",
		LocationName: "Main St",
		Filename:     "pothole.jpg",
		ContentType:  "image/jpeg",
		Image:        []byte("jpegbytes"),
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if report.ID == "" {
		t.Fatalf("expected assigned id")
	}
	if report.Type != "pothole" || report.Severity != "high" || report.Priority != "urgent" || report.Department != "roads" {
		t.Fatalf("classification fields not carried verbatim: %+v", report)
	}
	if report.Status != domain.StatusPending {
		t.Fatalf("expected status %q, got %q", domain.StatusPending, report.Status)
	}
	if !strings.HasSuffix(report.ImageURL, "pothole.jpg") {
		t.Fatalf("unexpected image url %q", report.ImageURL)
	}
	if len(events.created) != 1 {
		t.Fatalf("expected exactly one created event, got %d", len(events.created))
	}

	// Submission visible on the next list
	all, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(all) != 1 || all[0].ID != report.ID {
		t.Fatalf("expected listed report %s, got %+v", report.ID, all)
	}
}

func TestSubmitUploadFailureSkipsClassifier(t *testing.T) {
	repo := newMemReportRepo()
	store := &fakeStorage{fail: true}
	cls := &fakeClassifier{prediction: testPrediction()}
	events := &recordedEvents{}
	s := NewReportService(repo, store, cls, events, nil)

	if _, err := s.Submit(context.Background(), SubmitInput{
		Filename: "a.jpg", ContentType: "image/jpeg", Image: []byte("x"),
	}); err == nil {
		t.Fatalf("expected upload error")
	}
	if cls.calls != 0 {
		t.Fatalf("classifier called after upload failure")
	}
	if len(repo.byID) != 0 {
		t.Fatalf("report persisted despite failed pipeline")
	}
	if len(events.created) != 0 {
		t.Fatalf("event broadcast despite failed pipeline")
	}
}

func TestSubmitClassifierFailureLeavesNoRecord(t *testing.T) {
	repo := newMemReportRepo()
	store := &fakeStorage{}
	cls := &fakeClassifier{fail: true}
	events := &recordedEvents{}
	s := NewReportService(repo, store, cls, events, nil)

	if _, err := s.Submit(context.Background(), SubmitInput{
		Filename: "a.jpg", ContentType: "image/jpeg", Image: []byte("x"),
	}); err == nil {
		t.Fatalf("expected classification error")
	}
	// The image was uploaded before the classifier ran; the object stays.
	if store.uploads != 1 {
		t.Fatalf("expected one upload attempt, got %d", store.uploads)
	}
	if len(repo.byID) != 0 {
		t.Fatalf("report persisted despite classification failure")
	}
	if len(events.created) != 0 {
		t.Fatalf("event broadcast despite classification failure")
	}
}

func TestSubmitPersistFailure(t *testing.T) {
	repo := newMemReportRepo()
	repo.failAll = true
	events := &recordedEvents{}
	s := NewReportService(repo, &fakeStorage{}, &fakeClassifier{prediction: testPrediction()}, events, nil)

	if _, err := s.Submit(context.Background(), SubmitInput{
		Filename: "a.jpg", ContentType: "image/jpeg", Image: []byte("x"),
	}); err == nil {
		t.Fatalf("expected persistence error")
	}
	if len(events.created) != 0 {
		t.Fatalf("event broadcast despite persistence failure")
	}
}

func TestUpdateStatus(t *testing.T) {
	repo := newMemReportRepo()
	events := &recordedEvents{}
	s := NewReportService(repo, &fakeStorage{}, &fakeClassifier{prediction: testPrediction()}, events, nil)

	report, err := s.Submit(context.Background(), SubmitInput{
		Filename: "a.jpg", ContentType: "image/jpeg", Image: []byte("x"),
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	updated, err := s.UpdateStatus(context.Background(), report.ID, "Resolved")
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Status != "Resolved" {
		t.Fatalf("expected Resolved, got %q", updated.Status)
	}

	// Repeating the same status succeeds and broadcasts again
	if _, err := s.UpdateStatus(context.Background(), report.ID, "Resolved"); err != nil {
		t.Fatalf("idempotent update failed: %v", err)
	}
	if len(events.updated) != 2 {
		t.Fatalf("expected two updated events, got %d", len(events.updated))
	}

	// Unknown id
	if _, err := s.UpdateStatus(context.Background(), "missing", "Resolved"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	repo := newMemReportRepo()
	events := &recordedEvents{}
	s := NewReportService(repo, &fakeStorage{}, &fakeClassifier{prediction: testPrediction()}, events, nil)

	report, err := s.Submit(context.Background(), SubmitInput{
		Filename: "a.jpg", ContentType: "image/jpeg", Image: []byte("x"),
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	if err := s.Delete(context.Background(), report.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if len(events.deleted) != 1 || events.deleted[0] != report.ID {
		t.Fatalf("expected one deleted event for %s, got %v", report.ID, events.deleted)
	}

	// Second delete of the same id is not found
	if err := s.Delete(context.Background(), report.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
	if len(events.deleted) != 1 {
		t.Fatalf("deleted event broadcast for failed delete")
	}
}
