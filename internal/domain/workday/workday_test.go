package workday

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/clinictracker/clinictracker/internal/platform/db/dbtest"
)

var clock = time.Date(2024, 3, 15, 17, 45, 0, 0, time.UTC)

func newTestService(t *testing.T) *Service {
	svc := NewService(NewRepo(dbtest.New(t)))
	svc.now = func() time.Time { return clock }
	return svc
}

func TestStartDay_Idempotent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	first, err := svc.StartDay(ctx, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Date != "2024-03-15" || first.EndedAt != nil {
		t.Errorf("unexpected work day %+v", first)
	}

	second, err := svc.StartDay(ctx, "2024-03-15")
	if err != nil {
		t.Fatalf("unexpected error on restart: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("expected the same row, got ids %d and %d", first.ID, second.ID)
	}
}

func TestEndDay(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	svc.StartDay(ctx, "2024-03-15")

	notes := "clinic closed early"
	w, err := svc.EndDay(ctx, "2024-03-15", &notes)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.EndedAt == nil || !w.EndedAt.Equal(clock) {
		t.Errorf("expected ended_at %v, got %v", clock, w.EndedAt)
	}
	if w.Notes == nil || *w.Notes != notes {
		t.Errorf("expected notes to be stored, got %v", w.Notes)
	}
}

func TestEndDay_NotStarted(t *testing.T) {
	svc := newTestService(t)
	if _, err := svc.EndDay(context.Background(), "2024-03-14", nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGetDay_InvalidDate(t *testing.T) {
	svc := newTestService(t)
	if _, err := svc.GetDay(context.Background(), "yesterday"); !errors.Is(err, ErrInvalidDate) {
		t.Errorf("expected ErrInvalidDate, got %v", err)
	}
}

func TestHandler_StartEndGet(t *testing.T) {
	h := NewHandler(newTestService(t))
	e := echo.New()

	req := httptest.NewRequest(http.MethodPost, "/api/work-day/start", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if err := h.StartDay(e.NewContext(req, httptest.NewRecorder())); err != nil {
		t.Fatalf("start: %v", err)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/work-day/end", strings.NewReader(`{"notes":"done"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if err := h.EndDay(e.NewContext(req, httptest.NewRecorder())); err != nil {
		t.Fatalf("end: %v", err)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/work-day?date=2024-03-15", nil)
	rec := httptest.NewRecorder()
	if err := h.GetDay(e.NewContext(req, rec)); err != nil {
		t.Fatalf("get: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"notes":"done"`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/work-day?date=2024-01-01", nil)
	err := h.GetDay(e.NewContext(req, httptest.NewRecorder()))
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %v", err)
	}
}
