package reporting

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func newTestHandler() (*Handler, *echo.Echo) {
	svc, _ := newTestService(sampleVisits()...)
	return NewHandler(svc), echo.New()
}

func TestHandler_GetDashboardData(t *testing.T) {
	h, e := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard-data?period=month", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.GetDashboardData(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	var body map[string]any
	json.Unmarshal(rec.Body.Bytes(), &body)
	for _, key := range []string{"stats", "daily_stats", "start_date", "end_date", "conversion_rate", "estimated_compensation"} {
		if _, ok := body[key]; !ok {
			t.Errorf("missing key %s", key)
		}
	}
	if body["start_date"] != "2024-03-01" {
		t.Errorf("expected month start, got %v", body["start_date"])
	}
}

func TestHandler_GetDashboardData_BadCustom(t *testing.T) {
	h, e := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard-data?period=custom&start_date=2024-03-10", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.GetDashboardData(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestHandler_GetDailyVisits(t *testing.T) {
	h, e := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/daily-visits?date=2024-03-14", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.GetDailyVisits(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body struct {
		Visits []map[string]any `json:"visits"`
		Stats  Summary          `json:"stats"`
	}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if len(body.Visits) != 1 || body.Stats.TotalVisits != 1 {
		t.Errorf("unexpected daily payload: %d visits, %d total", len(body.Visits), body.Stats.TotalVisits)
	}
	if body.Stats.CustomFieldStats["severity"]["low"] != 1 {
		t.Errorf("expected custom field stats, got %v", body.Stats.CustomFieldStats)
	}
}

func TestHandler_ExportVisits(t *testing.T) {
	h, e := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/export?start_date=2024-03-01&end_date=2024-03-31", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.ExportVisits(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ct := rec.Header().Get(echo.HeaderContentType); ct != ContentTypeXLSX {
		t.Errorf("unexpected content type %s", ct)
	}
	if cd := rec.Header().Get(echo.HeaderContentDisposition); !strings.Contains(cd, "clinic_visits_2024-03-01_to_2024-03-31.xlsx") {
		t.Errorf("unexpected content disposition %s", cd)
	}
	if rec.Body.Len() == 0 {
		t.Error("expected a workbook body")
	}
}
