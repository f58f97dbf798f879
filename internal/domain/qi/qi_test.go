package qi

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/clinictracker/clinictracker/internal/platform/db/dbtest"
)

func newTestService(t *testing.T) *Service {
	svc := NewService(NewRepo(dbtest.New(t)))
	tick := time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}
	return svc
}

func sampleProject() *Project {
	return &Project{
		Name:        "Asthma Follow Up",
		Description: "controller adherence",
		Variables: []Variable{
			{Name: "controller", Type: "checkbox"},
			{Name: "triggers", Type: "multiselect", Options: []string{"dust", "pollen", "smoke"}},
			{Name: "visits", Type: "number"},
		},
	}
}

func TestCreateProject_Validation(t *testing.T) {
	svc := newTestService(t)
	tests := []struct {
		name string
		p    Project
	}{
		{"missing name", Project{Variables: []Variable{{Name: "a", Type: "text"}}}},
		{"no variables", Project{Name: "x"}},
		{"unnamed variable", Project{Name: "x", Variables: []Variable{{Type: "text"}}}},
		{"untyped variable", Project{Name: "x", Variables: []Variable{{Name: "a"}}}},
		{"duplicate variable", Project{Name: "x", Variables: []Variable{{Name: "a", Type: "text"}, {Name: " a ", Type: "number"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.p
			if err := svc.CreateProject(context.Background(), &p); !errors.Is(err, ErrInvalid) {
				t.Errorf("expected ErrInvalid, got %v", err)
			}
		})
	}
}

func TestProjectLifecycle(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	older := &Project{Name: "Older", Variables: []Variable{{Name: "a", Type: "text"}}}
	if err := svc.CreateProject(ctx, older); err != nil {
		t.Fatalf("create: %v", err)
	}
	p := sampleProject()
	if err := svc.CreateProject(ctx, p); err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.AddEntry(ctx, older.ID, map[string]any{"a": "x"}); err != nil {
		t.Fatalf("add entry: %v", err)
	}

	projects, err := svc.ListProjects(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(projects) != 2 || projects[0].ID != older.ID {
		t.Fatalf("expected the project with the newest entry first, got %+v", projects)
	}
	if *projects[0].EntryCount != 1 || *projects[1].EntryCount != 0 {
		t.Errorf("unexpected entry counts %d, %d", *projects[0].EntryCount, *projects[1].EntryCount)
	}

	p.Description = "revised"
	if err := svc.UpdateProject(ctx, p); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := svc.GetProject(ctx, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Description != "revised" || len(got.Variables) != 3 || got.Variables[1].Options[2] != "smoke" {
		t.Errorf("unexpected project %+v", got)
	}

	if err := svc.DeleteProject(ctx, older.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.GetProject(ctx, older.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := svc.DeleteProject(ctx, older.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestAddEntry_UnknownProject(t *testing.T) {
	svc := newTestService(t)
	if _, err := svc.AddEntry(context.Background(), 404, map[string]any{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestEntries(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	p := sampleProject()
	svc.CreateProject(ctx, p)

	first, _ := svc.AddEntry(ctx, p.ID, map[string]any{"controller": true})
	second, _ := svc.AddEntry(ctx, p.ID, map[string]any{"visits": 3})

	got, _ := svc.GetProject(ctx, p.ID)
	if len(got.Entries) != 2 || got.Entries[0].ID != second.ID {
		t.Fatalf("expected newest entry first, got %+v", got.Entries)
	}
	if got.Entries[0].Data["visits"] != json.Number("3") {
		t.Errorf("expected numeric data to round-trip, got %#v", got.Entries[0].Data["visits"])
	}

	if err := svc.DeleteEntry(ctx, p.ID+1, first.ID); !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("expected ErrEntryNotFound for the wrong project, got %v", err)
	}
	if err := svc.DeleteEntry(ctx, p.ID, first.ID); err != nil {
		t.Fatalf("delete entry: %v", err)
	}
	got, _ = svc.GetProject(ctx, p.ID)
	if len(got.Entries) != 1 {
		t.Errorf("expected 1 entry left, got %d", len(got.Entries))
	}
}

func TestExportCSV(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	p := sampleProject()
	svc.CreateProject(ctx, p)

	if _, _, err := svc.ExportCSV(ctx, p.ID); !errors.Is(err, ErrNoData) {
		t.Errorf("expected ErrNoData, got %v", err)
	}

	svc.AddEntry(ctx, p.ID, map[string]any{"controller": true, "triggers": []any{"dust", "smoke"}})

	name, data, err := svc.ExportCSV(ctx, p.ID)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.HasPrefix(name, "qi_project_Asthma_Follow_Up_20240315_") || !strings.HasSuffix(name, ".csv") {
		t.Errorf("unexpected filename %s", name)
	}

	rows, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	want := []string{"Entry ID", "Created At", "controller", "triggers", "visits"}
	if strings.Join(rows[0], ",") != strings.Join(want, ",") {
		t.Errorf("unexpected header %v", rows[0])
	}
	if rows[1][2] != "true" || rows[1][3] != "dust; smoke" || rows[1][4] != "" {
		t.Errorf("unexpected row %v", rows[1])
	}
}

func TestCellValue(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"x", "x"},
		{json.Number("2.5"), "2.5"},
		{false, "false"},
		{[]any{"a", json.Number("1")}, "a; 1"},
		{map[string]any{"k": "v"}, `{"k":"v"}`},
	}
	for _, tt := range tests {
		if got := cellValue(tt.in); got != tt.want {
			t.Errorf("cellValue(%#v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestHandler_CreateAddExport(t *testing.T) {
	h := NewHandler(newTestService(t))
	e := echo.New()

	body := `{"name":"Flu Shots","variables":[{"name":"given","type":"checkbox"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/qi-projects", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	if err := h.CreateProject(e.NewContext(req, rec)); err != nil {
		t.Fatalf("create: %v", err)
	}
	var p Project
	json.Unmarshal(rec.Body.Bytes(), &p)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"given":true}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("1")
	if err := h.AddEntry(c); err != nil {
		t.Fatalf("add entry: %v", err)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("1")
	if err := h.ExportProject(c); err != nil {
		t.Fatalf("export: %v", err)
	}
	if ct := rec.Header().Get(echo.HeaderContentType); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("unexpected content type %s", ct)
	}
	if !strings.Contains(rec.Header().Get(echo.HeaderContentDisposition), "qi_project_Flu_Shots_") {
		t.Errorf("unexpected disposition %s", rec.Header().Get(echo.HeaderContentDisposition))
	}
	if p.ID != 1 {
		t.Errorf("expected project id 1, got %d", p.ID)
	}
}

func TestHandler_GetProject_NotFound(t *testing.T) {
	h := NewHandler(newTestService(t))
	e := echo.New()

	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("9")

	err := h.GetProject(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %v", err)
	}
}
