package customfield

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/clinictracker/clinictracker/internal/platform/db/dbtest"
)

func newSQLService(t *testing.T) *Service {
	return NewService(NewRepo(dbtest.New(t)))
}

func TestCreateField(t *testing.T) {
	svc := newSQLService(t)
	ctx := context.Background()

	d := &Definition{FieldName: " severity ", FieldType: TypeSelect, Options: []string{"low", " ", "high"}}
	if err := svc.CreateField(ctx, d); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.ID == 0 || d.FieldName != "severity" {
		t.Errorf("unexpected definition %+v", d)
	}

	fields, err := svc.ListFields(ctx)
	if err != nil {
		t.Fatalf("ListFields: %v", err)
	}
	if len(fields) != 1 || len(fields[0].Options) != 2 || fields[0].Options[1] != "high" {
		t.Errorf("unexpected stored fields %+v", fields)
	}
}

func TestCreateField_DropsOptionsForPlainTypes(t *testing.T) {
	svc := newSQLService(t)
	ctx := context.Background()

	d := &Definition{FieldName: "room", FieldType: TypeText, Options: []string{"ignored"}}
	if err := svc.CreateField(ctx, d); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fields, _ := svc.ListFields(ctx)
	if fields[0].Options != nil {
		t.Errorf("expected no options, got %v", fields[0].Options)
	}
}

func TestCreateField_Validation(t *testing.T) {
	tests := []struct {
		name string
		def  Definition
	}{
		{"missing name", Definition{FieldType: TypeText}},
		{"unknown type", Definition{FieldName: "x", FieldType: "slider"}},
		{"select without options", Definition{FieldName: "x", FieldType: TypeSelect}},
		{"multiselect with blank options", Definition{FieldName: "x", FieldType: TypeMultiselect, Options: []string{"", " "}}},
	}
	svc := newSQLService(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := tt.def
			if err := svc.CreateField(context.Background(), &d); !errors.Is(err, ErrInvalid) {
				t.Errorf("expected ErrInvalid, got %v", err)
			}
		})
	}
}

func TestCreateField_Duplicate(t *testing.T) {
	svc := newSQLService(t)
	ctx := context.Background()

	svc.CreateField(ctx, &Definition{FieldName: "room", FieldType: TypeText})
	err := svc.CreateField(ctx, &Definition{FieldName: "room", FieldType: TypeNumber})
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}
}

func TestDeleteField(t *testing.T) {
	svc := newSQLService(t)
	ctx := context.Background()

	d := &Definition{FieldName: "room", FieldType: TypeText}
	svc.CreateField(ctx, d)
	if err := svc.DeleteField(ctx, d.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.DeleteField(ctx, d.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestHandler_CreateAndList(t *testing.T) {
	h := NewHandler(newSQLService(t))
	e := echo.New()

	body := `{"field_name":"acuity","field_type":"multiselect","options":["a","b"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/custom-field", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	if err := h.CreateField(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/custom-field", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	err := h.CreateField(e.NewContext(req, httptest.NewRecorder()))
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusConflict {
		t.Errorf("expected 409 for duplicate, got %v", err)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/custom-fields", nil)
	rec = httptest.NewRecorder()
	if err := h.ListFields(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"options":["a","b"]`) {
		t.Errorf("unexpected list body %s", rec.Body.String())
	}
}

func TestHandler_DeleteField_NotFound(t *testing.T) {
	h := NewHandler(newSQLService(t))
	e := echo.New()

	req := httptest.NewRequest(http.MethodDelete, "/", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("12")

	err := h.DeleteField(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %v", err)
	}
}
