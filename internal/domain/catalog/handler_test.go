package catalog

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func newTestHandler() (*Handler, *echo.Echo) {
	return NewHandler(newTestService()), echo.New()
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected echo.HTTPError, got %v", err)
	}
	return he.Code
}

func TestHandler_CreateSwalis(t *testing.T) {
	h, e := newTestHandler()

	body := `{"code":"A1","name":"A1","description":"Risco iminente","priority":1,"is_active":true}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/settings/swalis", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.CreateSwalis(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	var sw Swalis
	json.Unmarshal(rec.Body.Bytes(), &sw)
	if sw.Priority != 1 || sw.ID == uuid.Nil {
		t.Errorf("unexpected response %+v", sw)
	}
}

func TestHandler_CreateSwalis_Invalid(t *testing.T) {
	h, e := newTestHandler()

	body := `{"code":"A1","name":"A1","description":"x","priority":42}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := e.NewContext(req, httptest.NewRecorder())

	if code := statusOf(t, h.CreateSwalis(c)); code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", code)
	}
}

func TestHandler_GetIndication_NotFound(t *testing.T) {
	h, e := newTestHandler()

	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())

	if code := statusOf(t, h.GetIndication(c)); code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", code)
	}
}

func TestHandler_GetIndication_InvalidID(t *testing.T) {
	h, e := newTestHandler()

	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("not-a-uuid")

	if code := statusOf(t, h.GetIndication(c)); code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", code)
	}
}

func TestHandler_ListMedications_ActiveOnly(t *testing.T) {
	h, e := newTestHandler()
	h.svc.Seed(nil)
	m := &Medication{Code: "RETIRED", Name: "Retired", ActiveSubstance: "x"}
	h.svc.CreateMedication(nil, m)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/settings/medications?active=true", nil)
	rec := httptest.NewRecorder()
	if err := h.ListMedications(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var items []Medication
	json.Unmarshal(rec.Body.Bytes(), &items)
	if len(items) != 7 {
		t.Errorf("expected 7 active medications, got %d", len(items))
	}
}

func TestHandler_UpdateIndication(t *testing.T) {
	h, e := newTestHandler()
	i := &Indication{Code: "OV", Name: "Oclusão", IsActive: true}
	h.svc.CreateIndication(nil, i)

	body := `{"code":"OV","name":"Oclusão Venosa","is_active":false}`
	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(i.ID.String())

	if err := h.UpdateIndication(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ := h.svc.GetIndication(nil, i.ID)
	if got.Name != "Oclusão Venosa" || got.IsActive {
		t.Errorf("update not applied: %+v", got)
	}
}

func TestHandler_DeleteSwalis(t *testing.T) {
	h, e := newTestHandler()
	sw := &Swalis{Code: "B", Name: "B", Description: "d", Priority: 3}
	h.svc.CreateSwalis(nil, sw)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodDelete, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues(sw.ID.String())

	if err := h.DeleteSwalis(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
}
