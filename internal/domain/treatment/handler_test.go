package treatment

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/leonunesbs/injecoes-v2/internal/platform/apperror"
	"github.com/leonunesbs/injecoes-v2/internal/platform/auth"
)

func newTestHandler() (*Handler, *fixture, *echo.Echo) {
	f := newFixture()
	return NewHandler(f.svc), f, echo.New()
}

func jsonRequest(method, body string) *http.Request {
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req.WithContext(auth.WithUser(req.Context(), "user-1", []string{auth.RoleDoctor}))
}

func httpError(t *testing.T, err error) *echo.HTTPError {
	t.Helper()
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected echo.HTTPError, got %v", err)
	}
	return he
}

func TestHandler_CreatePrescription(t *testing.T) {
	h, f, e := newTestHandler()

	body := fmt.Sprintf(`{"patient":{"ref_id":"1001","name":"João"},"indication_id":%q,"medication_id":%q,"swalis_id":%q,"prescribed_od":3,"prescribed_os":0,"start_with_od":true}`,
		f.indicationID, f.medicationID, f.swalisID)
	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, body), rec)

	if err := h.CreatePrescription(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	var p Prescription
	if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.DoctorID != "user-1" || p.PrescribedOD != 3 {
		t.Errorf("unexpected prescription %+v", p)
	}
	if id, ok := p.Indication.CatalogID(); !ok || id != f.indicationID {
		t.Errorf("unexpected indication %+v", p.Indication)
	}
}

func TestHandler_CreatePrescription_ValidationBody(t *testing.T) {
	h, f, e := newTestHandler()

	body := fmt.Sprintf(`{"patient":{"ref_id":"1001","name":"João"},"indication_id":%q,"indication_other":"x","medication_id":%q,"swalis_id":%q,"prescribed_od":1}`,
		f.indicationID, f.medicationID, f.swalisID)
	c := e.NewContext(jsonRequest(http.MethodPost, body), httptest.NewRecorder())

	he := httpError(t, h.CreatePrescription(c))
	if he.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", he.Code)
	}
	b, ok := he.Message.(apperror.Body)
	if !ok || b.Code != "validation" || b.Field != "indication" {
		t.Errorf("unexpected body %#v", he.Message)
	}
}

func TestHandler_ApplyInjection_Conflict(t *testing.T) {
	h, f, e := newTestHandler()
	p := f.prescribe(t, "1", 1, 0)
	inj := f.schedule(t, p.PatientID, 1, 0)

	c := e.NewContext(jsonRequest(http.MethodPost, `{"applied_od":2}`), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(inj.ID.String())

	he := httpError(t, h.ApplyInjection(c))
	if he.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", he.Code)
	}
	if b := he.Message.(apperror.Body); b.Field != "balance_od" || b.ID != p.PatientID.String() {
		t.Errorf("unexpected body %#v", b)
	}
}

func TestHandler_ApplyInjection(t *testing.T) {
	h, f, e := newTestHandler()
	p := f.prescribe(t, "1", 2, 2)
	inj := f.schedule(t, p.PatientID, 1, 1)

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, `{"applied_od":1,"applied_os":1,"side_effects":"Hiperemia"}`), rec)
	c.SetParamNames("id")
	c.SetParamValues(inj.ID.String())

	if err := h.ApplyInjection(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got Injection
	json.Unmarshal(rec.Body.Bytes(), &got)
	if got.Status != InjectionApplied || got.AppliedByID == nil || *got.AppliedByID != "user-1" {
		t.Errorf("unexpected injection %+v", got)
	}
}

func TestHandler_GetPatientBalance(t *testing.T) {
	h, f, e := newTestHandler()
	p := f.prescribe(t, "1", 2, 1)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues(p.PatientID.String())

	if err := h.GetPatientBalance(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var b Balance
	json.Unmarshal(rec.Body.Bytes(), &b)
	if b.BalanceOD != 2 || b.BalanceOS != 1 || b.PatientID != p.PatientID {
		t.Errorf("unexpected balance %+v", b)
	}
}

func TestHandler_InvalidAndMissingIDs(t *testing.T) {
	h, _, e := newTestHandler()

	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("abc")
	if he := httpError(t, h.GetPatient(c)); he.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", he.Code)
	}

	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())
	if he := httpError(t, h.GetInjection(c)); he.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", he.Code)
	}
}

func TestHandler_ListPatients(t *testing.T) {
	h, f, e := newTestHandler()
	f.prescribe(t, "1", 1, 0)
	f.prescribe(t, "2", 1, 0)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?limit=1", nil), rec)
	if err := h.ListPatients(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var resp struct {
		Data    []Patient `json:"data"`
		Total   int       `json:"total"`
		HasMore bool      `json:"has_more"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Total != 2 || len(resp.Data) != 1 || !resp.HasMore {
		t.Errorf("unexpected page %+v", resp)
	}
}

func TestHandler_RescheduleInjection(t *testing.T) {
	h, f, e := newTestHandler()
	p := f.prescribe(t, "1", 1, 0)
	inj := f.schedule(t, p.PatientID, 1, 0)

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, `{"scheduled_date":"2024-06-03T09:00:00Z"}`), rec)
	c.SetParamNames("id")
	c.SetParamValues(inj.ID.String())

	if err := h.RescheduleInjection(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
}

func TestHandler_ListUrgentPatients(t *testing.T) {
	h, f, e := newTestHandler()
	f.prescribe(t, "1", 1, 0)
	f.prescribeUrgent(t, "2")
	h.RegisterRoutes(e.Group("/api/v1"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/patients/urgent", nil)
	req = req.WithContext(auth.WithUser(req.Context(), "user-1", []string{auth.RoleNurse}))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var items []Patient
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(items) != 1 || items[0].RefID != "2" {
		t.Errorf("unexpected urgent list %+v", items)
	}

	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?limit=many", nil), httptest.NewRecorder())
	if he := httpError(t, h.ListUrgentPatients(c)); he.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", he.Code)
	}
}

func TestHandler_ListPatients_Filters(t *testing.T) {
	h, f, e := newTestHandler()
	f.prescribe(t, "1", 1, 0)
	f.prescribeUrgent(t, "2")

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?swalis_id="+f.urgentID.String(), nil), rec)
	if err := h.ListPatients(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var resp struct {
		Data  []Patient `json:"data"`
		Total int       `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 1 || resp.Data[0].RefID != "2" {
		t.Errorf("unexpected page %+v", resp)
	}

	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/?indication_id=abc", nil), httptest.NewRecorder())
	he := httpError(t, h.ListPatients(c))
	if he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", he.Code)
	}
	if body, ok := he.Message.(apperror.Body); !ok || body.Field != "indication_id" {
		t.Errorf("unexpected body %#v", he.Message)
	}
}
