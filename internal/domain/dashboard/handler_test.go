package dashboard

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leonunesbs/injecoes-v2/internal/domain/treatment"
	"github.com/leonunesbs/injecoes-v2/internal/platform/apperror"
	"github.com/leonunesbs/injecoes-v2/internal/platform/auth"
)

func getRequest(target string, roles ...string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if len(roles) > 0 {
		req = req.WithContext(auth.WithUser(req.Context(), "user-1", roles))
	}
	return req
}

func TestHandler_RankingRejectsUnknownSort(t *testing.T) {
	h := NewHandler(newTestService(&fakeRepo{}, nil))
	e := echo.New()

	c := e.NewContext(getRequest("/dashboard/ranking?sort_by=name"), httptest.NewRecorder())
	err := h.Ranking(c)

	var he *echo.HTTPError
	require.True(t, errors.As(err, &he))
	assert.Equal(t, http.StatusBadRequest, he.Code)
	body, ok := he.Message.(apperror.Body)
	require.True(t, ok)
	assert.Equal(t, "sort_by", body.Field)
}

func TestHandler_RankingBadLimit(t *testing.T) {
	h := NewHandler(newTestService(&fakeRepo{}, nil))
	c := echo.New().NewContext(getRequest("/dashboard/ranking?limit=ten"), httptest.NewRecorder())

	var he *echo.HTTPError
	require.True(t, errors.As(h.Ranking(c), &he))
	assert.Equal(t, http.StatusBadRequest, he.Code)
}

func TestHandler_Ranking(t *testing.T) {
	repo := &fakeRepo{patients: []PatientFacts{patient("10", 0), patient("2", 1), patient("1", 2)}}
	h := NewHandler(newTestService(repo, nil))
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(getRequest("/dashboard/ranking?order=desc&limit=1"), rec)

	require.NoError(t, h.Ranking(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var rows []RankingRow
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "10", rows[0].RefID)
}

func TestHandler_DueInjectionsAt(t *testing.T) {
	at := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	repo := &fakeRepo{injections: []fakeInjection{
		{true, treatment.InjectionScheduled, at.AddDate(0, 0, -1)},
	}}
	h := NewHandler(newTestService(repo, nil))
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(getRequest("/dashboard/due-injections?at="+at.Format(time.RFC3339)), rec)

	require.NoError(t, h.DueInjections(c))
	var got DueCounts
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, DueCounts{OverdueScheduled: 1, Total: 1}, got)

	c = echo.New().NewContext(getRequest("/dashboard/due-injections?at=yesterday"), httptest.NewRecorder())
	var he *echo.HTTPError
	require.True(t, errors.As(h.DueInjections(c), &he))
	assert.Equal(t, http.StatusBadRequest, he.Code)
}

func TestHandler_RoutesRequireCareRole(t *testing.T) {
	e := echo.New()
	NewHandler(newTestService(&fakeRepo{}, nil)).RegisterRoutes(e.Group("/api/v1"))

	tests := []struct {
		name  string
		roles []string
		want  int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"nurse", []string{auth.RoleNurse}, http.StatusOK},
		{"doctor", []string{auth.RoleDoctor}, http.StatusOK},
		{"admin", []string{auth.RoleAdmin}, http.StatusOK},
		{"other", []string{"receptionist"}, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, getRequest("/api/v1/dashboard/stats", tt.roles...))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
