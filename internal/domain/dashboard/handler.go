package dashboard

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/leonunesbs/injecoes-v2/internal/platform/apperror"
	"github.com/leonunesbs/injecoes-v2/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/dashboard", auth.RequireRole(auth.RoleDoctor, auth.RoleNurse))
	g.GET("/clinical-profile", h.ClinicalProfile)
	g.GET("/quantitative", h.Quantitative)
	g.GET("/dose-intervals", h.DoseIntervals)
	g.GET("/ranking", h.Ranking)
	g.GET("/due-injections", h.DueInjections)
	g.GET("/stats", h.Stats)
}

func (h *Handler) ClinicalProfile(c echo.Context) error {
	out, err := h.svc.ClinicalProfile(c.Request().Context())
	if err != nil {
		return apperror.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) Quantitative(c echo.Context) error {
	out, err := h.svc.QuantitativeAnalysis(c.Request().Context())
	if err != nil {
		return apperror.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) DoseIntervals(c echo.Context) error {
	out, err := h.svc.DoseIntervalAnalysis(c.Request().Context())
	if err != nil {
		return apperror.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) Ranking(c echo.Context) error {
	q := RankingQuery{
		SortBy: SortKey(c.QueryParam("sort_by")),
		Order:  c.QueryParam("order"),
	}
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return apperror.ToHTTP(apperror.Validation("limit", "limit must be an integer"))
		}
		q.Limit = n
	}
	out, err := h.svc.PatientRanking(c.Request().Context(), q)
	if err != nil {
		return apperror.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, out)
}

// DueInjections accepts an optional RFC 3339 "at" parameter to evaluate
// the counters for another day.
func (h *Handler) DueInjections(c echo.Context) error {
	var at time.Time
	if v := c.QueryParam("at"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return apperror.ToHTTP(apperror.Validation("at", "at must be an RFC 3339 timestamp"))
		}
		at = t
	}
	out, err := h.svc.DueInjectionCounts(c.Request().Context(), at)
	if err != nil {
		return apperror.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) Stats(c echo.Context) error {
	out, err := h.svc.Stats(c.Request().Context())
	if err != nil {
		return apperror.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, out)
}
