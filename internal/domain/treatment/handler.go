package treatment

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/leonunesbs/injecoes-v2/internal/platform/apperror"
	"github.com/leonunesbs/injecoes-v2/internal/platform/auth"
	"github.com/leonunesbs/injecoes-v2/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	care := api.Group("", auth.RequireRole(auth.RoleDoctor, auth.RoleNurse))
	care.GET("/prescriptions", h.ListPrescriptions)
	care.GET("/prescriptions/:id", h.GetPrescription)
	care.GET("/prescriptions/:id/injections", h.ListPrescriptionInjections)
	care.GET("/patients", h.ListPatients)
	care.GET("/patients/urgent", h.ListUrgentPatients)
	care.GET("/patients/:id", h.GetPatient)
	care.GET("/patients/:id/balance", h.GetPatientBalance)
	care.GET("/patients/:id/prescriptions", h.ListPatientPrescriptions)
	care.GET("/patients/:id/injections", h.ListPatientInjections)
	care.GET("/injections/:id", h.GetInjection)
	care.POST("/injections", h.ScheduleInjection)
	care.POST("/injections/:id/apply", h.ApplyInjection)
	care.POST("/injections/:id/cancel", h.CancelInjection)
	care.POST("/injections/:id/miss", h.MarkMissed)
	care.POST("/injections/:id/reschedule", h.RescheduleInjection)

	prescribe := api.Group("", auth.RequireRole(auth.RoleDoctor))
	prescribe.POST("/prescriptions", h.CreatePrescription)
	prescribe.PATCH("/prescriptions/:id", h.UpdatePrescription)
	prescribe.PUT("/patients/:id", h.UpdatePatient)
	prescribe.POST("/patients/:id/activate", h.ActivatePatient)
	prescribe.POST("/patients/:id/deactivate", h.DeactivatePatient)

	admin := api.Group("", auth.RequireRole(auth.RoleAdmin))
	admin.DELETE("/prescriptions/:id", h.DeletePrescription)
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

// queryUUID reads an optional id filter from the query string.
func queryUUID(c echo.Context, name string) (*uuid.UUID, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, apperror.ToHTTP(apperror.Validation(name, "%s must be a UUID", name))
	}
	return &id, nil
}

func bind(c echo.Context, v interface{}) error {
	if err := c.Bind(v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// -- Prescription Handlers --

func (h *Handler) CreatePrescription(c echo.Context) error {
	var in CreatePrescriptionInput
	if err := bind(c, &in); err != nil {
		return err
	}
	ctx := c.Request().Context()
	p, err := h.svc.CreatePrescription(ctx, in, auth.UserIDFromContext(ctx))
	if err != nil {
		return apperror.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) GetPrescription(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	p, err := h.svc.GetPrescription(c.Request().Context(), id)
	if err != nil {
		return apperror.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListPrescriptions(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListPrescriptions(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return apperror.ToHTTP(err)
	}
	if items == nil {
		items = []*Prescription{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdatePrescription(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var in UpdatePrescriptionInput
	if err := bind(c, &in); err != nil {
		return err
	}
	p, err := h.svc.UpdatePrescription(c.Request().Context(), id, in)
	if err != nil {
		return apperror.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) DeletePrescription(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeletePrescription(c.Request().Context(), id); err != nil {
		return apperror.ToHTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListPrescriptionInjections(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	items, err := h.svc.ListPrescriptionInjections(c.Request().Context(), id)
	if err != nil {
		return apperror.ToHTTP(err)
	}
	if items == nil {
		items = []*Injection{}
	}
	return c.JSON(http.StatusOK, items)
}

// -- Patient Handlers --

func (h *Handler) ListPatients(c echo.Context) error {
	pg := pagination.FromContext(c)
	inactive, _ := strconv.ParseBool(c.QueryParam("include_inactive"))
	f := PatientFilter{Search: c.QueryParam("q"), IncludeInactive: inactive}
	var err error
	if f.SwalisID, err = queryUUID(c, "swalis_id"); err != nil {
		return err
	}
	if f.IndicationID, err = queryUUID(c, "indication_id"); err != nil {
		return err
	}
	if f.MedicationID, err = queryUUID(c, "medication_id"); err != nil {
		return err
	}
	items, total, err := h.svc.ListPatients(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return apperror.ToHTTP(err)
	}
	if items == nil {
		items = []*Patient{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListUrgentPatients(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return apperror.ToHTTP(apperror.Validation("limit", "limit must be an integer"))
		}
		limit = n
	}
	items, err := h.svc.ListUrgentPatients(c.Request().Context(), limit)
	if err != nil {
		return apperror.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) GetPatient(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	p, err := h.svc.GetPatient(c.Request().Context(), id)
	if err != nil {
		return apperror.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) GetPatientBalance(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	b, err := h.svc.GetPatientBalance(c.Request().Context(), id)
	if err != nil {
		return apperror.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) UpdatePatient(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var ref PatientRef
	if err := bind(c, &ref); err != nil {
		return err
	}
	p, err := h.svc.UpdatePatient(c.Request().Context(), id, ref)
	if err != nil {
		return apperror.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) setActive(c echo.Context, active bool) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.SetPatientActive(c.Request().Context(), id, active); err != nil {
		return apperror.ToHTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ActivatePatient(c echo.Context) error   { return h.setActive(c, true) }
func (h *Handler) DeactivatePatient(c echo.Context) error { return h.setActive(c, false) }

func (h *Handler) ListPatientPrescriptions(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	items, err := h.svc.ListPatientPrescriptions(c.Request().Context(), id)
	if err != nil {
		return apperror.ToHTTP(err)
	}
	if items == nil {
		items = []*Prescription{}
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) ListPatientInjections(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	items, err := h.svc.ListPatientInjections(c.Request().Context(), id)
	if err != nil {
		return apperror.ToHTTP(err)
	}
	if items == nil {
		items = []*Injection{}
	}
	return c.JSON(http.StatusOK, items)
}

// -- Injection Handlers --

func (h *Handler) ScheduleInjection(c echo.Context) error {
	var in ScheduleInjectionInput
	if err := bind(c, &in); err != nil {
		return err
	}
	inj, err := h.svc.ScheduleInjection(c.Request().Context(), in)
	if err != nil {
		return apperror.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, inj)
}

func (h *Handler) GetInjection(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	inj, err := h.svc.GetInjection(c.Request().Context(), id)
	if err != nil {
		return apperror.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, inj)
}

func (h *Handler) ApplyInjection(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var in ApplyInput
	if err := bind(c, &in); err != nil {
		return err
	}
	ctx := c.Request().Context()
	inj, err := h.svc.ApplyInjection(ctx, id, in, auth.UserIDFromContext(ctx))
	if err != nil {
		return apperror.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, inj)
}

type cancelRequest struct {
	Reason *string `json:"reason,omitempty"`
}

func (h *Handler) CancelInjection(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req cancelRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	inj, err := h.svc.CancelInjection(c.Request().Context(), id, req.Reason)
	if err != nil {
		return apperror.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, inj)
}

func (h *Handler) MarkMissed(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	inj, err := h.svc.MarkMissed(c.Request().Context(), id)
	if err != nil {
		return apperror.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, inj)
}

type rescheduleRequest struct {
	ScheduledDate time.Time `json:"scheduled_date"`
}

func (h *Handler) RescheduleInjection(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req rescheduleRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	inj, err := h.svc.RescheduleInjection(c.Request().Context(), id, req.ScheduledDate)
	if err != nil {
		return apperror.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, inj)
}
