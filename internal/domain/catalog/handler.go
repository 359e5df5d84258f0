package catalog

import (
	"net/http"

	"github.com/google/uuid"
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
	settings := api.Group("/settings")

	read := settings.Group("", auth.RequireRole(auth.RoleDoctor, auth.RoleNurse))
	read.GET("/indications", h.ListIndications)
	read.GET("/indications/:id", h.GetIndication)
	read.GET("/medications", h.ListMedications)
	read.GET("/medications/:id", h.GetMedication)
	read.GET("/swalis", h.ListSwalis)
	read.GET("/swalis/:id", h.GetSwalis)

	write := settings.Group("", auth.RequireRole(auth.RoleAdmin))
	write.POST("/indications", h.CreateIndication)
	write.PUT("/indications/:id", h.UpdateIndication)
	write.DELETE("/indications/:id", h.DeleteIndication)
	write.POST("/medications", h.CreateMedication)
	write.PUT("/medications/:id", h.UpdateMedication)
	write.DELETE("/medications/:id", h.DeleteMedication)
	write.POST("/swalis", h.CreateSwalis)
	write.PUT("/swalis/:id", h.UpdateSwalis)
	write.DELETE("/swalis/:id", h.DeleteSwalis)
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func activeOnly(c echo.Context) bool {
	return c.QueryParam("active") == "true"
}

// -- Indication Handlers --

func (h *Handler) ListIndications(c echo.Context) error {
	ctx := c.Request().Context()
	var (
		items []*Indication
		err   error
	)
	if activeOnly(c) {
		items, err = h.svc.ListActiveIndications(ctx)
	} else {
		items, err = h.svc.ListIndications(ctx)
	}
	if err != nil {
		return apperror.ToHTTP(err)
	}
	if items == nil {
		items = []*Indication{}
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) GetIndication(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	i, err := h.svc.GetIndication(c.Request().Context(), id)
	if err != nil {
		return apperror.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, i)
}

func (h *Handler) CreateIndication(c echo.Context) error {
	var i Indication
	if err := c.Bind(&i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateIndication(c.Request().Context(), &i); err != nil {
		return apperror.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, i)
}

func (h *Handler) UpdateIndication(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var i Indication
	if err := c.Bind(&i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	i.ID = id
	if err := h.svc.UpdateIndication(c.Request().Context(), &i); err != nil {
		return apperror.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, i)
}

func (h *Handler) DeleteIndication(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteIndication(c.Request().Context(), id); err != nil {
		return apperror.ToHTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Medication Handlers --

func (h *Handler) ListMedications(c echo.Context) error {
	ctx := c.Request().Context()
	var (
		items []*Medication
		err   error
	)
	if activeOnly(c) {
		items, err = h.svc.ListActiveMedications(ctx)
	} else {
		items, err = h.svc.ListMedications(ctx)
	}
	if err != nil {
		return apperror.ToHTTP(err)
	}
	if items == nil {
		items = []*Medication{}
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) GetMedication(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	m, err := h.svc.GetMedication(c.Request().Context(), id)
	if err != nil {
		return apperror.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) CreateMedication(c echo.Context) error {
	var m Medication
	if err := c.Bind(&m); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateMedication(c.Request().Context(), &m); err != nil {
		return apperror.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, m)
}

func (h *Handler) UpdateMedication(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var m Medication
	if err := c.Bind(&m); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	m.ID = id
	if err := h.svc.UpdateMedication(c.Request().Context(), &m); err != nil {
		return apperror.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) DeleteMedication(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteMedication(c.Request().Context(), id); err != nil {
		return apperror.ToHTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Swalis Handlers --

func (h *Handler) ListSwalis(c echo.Context) error {
	ctx := c.Request().Context()
	var (
		items []*Swalis
		err   error
	)
	if activeOnly(c) {
		items, err = h.svc.ListActiveSwalis(ctx)
	} else {
		items, err = h.svc.ListSwalis(ctx)
	}
	if err != nil {
		return apperror.ToHTTP(err)
	}
	if items == nil {
		items = []*Swalis{}
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) GetSwalis(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	sw, err := h.svc.GetSwalis(c.Request().Context(), id)
	if err != nil {
		return apperror.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, sw)
}

func (h *Handler) CreateSwalis(c echo.Context) error {
	var sw Swalis
	if err := c.Bind(&sw); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateSwalis(c.Request().Context(), &sw); err != nil {
		return apperror.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, sw)
}

func (h *Handler) UpdateSwalis(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var sw Swalis
	if err := c.Bind(&sw); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	sw.ID = id
	if err := h.svc.UpdateSwalis(c.Request().Context(), &sw); err != nil {
		return apperror.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, sw)
}

func (h *Handler) DeleteSwalis(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteSwalis(c.Request().Context(), id); err != nil {
		return apperror.ToHTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}
