package qi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/qi-projects")
	g.GET("", h.ListProjects)
	g.POST("", h.CreateProject)
	g.GET("/:id", h.GetProject)
	g.PUT("/:id", h.UpdateProject)
	g.DELETE("/:id", h.DeleteProject)
	g.POST("/:id/entries", h.AddEntry)
	g.DELETE("/:id/entries/:entry_id", h.DeleteEntry)
	g.GET("/:id/export", h.ExportProject)
}

func (h *Handler) ListProjects(c echo.Context) error {
	projects, err := h.svc.ListProjects(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, projects)
}

func (h *Handler) CreateProject(c echo.Context) error {
	var p Project
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateProject(c.Request().Context(), &p); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) GetProject(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	p, err := h.svc.GetProject(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) UpdateProject(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var p Project
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p.ID = id
	if err := h.svc.UpdateProject(c.Request().Context(), &p); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) DeleteProject(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.DeleteProject(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// AddEntry takes the entry data as the raw JSON object body. Only the body
// is bound so path parameters never leak into the data.
func (h *Handler) AddEntry(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var data map[string]any
	if err := (&echo.DefaultBinder{}).BindBody(c, &data); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	e, err := h.svc.AddEntry(c.Request().Context(), id, data)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, e)
}

func (h *Handler) DeleteEntry(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	entryID, err := paramID(c, "entry_id")
	if err != nil {
		return err
	}
	if err := h.svc.DeleteEntry(c.Request().Context(), id, entryID); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ExportProject(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	name, data, err := h.svc.ExportCSV(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	return c.Blob(http.StatusOK, "text/csv", data)
}

func paramID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrInvalid), errors.Is(err, ErrNoData):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Project not found")
	case errors.Is(err, ErrEntryNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Entry not found")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
