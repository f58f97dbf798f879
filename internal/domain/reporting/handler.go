package reporting

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/dashboard-data", h.GetDashboardData)
	api.GET("/daily-visits", h.GetDailyVisits)
	api.GET("/export", h.ExportVisits)
}

// GetDashboardData serves ?period=today|week|month|last30|alltime|custom
// with start_date and end_date for custom.
func (h *Handler) GetDashboardData(c echo.Context) error {
	p := Period(c.QueryParam("period"))
	if p == "" {
		p = PeriodToday
	}
	custom := Range{Start: c.QueryParam("start_date"), End: c.QueryParam("end_date")}
	d, err := h.svc.Dashboard(c.Request().Context(), p, custom)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) GetDailyVisits(c echo.Context) error {
	d, err := h.svc.Daily(c.Request().Context(), c.QueryParam("date"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, d)
}

// ExportVisits streams an XLSX workbook for the optional start_date/end_date.
func (h *Handler) ExportVisits(c echo.Context) error {
	r := Range{Start: c.QueryParam("start_date"), End: c.QueryParam("end_date")}
	name, data, err := h.svc.Export(c.Request().Context(), r)
	if err != nil {
		return httpError(err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	return c.Blob(http.StatusOK, ContentTypeXLSX, data)
}

func httpError(err error) error {
	if errors.Is(err, ErrInvalidRange) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}
