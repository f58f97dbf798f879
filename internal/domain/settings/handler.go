package settings

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

type Handler struct {
	settings *Settings
}

func NewHandler(s *Settings) *Handler {
	return &Handler{settings: s}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/wrvu-conversion-rate", h.GetConversionRate)
	api.POST("/wrvu-conversion-rate", h.SetConversionRate)
}

func (h *Handler) GetConversionRate(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]float64{"rate": h.settings.ConversionRate()})
}

func (h *Handler) SetConversionRate(c echo.Context) error {
	var body struct {
		Rate *float64 `json:"rate"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if body.Rate == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "rate is required")
	}
	if err := h.settings.SetConversionRate(c.Request().Context(), *body.Rate); err != nil {
		if errors.Is(err, ErrInvalidRate) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "rate": *body.Rate})
}
