package billing

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type Handler struct {
	catalog *Catalog
}

func NewHandler(catalog *Catalog) *Handler {
	return &Handler{catalog: catalog}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/wrvu-lookup", h.GetLookup)
}

// GetLookup returns the catalog keyed by code.
func (h *Handler) GetLookup(c echo.Context) error {
	out := make(map[string]Entry, h.catalog.Len())
	for _, e := range h.catalog.Entries() {
		out[e.Code] = e
	}
	return c.JSON(http.StatusOK, out)
}
