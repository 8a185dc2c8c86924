package syncapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/roadtothesky/internal/apperror"
)

// Handler serves the host runtime's world clock endpoints.
type Handler struct {
	service WorldTimeService
}

// NewHandler creates a new world time handler.
func NewHandler(service WorldTimeService) *Handler {
	return &Handler{service: service}
}

// GetWorldTime returns the campaign's world time
// (GET /api/v1/campaigns/:id/worldtime).
func (h *Handler) GetWorldTime(c echo.Context) error {
	wt, err := h.service.GetWorldTime(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, wt)
}

// SetWorldTime stores the host's world time and moves the calendar to it
// when the campaign follows the host (PUT /api/v1/campaigns/:id/worldtime).
func (h *Handler) SetWorldTime(c echo.Context) error {
	var req SetWorldTimeInput
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}
	if req.Seconds == nil {
		return apperror.NewBadRequest("seconds is required")
	}

	res, err := h.service.SetWorldTime(c.Request().Context(), c.Param("id"), *req.Seconds)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}
