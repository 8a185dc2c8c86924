package calendar

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes sets up all calendar-related routes. Every route is scoped
// to a campaign and sits behind the host runtime's API key guard; who the
// acting user is comes from the request headers.
func RegisterRoutes(e *echo.Echo, h *Handler, guard echo.MiddlewareFunc) {
	cg := e.Group("/campaigns/:id", guard)

	// Read model and clock widget.
	cg.GET("/calendar", h.Show)
	cg.GET("/calendar/clock", h.Clock)

	// Snapshot export, import and reset (import and reset are GM only, checked
	// by the service).
	cg.GET("/calendar/config", h.ExportCalendarAPI)
	cg.PUT("/calendar/config", h.ImportCalendarAPI)
	cg.DELETE("/calendar", h.ResetCalendarAPI)

	// Current date and time.
	cg.POST("/calendar/change", h.ChangeDateTimeAPI)
	cg.PUT("/calendar/date", h.SetDateTimeAPI)

	// Visible and selected pointers (:unit is day, month or year).
	cg.POST("/calendar/pointers/:kind/:unit", h.MovePointerAPI)

	// Moon phases and cycle history.
	cg.GET("/calendar/moons", h.MoonPhasesAPI)
	cg.POST("/calendar/moons/:moon/cycles", h.PushCycleAPI)
	cg.DELETE("/calendar/moons/:moon/cycles/:index", h.DeleteCycleAPI)
}
