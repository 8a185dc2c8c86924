package syncapi

import (
	"github.com/labstack/echo/v4"
)

// RegisterAPIRoutes adds the host runtime's REST endpoints under /api/v1/.
// guard authenticates the host; rateLimit throttles world clock writes,
// which a host ticking its clock can send in bursts.
func RegisterAPIRoutes(e *echo.Echo, h *Handler, events *EventsHandler, guard, rateLimit echo.MiddlewareFunc) {
	v1 := e.Group("/api/v1", guard)

	cg := v1.Group("/campaigns/:id")
	cg.GET("/worldtime", h.GetWorldTime, rateLimit)
	cg.PUT("/worldtime", h.SetWorldTime, rateLimit)

	// Long-lived stream; one connection per host, so it is not throttled.
	if events != nil {
		cg.GET("/events", events.StreamDateTimeChanges)
	}
}
