package app

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/roadtothesky/internal/middleware"
	"github.com/keyxmakerx/roadtothesky/internal/plugins/calendar"
	"github.com/keyxmakerx/roadtothesky/internal/plugins/syncapi"
)

// healthTimeout bounds each dependency ping in /healthz.
const healthTimeout = 2 * time.Second

// RegisterRoutes builds the plugins and registers their routes. This is
// the single place where the calendar engine meets its infrastructure:
// MariaDB for snapshots, Redis for the world clock and date change events.
func (a *App) RegisterRoutes() {
	e := a.Echo

	// Health check for Docker health monitoring.
	e.GET("/healthz", a.healthz)

	// Host runtime authentication shared by every plugin route.
	guard := syncapi.RequireAPIKey(a.Config.Sync.APIKeyHash, a.Config.Sync.AllowedIPs)

	// calendar plugin: the engine, persisted in MariaDB, synced through Redis.
	worldClock := syncapi.NewRedisWorldClock(a.Redis)
	calendarSvc := calendar.NewCalendarService(
		calendar.NewCalendarRepository(a.DB),
		calendar.ServiceConfig{
			Clock:       worldClock,
			Notifier:    syncapi.NewRedisNotifier(a.Redis),
			SyncTimeout: a.Config.Sync.Timeout,
			SaveTimeout: a.Config.Sync.SaveTimeout,
		},
	)
	a.Calendar = calendarSvc
	calendar.RegisterRoutes(e, calendar.NewHandler(calendarSvc), guard)

	// syncapi plugin: the host's world clock endpoints and the date change
	// event stream fed by the notifier above.
	syncHandler := syncapi.NewHandler(syncapi.NewWorldTimeService(worldClock, calendarSvc))
	syncapi.RegisterAPIRoutes(e, syncHandler, syncapi.NewEventsHandler(a.Redis), guard,
		middleware.RateLimit(a.Config.Sync.RateLimit, time.Minute))
}

// healthz reports whether MariaDB and Redis answer.
func (a *App) healthz(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), healthTimeout)
	defer cancel()

	status := map[string]string{"status": "ok", "database": "ok", "redis": "ok"}
	code := http.StatusOK
	if err := a.DB.PingContext(ctx); err != nil {
		status["database"] = err.Error()
		status["status"] = "degraded"
		code = http.StatusServiceUnavailable
	}
	if err := a.Redis.Ping(ctx).Err(); err != nil {
		status["redis"] = err.Error()
		status["status"] = "degraded"
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, status)
}
