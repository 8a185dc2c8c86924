package calendar

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/roadtothesky/internal/apperror"
	"github.com/keyxmakerx/roadtothesky/internal/middleware"
)

// Headers set by the host runtime to identify the acting user.
const (
	HeaderUser = middleware.HeaderRTTSUser
	HeaderRole = middleware.HeaderRTTSRole
)

// maxImportBytes bounds calendar import bodies.
const maxImportBytes = 10 * 1024 * 1024

// Handler processes HTTP requests for the calendar plugin.
type Handler struct {
	svc CalendarService
	now func() time.Time
}

// NewHandler creates a new calendar Handler.
func NewHandler(svc CalendarService) *Handler {
	return &Handler{svc: svc, now: time.Now}
}

// userFromRequest reads the acting user from the host headers.
func userFromRequest(c echo.Context) User {
	return User{
		ID:   c.Request().Header.Get(HeaderUser),
		Role: ParseRole(c.Request().Header.Get(HeaderRole)),
	}
}

// Show returns the calendar read model.
// GET /campaigns/:id/calendar
func (h *Handler) Show(c echo.Context) error {
	snap, err := h.svc.GetSnapshot(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, snap)
}

// Clock renders the clock widget fragment.
// GET /campaigns/:id/calendar/clock
func (h *Handler) Clock(c echo.Context) error {
	snap, err := h.svc.GetSnapshot(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return middleware.Render(c, http.StatusOK, ClockFragment(snap))
}

// ExportCalendarAPI downloads the calendar snapshot.
// GET /campaigns/:id/calendar/config
func (h *Handler) ExportCalendarAPI(c echo.Context) error {
	campaignID := c.Param("id")
	cfg, err := h.svc.ExportConfig(c.Request().Context(), campaignID)
	if err != nil {
		return err
	}
	c.Response().Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="%s-calendar.json"`, campaignID))
	return c.JSON(http.StatusOK, BuildExport(cfg, h.now()))
}

// ImportCalendarAPI replaces the calendar from an uploaded JSON document in
// any supported format. With ?preview=true the parsed snapshot is returned
// without applying it.
// PUT /campaigns/:id/calendar/config
func (h *Handler) ImportCalendarAPI(c echo.Context) error {
	var data []byte
	file, fileErr := c.FormFile("file")
	if fileErr == nil {
		src, err := file.Open()
		if err != nil {
			return apperror.NewBadRequest("could not read uploaded file")
		}
		defer src.Close()
		if data, err = io.ReadAll(io.LimitReader(src, maxImportBytes)); err != nil {
			return apperror.NewBadRequest("could not read uploaded file")
		}
	} else {
		var err error
		data, err = io.ReadAll(io.LimitReader(c.Request().Body, maxImportBytes))
		if err != nil || len(data) == 0 {
			return apperror.NewBadRequest("no file uploaded and no JSON body")
		}
	}

	result, err := DetectAndParse(data)
	if err != nil {
		return apperror.NewBadRequest(err.Error())
	}
	if c.QueryParam("preview") == "true" {
		return c.JSON(http.StatusOK, result)
	}

	warnings, err := h.svc.ImportConfig(c.Request().Context(), c.Param("id"), userFromRequest(c), result.Config)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"status":   "ok",
		"format":   result.Format,
		"partial":  len(warnings) > 0,
		"warnings": warnings,
	})
}

// dateChangeRequest is the body of the date change endpoints. Save and Sync
// default to true.
type dateChangeRequest struct {
	DateTimeParts
	Save *bool `json:"save,omitempty"`
	Sync *bool `json:"sync,omitempty"`
}

func (r dateChangeRequest) options() ChangeOptions {
	opts := DefaultChangeOptions()
	if r.Save != nil {
		opts.Save = *r.Save
	}
	if r.Sync != nil {
		opts.Sync = *r.Sync
	}
	return opts
}

// ChangeDateTimeAPI advances the current date and time by an interval.
// POST /campaigns/:id/calendar/change
func (h *Handler) ChangeDateTimeAPI(c echo.Context) error {
	var req dateChangeRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}
	return h.applyDateChange(c, req, h.svc.ChangeDateTime)
}

// SetDateTimeAPI sets the current date and time.
// PUT /campaigns/:id/calendar/date
func (h *Handler) SetDateTimeAPI(c echo.Context) error {
	var req dateChangeRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}
	return h.applyDateChange(c, req, h.svc.SetDateTime)
}

type dateChangeFunc func(ctx context.Context, campaignID string, user User, parts DateTimeParts, opts ChangeOptions) (bool, error)

func (h *Handler) applyDateChange(c echo.Context, req dateChangeRequest, apply dateChangeFunc) error {
	ctx := c.Request().Context()
	campaignID := c.Param("id")
	user := userFromRequest(c)

	allowed, err := h.svc.CanChangeDateTime(ctx, campaignID, user)
	if err != nil {
		return err
	}
	if !allowed {
		return apperror.NewForbidden("you do not have permission to change the date and time")
	}

	changed, err := apply(ctx, campaignID, user, req.DateTimeParts, req.options())
	if err != nil {
		return err
	}
	snap, err := h.svc.GetSnapshot(ctx, campaignID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"changed":  changed,
		"calendar": snap,
	})
}

// MovePointerAPI moves the visible or selected pointer.
// POST /campaigns/:id/calendar/pointers/:kind/:unit
func (h *Handler) MovePointerAPI(c echo.Context) error {
	kind, ok := ParsePointerKind(c.Param("kind"))
	if !ok {
		return apperror.NewBadRequest("unknown pointer")
	}
	var req struct {
		Amount int `json:"amount"`
	}
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	p, err := h.svc.MovePointer(c.Request().Context(), c.Param("id"), kind, c.Param("unit"), req.Amount)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

// MoonPhasesAPI returns every moon's phase on a date. Missing query
// parameters default to the current date.
// GET /campaigns/:id/calendar/moons?year=&month=&day=
func (h *Handler) MoonPhasesAPI(c echo.Context) error {
	ctx := c.Request().Context()
	campaignID := c.Param("id")

	snap, err := h.svc.GetSnapshot(ctx, campaignID)
	if err != nil {
		return err
	}
	d := snap.Current.Date()
	for _, q := range []struct {
		name string
		dst  *int
	}{{"year", &d.Year}, {"month", &d.Month}, {"day", &d.Day}} {
		raw := c.QueryParam(q.name)
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return apperror.NewBadRequest(q.name + " must be an integer")
		}
		*q.dst = v
	}

	phases, err := h.svc.MoonPhases(ctx, campaignID, d)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"date":  d,
		"moons": phases,
	})
}

// PushCycleAPI records a completed moon cycle.
// POST /campaigns/:id/calendar/moons/:moon/cycles
func (h *Handler) PushCycleAPI(c echo.Context) error {
	moon, ok := ParseMoonID(c.Param("moon"))
	if !ok {
		return apperror.NewNotFound("moon not found")
	}
	var req struct {
		Length int `json:"length"`
	}
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	if err := h.svc.PushCycle(c.Request().Context(), c.Param("id"), userFromRequest(c), moon, req.Length); err != nil {
		return err
	}
	slog.Info("moon cycle recorded",
		slog.String("campaign_id", c.Param("id")),
		slog.String("moon", moon.String()),
		slog.Int("length", req.Length),
	)
	return c.NoContent(http.StatusNoContent)
}

// DeleteCycleAPI removes a recorded moon cycle.
// DELETE /campaigns/:id/calendar/moons/:moon/cycles/:index
func (h *Handler) DeleteCycleAPI(c echo.Context) error {
	moon, ok := ParseMoonID(c.Param("moon"))
	if !ok {
		return apperror.NewNotFound("moon not found")
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		return apperror.NewBadRequest("index must be an integer")
	}

	if err := h.svc.DeleteCycle(c.Request().Context(), c.Param("id"), userFromRequest(c), moon, index); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// ResetCalendarAPI deletes the campaign's calendar so it starts over from the
// reference calendar. DELETE /campaigns/:id/calendar
func (h *Handler) ResetCalendarAPI(c echo.Context) error {
	if err := h.svc.ResetCalendar(c.Request().Context(), c.Param("id"), userFromRequest(c)); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
