package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/keyxmakerx/roadtothesky/internal/apperror"
)

const tracerName = "github.com/keyxmakerx/roadtothesky/internal/plugins/calendar"

// ChangeOptions controls what happens after a date/time change is applied.
type ChangeOptions struct {
	Save                  bool `json:"save"`
	Sync                  bool `json:"sync"`
	BypassPermissionCheck bool `json:"bypass_permission_check"`
}

// DefaultChangeOptions saves and syncs, and checks permissions.
func DefaultChangeOptions() ChangeOptions {
	return ChangeOptions{Save: true, Sync: true}
}

// ServiceConfig holds the service's collaborators and timeouts. Clock and
// Notifier are optional.
type ServiceConfig struct {
	Clock       WorldClock
	Notifier    Notifier
	SyncTimeout time.Duration
	SaveTimeout time.Duration
}

// Snapshot is the read model served to the host: the current date and time
// with its season, daylight and moon phases.
type Snapshot struct {
	CampaignID     string          `json:"campaign_id"`
	CalendarID     string          `json:"calendar_id"`
	Name           string          `json:"name"`
	Current        DateTime        `json:"current"`
	Seconds        int64           `json:"seconds"`
	Weekday        Weekday         `json:"weekday"`
	Season         Season          `json:"season"`
	Sunrise        int64           `json:"sunrise"`
	Sunset         int64           `json:"sunset"`
	Moons          []MoonPhaseInfo `json:"moons"`
	Visible        Pointer         `json:"visible"`
	Selected       Pointer         `json:"selected"`
	MinDay         Date            `json:"min_day"`
	MaxDay         Date            `json:"max_day"`
	WorldTimeMode  string          `json:"world_time_integration"`
	MonthName      string          `json:"month_name"`
	MonthLength    int             `json:"month_length"`
	TotalMonths    int             `json:"total_months"`
	PartialWarning []string        `json:"warnings,omitempty"`
}

// CalendarService defines business logic for campaign calendars.
type CalendarService interface {
	GetSnapshot(ctx context.Context, campaignID string) (*Snapshot, error)
	ExportConfig(ctx context.Context, campaignID string) (Config, error)
	ImportConfig(ctx context.Context, campaignID string, user User, cfg Config) ([]string, error)
	ResetCalendar(ctx context.Context, campaignID string, user User) error

	CanChangeDateTime(ctx context.Context, campaignID string, user User) (bool, error)
	ChangeDateTime(ctx context.Context, campaignID string, user User, interval DateTimeParts, opts ChangeOptions) (bool, error)
	SetDateTime(ctx context.Context, campaignID string, user User, parts DateTimeParts, opts ChangeOptions) (bool, error)
	SetFromWorldTime(ctx context.Context, campaignID string, seconds int64) (bool, error)

	MovePointer(ctx context.Context, campaignID string, kind PointerKind, unit string, amount int) (Pointer, error)
	MoonPhases(ctx context.Context, campaignID string, d Date) ([]MoonPhaseInfo, error)
	PushCycle(ctx context.Context, campaignID string, user User, moon MoonID, length int) error
	DeleteCycle(ctx context.Context, campaignID string, user User, moon MoonID, index int) error

	// Flush waits for pending background saves, syncs and notifications.
	Flush(ctx context.Context) error
}

// calendarService is the default CalendarService implementation. It keeps one
// engine per campaign; mu serializes every engine access.
type calendarService struct {
	repo   CalendarRepository
	cfg    ServiceConfig
	tracer trace.Tracer

	mu        sync.Mutex
	calendars map[string]*Calendar
	warnings  map[string][]string
	versions  map[string]int64

	saveMu sync.Mutex
	saved  map[string]int64

	bg sync.WaitGroup
}

// NewCalendarService creates a CalendarService backed by the given repository.
func NewCalendarService(repo CalendarRepository, cfg ServiceConfig) CalendarService {
	if cfg.SyncTimeout <= 0 {
		cfg.SyncTimeout = 5 * time.Second
	}
	if cfg.SaveTimeout <= 0 {
		cfg.SaveTimeout = 5 * time.Second
	}
	return &calendarService{
		repo:      repo,
		cfg:       cfg,
		tracer:    otel.Tracer(tracerName),
		calendars: make(map[string]*Calendar),
		warnings:  make(map[string][]string),
		versions:  make(map[string]int64),
		saved:     make(map[string]int64),
	}
}

// engine returns the campaign's calendar, loading it on first use. A campaign
// with no stored calendar gets the reference calendar. Callers hold s.mu.
func (s *calendarService) engine(ctx context.Context, campaignID string) (*Calendar, error) {
	if c, ok := s.calendars[campaignID]; ok {
		return c, nil
	}
	stored, err := s.repo.Get(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("get calendar: %w", err)
	}
	var c *Calendar
	if stored == nil {
		c = New(uuid.NewString(), "Road to the Sky")
	} else {
		res := LoadFromConfig(stored.Config)
		c = res.Calendar
		if c.ID == "" {
			c.ID = stored.CalendarID
		}
		s.logWarnings(campaignID, res.Warnings)
		s.warnings[campaignID] = res.Warnings
	}
	s.calendars[campaignID] = c
	return c, nil
}

func (s *calendarService) logWarnings(campaignID string, warnings []string) {
	for _, w := range warnings {
		slog.Warn("calendar config repaired on load",
			slog.String("campaign_id", campaignID),
			slog.String("warning", w),
		)
	}
}

// GetSnapshot returns the read model for the campaign's calendar.
func (s *calendarService) GetSnapshot(ctx context.Context, campaignID string) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.engine(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	now := c.CurrentDateTime()
	p := c.Pointer(PointerCurrent)
	snap := &Snapshot{
		CampaignID:     campaignID,
		CalendarID:     c.ID,
		Name:           c.Name,
		Current:        now,
		Seconds:        c.ToSeconds(),
		Season:         c.GetSeason(now.Month, now.Day),
		Sunrise:        c.SunriseSunsetTime(now.Date(), true, false),
		Sunset:         c.SunriseSunsetTime(now.Date(), false, false),
		Moons:          c.MoonPhases(now.Date()),
		Visible:        c.Pointer(PointerVisible),
		Selected:       c.Pointer(PointerSelected),
		MinDay:         c.MinDay(),
		MaxDay:         c.MaxDay(),
		WorldTimeMode:  c.General.WorldTimeIntegration,
		TotalMonths:    c.MonthCount(),
		PartialWarning: s.warnings[campaignID],
	}
	if len(c.Weekdays) > 0 && p.IsSet() {
		snap.Weekday = c.Weekdays[c.DayOfWeek(p.Month, max(p.Day, 0))]
	}
	if m := c.Month(p.Month); m != nil {
		snap.MonthName = m.Name
		snap.MonthLength = m.NumberOfDays
	}
	return snap, nil
}

// ExportConfig returns the campaign's calendar snapshot.
func (s *calendarService) ExportConfig(ctx context.Context, campaignID string) (Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.engine(ctx, campaignID)
	if err != nil {
		return Config{}, err
	}
	return c.ToConfig(), nil
}

// ImportConfig replaces the campaign's calendar. Only game masters may import.
// The calendar is saved synchronously and the repair warnings returned.
func (s *calendarService) ImportConfig(ctx context.Context, campaignID string, user User, cfg Config) ([]string, error) {
	if user.Role != RoleGM {
		return nil, apperror.NewForbidden("only the game master can replace the calendar")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if cfg.ID == "" {
		if existing, ok := s.calendars[campaignID]; ok {
			cfg.ID = existing.ID
		} else {
			cfg.ID = uuid.NewString()
		}
	}
	res := LoadFromConfig(cfg)
	s.logWarnings(campaignID, res.Warnings)

	c := res.Calendar
	version := s.versions[campaignID] + 1

	s.saveMu.Lock()
	err := s.repo.Save(ctx, s.stored(campaignID, c))
	if err == nil {
		s.saved[campaignID] = version
	}
	s.saveMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("save calendar: %w", err)
	}

	s.calendars[campaignID] = c
	s.warnings[campaignID] = res.Warnings
	s.versions[campaignID] = version
	return res.Warnings, nil
}

// ResetCalendar deletes the campaign's stored calendar. The next request
// starts again from the reference calendar. Only game masters may reset.
func (s *calendarService) ResetCalendar(ctx context.Context, campaignID string, user User) error {
	if user.Role != RoleGM {
		return apperror.NewForbidden("only the game master can reset the calendar")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.saveMu.Lock()
	err := s.repo.Delete(ctx, campaignID)
	if err == nil {
		// Background saves queued before the reset must not recreate the row.
		s.saved[campaignID] = s.versions[campaignID]
	}
	s.saveMu.Unlock()
	if err != nil {
		return fmt.Errorf("delete calendar: %w", err)
	}

	delete(s.calendars, campaignID)
	delete(s.warnings, campaignID)
	slog.Info("calendar reset", slog.String("campaign_id", campaignID), slog.String("user_id", user.ID))
	return nil
}

func (s *calendarService) stored(campaignID string, c *Calendar) *StoredCalendar {
	return &StoredCalendar{
		CampaignID:     campaignID,
		CalendarID:     c.ID,
		Name:           c.Name,
		Config:         c.ToConfig(),
		CurrentSeconds: c.ToSeconds(),
	}
}

// CanChangeDateTime reports whether user may change the campaign's date.
func (s *calendarService) CanChangeDateTime(ctx context.Context, campaignID string, user User) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.engine(ctx, campaignID)
	if err != nil {
		return false, err
	}
	return c.General.ChangeDateTime.CanUser(user), nil
}

// ChangeDateTime advances the current date and time by an interval. It
// reports false, with no error, when the user may not change the date or
// the interval is empty.
func (s *calendarService) ChangeDateTime(ctx context.Context, campaignID string, user User, interval DateTimeParts, opts ChangeOptions) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "calendar.ChangeDateTime",
		trace.WithAttributes(attribute.String("campaign_id", campaignID)))
	defer span.End()

	return s.change(ctx, campaignID, user, opts, func(c *Calendar) bool {
		if interval.IsZero() {
			return false
		}
		start := c.ToSeconds()
		if !c.ApplyInterval(interval) {
			slog.Warn("date change partially applied",
				slog.String("campaign_id", campaignID),
			)
		}
		return c.ToSeconds() != start
	})
}

// SetDateTime sets the current date and time. Parts left nil keep their
// current value.
func (s *calendarService) SetDateTime(ctx context.Context, campaignID string, user User, parts DateTimeParts, opts ChangeOptions) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "calendar.SetDateTime",
		trace.WithAttributes(attribute.String("campaign_id", campaignID)))
	defer span.End()

	return s.change(ctx, campaignID, user, opts, func(c *Calendar) bool {
		c.ApplyDateTime(parts)
		return true
	})
}

// SetFromWorldTime follows the host's world clock. It only applies in the
// third-party and mixed integration modes and never syncs back.
func (s *calendarService) SetFromWorldTime(ctx context.Context, campaignID string, seconds int64) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "calendar.SetFromWorldTime",
		trace.WithAttributes(
			attribute.String("campaign_id", campaignID),
			attribute.Int64("seconds", seconds),
		))
	defer span.End()

	opts := ChangeOptions{Save: true, BypassPermissionCheck: true}
	return s.change(ctx, campaignID, User{}, opts, func(c *Calendar) bool {
		if !c.General.followsWorldTime() || c.ToSeconds() == seconds {
			return false
		}
		c.SetFromSeconds(seconds)
		return true
	})
}

// change runs apply against the campaign's engine under the lock and commits
// the result when apply reports a change.
func (s *calendarService) change(ctx context.Context, campaignID string, user User, opts ChangeOptions, apply func(*Calendar) bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.engine(ctx, campaignID)
	if err != nil {
		return false, err
	}
	if !opts.BypassPermissionCheck && !c.General.ChangeDateTime.CanUser(user) {
		slog.Info("date change denied",
			slog.String("campaign_id", campaignID),
			slog.String("user_id", user.ID),
			slog.String("role", string(user.Role)),
		)
		return false, nil
	}

	before := c.ToSeconds()
	if !apply(c) {
		return false, nil
	}
	s.commit(ctx, campaignID, c, before, opts)
	return true, nil
}

// commit emits the change notification and starts the save and world clock
// writes in the background. Callers hold s.mu.
func (s *calendarService) commit(ctx context.Context, campaignID string, c *Calendar, before int64, opts ChangeOptions) {
	after := c.ToSeconds()
	ev := newDateTimeChangeEvent(campaignID, c, after-before)

	if s.cfg.Notifier != nil {
		s.background(ctx, s.cfg.SyncTimeout, func(ctx context.Context) {
			if err := s.cfg.Notifier.PublishDateTimeChange(ctx, ev); err != nil {
				slog.Warn("publish date change failed",
					slog.String("campaign_id", campaignID),
					slog.Any("error", err),
				)
			}
		})
	}
	if opts.Save {
		s.saveAsync(ctx, campaignID, c)
	}
	if opts.Sync && s.cfg.Clock != nil && c.General.pushesWorldTime() {
		s.background(ctx, s.cfg.SyncTimeout, func(ctx context.Context) {
			if err := s.cfg.Clock.SetWorldTime(ctx, campaignID, after); err != nil {
				slog.Warn("world time sync failed",
					slog.String("campaign_id", campaignID),
					slog.Int64("seconds", after),
					slog.Any("error", err),
				)
			}
		})
	}
}

// saveAsync persists a copy of the calendar. Saves that finish out of order
// never overwrite a newer version. Callers hold s.mu.
func (s *calendarService) saveAsync(ctx context.Context, campaignID string, c *Calendar) {
	s.versions[campaignID]++
	version := s.versions[campaignID]
	sc := s.stored(campaignID, c)

	s.background(ctx, s.cfg.SaveTimeout, func(ctx context.Context) {
		s.saveMu.Lock()
		defer s.saveMu.Unlock()
		if version <= s.saved[campaignID] {
			return
		}
		if err := s.repo.Save(ctx, sc); err != nil {
			slog.Error("calendar save failed",
				slog.String("campaign_id", campaignID),
				slog.Any("error", err),
			)
			return
		}
		s.saved[campaignID] = version
	})
}

// background runs fn in a goroutine detached from ctx's cancellation.
func (s *calendarService) background(ctx context.Context, timeout time.Duration, fn func(context.Context)) {
	ctx = context.WithoutCancel(ctx)
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		fn(ctx)
	}()
}

// wait blocks until every background save, sync and notification is done.
func (s *calendarService) wait() {
	s.bg.Wait()
}

// Flush is wait bounded by ctx, used on shutdown.
func (s *calendarService) Flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("flushing calendar saves: %w", ctx.Err())
	}
}

// Pointer move units.
const (
	UnitDay   = "day"
	UnitMonth = "month"
	UnitYear  = "year"
)

// MovePointer moves the visible or selected pointer. The current pointer is
// only moved through ChangeDateTime and SetDateTime.
func (s *calendarService) MovePointer(ctx context.Context, campaignID string, kind PointerKind, unit string, amount int) (Pointer, error) {
	if kind == PointerCurrent {
		return Pointer{}, apperror.NewBadRequest("use the date endpoints to move the current date")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.engine(ctx, campaignID)
	if err != nil {
		return Pointer{}, err
	}
	if !c.Pointer(kind).IsSet() {
		c.SetPointer(kind, max(c.Pointer(PointerCurrent).Month, 0), max(c.Pointer(PointerCurrent).Day, 0))
	}

	var moved bool
	switch unit {
	case UnitDay:
		if kind == PointerVisible {
			return Pointer{}, apperror.NewBadRequest("the visible pointer has no day")
		}
		moved = c.ChangeDay(amount, kind)
	case UnitMonth:
		moved = c.ChangeMonth(amount, kind, nil)
	case UnitYear:
		moved = c.ChangeYear(amount, kind)
	default:
		return Pointer{}, apperror.NewBadRequest("unit must be day, month or year")
	}
	if !moved && amount != 0 {
		return c.Pointer(kind), apperror.NewConflict("pointer cannot move past the calendar range")
	}
	return c.Pointer(kind), nil
}

// MoonPhases returns every moon's phase on d.
func (s *calendarService) MoonPhases(ctx context.Context, campaignID string, d Date) ([]MoonPhaseInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.engine(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	return c.MoonPhases(d), nil
}

// PushCycle records a completed cycle of a moon. Only game masters may edit
// moon history.
func (s *calendarService) PushCycle(ctx context.Context, campaignID string, user User, moon MoonID, length int) error {
	ctx, span := s.tracer.Start(ctx, "calendar.PushCycle",
		trace.WithAttributes(
			attribute.String("campaign_id", campaignID),
			attribute.String("moon", moon.String()),
		))
	defer span.End()

	if user.Role != RoleGM {
		return apperror.NewForbidden("only the game master can edit moon cycles")
	}
	if length <= 0 {
		return apperror.NewValidation("cycle length must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.engine(ctx, campaignID)
	if err != nil {
		return err
	}
	if !c.PushCycle(moon, length) {
		return apperror.NewValidation("unknown moon")
	}
	s.saveAsync(ctx, campaignID, c)
	return nil
}

// DeleteCycle removes a recorded cycle of a moon.
func (s *calendarService) DeleteCycle(ctx context.Context, campaignID string, user User, moon MoonID, index int) error {
	ctx, span := s.tracer.Start(ctx, "calendar.DeleteCycle",
		trace.WithAttributes(
			attribute.String("campaign_id", campaignID),
			attribute.String("moon", moon.String()),
			attribute.Int("index", index),
		))
	defer span.End()

	if user.Role != RoleGM {
		return apperror.NewForbidden("only the game master can edit moon cycles")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.engine(ctx, campaignID)
	if err != nil {
		return err
	}
	if !c.DeleteCycle(moon, index) {
		return apperror.NewValidation("cycle index out of range")
	}
	s.saveAsync(ctx, campaignID, c)
	return nil
}
