package calendar

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// StoredCalendar is one campaign's persisted calendar row.
type StoredCalendar struct {
	CampaignID     string
	CalendarID     string
	Name           string
	Config         Config
	CurrentSeconds int64
	UpdatedAt      time.Time
}

// CalendarRepository defines persistence operations for campaign calendars.
type CalendarRepository interface {
	Get(ctx context.Context, campaignID string) (*StoredCalendar, error)
	Save(ctx context.Context, sc *StoredCalendar) error
	Delete(ctx context.Context, campaignID string) error
}

// calendarRepo is the database/sql implementation of CalendarRepository. The
// SQL is kept portable between MariaDB and SQLite.
type calendarRepo struct {
	db *sql.DB
}

// NewCalendarRepository creates a new SQL-backed calendar repository.
func NewCalendarRepository(db *sql.DB) CalendarRepository {
	return &calendarRepo{db: db}
}

const calendarCols = `campaign_id, calendar_id, name, config, current_seconds, updated_at`

// scanCalendar reads a row into a StoredCalendar. A missing row is (nil, nil).
func scanCalendar(scanner interface{ Scan(...any) error }) (*StoredCalendar, error) {
	sc := &StoredCalendar{}
	var raw string
	err := scanner.Scan(&sc.CampaignID, &sc.CalendarID, &sc.Name, &raw, &sc.CurrentSeconds, &sc.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(raw), &sc.Config); err != nil {
		return nil, fmt.Errorf("decode calendar config: %w", err)
	}
	return sc, nil
}

// Get returns the calendar for a campaign, or nil when none is stored.
func (r *calendarRepo) Get(ctx context.Context, campaignID string) (*StoredCalendar, error) {
	return scanCalendar(r.db.QueryRowContext(ctx,
		`SELECT `+calendarCols+` FROM rtts_calendars WHERE campaign_id = ?`, campaignID))
}

// Save inserts or replaces the campaign's calendar.
func (r *calendarRepo) Save(ctx context.Context, sc *StoredCalendar) error {
	raw, err := json.Marshal(sc.Config)
	if err != nil {
		return fmt.Errorf("encode calendar config: %w", err)
	}
	if sc.UpdatedAt.IsZero() {
		sc.UpdatedAt = time.Now().UTC()
	}
	_, err = r.db.ExecContext(ctx,
		`REPLACE INTO rtts_calendars (`+calendarCols+`) VALUES (?, ?, ?, ?, ?, ?)`,
		sc.CampaignID, sc.CalendarID, sc.Name, string(raw), sc.CurrentSeconds, sc.UpdatedAt,
	)
	return err
}

// Delete removes the campaign's calendar. Deleting a missing calendar is not an error.
func (r *calendarRepo) Delete(ctx context.Context, campaignID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM rtts_calendars WHERE campaign_id = ?`, campaignID)
	return err
}
