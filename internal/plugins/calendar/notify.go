package calendar

import "context"

// DateTimeChangeEvent is published after every committed change of the
// current date or time.
type DateTimeChangeEvent struct {
	CampaignID string          `json:"campaign_id"`
	Diff       int64           `json:"diff"`
	Date       DateTime        `json:"date"`
	Seconds    int64           `json:"seconds"`
	Moons      []MoonPhaseInfo `json:"moons"`
	FullMoons  []string        `json:"full_moons"`
}

// Notifier delivers date/time change events to listeners outside the
// calendar (the host runtime, other sessions).
type Notifier interface {
	PublishDateTimeChange(ctx context.Context, ev DateTimeChangeEvent) error
}

// WorldClock is the host's world time, in seconds since the calendar epoch.
type WorldClock interface {
	WorldTime(ctx context.Context, campaignID string) (int64, bool, error)
	SetWorldTime(ctx context.Context, campaignID string, seconds int64) error
}

// newDateTimeChangeEvent builds the event for the calendar's current state.
func newDateTimeChangeEvent(campaignID string, c *Calendar, diff int64) DateTimeChangeEvent {
	ev := DateTimeChangeEvent{
		CampaignID: campaignID,
		Diff:       diff,
		Date:       c.CurrentDateTime(),
		Seconds:    c.ToSeconds(),
		Moons:      c.MoonPhases(c.CurrentDateTime().Date()),
	}
	for _, id := range c.FullMoons() {
		ev.FullMoons = append(ev.FullMoons, id.String())
	}
	return ev
}
