package calendar

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
)

// formatClock renders seconds after midnight as HH:MM:SS.
func formatClock(seconds int64) string {
	s := int(seconds % SecondsPerDay)
	return fmt.Sprintf("%02d:%02d:%02d", s/secondsPerHour, s%secondsPerHour/secondsPerMinute, s%secondsPerMinute)
}

// ClockFragment renders the compact date/time widget: date, time of day,
// season with daylight, and one badge per moon. Loaded via HTMX polling.
func ClockFragment(snap *Snapshot) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		e := templ.EscapeString[string]
		cur := snap.Current
		timeOfDay := int64(cur.Hour*secondsPerHour + cur.Minute*secondsPerMinute + cur.Seconds)

		if _, err := fmt.Fprintf(w,
			`<div class="rtts-clock" id="rtts-clock" data-seconds="%d">`+
				`<div class="rtts-clock-date">%s, %d %s %d</div>`+
				`<div class="rtts-clock-time">%s</div>`+
				`<div class="rtts-clock-season" style="color: %s">%s <span class="rtts-daylight">%s - %s</span></div>`,
			snap.Seconds,
			e(snap.Weekday.Name), cur.Day+1, e(snap.MonthName), cur.Year,
			formatClock(timeOfDay),
			e(snap.Season.Color), e(snap.Season.Name), formatClock(snap.Sunrise), formatClock(snap.Sunset),
		); err != nil {
			return err
		}

		if _, err := io.WriteString(w, `<ul class="rtts-moons">`); err != nil {
			return err
		}
		for _, m := range snap.Moons {
			if _, err := fmt.Fprintf(w,
				`<li class="rtts-moon rtts-moon-%s" title="%s"><i class="rtts-phase rtts-phase-%s" style="color: %s"></i>%s</li>`,
				e(m.Key), e(m.CurrentPhase.Name), e(m.CurrentPhase.Icon), e(m.Color), e(m.Name),
			); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</ul></div>`)
		return err
	})
}
