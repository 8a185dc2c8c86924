package calendar

import "log/slog"

// Pointer resolves kind to its flat month index and marked day.
func (c *Calendar) Pointer(kind PointerKind) Pointer {
	p := Pointer{Kind: kind, Month: -1, Day: -1}
	if kind < 0 || kind >= pointerKindCount {
		return p
	}
	p.Month = c.pointers[kind]
	if m := c.Month(p.Month); m != nil {
		p.Day = m.DayIndex(kind)
	} else {
		p.Month = -1
	}
	return p
}

// PointerDate returns the date a pointer refers to. It reports false when
// the pointer is unset or has no day marked.
func (c *Calendar) PointerDate(kind PointerKind) (Date, bool) {
	p := c.Pointer(kind)
	if !p.IsSet() || p.Day < 0 {
		return Date{}, false
	}
	return c.DateOf(p.Month, p.Day), true
}

// SetPointer places kind directly on a flat month and day. The day follows
// Month.UpdateDay rules. It reports false for an out-of-range month.
func (c *Calendar) SetPointer(kind PointerKind, flatMonth, dayIndex int) bool {
	return c.UpdateMonth(flatMonth, kind, &dayIndex)
}

// UpdateMonth moves kind to flatMonth. For kinds that carry a day, the day is
// setDay when given, otherwise the previous day index clamped into the new
// month. Moving the current pointer rechecks full moons.
func (c *Calendar) UpdateMonth(flatMonth int, kind PointerKind, setDay *int) bool {
	if flatMonth < 0 || flatMonth >= len(c.months) {
		slog.Warn("pointer month out of range",
			slog.String("calendar_id", c.ID),
			slog.String("pointer", kind.String()),
			slog.Int("month", flatMonth),
			slog.Int("month_count", len(c.months)),
		)
		return false
	}

	prevDay := -1
	if old := c.Month(c.pointers[kind]); old != nil {
		prevDay = old.DayIndex(kind)
		old.ResetDays(kind)
	}
	c.pointers[kind] = flatMonth

	if kind != PointerVisible {
		m := c.months[flatMonth]
		switch {
		case setDay != nil:
			m.UpdateDay(*setDay, kind)
		case prevDay >= 0:
			m.UpdateDay(min(prevDay, m.NumberOfDays-1), kind)
		default:
			m.UpdateDay(0, kind)
		}
	}
	if kind == PointerCurrent {
		c.recheckMoons()
	}
	return true
}

// CanAddMonths reports whether flatMonth+amount stays inside the sequence.
func (c *Calendar) CanAddMonths(flatMonth, amount int) bool {
	target := flatMonth + amount
	return target >= 0 && target < len(c.months)
}

// ChangeMonth moves kind by amount months. An unset pointer starts from the
// current pointer's month. A move past either end is not performed.
func (c *Calendar) ChangeMonth(amount int, kind PointerKind, setDay *int) bool {
	from := c.pointers[kind]
	if from < 0 {
		from = max(c.pointers[PointerCurrent], 0)
	}
	if !c.CanAddMonths(from, amount) {
		return false
	}
	return c.UpdateMonth(from+amount, kind, setDay)
}

// ChangeYear moves kind by whole years.
func (c *Calendar) ChangeYear(amount int, kind PointerKind) bool {
	return c.ChangeMonth(amount*MonthsPerYear, kind, nil)
}

// ChangeDay moves kind by amount days, rolling across month boundaries in
// either direction. Months without days are stepped over. When the move
// would leave the sequence nothing changes and ChangeDay reports false.
func (c *Calendar) ChangeDay(amount int, kind PointerKind) bool {
	if kind == PointerVisible {
		return false
	}
	start := c.Pointer(kind)
	if !start.IsSet() {
		slog.Warn("cannot change day of unset pointer",
			slog.String("calendar_id", c.ID),
			slog.String("pointer", kind.String()),
		)
		return false
	}
	start.Day = max(start.Day, 0)

	for amount != 0 {
		flat := c.pointers[kind]
		m := c.months[flat]

		if m.NumberOfDays == 0 {
			step, day := 1, 0
			if amount < 0 {
				step, day = -1, -1
			}
			if !c.ChangeMonth(step, kind, &day) {
				c.restorePointer(start)
				return false
			}
			continue
		}

		day := m.DayIndex(kind)
		if day < 0 {
			m.UpdateDay(0, kind)
			day = 0
		}

		switch m.ChangeDay(amount, kind) {
		case 0:
			amount = 0
		case 1:
			first := 0
			if !c.ChangeMonth(1, kind, &first) {
				c.restorePointer(start)
				return false
			}
			amount -= m.NumberOfDays - day
		case -1:
			last := -1
			if !c.ChangeMonth(-1, kind, &last) {
				c.restorePointer(start)
				return false
			}
			amount += day + 1
		}
	}

	if kind == PointerCurrent {
		c.recheckMoons()
	}
	return true
}

func (c *Calendar) restorePointer(p Pointer) {
	c.UpdateMonth(p.Month, p.Kind, &p.Day)
}

// SetCurrentToVisible points the visible month at the current month.
func (c *Calendar) SetCurrentToVisible() {
	if p := c.pointers[PointerCurrent]; p >= 0 {
		c.UpdateMonth(p, PointerVisible, nil)
	}
}

// CurrentDateTime returns the current date and time of day. An unset
// current pointer reads as the epoch.
func (c *Calendar) CurrentDateTime() DateTime {
	p := c.Pointer(PointerCurrent)
	d := c.DateOf(max(p.Month, 0), max(p.Day, 0))
	return DateTime{
		Year:    d.Year,
		Month:   d.Month,
		Day:     d.Day,
		Hour:    c.Time.Hour(),
		Minute:  c.Time.Minute(),
		Seconds: c.Time.Second(),
	}
}

// DateTime returns the selected day when one is set, otherwise the current
// date and time.
func (c *Calendar) DateTime() DateTime {
	if d, ok := c.PointerDate(PointerSelected); ok {
		return DateTime{Year: d.Year, Month: d.Month, Day: d.Day}
	}
	return c.CurrentDateTime()
}

// UpdateTime places the current pointer and time of day at dt. A date
// outside the sequence is clamped to the nearest month.
func (c *Calendar) UpdateTime(dt DateTime) {
	flat := c.FlatMonthIndex(dt.Year, dt.Month)
	if flat < 0 || flat >= len(c.months) {
		slog.Warn("date outside month sequence, clamping",
			slog.String("calendar_id", c.ID),
			slog.Int("year", dt.Year),
			slog.Int("month", dt.Month),
		)
		flat = c.clampMonth(flat)
	}
	day := dt.Day
	c.UpdateMonth(flat, PointerCurrent, &day)
	c.Time.SetTime(dt.Hour, dt.Minute, dt.Seconds)
}

// SetFromSeconds places the current pointer and time of day at an absolute
// number of seconds since the epoch.
func (c *Calendar) SetFromSeconds(seconds int64) {
	c.UpdateTime(c.SecondsToDate(seconds))
}

// ApplyInterval advances the current date and time by the given parts. Time
// parts roll over into days. Year and month parts move whole months and keep
// the day. It reports false when any part could not be applied; a part that
// fails leaves the date and time as they were before that part.
func (c *Calendar) ApplyInterval(parts DateTimeParts) bool {
	ok := true
	if parts.Year != nil && *parts.Year != 0 {
		ok = c.ChangeYear(*parts.Year, PointerCurrent) && ok
	}
	if parts.Month != nil && *parts.Month != 0 {
		ok = c.ChangeMonth(*parts.Month, PointerCurrent, nil) && ok
	}
	if parts.Day != nil && *parts.Day != 0 {
		ok = c.ChangeDay(*parts.Day, PointerCurrent) && ok
	}
	prev := c.Time
	if rollover := c.Time.ChangeTime(deref(parts.Hour), deref(parts.Minute), deref(parts.Seconds)); rollover != 0 {
		// The clock has already wrapped; undo it when the day cannot follow.
		if !c.ChangeDay(rollover, PointerCurrent) {
			c.Time = prev
			ok = false
		}
	}
	return ok
}

// ApplyDateTime sets the current date and time. Unspecified parts keep their
// current value.
func (c *Calendar) ApplyDateTime(parts DateTimeParts) {
	now := c.CurrentDateTime()
	c.UpdateTime(DateTime{
		Year:    derefOr(parts.Year, now.Year),
		Month:   derefOr(parts.Month, now.Month),
		Day:     derefOr(parts.Day, now.Day),
		Hour:    derefOr(parts.Hour, now.Hour),
		Minute:  derefOr(parts.Minute, now.Minute),
		Seconds: derefOr(parts.Seconds, now.Seconds),
	})
}

func deref(p *int) int {
	return derefOr(p, 0)
}

func derefOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}
