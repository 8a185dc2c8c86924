package calendar

import (
	"log/slog"
	"sort"
)

// World-time integration modes, mirroring how the host's world clock and the
// calendar may drive each other.
const (
	WorldTimeNone       = "none"
	WorldTimeSelf       = "self"
	WorldTimeThirdParty = "third-party"
	WorldTimeMixed      = "mixed"
)

// GeneralSettings are the non-structural calendar settings.
type GeneralSettings struct {
	WorldTimeIntegration string           `json:"world_time_integration"`
	ChangeDateTime       PermissionMatrix `json:"change_date_time"`
}

// pushesWorldTime reports whether calendar changes are written to the world clock.
func (g GeneralSettings) pushesWorldTime() bool {
	return g.WorldTimeIntegration == WorldTimeSelf || g.WorldTimeIntegration == WorldTimeMixed
}

// followsWorldTime reports whether external world clock changes move the calendar.
func (g GeneralSettings) followsWorldTime() bool {
	return g.WorldTimeIntegration == WorldTimeThirdParty || g.WorldTimeIntegration == WorldTimeMixed
}

// Calendar is the RTTS calendar engine. It owns the flat month sequence, the
// four moons, the season table and the time of day, and keeps one flat month
// index per pointer kind. Not safe for concurrent use.
type Calendar struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	General  GeneralSettings `json:"general"`
	Weekdays []Weekday       `json:"weekdays"`
	Time     TimeOfDay       `json:"time"`

	// GameTimeRatio and UpdateFrequency are carried for the host's clock.
	GameTimeRatio   float64 `json:"game_time_ratio"`
	UpdateFrequency int     `json:"update_frequency"`

	months  []*Month
	moons   [moonCount]*Moon
	seasons []Season

	// offsets[i] is the number of days before flat month i; len(months)+1 entries.
	offsets []int

	pointers  [pointerKindCount]int
	fullMoons []MoonID
}

// New creates a calendar with the reference configuration: one year of
// thirty-day months, single one-day cycles for the other moons, the default
// seasons and weekdays, and the current date at the epoch.
func New(id, name string) *Calendar {
	c := newEmpty(id, name)
	lengths := make([]int, MonthsPerYear)
	for i := range lengths {
		lengths[i] = 30
	}
	c.moons[MoonHarvest].CycleLengths = lengths
	c.rebuild()
	c.SetPointer(PointerCurrent, 0, 0)
	c.SetPointer(PointerVisible, 0, 0)
	return c
}

func newEmpty(id, name string) *Calendar {
	c := &Calendar{
		ID:              id,
		Name:            name,
		General:         GeneralSettings{WorldTimeIntegration: WorldTimeMixed, ChangeDateTime: PermissionMatrix{}},
		Weekdays:        append([]Weekday(nil), defaultWeekdays...),
		GameTimeRatio:   1,
		UpdateFrequency: 1,
		seasons:         DefaultSeasons(),
	}
	sortSeasons(c.seasons)
	for i := range c.moons {
		c.moons[i] = NewMoon(MoonID(i))
	}
	for k := range c.pointers {
		c.pointers[k] = -1
	}
	return c
}

// rebuild derives the month sequence from the harvest moon's cycle lengths
// and recalculates every moon's anchors in one step. Pointers are restored
// and clamped into the new sequence.
func (c *Calendar) rebuild() {
	var saved [pointerKindCount]Pointer
	for k := range saved {
		saved[k] = c.Pointer(PointerKind(k))
	}

	c.months = BuildMonths(c.moons[MoonHarvest].CycleLengths)
	c.offsets = make([]int, len(c.months)+1)
	for i, m := range c.months {
		c.offsets[i+1] = c.offsets[i] + m.NumberOfDays
	}
	for _, m := range c.moons {
		m.RecalculateFullMoonDates(c)
	}

	for k := range c.pointers {
		c.pointers[k] = -1
	}
	for _, p := range saved {
		if !p.IsSet() || len(c.months) == 0 {
			continue
		}
		month := p.Month
		if month >= len(c.months) {
			slog.Warn("pointer month no longer exists, clamping to last month",
				slog.String("calendar_id", c.ID),
				slog.String("pointer", p.Kind.String()),
				slog.Int("month", p.Month),
			)
			month = len(c.months) - 1
		}
		day := p.Day
		if n := c.months[month].NumberOfDays; day >= n {
			day = n - 1
		}
		c.SetPointer(p.Kind, month, day)
	}
	c.recheckMoons()
}

// Months returns the flat month sequence. Callers must not mutate it.
func (c *Calendar) Months() []*Month {
	return c.months
}

// MonthCount is the length of the flat month sequence.
func (c *Calendar) MonthCount() int {
	return len(c.months)
}

// Month returns flat month i, or nil when out of range.
func (c *Calendar) Month(i int) *Month {
	if i < 0 || i >= len(c.months) {
		return nil
	}
	return c.months[i]
}

// Moon returns the moon with the given ID, or nil.
func (c *Calendar) Moon(id MoonID) *Moon {
	if id < 0 || id >= moonCount {
		return nil
	}
	return c.moons[id]
}

// Moons returns the four moons in ID order.
func (c *Calendar) Moons() []*Moon {
	return c.moons[:]
}

// Seasons returns a copy of the season table in start order.
func (c *Calendar) Seasons() []Season {
	return append([]Season(nil), c.seasons...)
}

// TotalDays is the number of days in the whole month sequence.
func (c *Calendar) TotalDays() int {
	return c.offsets[len(c.months)]
}

// MinDay is the first day of the calendar.
func (c *Calendar) MinDay() Date {
	return Date{Year: EpochYear}
}

// MaxDay is the last day of the last recorded month.
func (c *Calendar) MaxDay() Date {
	n := len(c.months)
	if n == 0 {
		return c.MinDay()
	}
	last := c.months[n-1]
	return Date{
		Year:  EpochYear + (n-1)/MonthsPerYear,
		Month: (n - 1) % MonthsPerYear,
		Day:   max(last.NumberOfDays-1, 0),
	}
}

// FlatMonthIndex maps a year and month identity to a flat month index. The
// result is not range checked.
func (c *Calendar) FlatMonthIndex(year, month int) int {
	return (year-EpochYear)*MonthsPerYear + month
}

// DateOf returns the calendar date of a flat month index and day.
func (c *Calendar) DateOf(flatMonth, dayIndex int) Date {
	return Date{
		Year:  EpochYear + floorDiv(flatMonth, MonthsPerYear),
		Month: floorMod(flatMonth, MonthsPerYear),
		Day:   dayIndex,
	}
}

// clampMonth forces a flat month index into the sequence.
func (c *Calendar) clampMonth(flatMonth int) int {
	switch {
	case flatMonth < 0:
		return 0
	case flatMonth >= len(c.months):
		return max(len(c.months)-1, 0)
	}
	return flatMonth
}

// DateToDays counts the days from the epoch to the given day. Day indices are
// zero-based, so the epoch itself is day 0. Out-of-range month indices are
// clamped into the sequence.
func (c *Calendar) DateToDays(flatMonth, dayIndex int) int {
	if len(c.months) == 0 {
		return dayIndex
	}
	return c.offsets[c.clampMonth(flatMonth)] + dayIndex
}

// SecondsAt converts a flat month and day to seconds since the epoch,
// including the current time of day.
func (c *Calendar) SecondsAt(flatMonth, dayIndex int) int64 {
	return int64(c.DateToDays(flatMonth, dayIndex))*SecondsPerDay + int64(c.Time.Seconds)
}

// DateTimeToSeconds converts a full date and time to seconds since the epoch.
func (c *Calendar) DateTimeToSeconds(dt DateTime) int64 {
	days := c.DateToDays(c.FlatMonthIndex(dt.Year, dt.Month), dt.Day)
	return int64(days)*SecondsPerDay + int64(dt.Hour*secondsPerHour+dt.Minute*secondsPerMinute+dt.Seconds)
}

// ToSeconds converts the current pointer and time of day to seconds since the epoch.
func (c *Calendar) ToSeconds() int64 {
	p := c.Pointer(PointerCurrent)
	return c.SecondsAt(max(p.Month, 0), max(p.Day, 0))
}

// SecondsToDate is the inverse of SecondsAt. Negative input is treated as the
// epoch. Days past the end of the sequence continue counting in a virtual
// month just after the last one.
func (c *Calendar) SecondsToDate(seconds int64) DateTime {
	if seconds < 0 {
		seconds = 0
	}
	days := int(seconds / SecondsPerDay)
	rem := int(seconds % SecondsPerDay)

	n := len(c.months)
	flat := sort.Search(n, func(i int) bool { return c.offsets[i+1] > days })
	day := days - c.offsets[flat]

	d := c.DateOf(flat, day)
	return DateTime{
		Year:    d.Year,
		Month:   d.Month,
		Day:     d.Day,
		Hour:    rem / secondsPerHour,
		Minute:  rem % secondsPerHour / secondsPerMinute,
		Seconds: rem % secondsPerMinute,
	}
}

// DaysToDate converts a day count since the epoch to a date.
func (c *Calendar) DaysToDate(days int) DateTime {
	return c.SecondsToDate(int64(days) * SecondsPerDay)
}

// DatePlusDays adds days to d. It reports false when d or the result falls
// outside the month sequence.
func (c *Calendar) DatePlusDays(d Date, days int) (Date, bool) {
	flat := c.FlatMonthIndex(d.Year, d.Month)
	if !c.DoesDayExist(flat, d.Day) {
		return Date{}, false
	}
	total := c.offsets[flat] + d.Day + days
	if total < 0 || total >= c.TotalDays() {
		return Date{}, false
	}
	return c.DaysToDate(total).Date(), true
}

// DoesDayExist reports whether the flat month and day are inside the sequence.
func (c *Calendar) DoesDayExist(flatMonth, dayIndex int) bool {
	m := c.Month(flatMonth)
	return m != nil && m.DoesDayExist(dayIndex)
}

// DayOfWeek returns the weekday index of a day. The epoch is weekday 0.
func (c *Calendar) DayOfWeek(flatMonth, dayIndex int) int {
	if len(c.Weekdays) == 0 {
		return 0
	}
	return floorMod(c.DateToDays(flatMonth, dayIndex), len(c.Weekdays))
}

// DaysIntoWeeks lays a month out as week rows. Cells before the first day and
// after the last day are -1.
func (c *Calendar) DaysIntoWeeks(flatMonth int) [][]int {
	m := c.Month(flatMonth)
	week := len(c.Weekdays)
	if m == nil || m.NumberOfDays == 0 || week == 0 {
		return nil
	}
	var weeks [][]int
	row := make([]int, 0, week)
	for i := 0; i < c.DayOfWeek(flatMonth, 0); i++ {
		row = append(row, -1)
	}
	for d := 0; d < m.NumberOfDays; d++ {
		row = append(row, d)
		if len(row) == week {
			weeks = append(weeks, row)
			row = make([]int, 0, week)
		}
	}
	if len(row) > 0 {
		for len(row) < week {
			row = append(row, -1)
		}
		weeks = append(weeks, row)
	}
	return weeks
}

// GetSeason returns the season containing a month identity and day. The
// month is taken mod 12; negative indices get the zero Season.
func (c *Calendar) GetSeason(monthID, dayIndex int) Season {
	if monthID < 0 || dayIndex < 0 || len(c.seasons) == 0 {
		return Season{}
	}
	return c.seasons[seasonFor(c.seasons, monthID%MonthsPerYear, dayIndex)]
}

// CurrentSeason returns the season of the visible month, using the selected
// day, then the current day, then day 0.
func (c *Calendar) CurrentSeason() Season {
	flat := c.pointers[PointerVisible]
	if flat < 0 {
		flat = 0
	}
	day := 0
	if m := c.Month(flat); m != nil {
		if d := m.DayIndex(PointerSelected); d >= 0 {
			day = d
		} else if d := m.DayIndex(PointerCurrent); d >= 0 {
			day = d
		}
	}
	return c.GetSeason(floorMod(flat, MonthsPerYear), day)
}

// SunriseSunsetTime returns the season's flat sunrise (or sunset) offset for
// the date, in seconds after midnight. With withTimestamp the seconds of the
// date's midnight are added.
func (c *Calendar) SunriseSunsetTime(d Date, sunrise, withTimestamp bool) int64 {
	s := c.GetSeason(d.Month, d.Day)
	t := int64(s.SunsetTime)
	if sunrise {
		t = int64(s.SunriseTime)
	}
	if withTimestamp {
		t += int64(c.DateToDays(c.FlatMonthIndex(d.Year, d.Month), d.Day)) * SecondsPerDay
	}
	return t
}

// MoonPhaseInfo is one moon's phase on a date.
type MoonPhaseInfo struct {
	ID           MoonID    `json:"id"`
	Key          string    `json:"key"`
	Name         string    `json:"name"`
	Color        string    `json:"color"`
	CurrentPhase MoonPhase `json:"current_phase"`
}

// MoonPhases returns every moon's phase on d.
func (c *Calendar) MoonPhases(d Date) []MoonPhaseInfo {
	out := make([]MoonPhaseInfo, 0, moonCount)
	for _, m := range c.moons {
		out = append(out, MoonPhaseInfo{
			ID:           m.ID,
			Key:          m.ID.String(),
			Name:         m.Name,
			Color:        m.Color,
			CurrentPhase: m.DateMoonPhase(c, d),
		})
	}
	return out
}

// recheckMoons records which moons are at their single-day full phase on the
// current day.
func (c *Calendar) recheckMoons() {
	c.fullMoons = c.fullMoons[:0]
	d, ok := c.PointerDate(PointerCurrent)
	if !ok {
		return
	}
	for _, m := range c.moons {
		if m.DateMoonPhase(c, d).IsFull() {
			c.fullMoons = append(c.fullMoons, m.ID)
		}
	}
}

// FullMoons returns the moons that are full on the current day, as of the
// last current-pointer move.
func (c *Calendar) FullMoons() []MoonID {
	return append([]MoonID(nil), c.fullMoons...)
}

// PushCycle records a new cycle for a moon. A harvest cycle is a new month,
// so the whole sequence is rebuilt.
func (c *Calendar) PushCycle(id MoonID, length int) bool {
	m := c.Moon(id)
	if m == nil || length <= 0 {
		return false
	}
	if id == MoonHarvest {
		m.CycleLengths = append(m.CycleLengths, length)
		c.rebuild()
		return true
	}
	m.PushCycle(c, length)
	c.recheckMoons()
	return true
}

// DeleteCycle removes a recorded cycle. The harvest moon must keep at least
// one cycle so the calendar keeps at least one month.
func (c *Calendar) DeleteCycle(id MoonID, index int) bool {
	m := c.Moon(id)
	if m == nil {
		return false
	}
	if id == MoonHarvest {
		if len(m.CycleLengths) <= 1 || index < 0 || index >= len(m.CycleLengths) {
			return false
		}
		m.CycleLengths = append(m.CycleLengths[:index], m.CycleLengths[index+1:]...)
		c.rebuild()
		return true
	}
	if !m.DeleteCycle(c, index) {
		return false
	}
	c.recheckMoons()
	return true
}

// Clone returns a deep copy of the calendar.
func (c *Calendar) Clone() *Calendar {
	cp := *c
	cp.Weekdays = append([]Weekday(nil), c.Weekdays...)
	cp.seasons = append([]Season(nil), c.seasons...)
	cp.offsets = append([]int(nil), c.offsets...)
	cp.fullMoons = append([]MoonID(nil), c.fullMoons...)
	cp.General.ChangeDateTime.Users = append([]string(nil), c.General.ChangeDateTime.Users...)
	cp.months = make([]*Month, len(c.months))
	for i, m := range c.months {
		cp.months[i] = m.Clone()
	}
	for i, m := range c.moons {
		cp.moons[i] = m.Clone()
	}
	return &cp
}
