package calendar

import "fmt"

// MoonID identifies one of the four RTTS moons.
type MoonID int

const (
	MoonHarvest MoonID = iota
	MoonLantern
	MoonFoxfire
	MoonEye

	moonCount
)

// moonIdentity is the static display data for a moon.
type moonIdentity struct {
	Key   string
	Name  string
	Color string
}

var moonIdentities = [moonCount]moonIdentity{
	{Key: "harvest", Name: "Harvest Moon", Color: "#f5c542"},
	{Key: "lantern", Name: "Lantern Moon", Color: "#ffe9a8"},
	{Key: "foxfire", Name: "Foxfire Moon", Color: "#7bd88f"},
	{Key: "eye", Name: "The Eye", Color: "#c64b4b"},
}

// String returns the moon's route key.
func (id MoonID) String() string {
	if id < 0 || id >= moonCount {
		return fmt.Sprintf("moon(%d)", int(id))
	}
	return moonIdentities[id].Key
}

// ParseMoonID maps a route key ("harvest", "lantern", ...) to a MoonID.
func ParseMoonID(s string) (MoonID, bool) {
	for i, m := range moonIdentities {
		if m.Key == s {
			return MoonID(i), true
		}
	}
	return 0, false
}

// Phase icons.
const (
	IconFull           = "full"
	IconWaningGibbous  = "waning-gibbous"
	IconFirstQuarter   = "first-quarter"
	IconWaningCrescent = "waning-crescent"
	IconNewMoon        = "new"
	IconWaxingCrescent = "waxing-crescent"
	IconLastQuarter    = "last-quarter"
	IconWaxingGibbous  = "waxing-gibbous"
)

// MoonPhase describes the phase of a moon on one day. Length is the number
// of days the phase lasts in the containing cycle.
type MoonPhase struct {
	Name      string `json:"name"`
	Icon      string `json:"icon"`
	Length    int    `json:"length"`
	SingleDay bool   `json:"single_day"`
}

// DefaultPhase is returned outside recorded history.
var DefaultPhase = MoonPhase{Name: "Full Moon", Icon: IconFull, Length: 1, SingleDay: false}

func singleDayPhase(name, icon string) MoonPhase {
	return MoonPhase{Name: name, Icon: icon, Length: 1, SingleDay: true}
}

func spanPhase(name, icon string, length int) MoonPhase {
	return MoonPhase{Name: name, Icon: icon, Length: length, SingleDay: false}
}

// IsFull reports whether the phase is the single-day full moon that starts a cycle.
func (p MoonPhase) IsFull() bool {
	return p.SingleDay && p.Icon == IconFull
}

// DayCounter is the calendar's day-counting primitive as seen by a Moon.
type DayCounter interface {
	MinDay() Date
	FlatMonthIndex(year, month int) int
	DateToDays(flatMonth, dayIndex int) int
	DatePlusDays(d Date, days int) (Date, bool)
}

// Moon is one RTTS moon and its recorded history. CycleLengths is append-only
// data; FullMoonDates is derived from it and must be recalculated after every
// edit. FullMoonDates may be shorter than CycleLengths when later anchors fall
// past the end of the month sequence.
type Moon struct {
	ID            MoonID `json:"id"`
	Name          string `json:"name"`
	CycleLengths  []int  `json:"cycle_lengths"`
	FirstFullMoon Date   `json:"first_full_moon"`
	FullMoonDates []Date `json:"full_moon_dates"`
	Color         string `json:"color"`
}

// NewMoon creates a moon with a single one-day cycle anchored at the epoch.
func NewMoon(id MoonID) *Moon {
	return &Moon{
		ID:            id,
		Name:          moonIdentities[id].Name,
		Color:         moonIdentities[id].Color,
		CycleLengths:  []int{1},
		FirstFullMoon: Date{Year: EpochYear},
	}
}

// Clone returns a deep copy.
func (m *Moon) Clone() *Moon {
	c := *m
	c.CycleLengths = append([]int(nil), m.CycleLengths...)
	c.FullMoonDates = append([]Date(nil), m.FullMoonDates...)
	return &c
}

// TotalDays is the number of days covered by the recorded cycles.
func (m *Moon) TotalDays() int {
	total := 0
	for _, l := range m.CycleLengths {
		total += l
	}
	return total
}

// DateMoonPhase returns the phase on date d. Dates before the first full moon
// or past the last recorded cycle get DefaultPhase.
func (m *Moon) DateMoonPhase(dc DayCounter, d Date) MoonPhase {
	anchor := dc.DateToDays(dc.FlatMonthIndex(m.FirstFullMoon.Year, m.FirstFullMoon.Month), m.FirstFullMoon.Day)
	days := dc.DateToDays(dc.FlatMonthIndex(d.Year, d.Month), d.Day)
	if days < anchor {
		return DefaultPhase
	}
	return m.phaseAt(days - anchor)
}

// phaseAt locates the cycle containing daysSinceReference and resolves the
// phase inside it.
func (m *Moon) phaseAt(daysSinceReference int) MoonPhase {
	start := 0
	for _, length := range m.CycleLengths {
		if daysSinceReference < start+length {
			return cyclePhase(length, daysSinceReference-start)
		}
		start += length
	}
	return DefaultPhase
}

// cyclePhase resolves day offset within a cycle of the given length. Four
// marker days always land on an exact day:
//
//	full = 0, new = ceil(L/2), half (waning) = ceil(new/2), half (waxing) = L - floor(floor(L/2)/2)
//
// Days between markers belong to a multi-day phase whose length is the gap
// between the bounding markers minus one.
func cyclePhase(length, offset int) MoonPhase {
	newMarker := (length + 1) / 2
	waningHalf := (newMarker + 1) / 2
	waxingHalf := length - (length/2)/2

	switch {
	case offset == 0:
		return singleDayPhase("Full Moon", IconFull)
	case offset == newMarker:
		return singleDayPhase("New Moon", IconNewMoon)
	case offset == waningHalf:
		return singleDayPhase("Half Moon", IconFirstQuarter)
	case offset == waxingHalf:
		return singleDayPhase("Half Moon", IconLastQuarter)
	case offset < waningHalf:
		return spanPhase("Waning Gibbous Moon", IconWaningGibbous, waningHalf-1)
	case offset < newMarker:
		return spanPhase("Waning Crescent Moon", IconWaningCrescent, newMarker-waningHalf-1)
	case offset < waxingHalf:
		return spanPhase("Waxing Crescent Moon", IconWaxingCrescent, waxingHalf-newMarker-1)
	default:
		return spanPhase("Waxing Gibbous Moon", IconWaxingGibbous, length-waxingHalf-1)
	}
}

// RecalculateFullMoonDates rebuilds FullMoonDates from CycleLengths. Harvest
// anchors are positional: cycle i starts on day 0 of the i-th month after
// the first full moon's year. Other moons walk their cycle lengths forward
// from the calendar's first day and stop at the end of the month sequence.
func (m *Moon) RecalculateFullMoonDates(dc DayCounter) {
	m.FullMoonDates = make([]Date, 0, len(m.CycleLengths))
	if m.ID == MoonHarvest {
		for i := range m.CycleLengths {
			m.FullMoonDates = append(m.FullMoonDates, Date{
				Year:  m.FirstFullMoon.Year + i/MonthsPerYear,
				Month: i % MonthsPerYear,
			})
		}
		return
	}
	if len(m.CycleLengths) == 0 {
		return
	}
	anchor := dc.MinDay()
	m.FullMoonDates = append(m.FullMoonDates, anchor)
	for _, length := range m.CycleLengths[:len(m.CycleLengths)-1] {
		next, ok := dc.DatePlusDays(anchor, length)
		if !ok {
			return
		}
		anchor = next
		m.FullMoonDates = append(m.FullMoonDates, anchor)
	}
}

// PushCycle appends a recorded cycle and recalculates anchors.
func (m *Moon) PushCycle(dc DayCounter, length int) {
	m.CycleLengths = append(m.CycleLengths, length)
	m.RecalculateFullMoonDates(dc)
}

// DeleteCycle removes the cycle at index and recalculates anchors. It reports
// false when index is out of range.
func (m *Moon) DeleteCycle(dc DayCounter, index int) bool {
	if index < 0 || index >= len(m.CycleLengths) {
		return false
	}
	m.CycleLengths = append(m.CycleLengths[:index], m.CycleLengths[index+1:]...)
	m.RecalculateFullMoonDates(dc)
	return true
}
