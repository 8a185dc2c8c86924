// Package calendar implements the Road to the Sky (RTTS) campaign calendar.
// Months are not a formula: the flat month sequence is rebuilt from the
// harvest moon's historical cycle lengths, and every moon's phase is derived
// from its own recorded cycles instead of a fixed period. Seasons are a fixed
// four-band table keyed by month identity.
//
// The engine (Calendar, Month, Moon, Season) is synchronous and unguarded.
// The service layer owns one engine per campaign and serializes access to it.
package calendar

import "fmt"

const (
	// EpochYear is the year of the first day of the flat month sequence.
	EpochYear = 410

	// MonthsPerYear is the number of month identities that repeat every year.
	MonthsPerYear = 12

	// SecondsPerDay is fixed; RTTS days are not configurable.
	SecondsPerDay = 86400

	secondsPerHour   = 3600
	secondsPerMinute = 60
)

// Date is a calendar date. Month is the month identity (0-11) within Year and
// Day is zero-based within that month.
type Date struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

// String formats the date as "YYYY-MM-DD" with one-based month and day.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month+1, d.Day+1)
}

// Before reports whether d is strictly earlier than o.
func (d Date) Before(o Date) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

// DateTime is a Date plus a time of day.
type DateTime struct {
	Year    int `json:"year"`
	Month   int `json:"month"`
	Day     int `json:"day"`
	Hour    int `json:"hour"`
	Minute  int `json:"minute"`
	Seconds int `json:"seconds"`
}

// Date drops the time of day.
func (dt DateTime) Date() Date {
	return Date{Year: dt.Year, Month: dt.Month, Day: dt.Day}
}

// DateTimeParts is a partial date/time. Nil fields are "not specified":
// an interval skips them, an absolute set keeps the current value.
type DateTimeParts struct {
	Year    *int `json:"year,omitempty"`
	Month   *int `json:"month,omitempty"`
	Day     *int `json:"day,omitempty"`
	Hour    *int `json:"hour,omitempty"`
	Minute  *int `json:"minute,omitempty"`
	Seconds *int `json:"seconds,omitempty"`
}

// IsZero reports whether no part is set to a non-zero value.
func (p DateTimeParts) IsZero() bool {
	for _, v := range []*int{p.Year, p.Month, p.Day, p.Hour, p.Minute, p.Seconds} {
		if v != nil && *v != 0 {
			return false
		}
	}
	return true
}

// PointerKind selects one of the three independent month/day pointers.
type PointerKind int

const (
	// PointerCurrent is the in-game "today".
	PointerCurrent PointerKind = iota
	// PointerVisible is the month shown in the calendar view. It has no day.
	PointerVisible
	// PointerSelected is the day the user clicked on.
	PointerSelected

	pointerKindCount
)

// String returns the lower-case pointer name used in routes and logs.
func (k PointerKind) String() string {
	switch k {
	case PointerCurrent:
		return "current"
	case PointerVisible:
		return "visible"
	case PointerSelected:
		return "selected"
	}
	return fmt.Sprintf("pointer(%d)", int(k))
}

// ParsePointerKind maps a route or config name to a PointerKind.
func ParsePointerKind(s string) (PointerKind, bool) {
	switch s {
	case "current":
		return PointerCurrent, true
	case "visible":
		return PointerVisible, true
	case "selected":
		return PointerSelected, true
	}
	return 0, false
}

// Pointer resolves a PointerKind to its flat month index and in-month day.
// Month is -1 when the pointer is unset; Day is -1 when no day is marked.
type Pointer struct {
	Kind  PointerKind `json:"kind"`
	Month int         `json:"month"`
	Day   int         `json:"day"`
}

// IsSet reports whether the pointer refers to a month.
func (p Pointer) IsSet() bool {
	return p.Month >= 0
}

// Weekday is a named day in the repeating seven-day week.
type Weekday struct {
	Name         string `json:"name"`
	Abbreviation string `json:"abbreviation"`
}

// monthIdentity is the static display data for one of the twelve months.
type monthIdentity struct {
	Name        string
	Description string
}

// monthIdentities is indexed by month identity (flat index mod 12).
var monthIdentities = [MonthsPerYear]monthIdentity{
	{Name: "Dewfall", Description: "The first thaw; the road opens."},
	{Name: "Seedwake", Description: "Planting month."},
	{Name: "Blossom", Description: "Orchards flower along the road."},
	{Name: "Longlight", Description: "The days stretch toward midsummer."},
	{Name: "Highsun", Description: "Midsummer."},
	{Name: "Emberheat", Description: "The dry month."},
	{Name: "Reaping", Description: "First harvest."},
	{Name: "Gathering", Description: "Stores are filled."},
	{Name: "Leaffall", Description: "The forests turn."},
	{Name: "Frostfall", Description: "First frost on the high passes."},
	{Name: "Deepsnow", Description: "The passes close."},
	{Name: "Longnight", Description: "The year's darkest month."},
}

// defaultWeekdays is used when a snapshot carries no weekdays.
var defaultWeekdays = []Weekday{
	{Name: "Sunday", Abbreviation: "Su"},
	{Name: "Moonday", Abbreviation: "Mo"},
	{Name: "Tideday", Abbreviation: "Ti"},
	{Name: "Windsday", Abbreviation: "Wi"},
	{Name: "Thornsday", Abbreviation: "Th"},
	{Name: "Fireday", Abbreviation: "Fi"},
	{Name: "Starday", Abbreviation: "St"},
}
