package calendar

import (
	"fmt"

	"github.com/keyxmakerx/roadtothesky/internal/sanitize"
)

const maxLabelRunes = 100

// MoonConfig is the persisted form of one moon.
type MoonConfig struct {
	Key           string `json:"key"`
	CycleLengths  []int  `json:"cycle_lengths"`
	FirstFullMoon Date   `json:"first_full_moon"`
	Color         string `json:"color,omitempty"`
}

// Config is the persisted calendar snapshot. Month lengths are not stored
// separately; they are the harvest moon's cycle lengths.
type Config struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	General         GeneralSettings `json:"general"`
	Weekdays        []Weekday       `json:"weekdays"`
	Seasons         []Season        `json:"seasons,omitempty"`
	Moons           []MoonConfig    `json:"moons"`
	Current         DateTime        `json:"current"`
	GameTimeRatio   float64         `json:"game_time_ratio"`
	UpdateFrequency int             `json:"update_frequency"`
}

// LoadResult is a loaded calendar plus the configuration defects that were
// repaired with defaults while loading it.
type LoadResult struct {
	Calendar *Calendar
	Warnings []string
}

// Partial reports whether any default was substituted during load.
func (r LoadResult) Partial() bool {
	return len(r.Warnings) > 0
}

// LoadFromConfig builds a calendar from a snapshot. It never fails: missing
// or malformed parts are replaced by defaults and reported as warnings.
func LoadFromConfig(cfg Config) LoadResult {
	var warnings []string
	warn := func(format string, args ...any) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	}

	c := newEmpty(cfg.ID, sanitize.Label(cfg.Name, "Road to the Sky", maxLabelRunes))

	switch cfg.General.WorldTimeIntegration {
	case WorldTimeNone, WorldTimeSelf, WorldTimeThirdParty, WorldTimeMixed:
		c.General.WorldTimeIntegration = cfg.General.WorldTimeIntegration
	case "":
	default:
		warn("unknown world time integration %q, using %q", cfg.General.WorldTimeIntegration, WorldTimeMixed)
	}
	c.General.ChangeDateTime = cfg.General.ChangeDateTime
	c.General.ChangeDateTime.Users = append([]string(nil), cfg.General.ChangeDateTime.Users...)

	if len(cfg.Weekdays) == 0 {
		warn("no weekdays configured, using defaults")
	} else {
		c.Weekdays = make([]Weekday, 0, len(cfg.Weekdays))
		for i, w := range cfg.Weekdays {
			name := sanitize.Label(w.Name, fmt.Sprintf("Day %d", i+1), maxLabelRunes)
			abbr := sanitize.Label(w.Abbreviation, abbreviate(name), maxLabelRunes)
			c.Weekdays = append(c.Weekdays, Weekday{Name: name, Abbreviation: abbr})
		}
	}

	switch {
	case len(cfg.Seasons) == 0:
	case !sameSeasonBands(cfg.Seasons, c.seasons):
		warn("custom seasons are not supported, using the fixed season bands")
	default:
		c.seasons = loadSeasons(cfg.Seasons, c.seasons, warn)
	}

	if cfg.GameTimeRatio > 0 {
		c.GameTimeRatio = cfg.GameTimeRatio
	}
	if cfg.UpdateFrequency > 0 {
		c.UpdateFrequency = cfg.UpdateFrequency
	}

	seen := make(map[MoonID]bool, moonCount)
	for _, mc := range cfg.Moons {
		id, ok := ParseMoonID(mc.Key)
		if !ok {
			warn("unknown moon %q ignored", mc.Key)
			continue
		}
		if seen[id] {
			warn("duplicate moon %q ignored", mc.Key)
			continue
		}
		seen[id] = true

		m := c.moons[id]
		m.CycleLengths = m.CycleLengths[:0]
		for i, l := range mc.CycleLengths {
			if l <= 0 {
				warn("moon %q cycle %d has non-positive length %d, dropped", mc.Key, i, l)
				continue
			}
			m.CycleLengths = append(m.CycleLengths, l)
		}
		if mc.Color != "" {
			m.Color = sanitize.Label(mc.Color, m.Color, 32)
		}
		if id != MoonHarvest {
			m.FirstFullMoon = Date{Year: EpochYear}
		} else if mc.FirstFullMoon.Year != 0 && mc.FirstFullMoon != (Date{Year: EpochYear}) {
			warn("harvest moon first full moon must be the epoch, got %s", mc.FirstFullMoon)
		}
		if len(m.CycleLengths) == 0 {
			m.CycleLengths = []int{1}
			warn("moon %q has no cycles, using a single one-day cycle", mc.Key)
		}
	}
	for id := MoonID(0); id < moonCount; id++ {
		if !seen[id] {
			warn("moon %q missing, using defaults", id)
		}
	}
	if !seen[MoonHarvest] {
		lengths := make([]int, MonthsPerYear)
		for i := range lengths {
			lengths[i] = 30
		}
		c.moons[MoonHarvest].CycleLengths = lengths
	}

	c.rebuild()

	cur := cfg.Current
	flat := c.FlatMonthIndex(cur.Year, cur.Month)
	switch {
	case cur == (DateTime{}):
	case cur.Month < 0 || cur.Month >= MonthsPerYear:
		warn("current month %d is not a month identity, using the first day", cur.Month)
		cur = DateTime{Year: EpochYear}
	case !c.DoesDayExist(flat, cur.Day):
		warn("current date %s is outside the calendar, clamped", cur.Date())
	}
	if cur == (DateTime{}) {
		cur.Year = EpochYear
	}
	c.UpdateTime(cur)
	c.SetCurrentToVisible()

	return LoadResult{Calendar: c, Warnings: warnings}
}

// sameSeasonBands reports whether a and b start their seasons on the same
// days, in any order.
func sameSeasonBands(a, b []Season) bool {
	if len(a) != len(b) {
		return false
	}
	x, y := append([]Season(nil), a...), append([]Season(nil), b...)
	sortSeasons(x)
	sortSeasons(y)
	for i := range x {
		if x[i].StartingMonth != y[i].StartingMonth || x[i].StartingDay != y[i].StartingDay {
			return false
		}
	}
	return true
}

// loadSeasons takes the display fields and daylight hours of cfg over the
// fixed bands in base. Both slices describe the same bands.
func loadSeasons(cfg, base []Season, warn func(string, ...any)) []Season {
	in := append([]Season(nil), cfg...)
	sortSeasons(in)
	out := append([]Season(nil), base...)
	sortSeasons(out)

	for i, s := range in {
		d := &out[i]
		d.Name = sanitize.Label(s.Name, d.Name, maxLabelRunes)
		d.Color = sanitize.Label(s.Color, d.Color, 32)
		d.Icon = sanitize.Label(s.Icon, d.Icon, 32)
		if s.SunriseTime < 0 || s.SunriseTime >= s.SunsetTime || s.SunsetTime > SecondsPerDay {
			warn("season %q has invalid daylight %d-%d, using %d-%d",
				d.Name, s.SunriseTime, s.SunsetTime, d.SunriseTime, d.SunsetTime)
			continue
		}
		d.SunriseTime = s.SunriseTime
		d.SunsetTime = s.SunsetTime
	}
	return out
}

// ToConfig captures the calendar as a snapshot. LoadFromConfig(c.ToConfig())
// reproduces the calendar with no warnings.
func (c *Calendar) ToConfig() Config {
	cfg := Config{
		ID:              c.ID,
		Name:            c.Name,
		General:         c.General,
		Weekdays:        append([]Weekday(nil), c.Weekdays...),
		Seasons:         c.Seasons(),
		Current:         c.CurrentDateTime(),
		GameTimeRatio:   c.GameTimeRatio,
		UpdateFrequency: c.UpdateFrequency,
	}
	cfg.General.ChangeDateTime.Users = append([]string(nil), c.General.ChangeDateTime.Users...)
	for _, m := range c.moons {
		cfg.Moons = append(cfg.Moons, MoonConfig{
			Key:           m.ID.String(),
			CycleLengths:  append([]int(nil), m.CycleLengths...),
			FirstFullMoon: m.FirstFullMoon,
			Color:         m.Color,
		})
	}
	return cfg
}
