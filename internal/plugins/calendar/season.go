package calendar

import "sort"

// Season is one of the four fixed RTTS seasons. StartingMonth is a month
// identity (0-11) and StartingDay is zero-based. Sunrise and sunset are
// seconds after local midnight.
type Season struct {
	Name          string `json:"name"`
	StartingMonth int    `json:"starting_month"`
	StartingDay   int    `json:"starting_day"`
	SunriseTime   int    `json:"sunrise_time"`
	SunsetTime    int    `json:"sunset_time"`
	Color         string `json:"color"`
	Icon          string `json:"icon"`
}

// defaultSeasons partitions the year into four three-month bands.
var defaultSeasons = []Season{
	{Name: "Spring", StartingMonth: 0, StartingDay: 0, SunriseTime: 6 * secondsPerHour, SunsetTime: 19 * secondsPerHour, Color: "#46b946", Icon: "spring"},
	{Name: "Summer", StartingMonth: 3, StartingDay: 0, SunriseTime: 5 * secondsPerHour, SunsetTime: 21 * secondsPerHour, Color: "#e0c40b", Icon: "summer"},
	{Name: "Fall", StartingMonth: 6, StartingDay: 0, SunriseTime: 6*secondsPerHour + 30*secondsPerMinute, SunsetTime: 18 * secondsPerHour, Color: "#ff8e47", Icon: "fall"},
	{Name: "Winter", StartingMonth: 9, StartingDay: 0, SunriseTime: 8 * secondsPerHour, SunsetTime: 16*secondsPerHour + 30*secondsPerMinute, Color: "#479dff", Icon: "winter"},
}

// DefaultSeasons returns a copy of the reference season table.
func DefaultSeasons() []Season {
	return append([]Season(nil), defaultSeasons...)
}

// sortSeasons orders seasons by starting month, then starting day.
func sortSeasons(seasons []Season) {
	sort.SliceStable(seasons, func(i, j int) bool {
		if seasons[i].StartingMonth != seasons[j].StartingMonth {
			return seasons[i].StartingMonth < seasons[j].StartingMonth
		}
		return seasons[i].StartingDay < seasons[j].StartingDay
	})
}

// seasonFor returns the index into sorted seasons whose band contains the
// month identity and day. Dates before the first season's start belong to
// the last season of the previous year.
func seasonFor(sorted []Season, monthID, dayIndex int) int {
	idx := len(sorted) - 1
	for i, s := range sorted {
		if s.StartingMonth < monthID || (s.StartingMonth == monthID && s.StartingDay <= dayIndex) {
			idx = i
		}
	}
	return idx
}
