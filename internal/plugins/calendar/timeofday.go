package calendar

// TimeOfDay is the wall-clock position within the current day, kept as whole
// seconds since midnight in [0, SecondsPerDay).
type TimeOfDay struct {
	Seconds int `json:"seconds"`
}

// Hour, Minute and Second decompose the time of day.
func (t TimeOfDay) Hour() int   { return t.Seconds / secondsPerHour }
func (t TimeOfDay) Minute() int { return t.Seconds % secondsPerHour / secondsPerMinute }
func (t TimeOfDay) Second() int { return t.Seconds % secondsPerMinute }

// SetTime replaces the time of day. Values that overflow a day wrap; the
// overflow is discarded because an absolute set does not move the date.
func (t *TimeOfDay) SetTime(hour, minute, second int) {
	total := hour*secondsPerHour + minute*secondsPerMinute + second
	t.Seconds = floorMod(total, SecondsPerDay)
}

// ChangeTime adds to the time of day and returns the signed number of whole
// days the result rolled over (negative when it went past midnight backwards).
func (t *TimeOfDay) ChangeTime(hours, minutes, seconds int) int {
	total := t.Seconds + hours*secondsPerHour + minutes*secondsPerMinute + seconds
	days := floorDiv(total, SecondsPerDay)
	t.Seconds = total - days*SecondsPerDay
	return days
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorMod(a, b int) int {
	return a - floorDiv(a, b)*b
}
