// import.go provides calendar import from three JSON shapes:
//
//   - the native export envelope ("format": "rtts-calendar-v1")
//   - a bare native Config object
//   - a Simple Calendar style export carrying "rttsMoons", either as a single
//     "calendar" object or as the first entry of a "calendars" array
//
// Every shape is converted to a Config; LoadFromConfig does the validation.

package calendar

import (
	"encoding/json"
	"fmt"
)

// ImportFormat identifies which JSON format was detected.
type ImportFormat string

const (
	FormatNative    ImportFormat = "rtts"
	FormatConfig    ImportFormat = "rtts-config"
	FormatSimpleCal ImportFormat = "simple-calendar"
	FormatUnknown   ImportFormat = "unknown"
)

// ImportResult holds the parsed snapshot ready to be loaded.
type ImportResult struct {
	Format ImportFormat `json:"format"`
	Config Config       `json:"config"`
}

// DetectAndParse auto-detects the format of raw JSON bytes and parses it into
// an ImportResult.
func DetectAndParse(data []byte) (*ImportResult, error) {
	switch format := detectFormat(data); format {
	case FormatNative:
		var exp CalendarExport
		if err := json.Unmarshal(data, &exp); err != nil {
			return nil, fmt.Errorf("parse calendar export: %w", err)
		}
		return &ImportResult{Format: format, Config: exp.Calendar}, nil
	case FormatConfig:
		var cfg Config
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse calendar config: %w", err)
		}
		return &ImportResult{Format: format, Config: cfg}, nil
	case FormatSimpleCal:
		return parseSimpleCalendar(data)
	default:
		return nil, fmt.Errorf("unrecognized calendar format")
	}
}

// detectFormat inspects the top-level keys of the raw JSON.
func detectFormat(data []byte) ImportFormat {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return FormatUnknown
	}

	if formatVal, ok := raw["format"]; ok {
		var f string
		if json.Unmarshal(formatVal, &f) == nil && f == ExportFormat {
			return FormatNative
		}
	}

	if _, ok := raw["calendar"]; ok {
		return FormatSimpleCal
	}
	if _, ok := raw["calendars"]; ok {
		return FormatSimpleCal
	}

	if _, ok := raw["moons"]; ok {
		if _, ok := raw["current"]; ok {
			return FormatConfig
		}
	}
	return FormatUnknown
}

// --- Simple Calendar style parser ---

type scData struct {
	Calendar scCalendar `json:"calendar"`
}

// scCalendar is the subset of a Simple Calendar configuration the RTTS
// calendar uses. Legacy "*Settings" keys are accepted as aliases.
type scCalendar struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	CurrentDate scCurrentDate `json:"currentDate"`
	General     scGeneral     `json:"general"`
	RttsMoons   []scRttsMoon  `json:"rttsMoons"`
	Time        scTime        `json:"time"`
	Weekdays    []scWeekday   `json:"weekdays"`
}

// UnmarshalJSON handles the legacy field names as aliases.
func (c *scCalendar) UnmarshalJSON(data []byte) error {
	type Alias scCalendar
	var v Alias
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*c = scCalendar(v)

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	if len(c.Weekdays) == 0 {
		if v, ok := raw["weekdaySettings"]; ok {
			_ = json.Unmarshal(v, &c.Weekdays)
		}
	}
	if c.Time == (scTime{}) {
		if v, ok := raw["timeSettings"]; ok {
			_ = json.Unmarshal(v, &c.Time)
		}
	}
	if c.General == (scGeneral{}) {
		if v, ok := raw["generalSettings"]; ok {
			_ = json.Unmarshal(v, &c.General)
		}
	}
	return nil
}

type scCurrentDate struct {
	Year    int `json:"year"`
	Month   int `json:"month"`
	Day     int `json:"day"`
	Seconds int `json:"seconds"`
}

type scGeneral struct {
	GameWorldTimeIntegration string `json:"gameWorldTimeIntegration"`
}

type scRttsMoon struct {
	RttsMoonID    int    `json:"rttsMoonId"`
	CycleLengths  []int  `json:"cycleLengths"`
	FirstFullMoon Date   `json:"firstFullMoon"`
	Color         string `json:"color"`
}

type scTime struct {
	GameTimeRatio   float64 `json:"gameTimeRatio"`
	UpdateFrequency int     `json:"updateFrequency"`
}

type scWeekday struct {
	Name         string `json:"name"`
	Abbreviation string `json:"abbreviation"`
}

// parseSimpleCalendar converts a Simple Calendar style export into an
// ImportResult.
func parseSimpleCalendar(data []byte) (*ImportResult, error) {
	var multi struct {
		Calendars []scCalendar `json:"calendars"`
	}
	if err := json.Unmarshal(data, &multi); err == nil && len(multi.Calendars) > 0 {
		return convertSimpleCalendar(multi.Calendars[0]), nil
	}

	var sc scData
	if err := json.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse simple calendar JSON: %w", err)
	}
	return convertSimpleCalendar(sc.Calendar), nil
}

func convertSimpleCalendar(sc scCalendar) *ImportResult {
	secs := sc.CurrentDate.Seconds
	cfg := Config{
		ID:   sc.ID,
		Name: sc.Name,
		General: GeneralSettings{
			WorldTimeIntegration: sc.General.GameWorldTimeIntegration,
		},
		Current: DateTime{
			Year:    sc.CurrentDate.Year,
			Month:   sc.CurrentDate.Month,
			Day:     sc.CurrentDate.Day,
			Hour:    secs / secondsPerHour,
			Minute:  secs % secondsPerHour / secondsPerMinute,
			Seconds: secs % secondsPerMinute,
		},
		GameTimeRatio:   sc.Time.GameTimeRatio,
		UpdateFrequency: sc.Time.UpdateFrequency,
	}
	for _, w := range sc.Weekdays {
		cfg.Weekdays = append(cfg.Weekdays, Weekday{Name: w.Name, Abbreviation: w.Abbreviation})
	}
	for _, m := range sc.RttsMoons {
		key := fmt.Sprintf("rtts-moon-%d", m.RttsMoonID)
		if m.RttsMoonID >= 0 && m.RttsMoonID < int(moonCount) {
			key = MoonID(m.RttsMoonID).String()
		}
		cfg.Moons = append(cfg.Moons, MoonConfig{
			Key:           key,
			CycleLengths:  m.CycleLengths,
			FirstFullMoon: m.FirstFullMoon,
			Color:         m.Color,
		})
	}
	return &ImportResult{Format: FormatSimpleCal, Config: cfg}
}
