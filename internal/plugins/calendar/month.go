package calendar

// Day is one day of a Month. Number is one-based for display.
type Day struct {
	Number int `json:"number"`
}

// Month is one instance of a month identity in one year. It owns its days and
// the in-month day index of every pointer kind. It never looks at sibling
// months; crossing a month boundary is the Calendar's job.
type Month struct {
	MonthID      int    `json:"month_id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Abbreviation string `json:"abbreviation"`
	NumberOfDays int    `json:"number_of_days"`
	Days         []Day  `json:"days"`

	// dayIndex holds the marked day for each pointer kind, -1 when unmarked.
	dayIndex [pointerKindCount]int
}

// NewMonth creates the month at flat position index with the given length.
// Display data comes from the static identity table.
func NewMonth(index, numberOfDays int) *Month {
	m := &Month{}
	m.relabel(index)
	m.setLength(numberOfDays)
	return m
}

// relabel assigns the month identity and display data for a flat position.
func (m *Month) relabel(index int) {
	id := index % MonthsPerYear
	if id < 0 {
		id += MonthsPerYear
	}
	m.MonthID = id
	m.Name = monthIdentities[id].Name
	m.Description = monthIdentities[id].Description
	m.Abbreviation = abbreviate(m.Name)
}

func (m *Month) setLength(numberOfDays int) {
	if numberOfDays < 0 {
		numberOfDays = 0
	}
	m.NumberOfDays = numberOfDays
	m.Days = make([]Day, numberOfDays)
	for i := range m.Days {
		m.Days[i] = Day{Number: i + 1}
	}
	for k := range m.dayIndex {
		m.dayIndex[k] = -1
	}
}

func abbreviate(name string) string {
	r := []rune(name)
	if len(r) > 3 {
		r = r[:3]
	}
	return string(r)
}

// DayIndex returns the day marked for kind, or -1.
func (m *Month) DayIndex(kind PointerKind) int {
	return m.dayIndex[kind]
}

// ResetDays clears the day marked for kind.
func (m *Month) ResetDays(kind PointerKind) {
	m.dayIndex[kind] = -1
}

// UpdateDay marks dayIndex for kind, clearing any previous mark. An index of
// -1 selects the last day; any other out-of-range index falls back to day 0.
// A month with no days stays unmarked.
func (m *Month) UpdateDay(dayIndex int, kind PointerKind) {
	m.ResetDays(kind)
	if m.NumberOfDays == 0 {
		return
	}
	switch {
	case dayIndex == -1:
		dayIndex = m.NumberOfDays - 1
	case dayIndex < 0 || dayIndex >= m.NumberOfDays:
		dayIndex = 0
	}
	m.dayIndex[kind] = dayIndex
}

// ChangeDay moves the day marked for kind by amount. When the result would
// leave the month the mark is cleared and the sign of the overflow (+1 or -1)
// is returned so the caller can roll into the adjacent month. An unmarked
// month is left alone and reports 0.
func (m *Month) ChangeDay(amount int, kind PointerKind) int {
	current := m.dayIndex[kind]
	if current < 0 {
		return 0
	}
	next := current + amount
	if next < 0 || next >= m.NumberOfDays {
		m.ResetDays(kind)
		if amount > 0 {
			return 1
		}
		return -1
	}
	m.UpdateDay(next, kind)
	return 0
}

// DoesDayExist reports whether dayIndex is a valid day of this month.
func (m *Month) DoesDayExist(dayIndex int) bool {
	return dayIndex >= 0 && dayIndex < m.NumberOfDays
}

// Clone returns a deep copy, pointer marks included.
func (m *Month) Clone() *Month {
	c := *m
	c.Days = append([]Day(nil), m.Days...)
	return &c
}

// BuildMonths creates the flat month sequence from a list of month lengths.
// Position k belongs to year EpochYear+k/12 with identity k%12.
func BuildMonths(lengths []int) []*Month {
	months := make([]*Month, len(lengths))
	for i, n := range lengths {
		months[i] = NewMonth(i, n)
	}
	return months
}
