package calendar

import "time"

// ExportFormat is the format tag of the native export envelope.
const ExportFormat = "rtts-calendar-v1"

// CalendarExport is the top-level JSON envelope for calendar export.
type CalendarExport struct {
	Format     string    `json:"format"`
	Version    int       `json:"version"`
	ExportedAt time.Time `json:"exported_at"`
	Calendar   Config    `json:"calendar"`
}

// BuildExport wraps cfg in the export envelope.
func BuildExport(cfg Config, now time.Time) CalendarExport {
	return CalendarExport{
		Format:     ExportFormat,
		Version:    1,
		ExportedAt: now.UTC(),
		Calendar:   cfg,
	}
}
