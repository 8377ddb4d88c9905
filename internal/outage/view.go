package outage

import (
	"time"
)

// DisplayLayout is the "month day, HH:MM" form used for formatted timestamps
const DisplayLayout = "Jan 2, 03:04 PM"

// Placeholder stands in for a missing end time
const Placeholder = "-"

// View is a read-only record plus its derived display fields
type View struct {
	Record
	Duration       string `json:"duration"`
	FormattedStart string `json:"formatted_start"`
	FormattedEnd   string `json:"formatted_end"`
}

// Display derives the display fields of r in loc
func (r Record) Display(loc *time.Location) View {
	if loc == nil {
		loc = time.Local
	}
	v := View{
		Record:         r,
		Duration:       r.Duration(),
		FormattedStart: r.StartTime.In(loc).Format(DisplayLayout),
		FormattedEnd:   Placeholder,
	}
	if r.EndTime != nil {
		v.FormattedEnd = r.EndTime.In(loc).Format(DisplayLayout)
	}
	return v
}
