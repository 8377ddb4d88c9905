package outage

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrMalformedRecord is returned when a record breaks the status/end time/voltage after invariant
	ErrMalformedRecord = errors.New("malformed outage record")
	// ErrLifecycle is returned for a transition other than Active to Resolved
	ErrLifecycle = errors.New("invalid outage lifecycle transition")
	// ErrAlreadyActive is returned when opening an outage while another one is active
	ErrAlreadyActive = errors.New("an outage is already active")
)

// Record is a single outage event
type Record struct {
	ID            string     `json:"id"`
	StartTime     time.Time  `json:"start_time"`
	EndTime       *time.Time `json:"end_time"`
	Status        Status     `json:"status"`
	VoltageBefore float64    `json:"voltage_before"`
	VoltageAfter  *float64   `json:"voltage_after"`
	Cause         *string    `json:"cause"`
}

// NewActive creates an outage that started at start and has not ended yet
func NewActive(id string, start time.Time, voltageBefore float64, cause string) Record {
	r := Record{
		ID:            id,
		StartTime:     start,
		Status:        Active,
		VoltageBefore: voltageBefore,
	}
	if cause != "" {
		r.Cause = &cause
	}
	return r
}

// IsActive reports whether the outage is still ongoing
func (r Record) IsActive() bool {
	return r.Status == Active
}

// Validate checks that status, end time and voltage after agree with each other:
// an Active record has neither, a Resolved record has both and does not end before it starts.
func (r Record) Validate() error {
	if r.StartTime.IsZero() {
		return fmt.Errorf("%w: missing start time", ErrMalformedRecord)
	}

	switch r.Status {
	case Active:
		if r.EndTime != nil {
			return fmt.Errorf("%w: active outage has an end time", ErrMalformedRecord)
		}
		if r.VoltageAfter != nil {
			return fmt.Errorf("%w: active outage has a voltage after", ErrMalformedRecord)
		}
	case Resolved:
		if r.EndTime == nil {
			return fmt.Errorf("%w: resolved outage has no end time", ErrMalformedRecord)
		}
		if r.VoltageAfter == nil {
			return fmt.Errorf("%w: resolved outage has no voltage after", ErrMalformedRecord)
		}
		if r.EndTime.Before(r.StartTime) {
			return fmt.Errorf("%w: end time before start time", ErrMalformedRecord)
		}
	default:
		return fmt.Errorf("%w: unknown status %d", ErrMalformedRecord, int(r.Status))
	}
	return nil
}

// Resolve returns the record transitioned to Resolved. Only an Active record can be
// resolved, and only at or after its start.
func (r Record) Resolve(end time.Time, voltageAfter float64) (Record, error) {
	if r.Status != Active {
		return r, fmt.Errorf("%w: outage %s is %s", ErrLifecycle, r.ID, r.Status)
	}
	if end.Before(r.StartTime) {
		return r, fmt.Errorf("%w: end %s before start %s", ErrLifecycle,
			end.Format(time.RFC3339), r.StartTime.Format(time.RFC3339))
	}

	resolved := r
	resolved.Status = Resolved
	resolved.EndTime = &end
	resolved.VoltageAfter = &voltageAfter
	return resolved, nil
}

// Duration renders the derived duration: "Ongoing" while active, otherwise
// "22 min", "1h 15min" or "2h".
func (r Record) Duration() string {
	if r.Status == Active || r.EndTime == nil {
		return "Ongoing"
	}
	return FormatDuration(r.EndTime.Sub(r.StartTime))
}

// FormatDuration renders a span rounded down to whole minutes
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	minutes := int(d / time.Minute)
	if minutes < 60 {
		return fmt.Sprintf("%d min", minutes)
	}
	hours, rest := minutes/60, minutes%60
	if rest == 0 {
		return fmt.Sprintf("%dh", hours)
	}
	return fmt.Sprintf("%dh %dmin", hours, rest)
}
