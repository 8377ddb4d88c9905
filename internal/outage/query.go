package outage

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// DateLayout is the YYYY-MM-DD form of query dates
const DateLayout = "2006-01-02"

// ErrInvalidQuery is returned for an inconsistent date filter
var ErrInvalidQuery = errors.New("invalid outage query")

// Query filters outages by start day. The zero Query matches every outage.
type Query struct {
	Date  *time.Time
	Start *time.Time
	End   *time.Time
}

// ByDate matches outages starting on the given calendar day
func ByDate(date time.Time) Query {
	d := day(date)
	return Query{Date: &d}
}

// ByRange matches outages starting on any day from start to end inclusive
func ByRange(start, end time.Time) Query {
	s, e := day(start), day(end)
	return Query{Start: &s, End: &e}
}

// ParseQuery builds a query from YYYY-MM-DD strings; empty strings are treated as absent
func ParseQuery(date, startDate, endDate string) (Query, error) {
	parse := func(name, value string) (*time.Time, error) {
		if value == "" {
			return nil, nil
		}
		t, err := time.Parse(DateLayout, value)
		if err != nil {
			return nil, fmt.Errorf("%w: %s %q is not YYYY-MM-DD", ErrInvalidQuery, name, value)
		}
		return &t, nil
	}

	var q Query
	var err error
	if q.Date, err = parse("date", date); err != nil {
		return Query{}, err
	}
	if q.Start, err = parse("start_date", startDate); err != nil {
		return Query{}, err
	}
	if q.End, err = parse("end_date", endDate); err != nil {
		return Query{}, err
	}
	return q, q.Validate()
}

// Validate rejects a query mixing date with a range, a half-open range, or a reversed range
func (q Query) Validate() error {
	if q.Date != nil && (q.Start != nil || q.End != nil) {
		return fmt.Errorf("%w: date cannot be combined with start_date/end_date", ErrInvalidQuery)
	}
	if (q.Start == nil) != (q.End == nil) {
		return fmt.Errorf("%w: start_date and end_date must be given together", ErrInvalidQuery)
	}
	if q.Start != nil && day(*q.End).Before(day(*q.Start)) {
		return fmt.Errorf("%w: end_date before start_date", ErrInvalidQuery)
	}
	return nil
}

// IsAll reports whether the query has no filter
func (q Query) IsAll() bool {
	return q.Date == nil && q.Start == nil && q.End == nil
}

// Bounds returns the half-open interval [from, to) of start times the query
// matches, with calendar days interpreted in loc. ok is false for IsAll.
func (q Query) Bounds(loc *time.Location) (from, to time.Time, ok bool) {
	if loc == nil {
		loc = time.Local
	}
	switch {
	case q.Date != nil:
		from = midnight(*q.Date, loc)
		return from, from.AddDate(0, 0, 1), true
	case q.Start != nil && q.End != nil:
		return midnight(*q.Start, loc), midnight(*q.End, loc).AddDate(0, 0, 1), true
	}
	return time.Time{}, time.Time{}, false
}

// Matches reports whether an outage starting at start satisfies the query
func (q Query) Matches(start time.Time, loc *time.Location) bool {
	from, to, ok := q.Bounds(loc)
	if !ok {
		return true
	}
	return !start.Before(from) && start.Before(to)
}

// Values encodes the query as date or start_date/end_date parameters
func (q Query) Values() url.Values {
	v := url.Values{}
	if q.Date != nil {
		v.Set("date", q.Date.Format(DateLayout))
	}
	if q.Start != nil {
		v.Set("start_date", q.Start.Format(DateLayout))
	}
	if q.End != nil {
		v.Set("end_date", q.End.Format(DateLayout))
	}
	return v
}

func (q Query) String() string {
	if q.IsAll() {
		return "all"
	}
	return q.Values().Encode()
}

// day drops the clock part, keeping the calendar date as written in t's location
func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func midnight(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
