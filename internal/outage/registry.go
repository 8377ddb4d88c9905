package outage

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrSourceUnavailable is matched by every failure of the outage source
var ErrSourceUnavailable = errors.New("outage source unavailable")

// SourceError describes a failed outage source query
type SourceError struct {
	StatusCode int
	Status     string
	URL        string
	Err        error
}

func (e *SourceError) Error() string {
	msg := "outage source"
	if e.URL != "" {
		msg += " " + e.URL
	}
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: %d %s", msg, e.StatusCode, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg + ": unavailable"
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// Is makes every SourceError match ErrSourceUnavailable
func (e *SourceError) Is(target error) bool {
	return target == ErrSourceUnavailable
}

// Source retrieves outage records for a query, from the network or a store
type Source interface {
	Fetch(ctx context.Context, q Query) ([]Record, error)
}

// SourceFunc adapts a function to Source
type SourceFunc func(ctx context.Context, q Query) ([]Record, error)

// Fetch calls f
func (f SourceFunc) Fetch(ctx context.Context, q Query) ([]Record, error) {
	return f(ctx, q)
}

// Registry lists outages from a Source, rejecting malformed records and
// deriving the display fields. Each call is a fresh query.
type Registry struct {
	source   Source
	location *time.Location
}

// NewRegistry creates a registry over source rendering times in loc
func NewRegistry(source Source, loc *time.Location) *Registry {
	if loc == nil {
		loc = time.Local
	}
	return &Registry{source: source, location: loc}
}

// List validates q, fetches the matching records and returns their views.
// Any malformed record fails the whole call.
func (r *Registry) List(ctx context.Context, q Query) ([]View, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	records, err := r.source.Fetch(ctx, q)
	if err != nil {
		if errors.Is(err, ErrSourceUnavailable) || errors.Is(err, ErrMalformedRecord) || errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, &SourceError{Err: err}
	}

	views := make([]View, 0, len(records))
	for _, rec := range records {
		if err := rec.Validate(); err != nil {
			return nil, fmt.Errorf("outage %s: %w", rec.ID, err)
		}
		views = append(views, rec.Display(r.location))
	}
	return views, nil
}

// Location returns the zone used for display fields and query days
func (r *Registry) Location() *time.Location {
	return r.location
}
