package outage

import (
	"fmt"
)

// Status is the lifecycle state of an outage
type Status int

const (
	// Active outages have no end time yet
	Active Status = iota + 1
	// Resolved outages carry end time and restored voltage
	Resolved
)

var statusNames = map[Status]string{
	Active:   "Active",
	Resolved: "Resolved",
}

// ParseStatus maps "Active" or "Resolved" to a Status
func ParseStatus(name string) (Status, error) {
	for s, n := range statusNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown status %q", ErrMalformedRecord, name)
}

// Valid reports whether s is one of the known states
func (s Status) Valid() bool {
	_, ok := statusNames[s]
	return ok
}

func (s Status) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler
func (s Status) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: unknown status %d", ErrMalformedRecord, int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
