package series

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// LabelFor renders the generation label of instant for the period
func LabelFor(period Period, instant time.Time) (string, error) {
	if _, err := Lookup(period); err != nil {
		return "", err
	}
	return labelFor(period, instant), nil
}

func labelFor(period Period, instant time.Time) string {
	switch period {
	case Hour:
		return fmt.Sprintf("%02d:%02d", instant.Hour(), instant.Minute())
	case Day24:
		return clock12(instant.Hour(), instant.Minute())
	default:
		return fmt.Sprintf("%d/%d", int(instant.Month()), instant.Day())
	}
}

// clock12 formats hour:minute on a 12-hour clock with a lowercase am/pm suffix
func clock12(hour, minute int) string {
	display := hour
	switch {
	case hour == 0:
		display = 12
	case hour > 12:
		display = hour - 12
	}
	suffix := "am"
	if hour >= 12 {
		suffix = "pm"
	}
	return fmt.Sprintf("%d:%02d%s", display, minute, suffix)
}

// Redisplay converts an already generated label into its axis/tooltip form.
// Hour labels ("13:05") become 12-hour ("1:05pm"); other periods are already human readable.
// Labels that do not parse are returned unchanged.
func Redisplay(period Period, label string) string {
	if period != Hour {
		return label
	}
	hh, mm, ok := strings.Cut(label, ":")
	if !ok {
		return label
	}
	hour, err := strconv.Atoi(hh)
	if err != nil || hour < 0 || hour > 23 {
		return label
	}
	minute, err := strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 {
		return label
	}
	return clock12(hour, minute)
}

// Tooltip returns the tooltip heading for a label
func Tooltip(period Period, label string) string {
	if period == Week {
		return "Date: " + label
	}
	return "Time: " + Redisplay(period, label)
}

// ValueString renders a value with the profile's unit suffix
func ValueString(profile QuantityProfile, value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64) + profile.UnitSuffix
}
