package models

import (
	"errors"
	"math"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

var dateLayouts = []string{DateLayout, time.RFC3339, time.RFC3339Nano, "2006-01", "2006"}

var ErrInvalidDate = errors.New("invalid date")

// ParseDate accepts YYYY-MM-DD, RFC3339, YYYY-MM or YYYY.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrInvalidDate
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrInvalidDate
}

// NormalizeDate keeps only the calendar date of s, formatted as YYYY-MM-DD.
func NormalizeDate(s string) (string, error) {
	t, err := ParseDate(s)
	if err != nil {
		return "", err
	}
	return t.Format(DateLayout), nil
}

// AgeOn returns the completed years between dob and now. The birthday itself
// counts as completed.
func AgeOn(dob, now time.Time) int {
	age := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		age--
	}
	if age < 0 {
		return 0
	}
	return age
}

// YearsBetween returns the whole months between from and to as years, rounded
// to one decimal. ok is false when either date is missing or to precedes from.
func YearsBetween(from, to string) (float64, bool) {
	start, err := ParseDate(from)
	if err != nil {
		return 0, false
	}
	end, err := ParseDate(to)
	if err != nil {
		return 0, false
	}

	months := (end.Year()-start.Year())*12 + int(end.Month()-start.Month())
	if end.Day() < start.Day() {
		months--
	}
	if months < 0 {
		return 0, false
	}
	return math.Round(float64(months)/12*10) / 10, true
}
