package models

import (
	"strings"
	"time"
)

// Filter narrows a reservation list the same way the web UI does: a
// case-insensitive substring match on the guest name plus an exact status match.
type Filter struct {
	Search string
	Status string
}

func (f Filter) IsZero() bool {
	return f.Search == "" && (f.Status == "" || f.Status == StatusAll)
}

func (f Filter) Match(r Reservation) bool {
	if f.Search != "" && !strings.Contains(strings.ToLower(r.NomeHospede), strings.ToLower(f.Search)) {
		return false
	}
	if f.Status != "" && f.Status != StatusAll && r.Status != f.Status {
		return false
	}
	return true
}

// Apply returns the matching reservations in their original order.
func (f Filter) Apply(list []Reservation) []Reservation {
	out := make([]Reservation, 0, len(list))
	for _, r := range list {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

// FormatDisplayDate renders an input date as dd/mm/yyyy. Values that do not
// parse are returned unchanged.
func FormatDisplayDate(value string) string {
	for _, layout := range []string{InputDateLayout, time.RFC3339, TimestampLayout} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format(DisplayDateLayout)
		}
	}
	return value
}
