package service

import (
	"strings"
	"time"

	apperrors "github.com/spec-kit/appointment-service/pkg/util/errorutil"
)

// dateLayouts are tried in order; zone-less layouts are read in the validator's location.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// SlotValidator turns a requested date into the start of a bookable hour.
type SlotValidator struct {
	loc *time.Location
}

// NewSlotValidator interprets zone-less dates in loc.
func NewSlotValidator(loc *time.Location) *SlotValidator {
	if loc == nil {
		loc = time.UTC
	}
	return &SlotValidator{loc: loc}
}

// Normalize parses raw, truncates it to the hour and rejects hours that start before now.
func (v *SlotValidator) Normalize(raw string, now time.Time) (time.Time, error) {
	parsed, err := v.Parse(raw)
	if err != nil {
		return time.Time{}, err
	}
	hour := HourStart(parsed)
	if hour.Before(now) {
		return time.Time{}, apperrors.ErrPastDate
	}
	return hour, nil
}

// Parse reads raw in any accepted layout without applying slot rules.
func (v *SlotValidator) Parse(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, apperrors.ErrInvalidDate
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, raw, v.loc); err == nil {
			return t.In(v.loc), nil
		}
	}
	return time.Time{}, apperrors.ErrInvalidDate
}

// HourStart zeroes minutes, seconds and nanoseconds in t's own location.
// It subtracts the offset into the hour instead of rebuilding the wall clock,
// so the repeated hour of a DST fall-back keeps its own instant.
func HourStart(t time.Time) time.Time {
	into := time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second +
		time.Duration(t.Nanosecond())
	return t.Add(-into)
}
