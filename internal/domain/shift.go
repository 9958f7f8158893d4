package domain

import "time"

type Shift string

const (
	ShiftDawn      Shift = "dawn"
	ShiftMorning   Shift = "morning"
	ShiftAfternoon Shift = "afternoon"
	ShiftNight     Shift = "night"
)

// ClassifyShift maps a timestamp to its shift using the hour-of-day in the
// timestamp's own location. Intervals are right-open: 06:00 is morning, 18:00
// is night.
func ClassifyShift(t time.Time) Shift {
	switch h := t.Hour(); {
	case h < 6:
		return ShiftDawn
	case h < 12:
		return ShiftMorning
	case h < 18:
		return ShiftAfternoon
	default:
		return ShiftNight
	}
}
